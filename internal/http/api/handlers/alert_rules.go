package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fleetorbit/fleetorbit-api/internal/alerts"
	"github.com/fleetorbit/fleetorbit-api/internal/export"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/fleetorbit/fleetorbit-api/internal/webhook"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// AlertRuleHandler serves the alert-rule CRUD, listing and export endpoints.
type AlertRuleHandler struct {
	repo       *alerts.Repository
	dispatcher *webhook.Dispatcher
	exporter   export.Builder
}

// NewAlertRuleHandler constructs an AlertRuleHandler.
func NewAlertRuleHandler(repo *alerts.Repository, dispatcher *webhook.Dispatcher, exporter export.Builder) *AlertRuleHandler {
	return &AlertRuleHandler{repo: repo, dispatcher: dispatcher, exporter: exporter}
}

type alertRuleRequest struct {
	CustomerID  uint64  `json:"customer_id"` // Owning customer; defaults to the caller's.
	AccountIDs  []int64 `json:"account_id"`  // Account scope for the rule.
	GeofenceIDs []int64 `json:"geofence_id"`

	AlertName       string  `json:"alert_name"`
	AlertCategoryID uint64  `json:"alert_category_id"`
	AlertTypeIDs    []int64 `json:"alert_type_id"`

	EventLow          any    `json:"event_low"`  // String or number.
	EventHigh         any    `json:"event_high"` // String or number.
	TemperatureUnitID *int64 `json:"temperature_unit_id"`

	BetweenHoursFrom *int     `json:"between_hours_from"`
	BetweenHoursTo   *int     `json:"between_hours_to"`
	AlertDays        []string `json:"alert_days"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	EventDuration    *int     `json:"event_duration"`

	DeliveryMethodIDs []int64         `json:"delivery_method"`
	SMSRecipients     json.RawMessage `json:"sms_recipients"`
	EmailRecipients   json.RawMessage `json:"email_recipients"`
	RecipientsEmail   []string        `json:"recipients_email"`
	RecipientsMobile  []string        `json:"recipients_mobile"`
	RecipientUserIDs  []int64         `json:"recipient_user_ids"`
	IsWebhook         bool            `json:"is_webhook"`

	SelectedEquipmentIDs []int64 `json:"selected_equipment_ids"`
	EquipmentSelectAll   bool    `json:"equipmentSelectAll"`

	Status string `json:"status"`
}

func (req alertRuleRequest) toInput(caller uint64, actor uint64) alerts.RuleInput {
	input := alerts.RuleInput{
		CustomerID:           req.CustomerID,
		AccountIDs:           req.AccountIDs,
		GeofenceIDs:          req.GeofenceIDs,
		AlertName:            strings.TrimSpace(req.AlertName),
		AlertCategoryID:      req.AlertCategoryID,
		AlertTypeIDs:         req.AlertTypeIDs,
		EventLow:             anyToString(req.EventLow),
		EventHigh:            anyToString(req.EventHigh),
		TemperatureUnitID:    req.TemperatureUnitID,
		BetweenHoursFrom:     req.BetweenHoursFrom,
		BetweenHoursTo:       req.BetweenHoursTo,
		AlertDays:            req.AlertDays,
		EventDuration:        req.EventDuration,
		DeliveryMethodIDs:    req.DeliveryMethodIDs,
		SMSRecipients:        datatypes.JSON(req.SMSRecipients),
		EmailRecipients:      datatypes.JSON(req.EmailRecipients),
		RecipientsEmail:      req.RecipientsEmail,
		RecipientsMobile:     req.RecipientsMobile,
		RecipientUserIDs:     req.RecipientUserIDs,
		IsWebhook:            req.IsWebhook,
		SelectedEquipmentIDs: req.SelectedEquipmentIDs,
		EquipmentSelectAll:   req.EquipmentSelectAll,
		Status:               strings.ToUpper(strings.TrimSpace(req.Status)),
		ActorID:              actor,
	}
	if input.CustomerID == 0 {
		input.CustomerID = caller
	}
	if t, ok := alerts.ParseFlexibleTime(req.StartDate); ok {
		input.StartDate = &t
	}
	if t, ok := alerts.ParseFlexibleTime(req.EndDate); ok {
		input.EndDate = &t
	}
	return input
}

func (req alertRuleRequest) validate() string {
	if strings.TrimSpace(req.AlertName) == "" {
		return "alert_name is required"
	}
	if req.AlertCategoryID == 0 {
		return "alert_category_id is required"
	}
	if len(req.AlertTypeIDs) == 0 {
		return "alert_type_id is required"
	}
	return ""
}

// Create persists a new alert rule and, when webhooks are enabled, fires a
// detached delivery that never affects the response.
func (h *AlertRuleHandler) Create(c *gin.Context) {
	var req alertRuleRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	input := req.toInput(callerCustomerID(c), actorID(c))
	if input.CustomerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id is required"})
		return
	}

	rule, errCreate := h.repo.Create(c.Request.Context(), input)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert rule"})
		return
	}

	h.notify(rule)

	c.JSON(http.StatusCreated, formatRule(rule))
}

// Update overwrites an existing rule. Webhook delivery failures are logged by
// the dispatcher and never surface here.
func (h *AlertRuleHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var req alertRuleRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	input := req.toInput(callerCustomerID(c), actorID(c))
	rule, errUpdate := h.repo.Update(c.Request.Context(), id, input)
	if errUpdate != nil {
		if errors.Is(errUpdate, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert rule"})
		return
	}

	h.notify(rule)

	c.JSON(http.StatusOK, formatRule(rule))
}

// Get returns a single rule with its lookup names resolved.
func (h *AlertRuleHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	detail, errGet := h.repo.GetByID(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert rule"})
		return
	}
	c.JSON(http.StatusOK, formatDetail(detail))
}

type ruleFilterParams struct {
	Status           string `form:"status" json:"status"`
	EventDuration    string `form:"event_duration" json:"event_duration"`
	BetweenHoursFrom string `form:"between_hours_from" json:"between_hours_from"`
	BetweenHoursTo   string `form:"between_hours_to" json:"between_hours_to"`

	StartDate string `form:"start_date" json:"start_date"`
	EndDate   string `form:"end_date" json:"end_date"`

	AlertName       string `form:"alert_name" json:"alert_name"`
	CustomerName    string `form:"customer_name" json:"customer_name"`
	EventName       string `form:"event_name" json:"event_name"`
	CategoryName    string `form:"category_name" json:"category_name"`
	AlertCategoryID int64  `form:"alert_category_id" json:"alert_category_id"`
	DeliveryMethod  int64  `form:"delivery_method" json:"delivery_method"`

	CreatedByName string `form:"created_by" json:"created_by"`
	UpdatedByName string `form:"updated_by" json:"updated_by"`
	Recipient     string `form:"recipient" json:"recipient"`

	CreatedFrom string `form:"created_from" json:"created_from"`
	CreatedTo   string `form:"created_to" json:"created_to"`
	UpdatedFrom string `form:"updated_from" json:"updated_from"`
	UpdatedTo   string `form:"updated_to" json:"updated_to"`

	SortBy    string `form:"sort_by" json:"sort_by"`
	SortOrder string `form:"sort_order" json:"sort_order"`
}

func (p ruleFilterParams) toFilter() alerts.RuleFilter {
	filter := alerts.RuleFilter{
		Status:           strings.ToUpper(strings.TrimSpace(p.Status)),
		EventDuration:    intPtr(p.EventDuration),
		BetweenHoursFrom: intPtr(p.BetweenHoursFrom),
		BetweenHoursTo:   intPtr(p.BetweenHoursTo),
		AlertName:        p.AlertName,
		CustomerName:     p.CustomerName,
		EventName:        p.EventName,
		CategoryName:     p.CategoryName,
		AlertCategoryID:  p.AlertCategoryID,
		DeliveryMethod:   p.DeliveryMethod,
		CreatedByName:    p.CreatedByName,
		UpdatedByName:    p.UpdatedByName,
		Recipient:        p.Recipient,
		SortBy:           p.SortBy,
		SortOrder:        p.SortOrder,
	}
	if t, ok := alerts.ParseFlexibleTime(p.StartDate); ok {
		filter.StartDate = &t
	}
	if t, ok := alerts.ParseFlexibleTime(p.EndDate); ok {
		filter.EndDate = &t
	}
	if t, ok := alerts.ParseFlexibleTime(p.CreatedFrom); ok {
		filter.CreatedFrom = &t
	}
	if t, ok := alerts.ParseFlexibleTime(p.CreatedTo); ok {
		filter.CreatedTo = &t
	}
	if t, ok := alerts.ParseFlexibleTime(p.UpdatedFrom); ok {
		filter.UpdatedFrom = &t
	}
	if t, ok := alerts.ParseFlexibleTime(p.UpdatedTo); ok {
		filter.UpdatedTo = &t
	}
	return filter
}

type listRulesQuery struct {
	ruleFilterParams
	Page    int    `form:"page,default=1"`
	PerPage int    `form:"per_page,default=20"`
	UserID  uint64 `form:"user_id"` // Restrict to rules created by this user.
}

// List returns a filtered, sorted rule page with lookup names resolved.
func (h *AlertRuleHandler) List(c *gin.Context) {
	var query listRulesQuery
	if errBind := c.ShouldBindQuery(&query); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	var userID *uint64
	if query.UserID != 0 {
		userID = &query.UserID
	}

	details, total, errList := h.repo.List(c.Request.Context(), callerCustomerID(c), query.Page, query.PerPage, query.toFilter(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert rules"})
		return
	}

	out := make([]gin.H, 0, len(details))
	for i := range details {
		out = append(out, formatDetail(&details[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"alert_rules": out,
		"total":       total,
		"page":        query.Page,
		"per_page":    query.PerPage,
	})
}

// Delete soft-deletes a rule.
func (h *AlertRuleHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if errDelete := h.repo.Delete(c.Request.Context(), id, actorID(c)); errDelete != nil {
		if errors.Is(errDelete, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alert rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ToggleStatus flips a rule between ACTIVE and INACTIVE.
func (h *AlertRuleHandler) ToggleStatus(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	rule, errToggle := h.repo.ToggleStatus(c.Request.Context(), id)
	if errToggle != nil {
		if errors.Is(errToggle, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle alert rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": rule.ID, "status": rule.Status})
}

type exportColumn struct {
	Label string  `json:"label"`
	Field string  `json:"field"`
	Width float64 `json:"width"`
}

type exportRequest struct {
	Columns     []exportColumn   `json:"columns"`
	Query       ruleFilterParams `json:"query"`
	DownloadIDs []int64          `json:"download_ids"` // Inclusions, or exclusions with downloadAll.
	DownloadAll bool             `json:"downloadAll"`
}

// defaultExportColumns is the column spec used when the client sends none.
var defaultExportColumns = []exportColumn{
	{Label: "Alert Name", Field: "alert_name"},
	{Label: "Category", Field: "category_name"},
	{Label: "Events", Field: "event_names"},
	{Label: "Delivery Methods", Field: "delivery_method_names"},
	{Label: "Recipients", Field: "recipients"},
	{Label: "Status", Field: "status"},
	{Label: "Created By", Field: "created_by"},
	{Label: "Created At", Field: "created_at"},
}

// Export streams the matching rules as an xlsx workbook.
func (h *AlertRuleHandler) Export(c *gin.Context) {
	var req exportRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	customerID := callerCustomerID(c)
	filter := req.Query.toFilter()

	// Drain every matching page so the workbook covers the full result set.
	var details []alerts.RuleDetail
	for page := 1; ; page++ {
		batch, total, errList := h.repo.List(c.Request.Context(), customerID, page, exportPageSize, filter, nil)
		if errList != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert rules"})
			return
		}
		details = append(details, batch...)
		if len(batch) == 0 || int64(len(details)) >= total {
			break
		}
	}

	rows := make([]export.Row, 0, len(details))
	for i := range details {
		rows = append(rows, detailToRow(&details[i]))
	}
	rows = export.DownloadFilter{IDs: req.DownloadIDs, DownloadAll: req.DownloadAll}.Apply(rows)

	columns := req.Columns
	if len(columns) == 0 {
		columns = defaultExportColumns
	}
	specs := make([]export.Column, 0, len(columns))
	for _, col := range columns {
		specs = append(specs, export.Column{Label: col.Label, Field: col.Field, Width: col.Width})
	}

	buf, filename, errBuild := h.exporter.Build(customerID, rows, specs)
	if errBuild != nil {
		if errors.Is(errBuild, export.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no alert rules to export"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// exportPageSize is the batch size used when draining rules for export.
const exportPageSize = 200

// notify fires a detached webhook delivery for persisted webhook-enabled
// rules. Delivery outcome never reaches the caller.
func (h *AlertRuleHandler) notify(rule *models.AlertRule) {
	if rule == nil || rule.ID == 0 || !rule.IsWebhook {
		return
	}
	h.dispatcher.DispatchDetached(rule.CustomerID, webhook.PayloadForRule(rule))
}

// formatRule serializes a bare rule for write responses.
func formatRule(rule *models.AlertRule) gin.H {
	return gin.H{
		"id":                     rule.ID,
		"customer_id":            rule.CustomerID,
		"account_id":             []int64(rule.AccountIDs),
		"geofence_id":            []int64(rule.GeofenceIDs),
		"alert_name":             rule.AlertName,
		"alert_category_id":      rule.AlertCategoryID,
		"alert_type_id":          []int64(rule.AlertTypeIDs),
		"event_low":              rule.EventLow,
		"event_high":             rule.EventHigh,
		"temperature_unit_id":    rule.TemperatureUnitID,
		"converted_unit_id":      rule.ConvertedUnitID,
		"converted_values":       []float64(rule.ConvertedValues),
		"between_hours_from":     rule.BetweenHoursFrom,
		"between_hours_to":       rule.BetweenHoursTo,
		"alert_days":             []string(rule.AlertDays),
		"start_date":             rule.StartDate,
		"end_date":               rule.EndDate,
		"event_duration":         rule.EventDuration,
		"delivery_method":        []int64(rule.DeliveryMethodIDs),
		"sms_recipients":         rule.SMSRecipients,
		"email_recipients":       rule.EmailRecipients,
		"recipients_email":       []string(rule.RecipientsEmail),
		"recipients_mobile":      []string(rule.RecipientsMobile),
		"recipient_user_ids":     []int64(rule.RecipientUserIDs),
		"is_webhook":             rule.IsWebhook,
		"equipment_ids":          []int64(rule.EquipmentIDs),
		"selected_equipment_ids": []int64(rule.SelectedEquipmentIDs),
		"equipmentSelectAll":     rule.EquipmentSelectAll,
		"status":                 rule.Status,
		"created_by":             rule.CreatedBy,
		"updated_by":             rule.UpdatedBy,
		"created_at":             rule.CreatedAt,
		"updated_at":             rule.UpdatedAt,
	}
}

// formatDetail serializes an enriched rule for read responses.
func formatDetail(detail *alerts.RuleDetail) gin.H {
	out := formatRule(&detail.AlertRule)
	out["customer_name"] = detail.CustomerName
	out["category_name"] = detail.CategoryName
	out["temperature_unit_name"] = detail.TemperatureUnitName
	out["event_names"] = detail.EventNames
	out["delivery_method_names"] = detail.DeliveryMethodNames
	out["account_names"] = detail.AccountNames
	out["geofence_names"] = detail.GeofenceNames
	out["created_by_name"] = detail.CreatedByName
	out["updated_by_name"] = detail.UpdatedByName
	return out
}

// detailToRow flattens an enriched rule into the export row shape.
func detailToRow(detail *alerts.RuleDetail) export.Row {
	row := export.Row{
		"id":                    int64(detail.ID),
		"alert_name":            detail.AlertName,
		"category_name":         detail.CategoryName,
		"customer_name":         detail.CustomerName,
		"event_names":           detail.EventNames,
		"delivery_method_names": detail.DeliveryMethodNames,
		"recipients_email":      []string(detail.RecipientsEmail),
		"recipients_mobile":     []string(detail.RecipientsMobile),
		"status":                detail.Status,
		"event_low":             detail.EventLow,
		"event_high":            detail.EventHigh,
		"created_by":            detail.CreatedByName,
		"updated_by":            detail.UpdatedByName,
		"created_at":            detail.CreatedAt,
		"updated_at":            detail.UpdatedAt,
	}
	return row
}

// anyToString renders loosely-typed numeric-or-string values the way clients
// send thresholds.
func anyToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
