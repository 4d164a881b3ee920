package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/cache"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound marks operations against a missing or soft-deleted rule.
var ErrNotFound = errors.New("alerts: rule not found")

// RuleInput is the coerced create/update payload. Handlers own binding and
// coercion; the repository owns equipment resolution, threshold normalization
// and persistence.
type RuleInput struct {
	CustomerID  uint64
	AccountIDs  []int64
	GeofenceIDs []int64

	AlertName       string
	AlertCategoryID uint64
	AlertTypeIDs    []int64

	EventLow          string
	EventHigh         string
	TemperatureUnitID *int64

	BetweenHoursFrom *int
	BetweenHoursTo   *int
	AlertDays        []string
	StartDate        *time.Time
	EndDate          *time.Time
	EventDuration    *int

	DeliveryMethodIDs []int64
	SMSRecipients     datatypes.JSON
	EmailRecipients   datatypes.JSON
	RecipientsEmail   []string
	RecipientsMobile  []string
	RecipientUserIDs  []int64
	IsWebhook         bool

	SelectedEquipmentIDs []int64
	EquipmentSelectAll   bool

	Status  string
	ActorID uint64
}

// RuleDetail is a rule with its lookup joins resolved for read paths.
type RuleDetail struct {
	models.AlertRule

	CustomerName        string   `json:"customer_name"`
	CategoryName        string   `json:"category_name"`
	TemperatureUnitName string   `json:"temperature_unit_name"`
	EventNames          []string `json:"event_names"`
	DeliveryMethodNames []string `json:"delivery_method_names"`
	AccountNames        []string `json:"account_names"`
	GeofenceNames       []string `json:"geofence_names"`
	CreatedByName       string   `json:"created_by_name"`
	UpdatedByName       string   `json:"updated_by_name"`
}

// Repository persists alert rules and serves enriched reads.
type Repository struct {
	db       *gorm.DB
	resolver *Resolver
	lookups  *cache.Lookup
}

// NewRepository constructs a Repository. lookups may be nil.
func NewRepository(db *gorm.DB, resolver *Resolver, lookups *cache.Lookup) *Repository {
	return &Repository{db: db, resolver: resolver, lookups: lookups}
}

// Create materializes equipment targeting and normalized thresholds, then
// inserts the rule.
func (r *Repository) Create(ctx context.Context, input RuleInput) (*models.AlertRule, error) {
	rule := &models.AlertRule{
		CustomerID: input.CustomerID,
		CreatedBy:  input.ActorID,
		Status:     input.Status,
	}
	if rule.Status == "" {
		rule.Status = models.RuleStatusActive
	}
	if err := r.applyInput(ctx, rule, input); err != nil {
		return nil, err
	}

	if errCreate := r.db.WithContext(ctx).Create(rule).Error; errCreate != nil {
		return nil, fmt.Errorf("alerts: create rule: %w", errCreate)
	}
	return rule, nil
}

// Update overwrites every client-writable field of an existing rule. Identity,
// creator, creation time and delete markers are update-protected.
func (r *Repository) Update(ctx context.Context, id uint64, input RuleInput) (*models.AlertRule, error) {
	var rule models.AlertRule
	if errFind := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&rule).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("alerts: load rule %d: %w", id, errFind)
	}

	rule.CustomerID = input.CustomerID
	if input.Status != "" {
		rule.Status = input.Status
	}
	updater := input.ActorID
	rule.UpdatedBy = &updater
	if err := r.applyInput(ctx, &rule, input); err != nil {
		return nil, err
	}

	if errSave := r.db.WithContext(ctx).Save(&rule).Error; errSave != nil {
		return nil, fmt.Errorf("alerts: update rule %d: %w", id, errSave)
	}
	return &rule, nil
}

// applyInput copies the writable fields onto rule, recomputing the equipment
// snapshot and temperature normalization.
func (r *Repository) applyInput(ctx context.Context, rule *models.AlertRule, input RuleInput) error {
	equipmentIDs, errResolve := r.resolver.ResolveEquipmentIDs(ctx,
		RuleScope{CustomerID: input.CustomerID, AccountIDs: input.AccountIDs},
		EquipmentSelection{SelectedIDs: input.SelectedEquipmentIDs, SelectAll: input.EquipmentSelectAll},
	)
	if errResolve != nil {
		return errResolve
	}

	rule.AccountIDs = datatypes.NewJSONSlice(filterValidIDs(input.AccountIDs))
	rule.GeofenceIDs = datatypes.NewJSONSlice(filterValidIDs(input.GeofenceIDs))
	rule.AlertName = input.AlertName
	rule.AlertCategoryID = input.AlertCategoryID
	rule.AlertTypeIDs = datatypes.NewJSONSlice(input.AlertTypeIDs)

	rule.EventLow = input.EventLow
	rule.EventHigh = input.EventHigh
	rule.TemperatureUnitID = input.TemperatureUnitID
	rule.ConvertedUnitID = nil
	rule.ConvertedValues = nil
	if input.TemperatureUnitID != nil && containsID(input.AlertTypeIDs, models.AlertTypeTemperatureID) {
		unit := UnitFahrenheit
		rule.ConvertedUnitID = &unit
		rule.ConvertedValues = datatypes.NewJSONSlice(
			ConvertedThresholds(input.EventLow, input.EventHigh, *input.TemperatureUnitID))
	}

	rule.BetweenHoursFrom = input.BetweenHoursFrom
	rule.BetweenHoursTo = input.BetweenHoursTo
	rule.AlertDays = datatypes.NewJSONSlice(input.AlertDays)
	rule.StartDate = input.StartDate
	rule.EndDate = input.EndDate
	rule.EventDuration = input.EventDuration

	rule.DeliveryMethodIDs = datatypes.NewJSONSlice(input.DeliveryMethodIDs)
	rule.SMSRecipients = input.SMSRecipients
	rule.EmailRecipients = input.EmailRecipients
	rule.RecipientsEmail = datatypes.NewJSONSlice(input.RecipientsEmail)
	rule.RecipientsMobile = datatypes.NewJSONSlice(input.RecipientsMobile)
	rule.RecipientUserIDs = datatypes.NewJSONSlice(input.RecipientUserIDs)
	rule.IsWebhook = input.IsWebhook

	rule.SelectedEquipmentIDs = datatypes.NewJSONSlice(filterValidIDs(input.SelectedEquipmentIDs))
	rule.EquipmentSelectAll = input.EquipmentSelectAll
	rule.EquipmentIDs = datatypes.NewJSONSlice(equipmentIDs)
	return nil
}

// GetByID returns one rule with its lookup joins resolved.
func (r *Repository) GetByID(ctx context.Context, id uint64) (*RuleDetail, error) {
	var rule models.AlertRule
	if errFind := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&rule).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("alerts: get rule %d: %w", id, errFind)
	}

	details, err := r.enrich(ctx, []models.AlertRule{rule})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// List returns a page of enriched rules matching the filter.
func (r *Repository) List(ctx context.Context, customerID uint64, page, perPage int, filter RuleFilter, userID *uint64) ([]RuleDetail, int64, error) {
	var total int64
	countQuery := filter.Apply(r.db.WithContext(ctx).Model(&models.AlertRule{}), r.db, customerID, userID)
	if errCount := countQuery.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("alerts: count rules: %w", errCount)
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	var rules []models.AlertRule
	pageQuery := filter.Apply(r.db.WithContext(ctx).Model(&models.AlertRule{}), r.db, customerID, userID)
	if errFind := pageQuery.
		Order(filter.OrderClause()).
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&rules).Error; errFind != nil {
		return nil, 0, fmt.Errorf("alerts: list rules: %w", errFind)
	}

	details, err := r.enrich(ctx, rules)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// Delete soft-deletes a rule, recording the acting user and timestamp. The
// row is retained; every read path excludes it from then on.
func (r *Repository) Delete(ctx context.Context, id uint64, actorID uint64) error {
	var rule models.AlertRule
	if errFind := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&rule).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("alerts: load rule %d: %w", id, errFind)
	}

	now := time.Now().UTC()
	if errUpdate := r.db.WithContext(ctx).Model(&rule).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_by": actorID,
			"deleted_on": now,
			"updated_at": now,
		}).Error; errUpdate != nil {
		return fmt.Errorf("alerts: delete rule %d: %w", id, errUpdate)
	}
	return nil
}

// ToggleStatus flips a rule between ACTIVE and INACTIVE.
func (r *Repository) ToggleStatus(ctx context.Context, id uint64) (*models.AlertRule, error) {
	var rule models.AlertRule
	if errFind := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&rule).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("alerts: load rule %d: %w", id, errFind)
	}

	next := models.RuleStatusActive
	if rule.Status == models.RuleStatusActive {
		next = models.RuleStatusInactive
	}
	if errUpdate := r.db.WithContext(ctx).Model(&rule).
		Updates(map[string]any{"status": next, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		return nil, fmt.Errorf("alerts: toggle rule %d: %w", id, errUpdate)
	}
	rule.Status = next
	return &rule, nil
}

// enrich resolves lookup names for a page of rules. Array-valued foreign keys
// are fetched once per lookup via a single IN query over the deduplicated ID
// union, then filtered back per row.
func (r *Repository) enrich(ctx context.Context, rules []models.AlertRule) ([]RuleDetail, error) {
	if len(rules) == 0 {
		return []RuleDetail{}, nil
	}

	typeIDs := map[int64]struct{}{}
	methodIDs := map[int64]struct{}{}
	accountIDs := map[int64]struct{}{}
	geofenceIDs := map[int64]struct{}{}
	customerIDs := map[int64]struct{}{}
	categoryIDs := map[int64]struct{}{}
	unitIDs := map[int64]struct{}{}
	userIDs := map[int64]struct{}{}
	for _, rule := range rules {
		collectIDs(typeIDs, rule.AlertTypeIDs)
		collectIDs(methodIDs, rule.DeliveryMethodIDs)
		collectIDs(accountIDs, rule.AccountIDs)
		collectIDs(geofenceIDs, rule.GeofenceIDs)
		customerIDs[int64(rule.CustomerID)] = struct{}{}
		categoryIDs[int64(rule.AlertCategoryID)] = struct{}{}
		if rule.TemperatureUnitID != nil {
			unitIDs[*rule.TemperatureUnitID] = struct{}{}
		}
		userIDs[int64(rule.CreatedBy)] = struct{}{}
		if rule.UpdatedBy != nil {
			userIDs[int64(*rule.UpdatedBy)] = struct{}{}
		}
	}

	typeNames, err := r.cachedNameMap(ctx, "lookup:alert_types", &models.AlertType{}, typeIDs)
	if err != nil {
		return nil, err
	}
	methodNames, err := r.cachedNameMap(ctx, "lookup:delivery_methods", &models.DeliveryMethod{}, methodIDs)
	if err != nil {
		return nil, err
	}
	accountNames, err := r.nameMap(ctx, &models.Account{}, "name", accountIDs)
	if err != nil {
		return nil, err
	}
	geofenceNames, err := r.nameMap(ctx, &models.Geofence{}, "name", geofenceIDs)
	if err != nil {
		return nil, err
	}
	customerNames, err := r.nameMap(ctx, &models.Customer{}, "name", customerIDs)
	if err != nil {
		return nil, err
	}
	categoryNames, err := r.cachedNameMap(ctx, "lookup:alert_categories", &models.AlertCategory{}, categoryIDs)
	if err != nil {
		return nil, err
	}
	unitNames, err := r.nameMap(ctx, &models.TemperatureUnit{}, "name", unitIDs)
	if err != nil {
		return nil, err
	}
	userNames, err := r.userNameMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	details := make([]RuleDetail, 0, len(rules))
	for _, rule := range rules {
		detail := RuleDetail{
			AlertRule:           rule,
			CustomerName:        customerNames[int64(rule.CustomerID)],
			CategoryName:        categoryNames[int64(rule.AlertCategoryID)],
			EventNames:          pickNames(typeNames, rule.AlertTypeIDs),
			DeliveryMethodNames: pickNames(methodNames, rule.DeliveryMethodIDs),
			AccountNames:        pickNames(accountNames, rule.AccountIDs),
			GeofenceNames:       pickNames(geofenceNames, rule.GeofenceIDs),
			CreatedByName:       userNames[int64(rule.CreatedBy)],
		}
		if rule.TemperatureUnitID != nil {
			detail.TemperatureUnitName = unitNames[*rule.TemperatureUnitID]
		}
		if rule.UpdatedBy != nil {
			detail.UpdatedByName = userNames[int64(*rule.UpdatedBy)]
		}
		details = append(details, detail)
	}
	return details, nil
}

// lookupRow scans id/name pairs from any lookup table.
type lookupRow struct {
	ID   int64
	Name string
}

// nameMap fetches id->name for the requested IDs in one IN query.
func (r *Repository) nameMap(ctx context.Context, model any, nameColumn string, ids map[int64]struct{}) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	var rows []lookupRow
	if errFind := r.db.WithContext(ctx).Model(model).
		Select("id, "+nameColumn+" AS name").
		Where("id IN ?", idSlice(ids)).
		Scan(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("alerts: lookup names: %w", errFind)
	}
	out := make(map[int64]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// cachedNameMap serves stable lookups through the optional cache. The cache
// holds the full table; missing IDs simply resolve to empty names.
func (r *Repository) cachedNameMap(ctx context.Context, key string, model any, ids map[int64]struct{}) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	return r.lookups.NameMap(ctx, key, func(ctx context.Context) (map[int64]string, error) {
		var rows []lookupRow
		if errFind := r.db.WithContext(ctx).Model(model).
			Select("id, name").
			Scan(&rows).Error; errFind != nil {
			return nil, fmt.Errorf("alerts: lookup names: %w", errFind)
		}
		out := make(map[int64]string, len(rows))
		for _, row := range rows {
			out[row.ID] = row.Name
		}
		return out, nil
	})
}

// userNameMap fetches id->"first last" for the requested user IDs.
func (r *Repository) userNameMap(ctx context.Context, ids map[int64]struct{}) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	var users []models.User
	if errFind := r.db.WithContext(ctx).
		Where("id IN ?", idSlice(ids)).
		Find(&users).Error; errFind != nil {
		return nil, fmt.Errorf("alerts: lookup users: %w", errFind)
	}
	out := make(map[int64]string, len(users))
	for _, user := range users {
		out[int64(user.ID)] = user.FullName()
	}
	return out, nil
}

func collectIDs(into map[int64]struct{}, ids []int64) {
	for _, id := range ids {
		if id > 0 {
			into[id] = struct{}{}
		}
	}
}

func idSlice(ids map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(ids))
	for id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func pickNames(names map[int64]string, ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			out = append(out, name)
		}
	}
	return out
}

func containsID(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
