package handlers

import (
	"net/http"

	"github.com/fleetorbit/fleetorbit-api/internal/alerts"
	"github.com/gin-gonic/gin"
)

// EquipmentHandler serves the rule-builder equipment listing.
type EquipmentHandler struct {
	resolver *alerts.Resolver
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(resolver *alerts.Resolver) *EquipmentHandler {
	return &EquipmentHandler{resolver: resolver}
}

type listEquipmentQuery struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"per_page,default=20"`

	AccountIDs []int64 `form:"account_id"` // Restrict scope to these accounts.

	UnitNumber         string `form:"unit_number"`
	CustomerUnitNumber string `form:"customer_unit_number"`
	GlobalUnitNumber   string `form:"global_unit_number"`

	Length string `form:"length"`
	Width  string `form:"width"`
	Height string `form:"height"`

	EquipmentTypeID  int64  `form:"equipment_type_id"`
	Make             string `form:"make"`
	Model            string `form:"model"`
	Year             int    `form:"year"`
	ManufacturerCode string `form:"manufacturer_code"`
	ManufacturerName string `form:"manufacturer_name"`
	VendorName       string `form:"vendor_name"`

	AlertCategoryID int64 `form:"alert_category_id"`
}

// List returns the caller's in-scope equipment with lookup joins flattened.
func (h *EquipmentHandler) List(c *gin.Context) {
	var query listEquipmentQuery
	if errBind := c.ShouldBindQuery(&query); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	scope := alerts.RuleScope{
		CustomerID: callerCustomerID(c),
		AccountIDs: query.AccountIDs,
	}
	filter := alerts.EquipmentFilter{
		UnitNumber:         query.UnitNumber,
		CustomerUnitNumber: query.CustomerUnitNumber,
		GlobalUnitNumber:   query.GlobalUnitNumber,
		Length:             query.Length,
		Width:              query.Width,
		Height:             query.Height,
		EquipmentTypeID:    query.EquipmentTypeID,
		Make:               query.Make,
		Model:              query.Model,
		Year:               query.Year,
		ManufacturerCode:   query.ManufacturerCode,
		ManufacturerName:   query.ManufacturerName,
		VendorName:         query.VendorName,
		AlertCategoryID:    query.AlertCategoryID,
	}

	rows, total, errList := h.resolver.ListEquipment(c.Request.Context(), scope, filter, query.Page, query.PerPage)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list equipment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"equipment": rows,
		"total":     total,
		"page":      query.Page,
		"per_page":  query.PerPage,
	})
}
