package handlers

import (
	"net/http"

	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LookupHandler serves the small reference tables the rule builder consumes.
type LookupHandler struct {
	db *gorm.DB
}

// NewLookupHandler constructs a LookupHandler.
func NewLookupHandler(db *gorm.DB) *LookupHandler {
	return &LookupHandler{db: db}
}

// AlertCategories lists all alert categories.
func (h *LookupHandler) AlertCategories(c *gin.Context) {
	var categories []models.AlertCategory
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&categories).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert_categories": categories})
}

// AlertTypes lists alert types, optionally narrowed to a category.
func (h *LookupHandler) AlertTypes(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Order("id ASC")
	if categoryID := c.Query("alert_category_id"); categoryID != "" {
		query = query.Where("alert_category_id = ?", categoryID)
	}
	var types []models.AlertType
	if errFind := query.Find(&types).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alert types"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert_types": types})
}

// DeliveryMethods lists all delivery methods.
func (h *LookupHandler) DeliveryMethods(c *gin.Context) {
	var methods []models.DeliveryMethod
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&methods).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list delivery methods"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_methods": methods})
}
