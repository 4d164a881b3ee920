// Package api registers the engine's HTTP surface on a gin engine.
package api

import (
	"github.com/fleetorbit/fleetorbit-api/internal/alerts"
	"github.com/fleetorbit/fleetorbit-api/internal/cache"
	"github.com/fleetorbit/fleetorbit-api/internal/config"
	"github.com/fleetorbit/fleetorbit-api/internal/export"
	"github.com/fleetorbit/fleetorbit-api/internal/http/api/handlers"
	"github.com/fleetorbit/fleetorbit-api/internal/webhook"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes wires all engine endpoints. lookups may be nil.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, lookups *cache.Lookup) {
	if r == nil || db == nil {
		return
	}

	r.Use(requestLogMiddleware())
	r.GET("/healthz", handlers.Health(db))

	resolver := alerts.NewResolver(db)
	repo := alerts.NewRepository(db, resolver, lookups)
	dispatcher := webhook.NewDispatcher(db)
	builder := export.Builder{}
	if !cfg.IsProduction() {
		builder.DebugDir = cfg.Export.DebugDir
	}

	v0 := r.Group("/v0")
	v0.Use(authMiddleware(db, cfg))

	ruleHandler := handlers.NewAlertRuleHandler(repo, dispatcher, builder)
	v0.POST("/alert-rules", ruleHandler.Create)
	v0.PUT("/alert-rules/:id", ruleHandler.Update)
	v0.GET("/alert-rules/:id", ruleHandler.Get)
	v0.GET("/alert-rules", ruleHandler.List)
	v0.DELETE("/alert-rules/:id", ruleHandler.Delete)
	v0.POST("/alert-rules/:id/toggle", ruleHandler.ToggleStatus)
	v0.POST("/alert-rules/export", ruleHandler.Export)

	equipmentHandler := handlers.NewEquipmentHandler(resolver)
	v0.GET("/equipment", equipmentHandler.List)

	lookupHandler := handlers.NewLookupHandler(db)
	v0.GET("/alert-categories", lookupHandler.AlertCategories)
	v0.GET("/alert-types", lookupHandler.AlertTypes)
	v0.GET("/delivery-methods", lookupHandler.DeliveryMethods)
}
