package db

import (
	"fmt"

	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all engine entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Customer{},
		&models.User{},
		&models.Account{},
		&models.Geofence{},
		&models.EquipmentType{},
		&models.OemModel{},
		&models.Manufacturer{},
		&models.IotVendor{},
		&models.IotDevice{},
		&models.Equipment{},
		&models.EquipmentAssignment{},
		&models.DeliveryMethod{},
		&models.AlertType{},
		&models.AlertCategory{},
		&models.TemperatureUnit{},
		&models.AlertRule{},
	)
}
