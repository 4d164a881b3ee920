package models

import "time"

// AlertTypeTemperatureID is the alert type whose thresholds are temperature
// values and require Fahrenheit normalization.
const AlertTypeTemperatureID int64 = 5

// DeliveryMethod is a notification channel (SMS, email, push, webhook).
type DeliveryMethod struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Name   string `gorm:"type:text;not null"`       // Channel name.
	Status string `gorm:"type:varchar(16)"`         // Channel status.
}

// AlertType is a monitored event kind (door open, temperature, geofence, ...).
type AlertType struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Name            string `gorm:"type:text;not null"`       // Event name.
	AlertCategoryID uint64 `gorm:"index"`                    // Owning category.
	Status          string `gorm:"type:varchar(16)"`         // Type status.
}

// AlertCategory groups alert types.
type AlertCategory struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Name   string `gorm:"type:text;not null"`       // Category name.
	Status string `gorm:"type:varchar(16)"`         // Category status.
}

// TemperatureUnit is a measurement unit lookup. IDs are fixed: 1 Fahrenheit,
// 2 and 3 Celsius variants.
type TemperatureUnit struct {
	ID   uint64 `gorm:"primaryKey"`         // Fixed unit ID.
	Name string `gorm:"type:text;not null"` // Unit name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
