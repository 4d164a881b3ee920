package models

import "time"

// Account is a billing/organizational boundary under a customer. Rule scope is
// expressed in accounts; equipment reaches rules through account assignments.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CustomerID uint64 `gorm:"not null;index"`     // Owning customer.
	Name       string `gorm:"type:text;not null"` // Account name.
	Status     string `gorm:"type:varchar(16)"`   // Account status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Geofence is a named geographic boundary a rule can reference.
type Geofence struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CustomerID uint64 `gorm:"not null;index"`     // Owning customer.
	Name       string `gorm:"type:text;not null"` // Geofence name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
