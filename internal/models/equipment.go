package models

import "time"

// Equipment is a physical unit in a customer fleet. The alert engine reads
// equipment; it never mutates it.
type Equipment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CustomerID uint64 `gorm:"not null;index"` // Owning customer.

	UnitNumber         string `gorm:"type:text;index"` // Fleet unit number.
	CustomerUnitNumber string `gorm:"type:text;index"` // Customer-assigned unit number.
	Description        string `gorm:"type:text"`       // Free-form description.

	Length string `gorm:"type:text"` // Physical length.
	Width  string `gorm:"type:text"` // Physical width.
	Height string `gorm:"type:text"` // Physical height.

	EquipmentTypeID *uint64 `gorm:"index"` // Classification type.
	OemModelID      *uint64 `gorm:"index"` // OEM make/model.
	ManufacturerID  *uint64 `gorm:"index"` // Manufacturer.
	Year            *int    ``             // Model year.

	DeviceID *uint64 `gorm:"index"` // Installed IoT device.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// EquipmentAssignment links a unit to an account. A unit can belong to more
// than one account.
type EquipmentAssignment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EquipmentID uint64 `gorm:"not null;index"` // Assigned unit.
	AccountID   uint64 `gorm:"not null;index"` // Owning account.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// EquipmentType classifies units (trailer, reefer, chassis, ...).
type EquipmentType struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Name string `gorm:"type:text;not null"`       // Type name.
}

// OemModel is an OEM make/model pair referenced by equipment.
type OemModel struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Make string `gorm:"type:text;not null"`       // OEM make.
	Name string `gorm:"type:text;not null"`       // Model name.
}

// Manufacturer identifies an equipment manufacturer.
type Manufacturer struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Code string `gorm:"type:text;index"`          // Manufacturer code.
	Name string `gorm:"type:text;not null"`       // Manufacturer name.
}

// IotDevice is the telematics device installed on a unit.
type IotDevice struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`       // Primary key.
	SerialNumber string  `gorm:"type:text;not null;uniqueIndex"` // Device serial.
	VendorID     *uint64 `gorm:"index"`                          // Device vendor.
}

// IotVendor supplies telematics devices.
type IotVendor struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Name string `gorm:"type:text;not null"`       // Vendor name.
}
