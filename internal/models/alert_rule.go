package models

import (
	"time"

	"gorm.io/datatypes"
)

// Rule status values.
const (
	// RuleStatusActive marks a rule that is evaluated and delivered.
	RuleStatusActive = "ACTIVE"
	// RuleStatusInactive marks a rule that is retained but not evaluated.
	RuleStatusInactive = "INACTIVE"
)

// AlertRule is a persisted telematics monitoring condition plus its delivery
// configuration. Equipment targeting is materialized into EquipmentIDs at
// create/update time; clients never write that column directly.
type AlertRule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CustomerID  uint64                     `gorm:"not null;index"` // Owning customer.
	AccountIDs  datatypes.JSONSlice[int64] `gorm:"type:jsonb"`     // Explicit account scope.
	GeofenceIDs datatypes.JSONSlice[int64] `gorm:"type:jsonb"`     // Geofence scope.

	AlertName       string                     `gorm:"type:text;not null"` // Human-readable rule name.
	AlertCategoryID uint64                     `gorm:"index"`              // Alert category.
	AlertTypeIDs    datatypes.JSONSlice[int64] `gorm:"type:jsonb"`         // Ordered alert type set.

	EventLow          string                       `gorm:"type:text"`  // Low threshold as entered.
	EventHigh         string                       `gorm:"type:text"`  // High threshold as entered.
	TemperatureUnitID *int64                       ``                  // Chosen temperature unit.
	ConvertedUnitID   *int64                       ``                  // Normalized unit (Fahrenheit).
	ConvertedValues   datatypes.JSONSlice[float64] `gorm:"type:jsonb"` // Fahrenheit-normalized [low, high].

	BetweenHoursFrom *int                        ``                  // Window start, hour of day.
	BetweenHoursTo   *int                        ``                  // Window end, hour of day.
	AlertDays        datatypes.JSONSlice[string] `gorm:"type:jsonb"` // Active days of week.
	StartDate        *time.Time                  ``                  // Active from.
	EndDate          *time.Time                  ``                  // Active until.
	EventDuration    *int                        ``                  // Minimum event duration, minutes.

	DeliveryMethodIDs datatypes.JSONSlice[int64]  `gorm:"type:jsonb"`             // Delivery channel IDs.
	SMSRecipients     datatypes.JSON              `gorm:"type:jsonb"`             // Named SMS recipient objects.
	EmailRecipients   datatypes.JSON              `gorm:"type:jsonb"`             // Named email recipient objects.
	RecipientsEmail   datatypes.JSONSlice[string] `gorm:"type:jsonb"`             // Raw email recipient list.
	RecipientsMobile  datatypes.JSONSlice[string] `gorm:"type:jsonb"`             // Raw mobile recipient list.
	RecipientUserIDs  datatypes.JSONSlice[int64]  `gorm:"type:jsonb"`             // Recipient user IDs.
	IsWebhook         bool                        `gorm:"not null;default:false"` // Webhook delivery flag.

	EquipmentIDs         datatypes.JSONSlice[int64] `gorm:"type:jsonb"`             // Resolved equipment snapshot.
	SelectedEquipmentIDs datatypes.JSONSlice[int64] `gorm:"type:jsonb"`             // User-picked inclusions or exclusions.
	EquipmentSelectAll   bool                       `gorm:"not null;default:false"` // Select-all-except semantics flag.

	Status    string     `gorm:"type:varchar(16);not null;default:'ACTIVE';index"` // ACTIVE or INACTIVE.
	IsDeleted bool       `gorm:"not null;default:false;index"`                     // Soft-delete flag.
	DeletedBy *uint64    ``                                                        // Deleting user.
	DeletedOn *time.Time ``                                                        // Deletion timestamp.

	CreatedBy uint64    `gorm:"index"`                   // Creating user.
	UpdatedBy *uint64   ``                               // Last updating user.
	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
