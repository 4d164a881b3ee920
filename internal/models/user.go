package models

import (
	"strings"
	"time"
)

// User is an operator account. The engine only reads users to resolve display
// names for creator/updater columns and name-based searches.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CustomerID uint64 `gorm:"not null;index"` // Owning customer.

	FirstName string `gorm:"type:text"`                      // Given name.
	LastName  string `gorm:"type:text"`                      // Family name.
	Email     string `gorm:"type:text;not null;uniqueIndex"` // Login email.

	Disabled bool `gorm:"not null;default:false"` // Blocks authenticated access.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// FullName returns "first last" with surrounding whitespace trimmed.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
