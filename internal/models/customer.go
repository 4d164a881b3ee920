package models

import "time"

// Customer is the top-level tenant. Webhook delivery configuration lives here;
// a customer without a WebhookURL simply never receives webhook notifications.
type Customer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null"` // Customer name.

	WebhookURL      string `gorm:"type:text"` // Alert notification endpoint.
	WebhookUsername string `gorm:"type:text"` // Optional basic-auth username.
	WebhookPassword string `gorm:"type:text"` // Optional basic-auth password.

	Latitude  string `gorm:"type:text"` // Headquarters latitude.
	Longitude string `gorm:"type:text"` // Headquarters longitude.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
