// Package webhook delivers best-effort alert notifications to customer
// endpoints. Delivery is a side channel: failures are logged and reported as
// structured results, never propagated to the rule write path.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Fallback coordinates used when a customer has no stored location.
const (
	fallbackLatitude  = "0.0"
	fallbackLongitude = "0.0"
)

// dispatchTimeout bounds a single delivery attempt.
const dispatchTimeout = 30 * time.Second

// Payload is the normalized event body posted to the customer endpoint.
type Payload struct {
	CustomerID      uint64 `json:"customer_id"`
	CreatedBy       uint64 `json:"created_by"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	EquipmentID     *int64 `json:"equipment_id,omitempty"`
	AccountID       *int64 `json:"account_id,omitempty"`
	GeofenceID      *int64 `json:"geofence_id,omitempty"`
	AlertID         uint64 `json:"alert_id"`
	AlertTypeID     *int64 `json:"alert_type_id,omitempty"`
	AlertCategoryID uint64 `json:"alert_category_id"`
	EventAt         string `json:"event_at"`
}

// Result reports a delivery outcome without raising.
type Result struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher posts alert payloads to per-customer webhook endpoints.
type Dispatcher struct {
	db     *gorm.DB
	client *resty.Client
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{
		db:     db,
		client: resty.New().SetTimeout(dispatchTimeout),
	}
}

// PayloadForRule builds the dispatch payload from a persisted rule, taking the
// first element of each array-valued scope field. The event timestamp is the
// dispatch time, not an event occurrence time.
func PayloadForRule(rule *models.AlertRule) Payload {
	payload := Payload{
		CustomerID:      rule.CustomerID,
		CreatedBy:       rule.CreatedBy,
		Latitude:        fallbackLatitude,
		Longitude:       fallbackLongitude,
		AlertID:         rule.ID,
		AlertCategoryID: rule.AlertCategoryID,
		EventAt:         time.Now().UTC().Format(time.RFC3339),
	}
	payload.EquipmentID = firstID(rule.EquipmentIDs)
	payload.AccountID = firstID(rule.AccountIDs)
	payload.GeofenceID = firstID(rule.GeofenceIDs)
	payload.AlertTypeID = firstID(rule.AlertTypeIDs)
	return payload
}

// Dispatch looks up the customer's webhook configuration and posts the
// payload. Every failure mode returns a Result with Success=false; Dispatch
// never returns an error to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, customerID uint64, payload Payload) Result {
	deliveryID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"webhook":     deliveryID,
		"customer_id": customerID,
		"alert_id":    payload.AlertID,
	})

	var customer models.Customer
	if errFind := d.db.WithContext(ctx).First(&customer, customerID).Error; errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			logger.WithError(errFind).Error("webhook: load customer")
		}
		return Result{Success: false, Error: "webhook customer not configured"}
	}
	if customer.WebhookURL == "" {
		return Result{Success: false, Error: "webhook url not configured"}
	}

	if customer.Latitude != "" {
		payload.Latitude = customer.Latitude
	}
	if customer.Longitude != "" {
		payload.Longitude = customer.Longitude
	}

	request := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if customer.WebhookUsername != "" && customer.WebhookPassword != "" {
		request.SetBasicAuth(customer.WebhookUsername, customer.WebhookPassword)
	}

	resp, errPost := request.Post(customer.WebhookURL)
	if errPost != nil {
		logger.WithError(errPost).Error("webhook: dispatch failed")
		return Result{Success: false, Error: errPost.Error()}
	}
	if resp.IsError() {
		logger.Errorf("webhook: dispatch failed with status %d", resp.StatusCode())
		return Result{Success: false, Error: fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode())}
	}

	logger.Infof("webhook: delivered with status %d", resp.StatusCode())
	return Result{Success: true, Data: resp.String()}
}

// DispatchDetached runs Dispatch on its own goroutine with a fresh deadline so
// delivery cannot couple to the caller's request lifecycle.
func (d *Dispatcher) DispatchDetached(customerID uint64, payload Payload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		d.Dispatch(ctx, customerID, payload)
	}()
}

func firstID(ids []int64) *int64 {
	for _, id := range ids {
		if id > 0 {
			value := id
			return &value
		}
	}
	return nil
}
