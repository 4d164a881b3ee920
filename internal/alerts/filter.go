package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/db"
	"gorm.io/gorm"
)

// RuleFilter is the typed listing filter. Every set field narrows the result
// with AND semantics except Recipient, which appends an OR-group over the two
// recipient list columns. CreatedByName/UpdatedByName search the display name
// of the actor, not the stored ID.
type RuleFilter struct {
	Status           string // Exact status match.
	EventDuration    *int   // Exact event duration.
	BetweenHoursFrom *int   // Exact window start.
	BetweenHoursTo   *int   // Exact window end.

	StartDate *time.Time // Inclusive lower bound on start_date.
	EndDate   *time.Time // Inclusive upper bound on end_date.

	AlertName       string // Substring on alert_name.
	CustomerName    string // Substring on joined customer name.
	EventName       string // Substring on joined alert type names.
	CategoryName    string // Substring on joined category name.
	AlertCategoryID int64  // Exact category match.
	DeliveryMethod  int64  // Membership in delivery_method_ids.

	CreatedByName string // Name substring for the creating user.
	UpdatedByName string // Name substring for the last updating user.
	Recipient     string // Membership in recipients_email OR recipients_mobile.

	CreatedFrom *time.Time // Start-of-day lower bound on created_at.
	CreatedTo   *time.Time // End-of-day upper bound on created_at.
	UpdatedFrom *time.Time // Start-of-day lower bound on updated_at.
	UpdatedTo   *time.Time // End-of-day upper bound on updated_at.

	SortBy    string // Sort token, resolved against the allow-list.
	SortOrder string // "asc" or "desc".
}

// sortableRuleColumns is the allow-list of sort tokens for rule listings.
var sortableRuleColumns = map[string]string{
	"alert_name":     "alert_name",
	"status":         "status",
	"start_date":     "start_date",
	"end_date":       "end_date",
	"event_duration": "event_duration",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

// Apply narrows query to the rules visible under customerID (and, when given,
// created by userID) that match the filter. Soft-deleted rules never match.
func (f RuleFilter) Apply(query *gorm.DB, conn *gorm.DB, customerID uint64, userID *uint64) *gorm.DB {
	query = query.Where("customer_id = ?", customerID).Where("is_deleted = ?", false)
	if userID != nil {
		query = query.Where("created_by = ?", *userID)
	}

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.EventDuration != nil {
		query = query.Where("event_duration = ?", *f.EventDuration)
	}
	if f.BetweenHoursFrom != nil {
		query = query.Where("between_hours_from = ?", *f.BetweenHoursFrom)
	}
	if f.BetweenHoursTo != nil {
		query = query.Where("between_hours_to = ?", *f.BetweenHoursTo)
	}

	if f.StartDate != nil {
		query = query.Where("start_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("end_date <= ?", *f.EndDate)
	}

	if f.AlertName != "" {
		query = query.Where(db.CaseInsensitiveLikeExpr(conn, "alert_name"), db.NormalizeLikePattern(conn, "%"+f.AlertName+"%"))
	}
	if f.CustomerName != "" {
		query = query.Where(
			"customer_id IN (SELECT id FROM customers WHERE "+db.CaseInsensitiveLikeExpr(conn, "name")+")",
			db.NormalizeLikePattern(conn, "%"+f.CustomerName+"%"),
		)
	}
	if f.CategoryName != "" {
		query = query.Where(
			"alert_category_id IN (SELECT id FROM alert_categories WHERE "+db.CaseInsensitiveLikeExpr(conn, "name")+")",
			db.NormalizeLikePattern(conn, "%"+f.CategoryName+"%"),
		)
	}
	if f.EventName != "" {
		subquery := "SELECT id FROM alert_types WHERE " + db.CaseInsensitiveLikeExpr(conn, "name")
		query = query.Where(
			db.JSONArrayAnyInExpr(conn, "alert_type_ids", subquery),
			db.NormalizeLikePattern(conn, "%"+f.EventName+"%"),
		)
	}
	if f.AlertCategoryID > 0 {
		query = query.Where("alert_category_id = ?", f.AlertCategoryID)
	}
	if f.DeliveryMethod > 0 {
		query = query.Where(db.JSONArrayContainsExpr(conn, "delivery_method_ids"), fmt.Sprint(f.DeliveryMethod))
	}

	if f.CreatedByName != "" {
		query = query.Where("created_by IN ("+userNameSubquery(conn)+")",
			db.NormalizeLikePattern(conn, "%"+f.CreatedByName+"%"),
			db.NormalizeLikePattern(conn, "%"+f.CreatedByName+"%"),
		)
	}
	if f.UpdatedByName != "" {
		query = query.Where("updated_by IN ("+userNameSubquery(conn)+")",
			db.NormalizeLikePattern(conn, "%"+f.UpdatedByName+"%"),
			db.NormalizeLikePattern(conn, "%"+f.UpdatedByName+"%"),
		)
	}
	if f.Recipient != "" {
		query = query.Where(
			db.JSONArrayContainsExpr(conn, "recipients_email")+" OR "+db.JSONArrayContainsExpr(conn, "recipients_mobile"),
			f.Recipient, f.Recipient,
		)
	}

	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", startOfDay(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at <= ?", endOfDay(*f.CreatedTo))
	}
	if f.UpdatedFrom != nil {
		query = query.Where("updated_at >= ?", startOfDay(*f.UpdatedFrom))
	}
	if f.UpdatedTo != nil {
		query = query.Where("updated_at <= ?", endOfDay(*f.UpdatedTo))
	}

	return query
}

// OrderClause resolves the sort token against the allow-list, falling back to
// created_at descending for absent or invalid tokens.
func (f RuleFilter) OrderClause() string {
	column, ok := sortableRuleColumns[strings.ToLower(strings.TrimSpace(f.SortBy))]
	if !ok {
		return "created_at DESC"
	}
	order := "DESC"
	if strings.EqualFold(strings.TrimSpace(f.SortOrder), "asc") {
		order = "ASC"
	}
	return column + " " + order
}

// userNameSubquery matches user IDs whose first or last name contains the
// bound pattern.
func userNameSubquery(conn *gorm.DB) string {
	return "SELECT id FROM users WHERE " +
		db.CaseInsensitiveLikeExpr(conn, "first_name") + " OR " +
		db.CaseInsensitiveLikeExpr(conn, "last_name")
}

// ParseFlexibleTime coerces a loosely-typed date value: RFC3339, date-only,
// date-time, or unix seconds/milliseconds.
func ParseFlexibleTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, errParse := time.ParseInLocation(layout, value, time.Local); errParse == nil {
			return t, true
		}
	}
	if unix, errParse := strconv.ParseInt(value, 10, 64); errParse == nil {
		if unix > 1e12 {
			return time.UnixMilli(unix), true
		}
		return time.Unix(unix, 0), true
	}
	return time.Time{}, false
}

// startOfDay truncates to local midnight.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Local().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// endOfDay returns 23:59:59.999 of the same local day.
func endOfDay(t time.Time) time.Time {
	year, month, day := t.Local().Date()
	return time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), time.Local)
}
