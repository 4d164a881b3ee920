package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/config"
	"github.com/fleetorbit/fleetorbit-api/internal/db"
	"github.com/fleetorbit/fleetorbit-api/internal/export"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/fleetorbit/fleetorbit-api/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func setupAPI(t *testing.T, webhookURL string) (*gin.Engine, *gorm.DB, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	seeds := []any{
		&models.Customer{ID: 5, Name: "Acme Logistics", WebhookURL: webhookURL},
		&models.User{ID: 7, FirstName: "Dana", LastName: "Ops", Email: "dana@example.com", CustomerID: 5},
		&models.Account{ID: 10, CustomerID: 5, Name: "Midwest", Status: "ACTIVE"},
		&models.Equipment{ID: 100, CustomerID: 5, UnitNumber: "UNIT-100"},
		&models.EquipmentAssignment{EquipmentID: 100, AccountID: 10},
		&models.AlertCategory{ID: 1, Name: "Cargo", Status: "ACTIVE"},
		&models.AlertType{ID: 5, Name: "Temperature", AlertCategoryID: 1, Status: "ACTIVE"},
		&models.DeliveryMethod{ID: 2, Name: "Email", Status: "ACTIVE"},
		&models.TemperatureUnit{ID: 2, Name: "Celsius"},
	}
	for _, seed := range seeds {
		if errCreate := conn.Create(seed).Error; errCreate != nil {
			t.Fatalf("seed %T: %v", seed, errCreate)
		}
	}

	var cfg config.Config
	cfg.JWT.Secret = testSecret

	engine := gin.New()
	RegisterRoutes(engine, conn, cfg, nil)

	token, errToken := security.GenerateToken(testSecret, 7, 5, "dana@example.com", time.Hour)
	if errToken != nil {
		t.Fatalf("generate token: %v", errToken)
	}
	return engine, conn, token
}

func doJSON(t *testing.T, engine *gin.Engine, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func ruleBody() map[string]any {
	return map[string]any{
		"customer_id":         5,
		"account_id":          []int64{10},
		"alert_name":          "Reefer too warm",
		"alert_category_id":   1,
		"alert_type_id":       []int64{5},
		"event_low":           0,
		"event_high":          "10",
		"temperature_unit_id": 2,
		"delivery_method":     []int64{2},
		"recipients_email":    []string{"dana@example.com"},
		"equipmentSelectAll":  true,
		"is_webhook":          true,
	}
}

func TestCreateRuleSucceedsDespiteWebhookFailure(t *testing.T) {
	// The customer's endpoint always fails; rule persistence must not care.
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	engine, conn, token := setupAPI(t, broken.URL)

	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var count int64
	if errCount := conn.Model(&models.AlertRule{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count rules: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("rule count = %d, want 1", count)
	}

	// Updates are equally insulated from delivery failures.
	rec = doJSON(t, engine, http.MethodPut, "/v0/alert-rules/1", token, ruleBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateRule(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := ruleBody()
	body["alert_name"] = "Reefer critical"
	rec = doJSON(t, engine, http.MethodPut, "/v0/alert-rules/1", token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/v0/alert-rules/1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var payload struct {
		AlertName    string  `json:"alert_name"`
		CustomerName string  `json:"customer_name"`
		EquipmentIDs []int64 `json:"equipment_ids"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.AlertName != "Reefer critical" {
		t.Fatalf("alert_name = %q", payload.AlertName)
	}
	if payload.CustomerName != "Acme Logistics" {
		t.Fatalf("customer_name = %q", payload.CustomerName)
	}
	if len(payload.EquipmentIDs) != 1 || payload.EquipmentIDs[0] != 100 {
		t.Fatalf("equipment_ids = %v, want [100]", payload.EquipmentIDs)
	}
}

func TestUpdateMissingRule(t *testing.T) {
	engine, _, token := setupAPI(t, "")
	rec := doJSON(t, engine, http.MethodPut, "/v0/alert-rules/99", token, ruleBody())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListRules(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	if rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodGet, "/v0/alert-rules?status=ACTIVE", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Total int64 `json:"total"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.Total != 1 {
		t.Fatalf("total = %d, want 1", payload.Total)
	}
}

func TestDeleteRule(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	if rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodDelete, "/v0/alert-rules/1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Deleted rules disappear from reads.
	rec = doJSON(t, engine, http.MethodGet, "/v0/alert-rules/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodDelete, "/v0/alert-rules/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestToggleRule(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	if rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules/1/toggle", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.Status != models.RuleStatusInactive {
		t.Fatalf("status = %q, want INACTIVE", payload.Status)
	}
}

func TestExportRules(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	if rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules", token, ruleBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules/export", token, map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != export.ContentType {
		t.Fatalf("content type = %q", got)
	}
	if rec.Header().Get("Content-Disposition") == "" {
		t.Fatal("missing content disposition")
	}
}

func TestExportCoversAllMatchingRules(t *testing.T) {
	engine, conn, token := setupAPI(t, "")

	// Well past a single listing page.
	rules := make([]models.AlertRule, 0, 205)
	for i := 0; i < 205; i++ {
		rules = append(rules, models.AlertRule{
			CustomerID:      5,
			AlertName:       fmt.Sprintf("Rule %03d", i),
			AlertCategoryID: 1,
			Status:          models.RuleStatusActive,
			CreatedBy:       7,
		})
	}
	if errCreate := conn.Create(&rules).Error; errCreate != nil {
		t.Fatalf("seed rules: %v", errCreate)
	}

	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules/export", token, map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}

	book, errOpen := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if errOpen != nil {
		t.Fatalf("open workbook: %v", errOpen)
	}
	defer book.Close()
	sheetRows, errRows := book.GetRows("Alert Rules")
	if errRows != nil {
		t.Fatalf("read sheet: %v", errRows)
	}
	if len(sheetRows) != 206 { // Header plus every rule.
		t.Fatalf("workbook rows = %d, want 206", len(sheetRows))
	}
}

func TestExportNoData(t *testing.T) {
	engine, _, token := setupAPI(t, "")
	rec := doJSON(t, engine, http.MethodPost, "/v0/alert-rules/export", token, map[string]any{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	engine, _, _ := setupAPI(t, "")
	rec := doJSON(t, engine, http.MethodGet, "/v0/alert-rules", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLookupEndpoints(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	for _, path := range []string{"/v0/alert-categories", "/v0/alert-types", "/v0/delivery-methods"} {
		rec := doJSON(t, engine, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestEquipmentListing(t *testing.T) {
	engine, _, token := setupAPI(t, "")

	rec := doJSON(t, engine, http.MethodGet, "/v0/equipment?global_unit_number=100", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("equipment status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Total     int64 `json:"total"`
		Equipment []struct {
			UnitNumber string `json:"unit_number"`
		} `json:"equipment"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.Total != 1 || len(payload.Equipment) != 1 || payload.Equipment[0].UnitNumber != "UNIT-100" {
		t.Fatalf("unexpected equipment payload %s", rec.Body.String())
	}
}

func TestEquipmentListingAccountScope(t *testing.T) {
	engine, conn, token := setupAPI(t, "")

	seeds := []any{
		&models.Account{ID: 11, CustomerID: 5, Name: "Southeast", Status: "ACTIVE"},
		&models.Equipment{ID: 102, CustomerID: 5, UnitNumber: "UNIT-102"},
		&models.EquipmentAssignment{EquipmentID: 102, AccountID: 11},
	}
	for _, seed := range seeds {
		if errCreate := conn.Create(seed).Error; errCreate != nil {
			t.Fatalf("seed %T: %v", seed, errCreate)
		}
	}

	rec := doJSON(t, engine, http.MethodGet, "/v0/equipment?account_id=11", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("equipment status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Total     int64 `json:"total"`
		Equipment []struct {
			UnitNumber string `json:"unit_number"`
		} `json:"equipment"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if payload.Total != 1 || len(payload.Equipment) != 1 || payload.Equipment[0].UnitNumber != "UNIT-102" {
		t.Fatalf("account scope ignored: %s", rec.Body.String())
	}
}
