package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	analyticsservice "github.com/retainly/churnguard/internal/analytics/service"
	auditrepository "github.com/retainly/churnguard/internal/audit/repository"
	auditservice "github.com/retainly/churnguard/internal/audit/service"
	"github.com/retainly/churnguard/internal/clock"
	"github.com/retainly/churnguard/internal/config"
	customerservice "github.com/retainly/churnguard/internal/customer/service"
	"github.com/retainly/churnguard/internal/events"
	"github.com/retainly/churnguard/internal/migration"
	predictionservice "github.com/retainly/churnguard/internal/prediction/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()

	predictionSvc := predictionservice.NewService(predictionservice.ServiceParam{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clock.SystemClock{},
		Config: config.Config{},
		Outbox: events.NewOutbox(db, node),
	})
	customerSvc := customerservice.NewService(customerservice.ServiceParam{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clock.SystemClock{},
		Recorder: predictionSvc,
	})
	analyticsSvc := analyticsservice.NewService(analyticsservice.ServiceParam{
		DB:    db,
		Log:   log,
		Cache: analyticsservice.NewSummaryCache(),
	})
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  auditrepository.Provide(),
	})

	engine := gin.New()
	srv := &Server{
		cfg:           config.Config{},
		log:           log,
		db:            db,
		engine:        engine,
		registry:      prometheus.NewRegistry(),
		customerSvc:   customerSvc,
		predictionSvc: predictionSvc,
		analyticsSvc:  analyticsSvc,
		auditSvc:      auditSvc,
	}
	srv.RegisterRoutes()
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

const validCustomerBody = `{
	"name": "Test Co",
	"email": "test@example.com",
	"company": "Test Co",
	"subscription_value": 10000,
	"contract_length": 36,
	"login_frequency": 30,
	"features": {"product_usage": 100, "support_satisfaction": 10}
}`

func createTestCustomer(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers", validCustomerBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer: status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	id, ok := data["id"].(string)
	if !ok {
		t.Fatalf("missing customer id in %v", data)
	}
	return id
}

func TestCreateCustomerEndpoint(t *testing.T) {
	engine := newTestServer(t)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers", validCustomerBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["status"] != "at_risk" {
		t.Fatalf("expected at_risk, got %v", data["status"])
	}
	if data["risk_score"].(float64) != 0.5 {
		t.Fatalf("expected base risk, got %v", data["risk_score"])
	}
}

func TestCreateCustomerMalformedBody(t *testing.T) {
	engine := newTestServer(t)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["code"] != "invalid_request" {
		t.Fatalf("code = %v", errBody["code"])
	}
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	engine := newTestServer(t)
	createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers", validCustomerBody)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["code"] != "email_taken" || errBody["field"] != "email" {
		t.Fatalf("unexpected error %v", errBody)
	}
}

func TestCreateCustomerValidationField(t *testing.T) {
	engine := newTestServer(t)

	body := strings.Replace(validCustomerBody, `"support_satisfaction": 10`, `"support_satisfaction": 11`, 1)
	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["field"] != "features.support_satisfaction" {
		t.Fatalf("field = %v", errBody["field"])
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	engine := newTestServer(t)

	for _, id := range []string{"123456789", "not-an-id"} {
		rec := doRequest(t, engine, http.MethodGet, "/api/v1/customers/"+id, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("id %q: status %d", id, rec.Code)
		}
		errBody := decodeBody(t, rec)["error"].(map[string]any)
		if errBody["code"] != "customer_not_found" {
			t.Fatalf("code = %v", errBody["code"])
		}
	}
}

func TestListCustomersInvalidStatus(t *testing.T) {
	engine := newTestServer(t)

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/customers?status=vip", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	if errBody["field"] != "status" {
		t.Fatalf("field = %v", errBody["field"])
	}
}

func TestPredictEndpoint(t *testing.T) {
	engine := newTestServer(t)
	id := createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers/"+id+"/predict", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	prediction := data["prediction"].(map[string]any)
	if prediction["model_version"] == "" {
		t.Fatalf("missing model version in %v", prediction)
	}

	history := doRequest(t, engine, http.MethodGet, "/api/v1/customers/"+id+"/predictions", "")
	if history.Code != http.StatusOK {
		t.Fatalf("history status %d", history.Code)
	}
	records := decodeBody(t, history)["data"].([]any)
	// One record from create, one from the explicit predict.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestBulkRecomputeEndpoint(t *testing.T) {
	engine := newTestServer(t)
	createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/predictions/recompute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["processed"].(float64) != 1 {
		t.Fatalf("expected 1 processed, got %v", data["processed"])
	}
}

func TestAnalyticsSummaryEndpoint(t *testing.T) {
	engine := newTestServer(t)
	createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/analytics/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["total_customers"].(float64) != 1 {
		t.Fatalf("expected 1 customer, got %v", data["total_customers"])
	}
}

func TestInteractionEndpoints(t *testing.T) {
	engine := newTestServer(t)
	id := createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers/"+id+"/interactions",
		`{"type": "call", "note": "renewal discussion"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	list := doRequest(t, engine, http.MethodGet, "/api/v1/customers/"+id+"/interactions", "")
	if list.Code != http.StatusOK {
		t.Fatalf("list status %d", list.Code)
	}
	items := decodeBody(t, list)["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(items))
	}
}

func TestDeleteCustomerEndpoint(t *testing.T) {
	engine := newTestServer(t)
	id := createTestCustomer(t, engine)

	rec := doRequest(t, engine, http.MethodDelete, "/api/v1/customers/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	again := doRequest(t, engine, http.MethodDelete, "/api/v1/customers/"+id, "")
	if again.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", again.Code)
	}
}

func TestAuditTrailEndpoint(t *testing.T) {
	engine := newTestServer(t)
	id := createTestCustomer(t, engine)

	if rec := doRequest(t, engine, http.MethodPost, "/api/v1/customers/"+id+"/predict", ""); rec.Code != http.StatusOK {
		t.Fatalf("predict status %d body %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/audit-logs?action=prediction.create", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	entries := decodeBody(t, rec)["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 prediction audit entry, got %d", len(entries))
	}

	entry := entries[0].(map[string]any)
	if entry["target_id"] != id {
		t.Fatalf("target_id = %v, want %s", entry["target_id"], id)
	}
	metadata := entry["metadata"].(map[string]any)
	if metadata["status"] != "at_risk" {
		t.Fatalf("audited status = %v", metadata["status"])
	}
	if metadata["model_version"] == "" {
		t.Fatalf("missing model version in %v", metadata)
	}

	// The create action is audited separately and excluded by the filter.
	all := doRequest(t, engine, http.MethodGet, "/api/v1/audit-logs", "")
	if all.Code != http.StatusOK {
		t.Fatalf("unfiltered status %d", all.Code)
	}
	if got := len(decodeBody(t, all)["data"].([]any)); got != 2 {
		t.Fatalf("expected 2 audit entries, got %d", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestServer(t)

	rec := doRequest(t, engine, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}
