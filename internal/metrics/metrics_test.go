package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.HTTPRequestDurationSeconds == nil {
		t.Error("HTTPRequestDurationSeconds is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.RecommendationsGeneratedTotal == nil {
		t.Error("RecommendationsGeneratedTotal is nil")
	}
	if m.RecommendationsAppliedTotal == nil {
		t.Error("RecommendationsAppliedTotal is nil")
	}
	if m.AutomationExecutionsTotal == nil {
		t.Error("AutomationExecutionsTotal is nil")
	}
	if m.AIRequestsTotal == nil {
		t.Error("AIRequestsTotal is nil")
	}
	if m.SheetsRowsPulledTotal == nil {
		t.Error("SheetsRowsPulledTotal is nil")
	}
	if m.ExportRowsTotal == nil {
		t.Error("ExportRowsTotal is nil")
	}
}

func TestMiddlewareRecordsRequest(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/api/v1/campaigns/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/api/v1/campaigns/42", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}

	counter, err := m.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/api/v1/campaigns/{id}", "200")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestMiddlewareRecordsError(t *testing.T) {
	m := New()

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	counter, err := m.HTTPErrorsTotal.GetMetricWithLabelValues("not_found")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected error counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestMiddlewareNilMetrics(t *testing.T) {
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic when metrics is nil
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := wrapResponseWriter(w)

	if rw.status != http.StatusOK {
		t.Errorf("Expected initial status %d, got %d", http.StatusOK, rw.status)
	}

	rw.WriteHeader(http.StatusNotFound)
	if rw.status != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, rw.status)
	}

	// Second WriteHeader must not overwrite the recorded status
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusNotFound {
		t.Errorf("Expected status to remain %d, got %d", http.StatusNotFound, rw.status)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := wrapResponseWriter(w)

	if _, err := rw.Write([]byte("test")); err != nil {
		t.Errorf("Write failed: %v", err)
	}

	if rw.status != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rw.status)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/v1/campaigns/42", "/api/v1/campaigns/{id}"},
		{"/api/v1/campaigns/42/adgroups", "/api/v1/campaigns/{id}/adgroups"},
		{"/api/v1/campaigns", "/api/v1/campaigns"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		result := normalizePath(req)
		if result != tt.expected {
			t.Errorf("normalizePath(%q) = %q, expected %q", tt.path, result, tt.expected)
		}
	}
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{500, "server_error"},
		{503, "server_error"},
		{429, "rate_limited"},
		{401, "auth_error"},
		{403, "auth_error"},
		{404, "not_found"},
		{400, "bad_request"},
		{422, "client_error"},
		{200, "unknown"},
		{201, "unknown"},
	}

	for _, tt := range tests {
		result := categorizeStatus(tt.status)
		if result != tt.expected {
			t.Errorf("categorizeStatus(%d) = %q, expected %q", tt.status, result, tt.expected)
		}
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ExportRowsTotal.Add(6)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	if !strings.Contains(string(body), "adpilot_export_rows_total 6") {
		t.Errorf("Expected exposition to contain adpilot_export_rows_total, got:\n%s", body)
	}
}
