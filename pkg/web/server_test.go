package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ritzau/bazel-xcodegen/pkg/generator"
)

func TestReportEndpointBeforeFirstGeneration(t *testing.T) {
	s := NewServer(nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/report", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReportEndpointReturnsLatestReport(t *testing.T) {
	s := NewServer(nil)
	s.SetReport(&generator.Report{
		ProjectName:    "Demo",
		ProductTargets: []string{"App"},
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/report", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report generator.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.ProjectName != "Demo" || len(report.ProductTargets) != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestGenerateEndpointTriggersRegeneration(t *testing.T) {
	var calls atomic.Int32
	s := NewServer(func(ctx context.Context) (*generator.Report, error) {
		calls.Add(1)
		return &generator.Report{ProjectName: "Demo"}, nil
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/generate", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() != 1 {
		t.Errorf("regenerate calls = %d, want 1", calls.Load())
	}
}

func TestGenerateEndpointWithoutCallback(t *testing.T) {
	s := NewServer(nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/generate", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	s := NewServer(nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if !strings.Contains(rec.Body.String(), "bazel-xcodegen") {
		t.Error("index page missing title")
	}
}
