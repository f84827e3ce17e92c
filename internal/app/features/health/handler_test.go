package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/features/health"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fixedSize int

func (n fixedSize) Len() int { return int(n) }

type body struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	CachedSchools int    `json:"cachedSchools"`
	OpenDatabases int    `json:"openDatabases"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	h := health.NewHandler(fakePinger{}, fixedSize(3), fixedSize(2), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got body
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := body{Status: "ok", Database: "connected", CachedSchools: 3, OpenDatabases: 2}
	if got != want {
		t.Errorf("body = %+v, want %+v", got, want)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := health.NewHandler(fakePinger{err: errors.New("no reachable servers")}, nil, nil, zap.New(core))
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var got body
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Database != "disconnected" || got.CachedSchools != 0 {
		t.Errorf("body = %+v", got)
	}
	if strings.Contains(rec.Body.String(), "no reachable servers") {
		t.Error("driver error leaked into response")
	}
	if logs.FilterMessage("primary ping failed").Len() != 1 {
		t.Error("expected ping failure to be logged")
	}
}

func TestMetricsRoutes(t *testing.T) {
	metrics.DirectoryLookups.WithLabelValues("hit").Inc()

	rec := httptest.NewRecorder()
	health.MetricsRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "schoolhub_tenant_directory_lookups_total") {
		t.Error("directory lookup counter not exported")
	}
}
