package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coverage.logistics.org/internal/config"
	"coverage.logistics.org/internal/metrics"
	"coverage.logistics.org/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	app := newTestApplication(t)

	if app.Renderer == nil || app.Analyzer == nil || app.Tables == nil || app.Batches == nil {
		t.Fatalf("Expected all dependencies to be wired, got %+v", app)
	}
	if app.config().Port != 4000 {
		t.Errorf("Expected port 4000, got %d", app.config().Port)
	}
	if app.ConfigService.Logger != app.Logger {
		t.Errorf("Expected the config service to share the application logger")
	}
}

func TestUpdateConfig(t *testing.T) {
	app := newTestApplication(t)

	app.config().UpdateConfig(config.Document{
		Centers: []models.Center{
			{ID: "95", Name: "Tarija Norte"},
			{ID: "96", Name: "Yacuiba"},
		},
	})

	if got := len(app.config().GetCenters()); got != 2 {
		t.Errorf("Expected 2 centers, got %d", got)
	}
	if got := app.config().CenterLabel("96"); got != "96 - Yacuiba" {
		t.Errorf("Expected label '96 - Yacuiba', got %q", got)
	}

	// Pages pick up the new catalog without a restart.
	handler := newTestServer(t, app)
	id := uploadDataset(t, handler)
	rr := get(t, handler, "/datasets/"+id)
	if body := rr.Body.String(); !strings.Contains(body, `<option value="95" selected>95 - Tarija Norte</option>`) {
		t.Errorf("Expected the updated center label on the page")
	}
}

func TestPooledClientRecordsLatency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewPooledClient()
	resp, err := client.Get(srv.URL + "/config.yaml?token=secret")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	observer := metrics.OutgoingLatency.WithLabelValues(srv.URL+"/config.yaml", http.MethodGet, "418")
	count, err := metrics.MetricValue(observer.(prometheus.Histogram))
	if err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 observation without the query string, got %v", count)
	}
}

func TestUpdateConfigRefreshesTileOrigin(t *testing.T) {
	app := newTestApplication(t)
	handler := newTestServer(t, app)

	if csp := get(t, handler, "/").Header().Get("Content-Security-Policy"); strings.Contains(csp, "tiles.example.net") {
		t.Fatalf("Expected no custom tile host before the update, got %q", csp)
	}

	app.config().UpdateConfig(config.Document{
		Centers: []models.Center{{ID: "95", Name: "Tarija"}},
		TileURL: "https://{s}.tiles.example.net/{z}/{x}/{y}.png",
	})

	csp := get(t, handler, "/").Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "https://*.tiles.example.net") {
		t.Errorf("Expected the refreshed tile host in the CSP, got %q", csp)
	}
}
