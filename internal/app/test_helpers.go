package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coverage.logistics.org/internal/config"
	"coverage.logistics.org/internal/models"
)

// clientCSV is a small client sheet: three clients of center 95 around the target 922245,
// one of them far away, and one client of center 96.
const clientCSV = `CD,CODCLI,X,Y,LU,MA,MI,JU,VI,SA
95,922245,-63.683707,-22.052948,1,0,0,0,1,0
95,100,-63.684500,-22.053500,1,1,0,0,0,0
95,101,-63.600000,-22.000000,1,0,0,0,0,0
95,102,-63.683000,-22.052000,0,1,0,0,0,0
96,200,-63.500000,-21.500000,1,0,0,0,0,0
`

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	cfg := config.NewConfig(4000, "testing", config.Document{
		Centers: []models.Center{{ID: "95", Name: "Tarija"}},
	})
	cfg.MaxUploadMB = 1
	cfg.CacheEntries = 8

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(cfg, logger, http.DefaultClient, "test-version")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return app
}

// newTestServer serves the full middleware chain of app.
func newTestServer(t *testing.T, app *Application) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return app.Routes(ctx)
}

// multipartBody encodes files (field name to filename and content) and plain fields.
func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, file := range files {
		part, err := mw.CreateFormFile(field, file[0])
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := io.WriteString(part, file[1]); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// upload posts a client sheet and returns the recorded response.
func upload(t *testing.T, handler http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, map[string][2]string{"file": {filename, content}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/datasets", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// uploadDataset uploads clientCSV and returns the dataset id from the redirect.
func uploadDataset(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := upload(t, handler, "clientes.csv", clientCSV)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d: %s", rr.Code, rr.Body.String())
	}
	id, ok := strings.CutPrefix(rr.Header().Get("Location"), "/datasets/")
	if !ok || id == "" {
		t.Fatalf("Unexpected redirect location %q", rr.Header().Get("Location"))
	}
	return id
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}
