package app

import (
	"bytes"
	"encoding/json"
	"net/http"

	"coverage.logistics.org/internal/middleware"
	"coverage.logistics.org/internal/render"
	"coverage.logistics.org/internal/report"
	"coverage.logistics.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

// HealthStatus is the JSON body of /v1/healthcheck.
//
// Ready is true once the page templates are loaded; CachedTables and Centers describe
// the in-memory uploads and the configured center catalog.
type HealthStatus struct {
	Status       string `json:"status"`
	Environment  string `json:"environment"`
	Version      string `json:"version"`
	CachedTables int    `json:"cached_tables"`
	Centers      int    `json:"centers"`
	Ready        bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ready := app.Renderer != nil

	status := HealthStatus{
		Status:       "available",
		Environment:  app.config().Env,
		Version:      app.Version,
		CachedTables: app.Tables.Len(),
		Centers:      len(app.config().GetCenters()),
		Ready:        ready,
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, r, code, status)
}

func (app *Application) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// writeJSON encodes v as the response body with the given status code.
func (app *Application) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFromContext(r.Context(), app.Logger).Error("Failed to encode JSON response", "error", err)
	}
}

// renderPage writes an HTML page, falling back to a 500 if the template fails.
func (app *Application) renderPage(w http.ResponseWriter, r *http.Request, code int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf bytes.Buffer
	if err := app.Renderer.Render(&buf, page, data); err != nil {
		app.serverError(w, r, err, "page", page)
		return
	}
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// serverError logs and reports an unexpected failure and answers with a bare 500.
// tags are key/value pairs attached to the Sentry event.
func (app *Application) serverError(w http.ResponseWriter, r *http.Request, err error, tags ...string) {
	logger := middleware.LoggerFromContext(r.Context(), app.Logger)
	logger.Error("Failed to handle request", "method", r.Method, "path", r.URL.Path, "error", err)

	sentryTags := utils.MakeMap("path", r.URL.Path)
	for i := 0; i+1 < len(tags); i += 2 {
		sentryTags[tags[i]] = tags[i+1]
	}
	report.ReportRequestError(r.Context(), err, report.SentryReportOptions{
		Tags: sentryTags,
		ExtraContext: map[string]interface{}{
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"method":     r.Method,
		},
		Level: sentry.LevelError,
	})

	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// uploadError re-renders the upload page with an inline message.
func (app *Application) uploadError(w http.ResponseWriter, r *http.Request, code int, message string) {
	app.renderPage(w, r, code, render.PageUpload, render.UploadPage{
		Error:       message,
		MaxUploadMB: int(app.config().MaxUploadBytes() >> 20),
	})
}
