package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"coverage.logistics.org/internal/middleware"
	"coverage.logistics.org/internal/render"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
)

// Routes registers every endpoint and wraps the router with the middleware chain.
//
// Pages:
//   - GET  /                         upload page
//   - POST /datasets                 upload a client sheet, redirects to its analysis page
//   - GET  /datasets/:id             analysis page, parameters in the query string
//   - POST /datasets/:id             analysis page from the sidebar form (batch file, xlsx export)
//   - POST /datasets/:id/delete      drop the cached table and return to the upload page
//   - GET  /templates/base.xlsx      client sheet template
//   - GET  /templates/batch.xlsx     batch search template
//
// API and operations:
//   - GET    /v1/datasets/:id/coverage  JSON report
//   - DELETE /datasets/:id/delete       drop the cached table
//   - GET    /v1/healthcheck
//   - GET    /metrics                   cached Prometheus exposition
//
// ctx bounds the background refresh of the metrics cache.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(app.notFoundHandler)

	router.HandlerFunc(http.MethodGet, "/", app.uploadPageHandler)
	router.HandlerFunc(http.MethodPost, "/datasets", app.uploadHandler)
	router.HandlerFunc(http.MethodGet, "/datasets/:id", app.analysisHandler)
	router.HandlerFunc(http.MethodPost, "/datasets/:id", app.analysisHandler)
	router.HandlerFunc(http.MethodPost, "/datasets/:id/delete", app.deleteDatasetHandler)
	router.HandlerFunc(http.MethodDelete, "/datasets/:id/delete", app.deleteDatasetHandler)
	router.HandlerFunc(http.MethodGet, "/templates/base.xlsx", app.baseTemplateHandler)
	router.HandlerFunc(http.MethodGet, "/templates/batch.xlsx", app.batchTemplateHandler)
	router.ServeFiles("/static/*filepath", render.StaticFiles())

	router.HandlerFunc(http.MethodGet, "/v1/datasets/:id/coverage", app.coverageAPIHandler)
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second, app.Logger))

	handler := middleware.SentryMiddleware(router)
	handler = middleware.RequestID(app.Logger, handler)
	return middleware.SecurityHeaders(handler, app.tileHosts)
}

// tileHosts reads the tile layer on each request so a refreshed tile_url is allowed at once.
func (app *Application) tileHosts() []string {
	tileURL, _ := app.config().TileLayer()
	return []string{tileOrigin(tileURL)}
}

// tileOrigin turns a Leaflet tile URL template into a CSP source, e.g.
// "https://{s}.tile.example.com/{z}/{x}/{y}.png" becomes "https://*.tile.example.com".
func tileOrigin(tileURL string) string {
	scheme, rest, ok := strings.Cut(tileURL, "://")
	if !ok {
		return "'self'"
	}
	host, _, _ := strings.Cut(rest, "/")
	host = strings.ReplaceAll(host, "{s}", "*")
	if host == "" || strings.ContainsAny(host, "{} ;'") {
		return "'self'"
	}
	return scheme + "://" + host
}
