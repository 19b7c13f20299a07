package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"coverage.logistics.org/internal/config"
	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/render"
	"coverage.logistics.org/internal/store"
)

// Application wires the coverage analyzer's dependencies together: configuration,
// the parsed table caches, the analyzer, page rendering, the logger and the version.
// Client datasets and batch files are cached apart so batch uploads never evict a
// dataset and a batch key never resolves as a dataset.
type Application struct {
	ConfigService *config.ConfigService
	Tables        *store.TableCache
	Batches       *store.TableCache
	Analyzer      *coverage.Analyzer
	Renderer      *render.Renderer
	Logger        *slog.Logger
	Version       string
}

// New creates and wires all dependencies for the Application.
// Accepts config, logger, client, and version as arguments.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) (*Application, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}

	return &Application{
		ConfigService: config.NewConfigService(logger, client, cfg),
		Tables:        store.NewTableCache(store.DatasetCache, cfg.CacheEntries),
		Batches:       store.NewTableCache(store.BatchCache, cfg.CacheEntries),
		Analyzer:      coverage.NewAnalyzer(logger),
		Renderer:      renderer,
		Logger:        logger,
		Version:       version,
	}, nil
}

func (app *Application) config() *config.Config {
	return app.ConfigService.Config
}
