package config

import (
	"sync"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/models"
)

// Defaults for the map tile layer when the config document does not set one.
const (
	DefaultTileURL         = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultTileAttribution = "&copy; OpenStreetMap contributors"
)

// Document is the optional configuration loaded from --config-file or --config-url.
type Document struct {
	Centers         []models.Center `json:"centers" yaml:"centers"`
	TileURL         string          `json:"tile_url" yaml:"tile_url"`
	TileAttribution string          `json:"tile_attribution" yaml:"tile_attribution"`
}

// Config holds all the configuration settings for our application.
type Config struct {
	Port         int
	Env          string
	MaxUploadMB  int
	CacheEntries int
	LogFile      string

	Mu       sync.RWMutex
	Document Document
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, doc Document) *Config {
	return &Config{
		Port:     port,
		Env:      env,
		Document: doc,
	}
}

// UpdateConfig safely replaces the config document.
func (cfg *Config) UpdateConfig(doc Document) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Document = doc
}

// GetCenters returns a copy of the configured center catalog.
func (cfg *Config) GetCenters() []models.Center {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return append([]models.Center(nil), cfg.Document.Centers...)
}

// CenterLabel returns the display label for a center id, falling back to the id itself
// for centers missing from the catalog. Ids match in canonical form, so a catalog entry
// "95.0" labels the sheet's "95".
func (cfg *Config) CenterLabel(id string) string {
	key := coverage.CanonicalCenter(id)
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	for _, c := range cfg.Document.Centers {
		if coverage.CanonicalCenter(c.ID) == key {
			return models.Center{ID: key, Name: c.Name}.Label()
		}
	}
	return id
}

// TileLayer returns the map tile URL template and its attribution.
func (cfg *Config) TileLayer() (url, attribution string) {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	url, attribution = cfg.Document.TileURL, cfg.Document.TileAttribution
	if url == "" {
		url = DefaultTileURL
		if attribution == "" {
			attribution = DefaultTileAttribution
		}
	}
	return url, attribution
}

// MaxUploadBytes converts the configured upload limit to bytes.
func (cfg *Config) MaxUploadBytes() int64 {
	if cfg.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return int64(cfg.MaxUploadMB) << 20
}
