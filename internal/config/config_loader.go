package config

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/report"
	"coverage.logistics.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"gopkg.in/yaml.v3"
)

// ValidateConfigFlags ensures that at most one configuration source is specified:
// either a config file "--config-file" or a remote config URL "--config-url".
// Both are optional; without either the service runs with the built-in defaults.
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// refreshConfig periodically fetches the config document from a remote URL and
// swaps it into cfg.
//
// Errors during fetch or parse are logged and reported to Sentry, but the loop continues.
// A source that keeps failing is polled less often, following the backoff store.
//
// The routine stops when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	backoffs := NewBackoffStore()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		case <-timer.C:
		}

		wait := interval
		doc, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Stopping config refresh routine")
				return
			}
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Tags:  utils.MakeMap("config_url", configURL),
				Level: sentry.LevelError,
			})
			logger.Error("Failed to refresh remote config", "error", err)

			backoffs.UpdateBackoff(configURL)
			if next, ok := backoffs.NextRetryAt(configURL); ok && time.Until(next) > wait {
				wait = time.Until(next)
			}
		} else {
			backoffs.ResetBackoff(configURL)
			cfg.UpdateConfig(*doc)
			logger.Info("Successfully refreshed coverage configuration", "centers", len(doc.Centers))
		}
		timer.Reset(wait)
	}
}

// loadConfigFromFile reads a JSON or YAML config document from disk.
// The format follows the file extension (.yaml and .yml are YAML, anything else JSON).
//
// On error, it reports issues to Sentry and returns a descriptive error.
func loadConfigFromFile(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	doc, err := decodeDocument(data, isYAMLPath(filePath))
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return nil, err
	}

	return doc, nil
}

// loadConfigFromURL fetches the config document from a remote HTTP(S) endpoint,
// using the provided client and optional basic authentication.
//
// The body is decoded as YAML when the URL path ends in .yaml/.yml or the response
// declares a YAML content type, as JSON otherwise.
//
// Errors are logged and reported to Sentry for observability.
func loadConfigFromURL(ctx context.Context, client *http.Client, rawURL, authUser, authPass string, maxRetries int) (*Document, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", rawURL),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", rawURL),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to fetch remote config: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("remote config returned status: %d", resp.StatusCode)
		report.ReportErrorWithSentryOptions(statusErr, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", rawURL),
			Level: sentry.LevelError,
		})
		return nil, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", rawURL),
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("failed to read remote config: %v", err)
	}

	asYAML := strings.Contains(resp.Header.Get("Content-Type"), "yaml")
	if u, err := url.Parse(rawURL); err == nil && isYAMLPath(u.Path) {
		asYAML = true
	}

	doc, err := decodeDocument(data, asYAML)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", rawURL),
			Level: sentry.LevelError,
		})
		return nil, err
	}

	return doc, nil
}

func decodeDocument(data []byte, asYAML bool) (*Document, error) {
	var doc Document
	if asYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %v", err)
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON: %v", err)
		}
	}

	for i, c := range doc.Centers {
		id := coverage.CanonicalCenter(c.ID)
		if id == "" {
			return nil, fmt.Errorf("center %d has an empty id", i)
		}
		doc.Centers[i].ID = id
	}
	return &doc, nil
}

func isYAMLPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
