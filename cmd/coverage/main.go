package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"coverage.logistics.org/internal/app"
	"coverage.logistics.org/internal/config"
	"coverage.logistics.org/internal/report"
	"coverage.logistics.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"gopkg.in/natefinch/lumberjack.v2"
)

const version = "1.0.0"

func main() {
	var cfg config.Config

	flag.IntVar(&cfg.Port, "port", 4000, "HTTP server port")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development|staging|production)")
	flag.IntVar(&cfg.MaxUploadMB, "max-upload-mb", 32, "Maximum size of an uploaded spreadsheet in MB")
	flag.IntVar(&cfg.CacheEntries, "cache-entries", 32, "Number of parsed spreadsheets kept in memory")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Write logs to this file with rotation instead of stdout")

	var (
		configFile = flag.String("config-file", "", "Path to a local JSON or YAML configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON or YAML configuration file")
	)

	flag.Parse()

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	report.SetupSentry(cfg.Env, version)
	defer report.FlushSentry()

	logger, err := newLogger(cfg.LogFile)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient()

	var doc *config.Document
	switch {
	case *configFile != "":
		doc, err = config.LoadConfigFromFile(*configFile)
	case *configURL != "":
		doc, err = config.LoadConfigFromURL(ctx, client, *configURL, configAuthUser, configAuthPass)
	default:
		doc = &config.Document{}
		logger.Info("No configuration provided, using defaults")
	}
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		report.FlushSentry()
		os.Exit(1)
	}
	cfg.Document = *doc

	application, err := app.New(&cfg, logger, client, version)
	if err != nil {
		report.ReportError(err, sentry.LevelFatal)
		logger.Error("Failed to initialize application", "error", err)
		report.FlushSentry()
		os.Exit(1)
	}

	// If a remote URL is specified, refresh the configuration every minute
	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err)
		}
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", version)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("server stopped")
		return
	}
	report.ReportError(err, sentry.LevelFatal)
	report.FlushSentry()
	logger.Error(err.Error())
	os.Exit(1)
}

// newLogger writes text logs to stdout, or to a size-rotated file when logFile is set.
func newLogger(logFile string) (*slog.Logger, error) {
	var out io.Writer = os.Stdout
	if logFile != "" {
		if err := utils.EnsureDirectory(filepath.Dir(logFile)); err != nil {
			return nil, err
		}
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(out, nil)), nil
}
