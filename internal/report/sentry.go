package report

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initializes the Sentry client from SENTRY_DSN. An empty DSN leaves
// the client disabled, so reporting calls become no-ops.
func SetupSentry(env, version string) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      env,
		Release:          "coverage-analyzer@" + version,
		EnableTracing:    true,
		Debug:            env == "development",
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	ConfigureScope(env, version)
	sentry.CaptureMessage("Coverage analyzer started")
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
