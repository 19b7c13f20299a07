package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coverage.logistics.org/internal/report"
	"github.com/getsentry/sentry-go"
)

// EnsureDirectory makes sure dir exists, creating it if necessary.
func EnsureDirectory(dir string) error {
	stat, err := os.Stat(dir)

	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Level: sentry.LevelError,
					ExtraContext: map[string]interface{}{
						"dir": dir,
					},
				})
				return err
			}
			return nil
		}
		return err
	}
	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", dir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelError,
			ExtraContext: map[string]interface{}{
				"dir": dir,
			},
		})
		return err
	}
	return nil
}

// DownloadName derives an attachment filename from an uploaded file name,
// replacing its extension with ext and dropping characters unsafe in a header.
func DownloadName(uploaded, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(uploaded), filepath.Ext(uploaded))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20 || r == 0x7f:
			return -1
		case r > 0x7e:
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "coverage"
	}
	return base + suffix + ext
}
