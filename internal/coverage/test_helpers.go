package coverage

import (
	"io"
	"log/slog"
	"testing"

	"coverage.logistics.org/internal/sheet"
)

// clientHeader is the header row of the client sheet used throughout the tests.
var clientHeader = []string{"CD", "CODCLI", "X", "Y", "LU", "MA", "MI", "JU", "VI", "SA"}

// newClientTable builds a client sheet table from data rows in clientHeader order.
func newClientTable(t *testing.T, rows ...[]string) *sheet.Table {
	t.Helper()
	raw := append([][]string{clientHeader}, rows...)
	return sheet.NewTable(raw)
}

// newTestDataset builds and normalizes a client sheet, failing the test on validation errors.
func newTestDataset(t *testing.T, rows ...[]string) *Dataset {
	t.Helper()
	ds, err := BuildDataset(newClientTable(t, rows...))
	if err != nil {
		t.Fatalf("BuildDataset failed: %v", err)
	}
	return ds
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return NewAnalyzer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
