package coverage

import (
	"fmt"
	"log/slog"
	"time"

	"coverage.logistics.org/internal/geo"
	"coverage.logistics.org/internal/metrics"
	"coverage.logistics.org/internal/models"
)

// Map zoom levels for the center overview and for a target analysis.
const (
	OverviewZoom = 12
	TargetZoom   = 14
)

// Report is everything one analysis pass produces for presentation.
type Report struct {
	Query   models.Query
	Centers []string

	// HasMap is false when the selected center has no record with valid coordinates.
	HasMap    bool
	MapCenter geo.Point
	Zoom      int
	// Extent bounds every located client of the selected center.
	Extent geo.BoundingBox

	Targets  []models.TargetView
	Results  []models.QueryResult
	Warnings []EmptyResultWarning
	Info     string

	// CenterRecords is the number of records of the selected center that have coordinates.
	CenterRecords int
}

// Analyzer runs coverage queries over a normalized dataset.
type Analyzer struct {
	Logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{Logger: logger}
}

// Analyze recomputes the full report for q from scratch.
func (a *Analyzer) Analyze(ds *Dataset, q models.Query) *Report {
	start := time.Now()
	report := &Report{Query: q, Centers: ds.Centers}
	outcome := a.analyze(ds, q, report)

	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	metrics.QueriesTotal.WithLabelValues(string(q.Mode), outcome).Inc()
	a.Logger.Debug("coverage query computed",
		"center", q.Center,
		"day", q.Day,
		"targets_requested", len(q.TargetIDs),
		"targets_resolved", len(report.Targets),
		"outcome", outcome,
		"duration", time.Since(start))
	return report
}

func (a *Analyzer) analyze(ds *Dataset, q models.Query, report *Report) string {
	subtable := FilterByCenter(ds.Records, q.Center)
	report.CenterRecords = len(subtable)
	if len(subtable) == 0 {
		report.Warnings = append(report.Warnings, EmptyResultWarning{
			Message: fmt.Sprintf("No clients with valid coordinates for center %s.", q.Center),
		})
		return "empty_center"
	}

	// Centroid and ComputeBoundingBox only fail on empty input, ruled out above.
	located := points(subtable)
	report.MapCenter, _ = geo.Centroid(located)
	report.Extent, _ = geo.ComputeBoundingBox(located)
	report.Zoom = OverviewZoom
	report.HasMap = true

	if !q.HasTargets() {
		report.Info = "Center overview loaded. Enter a CODCLI to run the radius analysis."
		return "overview"
	}

	targets := ResolveTargets(subtable, q.TargetIDs)
	if len(targets) == 0 {
		report.Warnings = append(report.Warnings, EmptyResultWarning{
			Message: "The searched client codes do not exist or have no valid coordinates.",
		})
		return "no_targets"
	}

	report.MapCenter, _ = geo.Centroid(points(targets))
	report.Zoom = TargetZoom

	for _, target := range targets {
		count, nearby := NearbyFreeCount(subtable, target, q.Day)
		result := models.QueryResult{
			TargetClientID:  target.ClientID,
			NearbyFreeCount: count,
		}
		metrics.NearbyFreeClients.Observe(float64(count))

		report.Results = append(report.Results, result)
		report.Targets = append(report.Targets, models.TargetView{
			Target:  target,
			Nearby:  nearby,
			Summary: result,
		})
	}
	return "results"
}

func points(records []models.ClientRecord) []geo.Point {
	pts := make([]geo.Point, len(records))
	for i, r := range records {
		pts[i] = geo.Point{Lat: r.Latitude, Lon: r.Longitude}
	}
	return pts
}
