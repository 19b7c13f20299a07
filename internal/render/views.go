package render

import (
	"strconv"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/models"
	"coverage.logistics.org/internal/sheet"
)

// Option is one entry of a select element.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// UploadPage is the data of the landing page.
type UploadPage struct {
	Error       string
	MaxUploadMB int
}

// Stats summarizes how the uploaded sheet was read.
type Stats struct {
	Rows               int
	CenterRecords      int
	MissingCoordinates int
	SuspectCoordinates int
	InvalidClientIDs   int
	SkippedBatchCells  int
}

// AnalysisPage is the data of the analysis page: sidebar form state, messages,
// the summary table and the map.
type AnalysisPage struct {
	DatasetID   string
	Filename    string
	CenterLabel string

	Centers []Option
	Days    []Option
	Mode    models.SearchMode
	CodCLI  string
	BatchID string // cached batch upload reused until another file is chosen

	Errors   []string
	Warnings []string
	Info     string

	CountHeader string
	Results     []models.QueryResult
	Map         *MapView
	Stats       Stats
}

// Batch reports whether the batch search input should be shown.
func (p AnalysisPage) Batch() bool {
	return p.Mode == models.SearchBatch
}

var dayNames = map[models.Weekday]string{
	models.Monday:    "Monday",
	models.Tuesday:   "Tuesday",
	models.Wednesday: "Wednesday",
	models.Thursday:  "Thursday",
	models.Friday:    "Friday",
	models.Saturday:  "Saturday",
}

// DayOptions lists the weekday selector entries.
func DayOptions(selected models.Weekday) []Option {
	opts := make([]Option, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		opts = append(opts, Option{
			Value:    string(d),
			Label:    string(d) + " - " + dayNames[d],
			Selected: d == selected,
		})
	}
	return opts
}

// CenterOptions lists the center selector entries in dataset order. label maps a
// center id to its display text.
func CenterOptions(ids []string, selected string, label func(string) string) []Option {
	opts := make([]Option, 0, len(ids))
	for _, id := range ids {
		opts = append(opts, Option{
			Value:    id,
			Label:    label(id),
			Selected: id == selected,
		})
	}
	return opts
}

// NewAnalysisPage fills the parts of the page that come from an analysis report.
func NewAnalysisPage(report *coverage.Report, tileURL, tileAttribution string) AnalysisPage {
	page := AnalysisPage{
		Mode:        report.Query.Mode,
		Days:        DayOptions(report.Query.Day),
		Info:        report.Info,
		Results:     report.Results,
		CountHeader: sheet.ResultsCountHeader(report.Query.Day),
		Map:         NewMapView(report, tileURL, tileAttribution),
	}
	for _, w := range report.Warnings {
		page.Warnings = append(page.Warnings, w.Message)
	}
	page.Stats.CenterRecords = report.CenterRecords
	return page
}

// LatLng is a Leaflet coordinate pair.
type LatLng [2]float64

// MapView is serialized into the page and drawn by static/map.js.
type MapView struct {
	Center          LatLng         `json:"center"`
	Zoom            int            `json:"zoom"`
	Extent          [2]LatLng      `json:"extent"`
	RadiusMeters    float64        `json:"radius_m"`
	Day             string         `json:"day"`
	TileURL         string         `json:"tile_url"`
	TileAttribution string         `json:"tile_attribution"`
	Targets         []TargetMarker `json:"targets"`
}

// TargetMarker is a searched client with its radius circle and the free clients inside it.
type TargetMarker struct {
	ClientID        int64          `json:"client_id"`
	Position        LatLng         `json:"position"`
	NearbyFreeCount int            `json:"nearby_free_count"`
	Nearby          []NearbyMarker `json:"nearby"`
}

// NearbyMarker is a free client within the radius of a target.
type NearbyMarker struct {
	Label    string `json:"label"`
	Position LatLng `json:"position"`
}

// NewMapView builds the map payload of a report, or nil when the center has nothing to draw.
func NewMapView(report *coverage.Report, tileURL, tileAttribution string) *MapView {
	if !report.HasMap {
		return nil
	}

	view := &MapView{
		Center:          LatLng{report.MapCenter.Lat, report.MapCenter.Lon},
		Zoom:            report.Zoom,
		RadiusMeters:    coverage.RadiusKm * 1000,
		Day:             string(report.Query.Day),
		TileURL:         tileURL,
		TileAttribution: tileAttribution,
		Targets:         make([]TargetMarker, 0, len(report.Targets)),
	}
	view.Extent[0] = LatLng{report.Extent.MinLat, report.Extent.MinLon}
	view.Extent[1] = LatLng{report.Extent.MaxLat, report.Extent.MaxLon}

	for _, t := range report.Targets {
		marker := TargetMarker{
			ClientID:        t.Target.ClientID,
			Position:        LatLng{t.Target.Latitude, t.Target.Longitude},
			NearbyFreeCount: t.Summary.NearbyFreeCount,
			Nearby:          make([]NearbyMarker, 0, len(t.Nearby)),
		}
		for _, n := range t.Nearby {
			marker.Nearby = append(marker.Nearby, NearbyMarker{
				Label:    clientLabel(n),
				Position: LatLng{n.Latitude, n.Longitude},
			})
		}
		view.Targets = append(view.Targets, marker)
	}
	return view
}

func clientLabel(r models.ClientRecord) string {
	if r.HasClientID {
		return strconv.FormatInt(r.ClientID, 10)
	}
	return "row " + strconv.Itoa(r.Row)
}
