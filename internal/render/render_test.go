package render

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/geo"
	"coverage.logistics.org/internal/models"
	"github.com/google/go-cmp/cmp"
)

func newTestReport() *coverage.Report {
	target := models.ClientRecord{Row: 1, CenterID: "95", ClientID: 922245, HasClientID: true, Latitude: -22.05, Longitude: -63.68}
	nearby := []models.ClientRecord{
		{Row: 2, CenterID: "95", ClientID: 100, HasClientID: true, Latitude: -22.051, Longitude: -63.681},
		{Row: 7, CenterID: "95", Latitude: -22.052, Longitude: -63.682},
	}
	result := models.QueryResult{TargetClientID: 922245, NearbyFreeCount: 3}

	return &coverage.Report{
		Query:     models.NewQuery("95", models.Friday, models.SearchSingle, []int64{922245}),
		Centers:   []string{"95", "96"},
		HasMap:    true,
		MapCenter: geo.Point{Lat: -22.05, Lon: -63.68},
		Zoom:      coverage.TargetZoom,
		Extent:    geo.BoundingBox{MinLat: -22.1, MaxLat: -22.0, MinLon: -63.7, MaxLon: -63.6},
		Targets:   []models.TargetView{{Target: target, Nearby: nearby, Summary: result}},
		Results:   []models.QueryResult{result},
		Warnings:  []coverage.EmptyResultWarning{{Message: "heads up"}},
	}
}

func TestNewMapView(t *testing.T) {
	view := NewMapView(newTestReport(), "https://tiles.example.com/{z}/{x}/{y}.png", "Tiles")

	want := &MapView{
		Center:          LatLng{-22.05, -63.68},
		Zoom:            coverage.TargetZoom,
		Extent:          [2]LatLng{{-22.1, -63.7}, {-22.0, -63.6}},
		RadiusMeters:    1000,
		Day:             "VI",
		TileURL:         "https://tiles.example.com/{z}/{x}/{y}.png",
		TileAttribution: "Tiles",
		Targets: []TargetMarker{{
			ClientID:        922245,
			Position:        LatLng{-22.05, -63.68},
			NearbyFreeCount: 3,
			Nearby: []NearbyMarker{
				{Label: "100", Position: LatLng{-22.051, -63.681}},
				{Label: "row 7", Position: LatLng{-22.052, -63.682}},
			},
		}},
	}
	if diff := cmp.Diff(want, view); diff != "" {
		t.Errorf("Unexpected map view (-want +got):\n%s", diff)
	}

	if v := NewMapView(&coverage.Report{}, "", ""); v != nil {
		t.Errorf("Expected no map for a report without located clients, got %+v", v)
	}
}

func TestRenderAnalysisPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report := newTestReport()
	page := NewAnalysisPage(report, "https://tiles.example.com/{z}/{x}/{y}.png", "Tiles")
	page.DatasetID = "abc123"
	page.Filename = "clientes.xlsx"
	page.CenterLabel = "95 - Tarija"
	page.Centers = CenterOptions(report.Centers, "95", func(id string) string { return "CD " + id })
	page.CodCLI = "922245"
	page.Errors = []string{"<b>bad</b>"}

	var buf bytes.Buffer
	if err := r.Render(&buf, PageAnalysis, page); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`<option value="95" selected>CD 95</option>`,
		`<option value="96">CD 96</option>`,
		`<option value="VI" selected>VI - Friday</option>`,
		`Clientes Free (VI) a &lt;1km`,
		`<td>922245</td><td>3</td>`,
		`heads up`,
		`&lt;b&gt;bad&lt;/b&gt;`,
		`action="/datasets/abc123"`,
		`name="format" value="xlsx"`,
		`/static/map.js`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}

	const open = `<script id="map-data" type="application/json">`
	start := strings.Index(html, open)
	if start < 0 {
		t.Fatalf("Map data script not found")
	}
	rest := html[start+len(open):]
	end := strings.Index(rest, "</script>")
	var decoded MapView
	if err := json.Unmarshal([]byte(rest[:end]), &decoded); err != nil {
		t.Fatalf("Map data is not valid JSON: %v\n%s", err, rest[:end])
	}
	if diff := cmp.Diff(*page.Map, decoded); diff != "" {
		t.Errorf("Map data round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderAnalysisPageWithoutMap(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	page := NewAnalysisPage(&coverage.Report{
		Query:    models.NewQuery("12", models.Monday, models.SearchBatch, nil),
		Warnings: []coverage.EmptyResultWarning{{Message: "No clients with valid coordinates for center 12."}},
	}, "", "")

	var buf bytes.Buffer
	if err := r.Render(&buf, PageAnalysis, page); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	html := buf.String()

	if strings.Contains(html, `id="map-data"`) {
		t.Errorf("Expected no map data without a map")
	}
	if !strings.Contains(html, "No clients with valid coordinates for center 12.") {
		t.Errorf("Expected the empty center warning")
	}
	if !strings.Contains(html, `value="batch" checked`) {
		t.Errorf("Expected batch mode to be selected")
	}
}

func TestRenderUploadPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, PageUpload, UploadPage{Error: "The file is missing required columns: X.", MaxUploadMB: 16}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`action="/datasets"`,
		`/templates/base.xlsx`,
		`up to 16 MB`,
		`The file is missing required columns: X.`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}

	if err := r.Render(io.Discard, "missing.html", nil); err == nil {
		t.Errorf("Expected error for an unknown page")
	}
}

func TestStaticFiles(t *testing.T) {
	for _, name := range []string{"/map.js", "/form.js", "/style.css"} {
		f, err := StaticFiles().Open(name)
		if err != nil {
			t.Errorf("Expected %s to be embedded: %v", name, err)
			continue
		}
		f.Close()
	}

	if _, err := StaticFiles().Open("/missing.js"); err == nil {
		t.Errorf("Expected error for a missing asset")
	}
}
