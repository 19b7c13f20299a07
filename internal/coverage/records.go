package coverage

import (
	"fmt"
	"math"
	"strings"

	"coverage.logistics.org/internal/geo"
	"coverage.logistics.org/internal/models"
	"coverage.logistics.org/internal/sheet"
)

// Dataset is the client sheet after normalization.
type Dataset struct {
	Records []models.ClientRecord
	// Centers holds the distinct non-empty CD values in order of first appearance,
	// including centers none of whose rows have valid coordinates.
	Centers []string

	MissingCoordinates int
	InvalidClientIDs   int
	// SuspectCoordinates counts rows whose coordinates are numeric but out of range or
	// exactly (0, 0). They still take part in queries.
	SuspectCoordinates int
}

// Load parses an uploaded file. Any failure is a ParseError.
func Load(filename string, data []byte) (*sheet.Table, error) {
	table, err := sheet.Parse(filename, data)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	return table, nil
}

// BuildDataset validates the client sheet schema and normalizes every row.
func BuildDataset(table *sheet.Table) (*Dataset, error) {
	if missing := table.MissingColumns(sheet.RequiredClientColumns()...); len(missing) > 0 {
		return nil, &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("The file is missing required columns: %s.", strings.Join(missing, ", ")),
		}
	}

	cdCol, _ := table.ColumnIndex(sheet.ColumnCenter)
	idCol, _ := table.ColumnIndex(sheet.ColumnClientID)
	xCol, _ := table.ColumnIndex(sheet.ColumnLongitude)
	yCol, _ := table.ColumnIndex(sheet.ColumnLatitude)
	dayCols := make(map[models.Weekday]int, len(models.Weekdays))
	for _, d := range models.Weekdays {
		dayCols[d], _ = table.ColumnIndex(string(d))
	}

	ds := &Dataset{Records: make([]models.ClientRecord, 0, table.Len())}
	seenCenters := make(map[string]struct{})

	for i := 0; i < table.Len(); i++ {
		rec := models.ClientRecord{
			Row:       i + 1,
			CenterID:  CanonicalCenter(table.Cell(i, cdCol)),
			Longitude: math.NaN(),
			Latitude:  math.NaN(),
			DayFlags:  make(map[models.Weekday]float64, len(dayCols)),
		}

		if rec.CenterID != "" {
			if _, ok := seenCenters[rec.CenterID]; !ok {
				seenCenters[rec.CenterID] = struct{}{}
				ds.Centers = append(ds.Centers, rec.CenterID)
			}
		}

		rec.ClientID, rec.HasClientID = parseIntegral(table.Cell(i, idCol))
		if !rec.HasClientID {
			ds.InvalidClientIDs++
		}

		if lon, ok := NormalizeCoordinate(table.Cell(i, xCol)); ok {
			rec.Longitude = lon
		}
		if lat, ok := NormalizeCoordinate(table.Cell(i, yCol)); ok {
			rec.Latitude = lat
		}
		switch {
		case !rec.HasCoordinates():
			ds.MissingCoordinates++
		case !geo.IsValidLatLon(rec.Latitude, rec.Longitude):
			ds.SuspectCoordinates++
		}

		for day, col := range dayCols {
			if v, ok := parseNumber(table.Cell(i, col)); ok {
				rec.DayFlags[day] = v
			}
		}

		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

// TargetsFromBatch reads the client ids of a batch-search sheet. Blank cells are ignored;
// non-integer cells are skipped and counted.
func TargetsFromBatch(table *sheet.Table) (ids []int64, skipped int, err error) {
	col, ok := table.ColumnIndex(sheet.ColumnClientID)
	if !ok {
		return nil, 0, &ValidationError{
			Field:   "batch",
			Message: "The batch file must have a column named 'CODCLI'.",
		}
	}

	for i := 0; i < table.Len(); i++ {
		cell := table.Cell(i, col)
		if cell == "" {
			continue
		}
		id, ok := parseIntegral(cell)
		if !ok {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped, nil
}
