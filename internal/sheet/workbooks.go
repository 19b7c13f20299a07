package sheet

import (
	"fmt"

	"coverage.logistics.org/internal/models"
	"github.com/xuri/excelize/v2"
)

// Column names of the client sheet.
const (
	ColumnCenter    = "CD"
	ColumnClientID  = "CODCLI"
	ColumnLongitude = "X"
	ColumnLatitude  = "Y"
)

// RequiredClientColumns lists every column the client sheet must carry.
func RequiredClientColumns() []string {
	cols := []string{ColumnCenter, ColumnClientID, ColumnLongitude, ColumnLatitude}
	for _, d := range models.Weekdays {
		cols = append(cols, string(d))
	}
	return cols
}

const (
	baseTemplateSheet  = "Base_Datos"
	batchTemplateSheet = "Template"
	resultsSheet       = "Resultados"
	defaultSheet       = "Sheet1"
)

// BaseTemplate returns a workbook with the client sheet header and one example row.
func BaseTemplate() ([]byte, error) {
	header := make([]interface{}, 0, 10)
	for _, col := range RequiredClientColumns() {
		header = append(header, col)
	}
	example := []interface{}{95, 922245, -63.683707, -22.052948, 1, 1, 0, 0, 1, 0}
	return writeWorkbook(baseTemplateSheet, header, [][]interface{}{example})
}

// BatchTemplate returns an empty batch-search workbook with only the CODCLI header.
func BatchTemplate() ([]byte, error) {
	return writeWorkbook(batchTemplateSheet, []interface{}{ColumnClientID}, nil)
}

// ResultsWorkbook exports the summary table of an analysis.
func ResultsWorkbook(day models.Weekday, results []models.QueryResult) ([]byte, error) {
	header := []interface{}{"CODCLI Buscado", ResultsCountHeader(day)}
	rows := make([][]interface{}, 0, len(results))
	for _, r := range results {
		rows = append(rows, []interface{}{r.TargetClientID, r.NearbyFreeCount})
	}
	return writeWorkbook(resultsSheet, header, rows)
}

// ResultsCountHeader is the summary column title for day.
func ResultsCountHeader(day models.Weekday) string {
	return fmt.Sprintf("Clientes Free (%s) a <1km", day)
}

func writeWorkbook(sheetName string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
