package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Limits for legacy .xls workbooks. BIFF8 sheets have at most 256 columns.
const (
	maxXLSRows    = 1_000_000
	maxXLSColumns = 256
)

var (
	// ErrUnsupportedFormat is returned when the upload is neither a workbook nor CSV.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	// ErrEmptyWorksheet is returned when the first worksheet has no header row.
	ErrEmptyWorksheet = errors.New("worksheet is empty")
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Format identifies the encoding of an uploaded spreadsheet.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the decoder from the content's magic bytes, falling back to the file
// extension for content without a signature (CSV). An xlsx saved as .xls opens as xlsx.
func DetectFormat(filename string, data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Parse decodes the first worksheet of an uploaded file into a Table.
func Parse(filename string, data []byte) (*Table, error) {
	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var raw [][]string
	switch format {
	case FormatXLSX:
		raw, err = readXLSX(data)
	case FormatXLS:
		raw, err = readXLS(data)
	case FormatCSV:
		raw, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", format, err)
	}

	table := NewTable(raw)
	if len(table.Header) == 0 {
		return nil, ErrEmptyWorksheet
	}
	return table, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}

	// Raw values keep numbers as stored instead of applying the cell's display format.
	return file.GetRows(sheetName, excelize.Options{RawCellValue: true})
}

// readXLS reads the first worksheet of a legacy workbook. Missing rows come back empty so
// row positions match what the user sees in the sheet.
func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	ws := workbook.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("no worksheet found")
	}

	lastRow := min(int(ws.MaxRow), maxXLSRows-1)
	rows := make([][]string, 0, lastRow+1)
	for i := 0; i <= lastRow; i++ {
		row := xlsRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Rows built from cells alone, without a ROW record, report no last column.
		cols := row.LastCol()
		if cols == 0 {
			cols = maxXLSColumns
		}
		cells := make([]string, cols)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return rows, nil
}

// xlsRow returns row i of ws, or nil when the sheet has no record for it.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	// WorkSheet.Row dereferences the row without checking it exists.
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// Spreadsheet exports on Spanish-locale Windows default to cp1252.
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

// detectDelimiter chooses ';' over ',' when the header line has more semicolons. Locales
// with decimal commas export CSV with semicolons.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
