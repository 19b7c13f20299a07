package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Table is a parsed worksheet: the header row and the data rows as raw cell text.
// Rows may be shorter than the header when trailing cells are empty.
type Table struct {
	Header  []string
	Rows    [][]string
	columns map[string]int
}

// NewTable builds a Table from the raw rows of a worksheet. The first non-empty row is the
// header; fully blank rows are skipped.
func NewTable(raw [][]string) *Table {
	t := &Table{columns: make(map[string]int)}
	for _, row := range raw {
		if isBlankRow(row) {
			continue
		}
		if t.Header == nil {
			t.Header = make([]string, len(row))
			for i, name := range row {
				t.Header[i] = NormalizeHeader(name)
				// First occurrence wins on duplicated headers.
				if _, dup := t.columns[t.Header[i]]; !dup && t.Header[i] != "" {
					t.columns[t.Header[i]] = i
				}
			}
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex looks up a column by its normalized header name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	idx, ok := t.columns[NormalizeHeader(name)]
	return idx, ok
}

// MissingColumns returns the names in required that the header does not contain, in order.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := t.ColumnIndex(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Cell returns the trimmed text at (row, col), or "" when the row is too short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// NormalizeHeader trims, strips diacritics and upper-cases a header name,
// so "CódCli " and "CODCLI" refer to the same column.
func NormalizeHeader(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}
	return cases.Upper(language.Und).String(folded)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
