package coverage

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeCoordinate converts a coordinate cell to float64, accepting a decimal comma.
// Empty, non-numeric and non-finite values are reported as missing.
func NormalizeCoordinate(cell string) (float64, bool) {
	return parseNumber(strings.ReplaceAll(cell, ",", "."))
}

func parseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseIntegral reads an integer cell. Workbooks often store ids as floats, so "922245.0"
// is accepted; "922245.5" is not.
func parseIntegral(cell string) (int64, bool) {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return v, true
	}
	f, ok := parseNumber(cell)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// CanonicalCenter returns the key used to compare distribution center ids. Numeric ids
// are written without a fractional part when integral so "95" and "95.0" match.
func CanonicalCenter(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	if v, ok := parseIntegral(cell); ok {
		return strconv.FormatInt(v, 10)
	}
	if f, ok := parseNumber(cell); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return cell
}

// ParseManualClientID validates a client id typed by the user.
func ParseManualClientID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "codcli", Message: "CODCLI must be numeric."}
	}
	return id, nil
}
