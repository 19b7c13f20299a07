package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Weekday is one of the six delivery-day column codes of the client sheet.
type Weekday string

const (
	Monday    Weekday = "LU"
	Tuesday   Weekday = "MA"
	Wednesday Weekday = "MI"
	Thursday  Weekday = "JU"
	Friday    Weekday = "VI"
	Saturday  Weekday = "SA"
)

// Weekdays lists the recognized day codes in selector order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday validates a day code coming from user input.
func ParseWeekday(code string) (Weekday, error) {
	for _, d := range Weekdays {
		if string(d) == code {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday code %q", code)
}

// ClientRecord is one normalized row of the client sheet.
//
// CenterID is the canonical form of the CD cell so that "95" and "95.0" compare equal.
// Longitude and Latitude are NaN when the cell was missing or not numeric; such records
// never take part in a query. HasClientID is false when CODCLI is not an integer: the row
// can still be a nearby client but never a search target.
// DayFlags holds the numeric value of each weekday column that could be read.
type ClientRecord struct {
	Row         int // 1-based data row, header excluded
	CenterID    string
	ClientID    int64
	HasClientID bool
	Longitude   float64
	Latitude    float64
	DayFlags    map[Weekday]float64
}

// HasCoordinates reports whether both coordinates were numeric.
func (r ClientRecord) HasCoordinates() bool {
	return !math.IsNaN(r.Longitude) && !math.IsNaN(r.Latitude)
}

// IsFree reports whether the record's flag for day equals 1.
func (r ClientRecord) IsFree(day Weekday) bool {
	v, ok := r.DayFlags[day]
	return ok && v == 1
}

// SearchMode selects how target clients are supplied.
type SearchMode string

const (
	SearchSingle SearchMode = "single"
	SearchBatch  SearchMode = "batch"
)

// Query holds the parameters of a single analysis pass. It is built once per request
// and never mutated afterwards.
type Query struct {
	Center    string
	Day       Weekday
	Mode      SearchMode
	TargetIDs []int64 // de-duplicated, in input order
}

// NewQuery builds a Query, dropping repeated target ids.
func NewQuery(center string, day Weekday, mode SearchMode, ids []int64) Query {
	seen := make(map[int64]struct{}, len(ids))
	targets := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	return Query{
		Center:    center,
		Day:       day,
		Mode:      mode,
		TargetIDs: targets,
	}
}

// HasTargets reports whether the query asks for a radius analysis.
func (q Query) HasTargets() bool {
	return len(q.TargetIDs) > 0
}

// QueryResult is the summary line for one resolved target.
type QueryResult struct {
	TargetClientID  int64 `json:"target_client_id"`
	NearbyFreeCount int   `json:"nearby_free_count"`
}

// TargetView carries what the map needs to draw one target: the target itself and the
// matching free clients around it, the target excluded.
type TargetView struct {
	Target  ClientRecord
	Nearby  []ClientRecord
	Summary QueryResult
}

// Center is an optional display entry for a distribution center id.
type Center struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UnmarshalJSON accepts the id as a JSON string or number. Catalogs exported from the
// client sheets often carry the CD code as a number.
func (c *Center) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Name = raw.Name
	c.ID = ""
	switch id := bytes.TrimSpace(raw.ID); {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		return json.Unmarshal(id, &c.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("center id must be a string or a number, got %s", id)
		}
		c.ID = n.String()
	}
	return nil
}

// Label returns "ID - Name" when a name is configured, the bare id otherwise.
func (c Center) Label() string {
	if c.Name == "" {
		return c.ID
	}
	return c.ID + " - " + c.Name
}
