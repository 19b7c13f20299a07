package app

import (
	"errors"
	"net/http"
	"strings"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/models"
	"github.com/julienschmidt/httprouter"
)

// CoverageResponse is the JSON body of /v1/datasets/:id/coverage.
type CoverageResponse struct {
	Dataset       string               `json:"dataset"`
	Center        string               `json:"center"`
	Day           models.Weekday       `json:"day"`
	Mode          models.SearchMode    `json:"mode"`
	CenterRecords int                  `json:"center_records"`
	Results       []models.QueryResult `json:"results"`
	Warnings      []string             `json:"warnings,omitempty"`
	Info          string               `json:"info,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// coverageAPIHandler answers the same query as the analysis page as JSON. Parameters:
// center (defaults to the first center of the file), day (defaults to LU) and codcli,
// a comma-separated list of client ids. Unlike the page, invalid input is a 400.
func (app *Application) coverageAPIHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := app.Tables.Get(httprouter.ParamsFromContext(r.Context()).ByName("id"))
	if !ok {
		app.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "dataset not found"})
		return
	}

	ds, err := coverage.BuildDataset(entry.Table)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	params := r.URL.Query()

	center := coverage.CanonicalCenter(params.Get("center"))
	if center == "" {
		if len(ds.Centers) == 0 {
			app.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "the file has no distribution center ids", Field: "center"})
			return
		}
		center = ds.Centers[0]
	}

	day, err := parseDay(params.Get("day"))
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	ids, err := parseClientIDList(params.Get("codcli"))
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	mode := models.SearchSingle
	if len(ids) > 1 {
		mode = models.SearchBatch
	}

	rep := app.Analyzer.Analyze(ds, models.NewQuery(center, day, mode, ids))

	resp := CoverageResponse{
		Dataset:       entry.Key,
		Center:        center,
		Day:           day,
		Mode:          mode,
		CenterRecords: rep.CenterRecords,
		Results:       rep.Results,
		Info:          rep.Info,
	}
	if resp.Results == nil {
		resp.Results = []models.QueryResult{}
	}
	for _, warning := range rep.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Message)
	}

	app.writeJSON(w, r, http.StatusOK, resp)
}

// parseClientIDList parses "1, 2,3" into ids. Empty items are ignored.
func parseClientIDList(value string) ([]int64, error) {
	var ids []int64
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, err := coverage.ParseManualClientID(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (app *Application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	var validationErr *coverage.ValidationError
	if errors.As(err, &validationErr) {
		resp.Field = validationErr.Field
	}
	app.writeJSON(w, r, http.StatusBadRequest, resp)
}
