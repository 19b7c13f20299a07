package app

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"coverage.logistics.org/internal/coverage"
	"coverage.logistics.org/internal/metrics"
	"coverage.logistics.org/internal/middleware"
	"coverage.logistics.org/internal/models"
	"coverage.logistics.org/internal/render"
	"coverage.logistics.org/internal/sheet"
	"coverage.logistics.org/internal/store"
	"coverage.logistics.org/internal/utils"
	"github.com/julienschmidt/httprouter"
)

const (
	maxMultipartMemory = 8 << 20
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	errMissingFile    = errors.New("no file was uploaded")
	errUploadTooLarge = errors.New("upload exceeds the size limit")
)

func (app *Application) uploadPageHandler(w http.ResponseWriter, r *http.Request) {
	app.renderPage(w, r, http.StatusOK, render.PageUpload, render.UploadPage{
		MaxUploadMB: int(app.config().MaxUploadBytes() >> 20),
	})
}

// uploadHandler parses and validates a client sheet, then redirects to its analysis page.
// Identical content maps to the same dataset id, so re-uploading a file is free.
func (app *Application) uploadHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), app.Logger)

	if err := app.parseMultipart(w, r); err != nil {
		app.uploadFailed(w, r, err)
		return
	}
	filename, data, err := formFile(r, "file")
	if err != nil {
		app.uploadFailed(w, r, err)
		return
	}

	entry, err := app.Tables.GetOrLoad(filename, data, coverage.Load)
	if err != nil {
		var parseErr *coverage.ParseError
		if errors.As(err, &parseErr) {
			metrics.UploadsTotal.WithLabelValues("client", "parse_error").Inc()
			logger.Info("Rejected unreadable upload", "filename", filename, "error", err)
			app.uploadError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		app.serverError(w, r, err, "filename", filename)
		return
	}

	ds, err := coverage.BuildDataset(entry.Table)
	if err != nil {
		var validationErr *coverage.ValidationError
		if errors.As(err, &validationErr) {
			app.Tables.Invalidate(entry.Key)
			metrics.UploadsTotal.WithLabelValues("client", "validation_error").Inc()
			app.uploadError(w, r, http.StatusBadRequest, validationErr.Message)
			return
		}
		app.serverError(w, r, err, "dataset", entry.Key)
		return
	}

	metrics.UploadsTotal.WithLabelValues("client", "ok").Inc()
	metrics.RowsDropped.WithLabelValues("missing_coordinates").Add(float64(ds.MissingCoordinates))
	metrics.RowsDropped.WithLabelValues("invalid_client_id").Add(float64(ds.InvalidClientIDs))
	logger.Info("Client sheet uploaded",
		"dataset", entry.Key,
		"filename", filename,
		"rows", entry.Table.Len(),
		"centers", len(ds.Centers),
		"missing_coordinates", ds.MissingCoordinates)

	http.Redirect(w, r, "/datasets/"+entry.Key, http.StatusSeeOther)
}

// analysisHandler recomputes the whole report for the submitted filters and renders it,
// or downloads the summary table when format=xlsx.
func (app *Application) analysisHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := app.Tables.Get(httprouter.ParamsFromContext(r.Context()).ByName("id"))
	if !ok {
		app.uploadError(w, r, http.StatusNotFound, "This upload is no longer available. Please upload the file again.")
		return
	}

	if r.Method == http.MethodPost {
		if err := app.parseMultipart(w, r); err != nil && !errors.Is(err, errMissingFile) {
			app.uploadFailed(w, r, err)
			return
		}
	}

	ds, err := coverage.BuildDataset(entry.Table)
	if err != nil {
		app.uploadError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	form := app.readQueryForm(r, ds)

	var rep *coverage.Report
	if form.query.Center == "" {
		rep = &coverage.Report{Query: form.query}
		form.errors = append(form.errors, "The file has no distribution center ids in column CD.")
	} else {
		rep = app.Analyzer.Analyze(ds, form.query)
	}

	if r.FormValue("format") == "xlsx" {
		app.writeResultsWorkbook(w, r, entry, rep)
		return
	}

	tileURL, attribution := app.config().TileLayer()
	page := render.NewAnalysisPage(rep, tileURL, attribution)
	page.DatasetID = entry.Key
	page.Filename = entry.Filename
	page.CenterLabel = app.config().CenterLabel(form.query.Center)
	page.Centers = render.CenterOptions(ds.Centers, form.query.Center, app.config().CenterLabel)
	page.CodCLI = form.codcli
	page.BatchID = form.batchID
	page.Errors = append(form.errors, page.Errors...)
	page.Stats.Rows = entry.Table.Len()
	page.Stats.MissingCoordinates = ds.MissingCoordinates
	page.Stats.SuspectCoordinates = ds.SuspectCoordinates
	page.Stats.InvalidClientIDs = ds.InvalidClientIDs
	page.Stats.SkippedBatchCells = form.skipped

	app.renderPage(w, r, http.StatusOK, render.PageAnalysis, page)
}

func (app *Application) deleteDatasetHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	removed := app.Tables.Invalidate(id)
	middleware.LoggerFromContext(r.Context(), app.Logger).Info("Dataset invalidated", "dataset", id, "removed", removed)

	if r.Method == http.MethodDelete {
		if !removed {
			app.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "dataset not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *Application) baseTemplateHandler(w http.ResponseWriter, r *http.Request) {
	data, err := sheet.BaseTemplate()
	if err != nil {
		app.serverError(w, r, err, "template", "base")
		return
	}
	writeAttachment(w, "template_base_clientes.xlsx", data)
}

func (app *Application) batchTemplateHandler(w http.ResponseWriter, r *http.Request) {
	data, err := sheet.BatchTemplate()
	if err != nil {
		app.serverError(w, r, err, "template", "batch")
		return
	}
	writeAttachment(w, "template_busqueda_masiva.xlsx", data)
}

func (app *Application) writeResultsWorkbook(w http.ResponseWriter, r *http.Request, entry *store.Entry, rep *coverage.Report) {
	data, err := sheet.ResultsWorkbook(rep.Query.Day, rep.Results)
	if err != nil {
		app.serverError(w, r, err, "dataset", entry.Key)
		return
	}
	writeAttachment(w, utils.DownloadName(entry.Filename, "_resultados", ".xlsx"), data)
}

// queryForm is the sidebar form after validation.
type queryForm struct {
	query   models.Query
	codcli  string
	batchID string
	skipped int
	errors  []string
}

// readQueryForm reads the filters from the query string or form body. Invalid input
// never fails the request: it is reported inline and the query runs without it.
func (app *Application) readQueryForm(r *http.Request, ds *coverage.Dataset) queryForm {
	var form queryForm

	center := coverage.CanonicalCenter(r.FormValue("center"))
	if center == "" && len(ds.Centers) > 0 {
		center = ds.Centers[0]
	}

	day, err := parseDay(r.FormValue("day"))
	if err != nil {
		form.errors = append(form.errors, err.Error())
	}

	mode := models.SearchSingle
	if r.FormValue("mode") == string(models.SearchBatch) {
		mode = models.SearchBatch
	}

	var ids []int64
	switch mode {
	case models.SearchSingle:
		form.codcli = strings.TrimSpace(r.FormValue("codcli"))
		if form.codcli != "" {
			id, err := coverage.ParseManualClientID(form.codcli)
			if err != nil {
				form.errors = append(form.errors, err.Error())
			} else {
				ids = []int64{id}
			}
		}
	case models.SearchBatch:
		var err error
		ids, form.batchID, form.skipped, err = app.batchTargets(r)
		if err != nil {
			form.errors = append(form.errors, err.Error())
		}
	}

	form.query = models.NewQuery(center, day, mode, ids)
	return form
}

// batchTargets reads the target ids from a freshly uploaded batch file, or from the one
// uploaded earlier in the session and referenced by batch_id.
func (app *Application) batchTargets(r *http.Request) (ids []int64, batchID string, skipped int, err error) {
	var entry *store.Entry

	filename, data, ferr := formFile(r, "batch")
	switch {
	case ferr == nil:
		entry, err = app.Batches.GetOrLoad(filename, data, coverage.Load)
		if err != nil {
			metrics.UploadsTotal.WithLabelValues("batch", "parse_error").Inc()
			return nil, "", 0, err
		}
	case errors.Is(ferr, errMissingFile):
		id := r.FormValue("batch_id")
		if id == "" {
			return nil, "", 0, nil
		}
		var ok bool
		if entry, ok = app.Batches.Get(id); !ok {
			return nil, "", 0, &coverage.ValidationError{
				Field:   "batch",
				Message: "The batch file is no longer available. Please upload it again.",
			}
		}
	default:
		return nil, "", 0, ferr
	}

	ids, skipped, err = coverage.TargetsFromBatch(entry.Table)
	if err != nil {
		if ferr == nil {
			app.Batches.Invalidate(entry.Key)
			metrics.UploadsTotal.WithLabelValues("batch", "validation_error").Inc()
		}
		return nil, "", 0, err
	}
	if ferr == nil {
		metrics.UploadsTotal.WithLabelValues("batch", "ok").Inc()
	}
	return ids, entry.Key, skipped, nil
}

func parseDay(value string) (models.Weekday, error) {
	if value == "" {
		return models.Monday, nil
	}
	day, err := models.ParseWeekday(strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		return models.Monday, &coverage.ValidationError{
			Field:   "day",
			Message: fmt.Sprintf("Unknown day %q. Choose one of LU, MA, MI, JU, VI, SA.", value),
		}
	}
	return day, nil
}

// parseMultipart caps the request body and parses the multipart form.
func (app *Application) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, app.config().MaxUploadBytes())
	err := r.ParseMultipartForm(maxMultipartMemory)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return errUploadTooLarge
	case errors.Is(err, http.ErrNotMultipart):
		return errMissingFile
	default:
		return fmt.Errorf("failed to parse upload: %w", err)
	}
}

// formFile reads one uploaded file of a parsed multipart form.
func formFile(r *http.Request, field string) (string, []byte, error) {
	if r.MultipartForm == nil {
		return "", nil, errMissingFile
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, errMissingFile
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errMissingFile
	}
	return header.Filename, data, nil
}

// uploadFailed maps request-level upload failures to an inline message.
func (app *Application) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errUploadTooLarge):
		app.uploadError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("The file exceeds the %d MB upload limit.", app.config().MaxUploadBytes()>>20))
	case errors.Is(err, errMissingFile):
		app.uploadError(w, r, http.StatusBadRequest, "Choose a file to upload.")
	default:
		middleware.LoggerFromContext(r.Context(), app.Logger).Info("Rejected malformed upload", "error", err)
		app.uploadError(w, r, http.StatusBadRequest, "The upload could not be read.")
	}
}

func writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
