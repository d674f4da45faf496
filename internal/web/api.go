package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/planner"
	"taskcal/internal/ref"
	"taskcal/internal/schedule"
	"taskcal/internal/storage"
)

const (
	maxRequestBody = 1 << 20
	maxImportBody  = 10 << 20
)

// occurrenceDTO is an occurrence plus the signed token clients send back
// to edit, move, complete or delete it.
type occurrenceDTO struct {
	model.Occurrence
	Ref string `json:"ref"`
}

type cellDTO struct {
	Date        model.Date         `json:"date"`
	Flags       schedule.CellFlags `json:"flags"`
	Occurrences []occurrenceDTO    `json:"occurrences"`
}

type dayResponse struct {
	Date        model.Date      `json:"date"`
	IsHoliday   bool            `json:"isHoliday"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type monthResponse struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	WeekStart string    `json:"weekStart"`
	Today     string    `json:"today"`
	Cells     []cellDTO `json:"cells"`
}

type addTaskRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Time        string `json:"time"`
	Category    string `json:"category"`
	NewCategory string `json:"newCategory"`
	Priority    string `json:"priority"`
	Recurrence  string `json:"recurrence"`
}

type updateRequest struct {
	model.Patch
	// Instance marks the edit as coming from a single occurrence view.
	Instance bool `json:"instance"`
}

type completeRequest struct {
	Completed *bool `json:"completed"`
}

type moveRequest struct {
	To    string `json:"to"`
	Scope string `json:"scope"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) occurrences(occs []model.Occurrence) ([]occurrenceDTO, error) {
	out := make([]occurrenceDTO, 0, len(occs))
	for _, o := range occs {
		token, err := s.refs.Encode(o.Ref())
		if err != nil {
			return nil, err
		}
		out = append(out, occurrenceDTO{Occurrence: o, Ref: token})
	}
	return out, nil
}

// handleDay lists the filtered occurrences of one day.
//
// GET /api/days/{date}
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(r.PathValue("date"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	occs, err := s.occurrences(s.app.Day(date))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Date:        date,
		IsHoliday:   s.app.IsHoliday(date),
		Occurrences: occs,
	})
}

// handleMonth returns every day of a month with its flags.
//
// GET /api/month?month=2024-01 (defaults to the current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	today := s.app.Today()
	year, month := today.Year, today.Month
	if q := r.URL.Query().Get("month"); q != "" {
		y, m, err := model.ParseMonth(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month (want YYYY-MM)")
			return
		}
		year, month = y, m
	}

	view := s.app.Month(year, month)
	resp := monthResponse{
		Year:      view.Year,
		Month:     int(view.Month),
		WeekStart: s.cfg.WeekStart,
		Today:     today.String(),
		Cells:     make([]cellDTO, 0, len(view.Cells)),
	}
	for _, c := range view.Cells {
		occs, err := s.occurrences(c.Occurrences)
		if err != nil {
			writeAppError(w, err)
			return
		}
		resp.Cells = append(resp.Cells, cellDTO{Date: c.Date, Flags: c.Flags, Occurrences: occs})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddTask creates a definition. A non-empty newCategory wins over
// category and is registered.
//
// POST /api/tasks
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	category := req.Category
	if nc := strings.TrimSpace(req.NewCategory); nc != "" {
		category = nc
	}
	def, err := s.app.AddTask(model.DefinitionInput{
		Description: req.Description,
		Category:    category,
		Time:        req.Time,
		Priority:    req.Priority,
		Recurrence:  req.Recurrence,
		Date:        req.Date,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// GET /api/tasks
func (s *Server) handleListDefinitions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Definitions())
}

func (s *Server) decodeRef(w http.ResponseWriter, r *http.Request) (model.Ref, bool) {
	rf, err := s.refs.Decode(r.PathValue("ref"))
	if err != nil {
		writeAppError(w, err)
		return model.Ref{}, false
	}
	return rf, true
}

// handleUpdate applies a partial edit. A new originalDate relocates the
// whole definition.
//
// PATCH /api/occurrences/{ref}
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	rf, ok := s.decodeRef(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	def, err := s.app.Update(rf, req.Patch, req.Instance)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// handleDelete removes one occurrence (scope=instance) or the definition
// (scope=series, the default).
//
// DELETE /api/occurrences/{ref}?scope=instance|series
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rf, ok := s.decodeRef(w, r)
	if !ok {
		return
	}
	series, ok := parseScope(w, r.URL.Query().Get("scope"), true)
	if !ok {
		return
	}
	if err := s.app.Delete(rf, !series); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComplete sets the completion flag, or toggles it when the body
// does not name a value.
//
// POST /api/occurrences/{ref}/complete
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	rf, ok := s.decodeRef(w, r)
	if !ok {
		return
	}
	var req completeRequest
	// An empty body toggles.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		def model.TaskDefinition
		err error
	)
	if req.Completed != nil {
		def, err = s.app.SetCompleted(rf, *req.Completed)
	} else {
		def, err = s.app.ToggleCompleted(rf)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// handleMove drags an occurrence to another day: scope=instance (default)
// detaches it, scope=series shifts the whole definition.
//
// POST /api/occurrences/{ref}/move
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	rf, ok := s.decodeRef(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, err := model.ParseDate(req.To)
	if err != nil {
		writeAppError(w, err)
		return
	}
	series, ok := parseScope(w, req.Scope, false)
	if !ok {
		return
	}
	def, err := s.app.Move(rf, to, series)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func parseScope(w http.ResponseWriter, scope string, defaultSeries bool) (series bool, ok bool) {
	switch scope {
	case "":
		return defaultSeries, true
	case "series":
		return true, true
	case "instance":
		return false, true
	default:
		writeError(w, http.StatusBadRequest, "invalid scope (want instance or series)")
		return false, false
	}
}

// GET /api/holidays
func (s *Server) handleListHolidays(w http.ResponseWriter, _ *http.Request) {
	dates := s.app.Holidays()
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": out})
}

// PUT or DELETE /api/holidays/{date}
func (s *Server) handleSetHoliday(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := model.ParseDate(r.PathValue("date"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.app.SetHoliday(date, on)
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "isHoliday": s.app.IsHoliday(date)})
	}
}

// GET /api/categories
func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Categories())
}

// POST /api/categories
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "category name is empty")
		return
	}
	status := http.StatusOK
	if s.app.AddCategory(req.Name) {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.app.Categories())
}

// GET /api/filter
func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Filter())
}

// PUT /api/filter
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var f schedule.Filter
	if !decodeBody(w, r, &f) {
		return
	}
	c, err := schedule.ParseCompletion(string(f.Completion))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Completion = c
	s.app.SetFilter(f)
	writeJSON(w, http.StatusOK, s.app.Filter())
}

// GET /api/preferences
func (s *Server) handleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Preferences())
}

// PUT /api/preferences
func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var p storage.Preferences
	if !decodeBody(w, r, &p) {
		return
	}
	writeJSON(w, http.StatusOK, s.app.SetPreferences(p))
}

// POST /api/preferences/mode
func (s *Server) handleCycleMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.app.CycleMode()})
}

// handleExport downloads the backup document.
//
// GET /api/export
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := s.app.Export()
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.app.ExportFilename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport replaces all data with an uploaded backup. Without
// confirm=true the document is only validated and 409 is returned.
//
// POST /api/import?confirm=true
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import too large")
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := s.app.Import(data, confirm); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":   true,
		"categories": s.app.Categories(),
	})
}

// decodeBody reads a bounded JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, model.ErrInvalidDateFormat) {
			writeAppError(w, err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidDateFormat),
		errors.Is(err, model.ErrEmptyDescription),
		errors.Is(err, model.ErrInvalidTime),
		errors.Is(err, model.ErrInvalidPriority),
		errors.Is(err, model.ErrInvalidRecurrence),
		errors.Is(err, ref.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDefinitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrImportNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, model.ErrMalformedImport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
