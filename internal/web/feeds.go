package web

import (
	"net/http"
	"time"

	"taskcal/internal/ics"
	"taskcal/internal/model"
	"taskcal/internal/report"
)

// handleReport renders the monthly report as HTML, or as a Word-compatible
// download when download=1.
//
// GET /report?month=2024-01&download=1
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	today := s.app.Today()
	year, month := today.Year, today.Month
	if q := r.URL.Query().Get("month"); q != "" {
		y, m, err := model.ParseMonth(q)
		if err != nil {
			http.Error(w, "invalid month (want YYYY-MM)", http.StatusBadRequest)
			return
		}
		year, month = y, m
	}

	body, err := report.Render(r.Context(), s.app.Month(year, month))
	if err != nil {
		writeAppError(w, err)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Type", report.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(year, month)+`"`)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleCalendar publishes every definition as an iCalendar feed.
//
// GET /calendar.ics
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.app.Definitions(), s.cfg.Location(), time.Now())
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="taskcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
