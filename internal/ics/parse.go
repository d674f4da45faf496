package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// ParsedEvent is the part of a VEVENT that matters for holidays.
type ParsedEvent struct {
	Source Source

	UID     string
	Summary string

	// Start and End are the first day and the exclusive last day of an
	// all-day event. Timed events only have AllDay false and are ignored
	// by holiday expansion.
	Start  model.Date
	End    model.Date
	AllDay bool

	RawRRule     string
	ExDates      []model.Date
	RecurrenceID *model.Date
	Cancelled    bool
}

// ParseICS parses one feed body. Events that cannot be read are logged and
// skipped; only an unreadable calendar is an error.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Warn("skipping unreadable vevent", "id", src.ID, "err", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(startProp)
	start, err := parseICSDate(startProp.Value)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = start.AddDays(1)
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && out.AllDay {
		if end, err := parseICSDate(endProp.Value); err == nil && end.After(start) {
			out.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times and hold comma-separated values.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if d, err := parseICSDate(part); err == nil {
				out.ExDates = append(out.ExDates, d)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if d, err := parseICSDate(p.Value); err == nil {
			out.RecurrenceID = &d
		}
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a value without a time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSDate reads the calendar day of an ICS DATE or DATE-TIME value.
// UTC date-times are taken at their UTC day.
func parseICSDate(v string) (model.Date, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return model.Date{}, errors.New("invalid ICS date " + v)
	}
	t, err := time.Parse("20060102", v[:8])
	if err != nil {
		return model.Date{}, err
	}
	return model.DateOf(t), nil
}
