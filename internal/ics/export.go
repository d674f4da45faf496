package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskcal/internal/model"
)

// ContentType for served calendars.
const ContentType = "text/calendar; charset=utf-8"

const exportProductID = "-//taskcal//Task Calendar//EN"

var rruleFreq = map[model.Recurrence]string{
	model.RecurrenceDaily:   "FREQ=DAILY",
	model.RecurrenceWeekly:  "FREQ=WEEKLY",
	model.RecurrenceMonthly: "FREQ=MONTHLY",
}

var icalPriority = map[model.Priority]string{
	model.PriorityHigh:   "1",
	model.PriorityMedium: "5",
	model.PriorityLow:    "9",
}

// Export writes one VEVENT per definition. Recurring definitions carry an
// RRULE and one EXDATE per exception. Tasks with a time become one-hour
// events at that wall time in loc; the rest are all-day events.
//
// Monthly rules follow RFC 5545: a start on the 31st skips shorter months,
// which matches how the calendar itself expands them.
func Export(defs []model.TaskDefinition, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(exportProductID)

	for _, def := range defs {
		ev := cal.AddEvent(def.ID + "@taskcal")
		ev.SetDtStampTime(now)
		ev.SetSummary(summary(def))
		if def.Category != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, def.Category)
		}
		if p, ok := icalPriority[def.Priority]; ok {
			ev.AddProperty(ical.ComponentPropertyPriority, p)
		}

		start, timed := startTime(def, loc)
		if timed {
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(time.Hour))
		} else {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		}

		if freq, ok := rruleFreq[def.Recurrence]; ok {
			ev.AddProperty(ical.ComponentPropertyRrule, freq)
			for _, ex := range def.Exceptions {
				if timed {
					exAt, _ := startTime(model.TaskDefinition{OriginalDate: ex, Time: def.Time}, loc)
					ev.AddProperty(ical.ComponentPropertyExdate, exAt.UTC().Format("20060102T150405Z"))
				} else {
					ev.AddProperty(ical.ComponentPropertyExdate, ex.Time().Format("20060102"), ical.WithValue("DATE"))
				}
			}
		}
	}

	return cal.Serialize()
}

func summary(def model.TaskDefinition) string {
	s := def.Description
	if s == "" {
		s = "(No description)"
	}
	if def.Completed {
		s = "✓ " + s
	}
	return s
}

// startTime returns the start of def's first occurrence and whether it has
// a wall time.
func startTime(def model.TaskDefinition, loc *time.Location) (time.Time, bool) {
	d := def.OriginalDate
	if def.Time == "" {
		return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), false
	}
	hh, mm, ok := strings.Cut(def.Time, ":")
	if !ok {
		return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), false
	}
	h := int(hh[0]-'0')*10 + int(hh[1]-'0')
	m := int(mm[0]-'0')*10 + int(mm[1]-'0')
	return time.Date(d.Year, d.Month, d.Day, h, m, 0, 0, loc), true
}
