package ics

import (
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/schedule"
)

const defaultMaxOccurrencesPerEvent = 5000

// Holiday is one day covered by an all-day feed event.
type Holiday struct {
	Date     model.Date
	Name     string
	SourceID string
}

// ExpandHolidays turns all-day events into the days they cover within
// [from, to]. Recurring events are expanded with their RRULE minus EXDATEs;
// an instance overridden by a RECURRENCE-ID event is replaced by the
// override (or dropped if the override is cancelled). Timed events are
// ignored.
func ExpandHolidays(events []ParsedEvent, from, to model.Date) []Holiday {
	if to.Before(from) {
		return nil
	}

	overridden := map[string][]model.Date{}
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overridden[ev.UID] = append(overridden[ev.UID], *ev.RecurrenceID)
		}
	}

	var out []Holiday
	for _, ev := range events {
		if !ev.AllDay || ev.Cancelled {
			continue
		}
		var starts []model.Date
		if ev.RawRRule == "" || ev.RecurrenceID != nil {
			starts = []model.Date{ev.Start}
		} else {
			starts = expandRule(ev, from, to, overridden[ev.UID])
		}

		span := ev.Start.DaysUntil(ev.End)
		if span < 1 {
			span = 1
		}
		for _, s := range starts {
			for i := 0; i < span; i++ {
				day := s.AddDays(i)
				if day.Before(from) || day.After(to) {
					continue
				}
				out = append(out, Holiday{Date: day, Name: ev.Summary, SourceID: ev.Source.ID})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Holiday) int { return a.Date.Compare(b.Date) })
	return out
}

func expandRule(ev ParsedEvent, from, to model.Date, skip []model.Date) []model.Date {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("skipping event with unreadable RRULE", "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil
	}
	r.DTStart(ev.Start.Time())

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.Time())
	}
	for _, ex := range skip {
		set.ExDate(ex.Time())
	}

	// Multi-day events that start before from can still cover it.
	span := ev.Start.DaysUntil(ev.End)
	after := from.AddDays(-max(span-1, 0)).Time()
	times := set.Between(after, to.Time(), true)
	if len(times) > defaultMaxOccurrencesPerEvent {
		appLog.Warn("holiday expansion truncated", "uid", ev.UID, "cap", defaultMaxOccurrencesPerEvent)
		times = times[:defaultMaxOccurrencesPerEvent]
	}

	out := make([]model.Date, 0, len(times))
	for _, t := range times {
		out = append(out, model.DateOf(t.In(time.UTC)))
	}
	return out
}

// HolidaySet collapses expanded holidays into a date set.
func HolidaySet(hs []Holiday) schedule.Holidays {
	out := schedule.Holidays{}
	for _, h := range hs {
		out.Set(h.Date, true)
	}
	return out
}
