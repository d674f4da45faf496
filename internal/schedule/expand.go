package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// Matches reports whether a definition occurs on date, applying its
// recurrence rule and exceptions. Monthly rules never roll over: a series
// started on the 31st skips months without a 31st.
func Matches(def model.TaskDefinition, date model.Date) bool {
	if !def.IsRecurring() {
		return date == def.OriginalDate
	}
	if date.Before(def.OriginalDate) || def.HasException(date) {
		return false
	}
	switch def.Recurrence {
	case model.RecurrenceDaily:
		return true
	case model.RecurrenceWeekly:
		return date.Weekday() == def.OriginalDate.Weekday()
	case model.RecurrenceMonthly:
		return date.Day == def.OriginalDate.Day
	default:
		return false
	}
}

// Expand returns every occurrence visible on date, in no particular order.
// Non-recurring definitions come only from the date's own key; recurring
// ones are found by scanning the whole store, which is bounded by the number
// of definitions rather than by the calendar span.
func Expand(s *Store, date model.Date) []model.Occurrence {
	var out []model.Occurrence

	for i, def := range s.tasks[date] {
		if def.IsRecurring() {
			continue
		}
		out = append(out, occurrenceOf(def, date, date, i))
	}

	s.each(func(key model.Date, index int, def *model.TaskDefinition) {
		if !def.IsRecurring() || !Matches(*def, date) {
			return
		}
		out = append(out, occurrenceOf(*def, date, key, index))
	})

	return dedupe(out)
}

// ExpandRange returns the occurrences of every day in [from, to], keyed by
// day. Days without occurrences are absent. Recurring definitions are
// enumerated with an RRULE set so a month view costs one pass per series
// instead of one store scan per day.
func ExpandRange(s *Store, from, to model.Date) map[model.Date][]model.Occurrence {
	out := map[model.Date][]model.Occurrence{}
	if to.Before(from) {
		return out
	}

	s.each(func(key model.Date, index int, def *model.TaskDefinition) {
		if !def.IsRecurring() {
			if !def.OriginalDate.Before(from) && !def.OriginalDate.After(to) {
				out[key] = append(out[key], occurrenceOf(*def, key, key, index))
			}
			return
		}
		for _, day := range seriesDates(*def, from, to) {
			out[day] = append(out[day], occurrenceOf(*def, day, key, index))
		}
	})

	for day, occs := range out {
		out[day] = dedupe(occs)
	}
	return out
}

// seriesDates lists the days in [from, to] on which a recurring definition
// occurs, honouring its exceptions.
func seriesDates(def model.TaskDefinition, from, to model.Date) []model.Date {
	if to.Before(def.OriginalDate) {
		return nil
	}

	var freq rrule.Frequency
	switch def.Recurrence {
	case model.RecurrenceDaily:
		freq = rrule.DAILY
	case model.RecurrenceWeekly:
		freq = rrule.WEEKLY
	case model.RecurrenceMonthly:
		freq = rrule.MONTHLY
	default:
		return nil
	}

	r, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: def.OriginalDate.Time()})
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "id", def.ID, "recurrence", def.Recurrence)
		return nil
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range def.Exceptions {
		set.ExDate(ex.Time())
	}

	start := from
	if start.Before(def.OriginalDate) {
		start = def.OriginalDate
	}
	times := set.Between(start.Time(), to.Time().Add(time.Hour), true)

	out := make([]model.Date, 0, len(times))
	for _, t := range times {
		out = append(out, model.DateOf(t.In(time.UTC)))
	}
	return out
}

func occurrenceOf(def model.TaskDefinition, date, key model.Date, index int) model.Occurrence {
	return model.Occurrence{
		TaskDefinition:      def.Clone(),
		Date:                date,
		IsRecurringInstance: date != def.OriginalDate,
		Key:                 key,
		Index:               index,
	}
}

// dedupe keeps one occurrence per definition id, preferring the
// first-occurrence variant over a recurring instance.
func dedupe(in []model.Occurrence) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, occ := range in {
		if i, ok := seen[occ.ID]; ok {
			if out[i].IsRecurringInstance && !occ.IsRecurringInstance {
				out[i] = occ
			}
			continue
		}
		seen[occ.ID] = len(out)
		out = append(out, occ)
	}
	return out
}
