package planner

import (
	"time"

	"taskcal/internal/model"
	"taskcal/internal/schedule"
)

// Day returns the filtered, sorted occurrences on date.
func (a *App) Day(date model.Date) []model.Occurrence {
	a.mu.Lock()
	defer a.mu.Unlock()
	return schedule.Apply(schedule.Expand(a.store, date), a.effectiveFilter())
}

// Cell is one day of a month view.
type Cell struct {
	Date        model.Date         `json:"date"`
	Flags       schedule.CellFlags `json:"flags"`
	Occurrences []model.Occurrence `json:"occurrences"`
}

type MonthView struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []Cell     `json:"cells"`
}

// Populated returns the cells that have at least one visible occurrence,
// in date order.
func (m MonthView) Populated() []Cell {
	var out []Cell
	for _, c := range m.Cells {
		if len(c.Occurrences) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Month builds the calendar for one month: every day with its filtered
// occurrences and derived flags.
func (a *App) Month(year int, month time.Month) MonthView {
	a.mu.Lock()
	defer a.mu.Unlock()

	dates := model.MonthDates(year, month)
	byDay := schedule.ExpandRange(a.store, dates[0], dates[len(dates)-1])
	f := a.effectiveFilter()
	today := model.Today(a.opts.Now(), a.opts.Location)
	opts := schedule.DecorateOptions{HighDensity: a.opts.HighDensity, DueSoonDays: a.opts.DueSoonDays}

	view := MonthView{Year: year, Month: month, Cells: make([]Cell, 0, len(dates))}
	for _, d := range dates {
		occs := schedule.Apply(byDay[d], f)
		view.Cells = append(view.Cells, Cell{
			Date:        d,
			Flags:       schedule.Decorate(d, occs, a.isHoliday(d), today, opts),
			Occurrences: occs,
		})
	}
	return view
}

func (a *App) isHoliday(d model.Date) bool {
	return a.holidays.Has(d) || a.feedHolidays.Has(d)
}

// IsHoliday reports whether d is a user or feed holiday.
func (a *App) IsHoliday(d model.Date) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isHoliday(d)
}

// Holidays returns the user-marked holidays in order.
func (a *App) Holidays() []model.Date {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holidays.Dates()
}

// SetHoliday marks or unmarks date as a user holiday.
func (a *App) SetHoliday(date model.Date, on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.holidays.Set(date, on)
	a.persist()
}

// ToggleHoliday flips date and returns the new state.
func (a *App) ToggleHoliday(date model.Date) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	on := !a.holidays.Has(date)
	a.holidays.Set(date, on)
	a.persist()
	return on
}

// SetFeedHolidays replaces the read-only holidays that come from
// subscribed calendars. They are not persisted.
func (a *App) SetFeedHolidays(h schedule.Holidays) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feedHolidays = h.Clone()
}

func (a *App) Categories() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.categories.List()
}

// AddCategory registers name and reports whether it was new.
func (a *App) AddCategory(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.categories.Add(name) {
		return false
	}
	a.persist()
	return true
}

// effectiveFilter folds the persisted hide-completed preference into the
// view filter.
func (a *App) effectiveFilter() schedule.Filter {
	f := a.filter
	f.HideCompleted = a.prefs.HideCompleted
	return f
}

func (a *App) Filter() schedule.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.effectiveFilter()
}

// SetFilter replaces the view filter. HideCompleted is a persisted
// preference and is saved when it changes.
func (a *App) SetFilter(f schedule.Filter) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if f.Category == "" {
		f.Category = schedule.CategoryAll
	}
	if f.Completion == "" {
		f.Completion = schedule.CompletionAll
	}
	a.filter = f
	if a.prefs.HideCompleted != f.HideCompleted {
		a.prefs.HideCompleted = f.HideCompleted
		a.persist()
	}
}
