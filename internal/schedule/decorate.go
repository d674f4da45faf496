package schedule

import (
	"time"

	"taskcal/internal/model"
)

// CellFlags are the presentation flags of one calendar day. They are
// derived on every refresh and never stored.
type CellFlags struct {
	HasTask     bool `json:"hasTask"`
	HighDensity bool `json:"highDensity"`
	DueSoon     bool `json:"dueSoon"`
	IsWeekend   bool `json:"isWeekend"`
	IsHoliday   bool `json:"isHoliday"`
	IsToday     bool `json:"isToday"`
}

// DecorateOptions carries the thresholds; zero values use the defaults
// (more than 5 occurrences is dense, due-soon looks 7 days ahead).
type DecorateOptions struct {
	HighDensity int
	DueSoonDays int
}

// Decorate derives the flags for date from its (filtered) occurrences.
func Decorate(date model.Date, occs []model.Occurrence, holiday bool, today model.Date, opts DecorateOptions) CellFlags {
	if opts.HighDensity <= 0 {
		opts.HighDensity = 5
	}
	if opts.DueSoonDays <= 0 {
		opts.DueSoonDays = 7
	}

	wd := date.Weekday()
	flags := CellFlags{
		HasTask:   len(occs) > 0,
		IsWeekend: wd == time.Sunday || wd == time.Saturday,
		IsHoliday: holiday,
		IsToday:   date == today,
	}
	if !flags.HasTask {
		return flags
	}

	flags.HighDensity = len(occs) > opts.HighDensity
	if diff := today.DaysUntil(date); diff >= 0 && diff <= opts.DueSoonDays {
		for _, o := range occs {
			if !o.Completed {
				flags.DueSoon = true
				break
			}
		}
	}
	return flags
}
