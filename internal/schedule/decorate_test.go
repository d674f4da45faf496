package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskcal/internal/model"
)

func TestDecorate(t *testing.T) {
	today := d("2024-01-10") // Wednesday
	incomplete := occ("a", model.PriorityMedium, "")
	complete := occ("b", model.PriorityMedium, "")
	complete.Completed = true

	many := make([]model.Occurrence, 6)
	for i := range many {
		many[i] = complete
	}

	cases := []struct {
		name    string
		date    model.Date
		occs    []model.Occurrence
		holiday bool
		want    CellFlags
	}{
		{"empty weekday", d("2024-01-11"), nil, false, CellFlags{}},
		{"today with task", today, []model.Occurrence{incomplete}, false, CellFlags{HasTask: true, DueSoon: true, IsToday: true}},
		{"7 days ahead is due soon", d("2024-01-17"), []model.Occurrence{incomplete}, false, CellFlags{HasTask: true, DueSoon: true}},
		{"8 days ahead is not", d("2024-01-18"), []model.Occurrence{incomplete}, false, CellFlags{HasTask: true}},
		{"past is not due soon", d("2024-01-09"), []model.Occurrence{incomplete}, false, CellFlags{HasTask: true}},
		{"all complete is not due soon", d("2024-01-11"), []model.Occurrence{complete}, false, CellFlags{HasTask: true}},
		{"weekend holiday", d("2024-01-13"), nil, true, CellFlags{IsWeekend: true, IsHoliday: true}},
		{"sunday", d("2024-01-14"), nil, false, CellFlags{IsWeekend: true}},
		{"high density", d("2024-01-11"), many, false, CellFlags{HasTask: true, HighDensity: true}},
		{"five is not dense", d("2024-01-11"), many[:5], false, CellFlags{HasTask: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decorate(tc.date, tc.occs, tc.holiday, today, DecorateOptions{}))
		})
	}
}

func TestDecorate_CustomThresholds(t *testing.T) {
	today := d("2024-01-10")
	o := []model.Occurrence{occ("a", model.PriorityMedium, ""), occ("b", model.PriorityMedium, "")}

	got := Decorate(d("2024-01-12"), o, false, today, DecorateOptions{HighDensity: 1, DueSoonDays: 1})
	assert.True(t, got.HighDensity)
	assert.False(t, got.DueSoon)
}
