package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcal/internal/model"
)

func TestExport(t *testing.T) {
	defs := []model.TaskDefinition{
		{
			ID: "standup", Description: "Standup", Category: "Work", Priority: model.PriorityHigh,
			Recurrence: model.RecurrenceWeekly, OriginalDate: d("2024-01-01"),
			Exceptions: []model.Date{d("2024-01-15")},
		},
		{
			ID: "dentist", Description: "Dentist", Category: model.DefaultCategory, Priority: model.PriorityLow,
			Time: "14:30", Recurrence: model.RecurrenceNone, OriginalDate: d("2024-02-03"), Completed: true,
		},
	}

	out := Export(defs, time.UTC, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	unfolded := strings.ReplaceAll(out, "\r\n ", "")

	assert.Contains(t, unfolded, "BEGIN:VCALENDAR")
	assert.Contains(t, unfolded, "UID:standup@taskcal")
	assert.Contains(t, unfolded, "SUMMARY:Standup")
	assert.Contains(t, unfolded, "DTSTART;VALUE=DATE:20240101")
	assert.Contains(t, unfolded, "RRULE:FREQ=WEEKLY")
	assert.Contains(t, unfolded, "EXDATE;VALUE=DATE:20240115")
	assert.Contains(t, unfolded, "PRIORITY:1")
	assert.Contains(t, unfolded, "CATEGORIES:Work")

	assert.Contains(t, unfolded, "UID:dentist@taskcal")
	assert.Contains(t, unfolded, "DTSTART:20240203T143000Z")
	assert.Contains(t, unfolded, "DTEND:20240203T153000Z")
	assert.Equal(t, 1, strings.Count(unfolded, "RRULE:"))
}

func TestExport_RoundTripsThroughParser(t *testing.T) {
	defs := []model.TaskDefinition{{
		ID: "gym", Description: "Gym", Recurrence: model.RecurrenceDaily,
		OriginalDate: d("2024-03-01"), Exceptions: []model.Date{d("2024-03-02")},
	}}

	events, err := ParseICS(Source{ID: "self"}, []byte(Export(defs, time.UTC, time.Now())))
	require.NoError(t, err)
	require.Len(t, events, 1)

	hs := ExpandHolidays(events, d("2024-03-01"), d("2024-03-04"))
	var days []model.Date
	for _, h := range hs {
		days = append(days, h.Date)
	}
	assert.Equal(t, []model.Date{d("2024-03-01"), d("2024-03-03"), d("2024-03-04")}, days)
}
