package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcal/internal/model"
	"taskcal/internal/planner"
	"taskcal/internal/schedule"
	"taskcal/internal/storage"
)

var d = model.MustDate

func newModel(t *testing.T) (Model, *planner.App) {
	t.Helper()
	app, err := planner.New(storage.NewMemoryKV(), planner.Options{
		DefaultCategories: []string{"General"},
		Location:          time.UTC,
		Now:               func() time.Time { return time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return New(app, time.Sunday), app
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

func TestNavigation(t *testing.T) {
	m, _ := newModel(t)
	assert.Equal(t, d("2024-01-10"), m.cursor)

	m = press(t, m, runes("l"), runes("l"), runes("j"))
	assert.Equal(t, d("2024-01-19"), m.cursor)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, d("2024-01-11"), m.cursor)

	m = press(t, m, runes("]"))
	assert.Equal(t, d("2024-02-11"), m.cursor)
	assert.Equal(t, time.February, m.view.Month)

	m = press(t, m, runes("t"))
	assert.Equal(t, d("2024-01-10"), m.cursor)
}

func TestShiftMonthClampsDay(t *testing.T) {
	assert.Equal(t, d("2024-02-29"), shiftMonth(d("2024-01-31"), 1))
	assert.Equal(t, d("2023-12-31"), shiftMonth(d("2024-01-31"), -1))
	assert.Equal(t, d("2025-01-15"), shiftMonth(d("2024-12-15"), 1))
}

func TestAddToggleDelete(t *testing.T) {
	m, app := newModel(t)

	m = press(t, m, runes("a"))
	require.Equal(t, modeAdd, m.mode)
	m = press(t, m, runes("09:30 Buy milk"), enter)
	assert.Equal(t, modeBrowse, m.mode)
	require.Len(t, m.day, 1)
	assert.Equal(t, "Buy milk", m.day[0].Description)
	assert.Equal(t, "09:30", m.day[0].Time)
	assert.Contains(t, m.View(), "Buy milk")

	m = press(t, m, space)
	assert.True(t, m.day[0].Completed)
	assert.Contains(t, m.status, "done")

	m = press(t, m, runes("d"))
	require.Equal(t, modeConfirmDelete, m.mode)
	m = press(t, m, runes("n"))
	assert.Len(t, m.day, 1)

	m = press(t, m, runes("d"), runes("y"))
	assert.Empty(t, m.day)
	assert.Empty(t, app.Definitions())
}

func TestAddRejectsEmptyDescription(t *testing.T) {
	m, _ := newModel(t)
	m = press(t, m, runes("a"), enter)
	assert.Equal(t, modeAdd, m.mode)
	assert.Contains(t, m.status, "add failed")

	m = press(t, m, esc)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "Cancelled", m.status)
}

func TestDeleteRecurringInstance(t *testing.T) {
	m, app := newModel(t)
	_, err := app.AddTask(model.DefinitionInput{Description: "Standup", Date: "2024-01-03", Recurrence: "weekly"})
	require.NoError(t, err)

	m = press(t, m, runes("t"))
	require.Len(t, m.day, 1)
	require.True(t, m.day[0].IsRecurringInstance)

	m = press(t, m, runes("d"), runes("i"))
	assert.Empty(t, m.day)
	assert.Len(t, app.Day(d("2024-01-17")), 1)
}

func TestMoveTask(t *testing.T) {
	m, app := newModel(t)
	_, err := app.AddTask(model.DefinitionInput{Description: "Dentist", Date: "2024-01-10"})
	require.NoError(t, err)
	m = press(t, m, runes("t"))

	m = press(t, m, runes(">"))
	assert.Equal(t, d("2024-01-11"), m.cursor)
	require.Len(t, m.day, 1)
	assert.Empty(t, app.Day(d("2024-01-10")))
}

func TestSelectionCycles(t *testing.T) {
	m, app := newModel(t)
	for _, desc := range []string{"a", "b", "c"} {
		_, err := app.AddTask(model.DefinitionInput{Description: desc, Date: "2024-01-10"})
		require.NoError(t, err)
	}
	m = press(t, m, runes("t"))
	require.Len(t, m.day, 3)

	m = press(t, m, tab, tab)
	assert.Equal(t, 2, m.selected)
	m = press(t, m, tab)
	assert.Equal(t, 0, m.selected)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 2, m.selected)
}

func TestSearchAndFilters(t *testing.T) {
	m, app := newModel(t)
	for _, desc := range []string{"Buy milk", "Call mom"} {
		_, err := app.AddTask(model.DefinitionInput{Description: desc, Date: "2024-01-10"})
		require.NoError(t, err)
	}
	m = press(t, m, runes("t"))

	m = press(t, m, runes("/"), runes("milk"), enter)
	require.Len(t, m.day, 1)
	assert.Equal(t, "milk", app.Filter().Search)

	m = press(t, m, runes("/"))
	assert.Equal(t, "milk", m.input.Value())
	m = press(t, m, esc)
	assert.Equal(t, "milk", app.Filter().Search)

	m = press(t, m, runes("c"))
	assert.Equal(t, schedule.CompletionIncomplete, app.Filter().Completion)
	m = press(t, m, runes("C"))
	assert.True(t, app.Preferences().HideCompleted)
	assert.Len(t, m.day, 1)
}

func TestHolidayAndMode(t *testing.T) {
	m, app := newModel(t)

	m = press(t, m, runes("H"))
	assert.True(t, app.IsHoliday(d("2024-01-10")))
	assert.Contains(t, m.View(), "(holiday)")
	m = press(t, m, runes("H"))
	assert.False(t, app.IsHoliday(d("2024-01-10")))

	m = press(t, m, runes("m"))
	assert.Equal(t, storage.ModeDark, app.Preferences().Mode)
	assert.Equal(t, "Mode: dark", m.status)
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewGrid(t *testing.T) {
	m, _ := newModel(t)
	out := m.View()
	assert.Contains(t, out, "January 2024")
	assert.Contains(t, out, "Su")
	assert.Contains(t, out, "[")
	assert.Contains(t, out, "No tasks.")
}

func TestSplitTime(t *testing.T) {
	tests := []struct {
		in, desc, tm string
	}{
		{"09:30 Buy milk", "Buy milk", "09:30"},
		{"Buy milk", "Buy milk", ""},
		{"25:00 late", "25:00 late", ""},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		desc, tm := splitTime(tt.in)
		assert.Equal(t, tt.desc, desc, tt.in)
		assert.Equal(t, tt.tm, tm, tt.in)
	}
}

func TestMoveSeries(t *testing.T) {
	m, app := newModel(t)
	_, err := app.AddTask(model.DefinitionInput{Description: "Standup", Date: "2024-01-03", Recurrence: "weekly"})
	require.NoError(t, err)
	m = press(t, m, runes("t"))
	require.Len(t, m.day, 1)

	m = press(t, m, runes(")"))
	assert.Equal(t, d("2024-01-11"), m.cursor)
	assert.Contains(t, m.status, "Series")
	assert.Empty(t, app.Day(d("2024-01-17")))
	assert.Len(t, app.Day(d("2024-01-18")), 1)
	assert.Empty(t, app.Day(d("2024-01-03")))
}
