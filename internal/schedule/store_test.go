package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcal/internal/model"
)

var d = model.MustDate

func newDef(t *testing.T, desc, date string, rec model.Recurrence) model.TaskDefinition {
	t.Helper()
	def, err := model.NewDefinition(model.DefinitionInput{Description: desc, Date: date, Recurrence: string(rec)})
	require.NoError(t, err)
	return def
}

func addDef(t *testing.T, s *Store, desc, date string, rec model.Recurrence) model.TaskDefinition {
	t.Helper()
	def := newDef(t, desc, date, rec)
	require.NoError(t, s.Add(def))
	return def
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	for key, list := range s.tasks {
		assert.NotEmpty(t, list, "empty list under %s", key)
		for _, def := range list {
			assert.Equal(t, key, def.OriginalDate, "definition %s stored under foreign key", def.ID)
			seen := map[model.Date]bool{}
			for _, ex := range def.Exceptions {
				assert.False(t, seen[ex], "duplicate exception %s", ex)
				assert.False(t, ex.Before(def.OriginalDate), "exception %s before start", ex)
				seen[ex] = true
			}
		}
	}
}

func TestStore_AddAndGet(t *testing.T) {
	s := NewStore()
	a := addDef(t, s, "A", "2024-01-01", model.RecurrenceNone)
	b := addDef(t, s, "B", "2024-01-01", model.RecurrenceDaily)

	got, err := s.Get(d("2024-01-01"), 1)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	i, err := s.IndexOf(d("2024-01-01"), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, 2, s.Len())
	assertInvariants(t, s)
}

func TestStore_AddRejectsZeroDate(t *testing.T) {
	s := NewStore()
	err := s.Add(model.TaskDefinition{ID: "x", Description: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidDateFormat)
	assert.Zero(t, s.Len())
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceNone)

	_, err := s.Get(d("2024-01-01"), 5)
	assert.ErrorIs(t, err, model.ErrDefinitionNotFound)
	_, err = s.Update(d("2024-01-02"), 0, model.Patch{}, false, model.Date{})
	assert.ErrorIs(t, err, model.ErrDefinitionNotFound)
	assert.ErrorIs(t, s.Delete(d("2024-01-01"), -1, false, model.Date{}), model.ErrDefinitionNotFound)
	_, err = s.IndexOf(d("2024-01-01"), "nope")
	assert.ErrorIs(t, err, model.ErrDefinitionNotFound)
}

func TestStore_UpdateInPlace(t *testing.T) {
	s := NewStore()
	def := addDef(t, s, "A", "2024-01-01", model.RecurrenceWeekly)

	desc := "Renamed"
	got, err := s.Update(d("2024-01-01"), 0, model.Patch{Description: &desc}, true, d("2024-01-08"))
	require.NoError(t, err)

	assert.Equal(t, def.ID, got.ID)
	assert.Equal(t, "Renamed", got.Description)
	stored, _ := s.Get(d("2024-01-01"), 0)
	assert.Equal(t, "Renamed", stored.Description)
}

func TestStore_UpdateInvalidPatchLeavesStateUntouched(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceNone)

	desc := "B"
	bad := "7pm"
	_, err := s.Update(d("2024-01-01"), 0, model.Patch{Description: &desc, Time: &bad}, false, model.Date{})
	require.ErrorIs(t, err, model.ErrInvalidTime)

	stored, _ := s.Get(d("2024-01-01"), 0)
	assert.Equal(t, "A", stored.Description)
}

func TestStore_UpdateRelocatesPreservingID(t *testing.T) {
	s := NewStore()
	def := addDef(t, s, "A", "2024-01-01", model.RecurrenceDaily)
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-03")))
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-10")))

	to := d("2024-01-05")
	got, err := s.Update(d("2024-01-01"), 0, model.Patch{OriginalDate: &to}, false, model.Date{})
	require.NoError(t, err)

	assert.Equal(t, def.ID, got.ID)
	assert.Empty(t, s.At(d("2024-01-01")))
	assert.NotContains(t, s.Keys(), d("2024-01-01"))
	moved := s.At(to)
	require.Len(t, moved, 1)
	assert.Equal(t, def.ID, moved[0].ID)
	assert.Equal(t, []model.Date{d("2024-01-10")}, moved[0].Exceptions)
	assertInvariants(t, s)
}

func TestStore_DeleteInstanceIsIdempotent(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceDaily)

	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-04")))
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-04")))

	def, _ := s.Get(d("2024-01-01"), 0)
	assert.Equal(t, []model.Date{d("2024-01-04")}, def.Exceptions)
	assertInvariants(t, s)
}

func TestStore_DeleteInstanceOffSeriesIsNotFound(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-10", model.RecurrenceDaily)
	addDef(t, s, "Standup", "2024-01-01", model.RecurrenceWeekly)

	// Before the start, and a Tuesday for a Monday series.
	assert.ErrorIs(t, s.Delete(d("2024-01-10"), 0, true, d("2024-01-01")), model.ErrDefinitionNotFound)
	assert.ErrorIs(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-02")), model.ErrDefinitionNotFound)

	daily, _ := s.Get(d("2024-01-10"), 0)
	assert.Empty(t, daily.Exceptions)
	weekly, _ := s.Get(d("2024-01-01"), 0)
	assert.Empty(t, weekly.Exceptions)
	assert.Equal(t, 2, s.Len())
}

func TestStore_DeleteWholeSeries(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceDaily)

	require.NoError(t, s.Delete(d("2024-01-01"), 0, false, model.Date{}))
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Keys())
}

func TestStore_DeleteInstanceOfNonRecurringDeletesIt(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceNone)

	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-01")))
	assert.Zero(t, s.Len())
}

func TestStore_MoveSingleInstance(t *testing.T) {
	s := NewStore()
	series := addDef(t, s, "Standup", "2024-01-01", model.RecurrenceWeekly)

	moved, err := s.MoveSingleInstance(d("2024-01-01"), 0, d("2024-01-08"), d("2024-01-09"))
	require.NoError(t, err)

	assert.NotEqual(t, series.ID, moved.ID)
	assert.Equal(t, model.RecurrenceNone, moved.Recurrence)
	assert.Equal(t, d("2024-01-09"), moved.OriginalDate)
	assert.Empty(t, moved.Exceptions)
	assert.Equal(t, "Standup", moved.Description)

	orig, _ := s.Get(d("2024-01-01"), 0)
	assert.Equal(t, series.ID, orig.ID)
	assert.Equal(t, []model.Date{d("2024-01-08")}, orig.Exceptions)
	assertInvariants(t, s)
}

func TestStore_MoveSingleInstanceRejectsDeadOccurrence(t *testing.T) {
	s := NewStore()
	addDef(t, s, "Standup", "2024-01-01", model.RecurrenceWeekly)
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-15")))

	tests := []struct {
		name string
		from model.Date
	}{
		{"deleted occurrence", d("2024-01-15")},
		{"wrong weekday", d("2024-01-02")},
		{"before start", d("2023-12-25")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.MoveSingleInstance(d("2024-01-01"), 0, tt.from, d("2024-01-17"))
			assert.ErrorIs(t, err, model.ErrDefinitionNotFound)
			assert.Equal(t, 1, s.Len())
			assert.Empty(t, s.At(d("2024-01-17")))
			def, _ := s.Get(d("2024-01-01"), 0)
			assert.Equal(t, []model.Date{d("2024-01-15")}, def.Exceptions)
		})
	}
}

func TestStore_MoveSingleInstanceOfNonRecurringRelocates(t *testing.T) {
	s := NewStore()
	def := addDef(t, s, "A", "2024-01-01", model.RecurrenceNone)

	moved, err := s.MoveSingleInstance(d("2024-01-01"), 0, d("2024-01-01"), d("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, def.ID, moved.ID)
	assert.Len(t, s.At(d("2024-01-02")), 1)
	assert.Empty(t, s.At(d("2024-01-01")))
}

func TestStore_MoveEntireSeries(t *testing.T) {
	s := NewStore()
	addDef(t, s, "Other", "2024-01-01", model.RecurrenceNone)
	series := addDef(t, s, "Standup", "2024-01-01", model.RecurrenceWeekly)
	require.NoError(t, s.Delete(d("2024-01-01"), 1, true, d("2024-01-15")))

	got, err := s.MoveEntireSeries(d("2024-01-01"), 1, d("2024-01-03"))
	require.NoError(t, err)

	assert.Equal(t, series.ID, got.ID)
	assert.Equal(t, d("2024-01-03"), got.OriginalDate)
	assert.Empty(t, got.Exceptions)
	assert.Len(t, s.At(d("2024-01-01")), 1)
	assert.Len(t, s.At(d("2024-01-03")), 1)
	assertInvariants(t, s)
}

func TestStore_MoveEntireSeriesSameKeyClearsExceptions(t *testing.T) {
	s := NewStore()
	addDef(t, s, "Standup", "2024-01-01", model.RecurrenceDaily)
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-02")))

	got, err := s.MoveEntireSeries(d("2024-01-01"), 0, d("2024-01-01"))
	require.NoError(t, err)
	assert.Empty(t, got.Exceptions)
}

func TestStore_SetCompleted(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceDaily)

	got, err := s.SetCompleted(d("2024-01-01"), 0, true)
	require.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	addDef(t, s, "A", "2024-01-01", model.RecurrenceDaily)
	require.NoError(t, s.Delete(d("2024-01-01"), 0, true, d("2024-01-02")))

	got, _ := s.Get(d("2024-01-01"), 0)
	got.Exceptions[0] = d("2030-01-01")
	got.Description = "mutated"

	again, _ := s.Get(d("2024-01-01"), 0)
	assert.Equal(t, "A", again.Description)
	assert.Equal(t, d("2024-01-02"), again.Exceptions[0])
}

func TestNewStoreFrom_RepairsInvariants(t *testing.T) {
	data := map[model.Date][]model.TaskDefinition{
		d("2024-01-01"): {
			{ID: "a", Description: "A", Recurrence: model.RecurrenceDaily, OriginalDate: d("2024-01-05"),
				Exceptions: []model.Date{d("2024-01-02"), d("2024-01-06"), d("2024-01-06")}},
			{ID: "b", Description: "B", Recurrence: model.RecurrenceNone},
		},
	}

	s := NewStoreFrom(data)

	assert.Equal(t, []model.Date{d("2024-01-01"), d("2024-01-05")}, s.Keys())
	a := s.At(d("2024-01-05"))
	require.Len(t, a, 1)
	assert.Equal(t, []model.Date{d("2024-01-06")}, a[0].Exceptions)
	b := s.At(d("2024-01-01"))
	require.Len(t, b, 1)
	assert.Equal(t, d("2024-01-01"), b[0].OriginalDate)
	assertInvariants(t, s)
}

func TestStore_InstanceEditRelocatesWholeSeries(t *testing.T) {
	s := NewStore()
	def := addDef(t, s, "Standup", "2024-01-01", model.RecurrenceWeekly)

	to := d("2024-01-03")
	got, err := s.Update(d("2024-01-01"), 0, model.Patch{OriginalDate: &to}, true, d("2024-01-08"))
	require.NoError(t, err)

	assert.Equal(t, def.ID, got.ID)
	assert.Equal(t, model.RecurrenceWeekly, got.Recurrence)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, Expand(s, d("2024-01-08")))
	assert.Len(t, Expand(s, d("2024-01-10")), 1)
	assertInvariants(t, s)
}
