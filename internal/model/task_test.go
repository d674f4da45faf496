package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefinition_Defaults(t *testing.T) {
	def, err := NewDefinition(DefinitionInput{Description: "  Standup ", Date: "2024-01-01"})
	require.NoError(t, err)

	assert.NotEmpty(t, def.ID)
	assert.Equal(t, "Standup", def.Description)
	assert.Equal(t, DefaultCategory, def.Category)
	assert.Equal(t, PriorityMedium, def.Priority)
	assert.Equal(t, RecurrenceNone, def.Recurrence)
	assert.Equal(t, MustDate("2024-01-01"), def.OriginalDate)
	assert.Empty(t, def.Exceptions)
	assert.NotNil(t, def.Exceptions)
	assert.False(t, def.IsRecurring())
}

func TestNewDefinition_Rejects(t *testing.T) {
	cases := []struct {
		name string
		in   DefinitionInput
		err  error
	}{
		{"bad date", DefinitionInput{Description: "x", Date: "2024/01/01"}, ErrInvalidDateFormat},
		{"empty description", DefinitionInput{Description: "  ", Date: "2024-01-01"}, ErrEmptyDescription},
		{"bad time", DefinitionInput{Description: "x", Date: "2024-01-01", Time: "25:00"}, ErrInvalidTime},
		{"bad priority", DefinitionInput{Description: "x", Date: "2024-01-01", Priority: "urgent"}, ErrInvalidPriority},
		{"bad recurrence", DefinitionInput{Description: "x", Date: "2024-01-01", Recurrence: "yearly"}, ErrInvalidRecurrence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDefinition(tc.in)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewDefinition_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		def, err := NewDefinition(DefinitionInput{Description: "x", Date: "2024-01-01"})
		require.NoError(t, err)
		assert.False(t, seen[def.ID])
		seen[def.ID] = true
	}
}

func TestAddException_Idempotent(t *testing.T) {
	def := TaskDefinition{Recurrence: RecurrenceDaily, Exceptions: []Date{}}
	d := MustDate("2024-01-03")

	assert.True(t, def.AddException(d))
	assert.False(t, def.AddException(d))
	assert.Equal(t, []Date{d}, def.Exceptions)
}

func TestClone_DoesNotAliasExceptions(t *testing.T) {
	def := TaskDefinition{Exceptions: []Date{MustDate("2024-01-03")}}
	c := def.Clone()
	c.Exceptions[0] = MustDate("2025-01-01")

	assert.Equal(t, MustDate("2024-01-03"), def.Exceptions[0])
}

func TestPatch_ValidateAndApply(t *testing.T) {
	desc := "Renamed"
	high := PriorityHigh
	done := true
	emptyCat := ""
	p := Patch{Description: &desc, Priority: &high, Completed: &done, Category: &emptyCat}
	require.NoError(t, p.Validate())

	def := TaskDefinition{Description: "Old", Category: "Work", Priority: PriorityLow}
	p.ApplyTo(&def)
	assert.Equal(t, "Renamed", def.Description)
	assert.Equal(t, PriorityHigh, def.Priority)
	assert.True(t, def.Completed)
	assert.Equal(t, DefaultCategory, def.Category)

	blank := " "
	assert.ErrorIs(t, Patch{Description: &blank}.Validate(), ErrEmptyDescription)
	badTime := "9am"
	assert.ErrorIs(t, Patch{Time: &badTime}.Validate(), ErrInvalidTime)
	zero := Date{}
	assert.ErrorIs(t, Patch{OriginalDate: &zero}.Validate(), ErrInvalidDateFormat)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Equal(t, 3, Priority("").Rank())
}
