package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcal/internal/model"
)

func occ(desc string, prio model.Priority, tm string) model.Occurrence {
	return model.Occurrence{TaskDefinition: model.TaskDefinition{
		ID: desc + tm, Description: desc, Priority: prio, Time: tm, Category: model.DefaultCategory,
	}}
}

func descs(occs []model.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Description+"|"+o.Time)
	}
	return out
}

func TestApply_SortOrder(t *testing.T) {
	in := []model.Occurrence{
		occ("a", model.PriorityHigh, "09:00"),
		occ("b", model.PriorityHigh, "08:00"),
		occ("c", model.PriorityLow, ""),
	}

	got := Apply(in, DefaultFilter())

	assert.Equal(t, []string{"b|08:00", "a|09:00", "c|"}, descs(got))
}

func TestApply_FullTieBreak(t *testing.T) {
	in := []model.Occurrence{
		occ("zeta", model.PriorityMedium, ""),
		occ("alpha", model.PriorityMedium, ""),
		occ("late", model.PriorityMedium, "23:59"),
		occ("unknown", model.Priority(""), "00:00"),
		occ("low", model.PriorityLow, "00:00"),
		occ("high", model.PriorityHigh, ""),
	}

	got := Apply(in, DefaultFilter())

	assert.Equal(t, []string{"high|", "late|23:59", "alpha|", "zeta|", "low|00:00", "unknown|00:00"}, descs(got))
}

func TestApply_StableForEqualTuples(t *testing.T) {
	first := occ("same", model.PriorityLow, "10:00")
	first.ID = "first"
	second := occ("same", model.PriorityLow, "10:00")
	second.ID = "second"

	got := Apply([]model.Occurrence{first, second}, DefaultFilter())
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := []model.Occurrence{occ("b", model.PriorityLow, ""), occ("a", model.PriorityHigh, "")}
	_ = Apply(in, DefaultFilter())
	assert.Equal(t, "b", in[0].Description)
}

func TestFilter_Predicates(t *testing.T) {
	work := occ("Write Report", model.PriorityMedium, "")
	work.Category = "Work"
	done := occ("Buy milk", model.PriorityMedium, "")
	done.Completed = true
	all := []model.Occurrence{work, done}

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"default", DefaultFilter(), []string{"Buy milk|", "Write Report|"}},
		{"search is case-insensitive", Filter{Search: "REPORT", Category: CategoryAll, Completion: CompletionAll}, []string{"Write Report|"}},
		{"category exact", Filter{Category: "Work", Completion: CompletionAll}, []string{"Write Report|"}},
		{"category no partial", Filter{Category: "Wor", Completion: CompletionAll}, []string{}},
		{"completed", Filter{Category: CategoryAll, Completion: CompletionCompleted}, []string{"Buy milk|"}},
		{"incomplete", Filter{Category: CategoryAll, Completion: CompletionIncomplete}, []string{"Write Report|"}},
		{"hide completed", Filter{Category: CategoryAll, Completion: CompletionAll, HideCompleted: true}, []string{"Write Report|"}},
		{"hide completed wins", Filter{Category: CategoryAll, Completion: CompletionCompleted, HideCompleted: true}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, descs(Apply(all, tc.filter)))
		})
	}
}

func TestParseCompletion(t *testing.T) {
	c, err := ParseCompletion("Completed")
	require.NoError(t, err)
	assert.Equal(t, CompletionCompleted, c)
	c, err = ParseCompletion("")
	require.NoError(t, err)
	assert.Equal(t, CompletionAll, c)
	_, err = ParseCompletion("done")
	assert.Error(t, err)
}
