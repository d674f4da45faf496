package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"taskcal/internal/model"
)

// CategoryAll disables the category predicate.
const CategoryAll = "all"

type Completion string

const (
	CompletionAll        Completion = "all"
	CompletionCompleted  Completion = "completed"
	CompletionIncomplete Completion = "incomplete"
)

func ParseCompletion(s string) (Completion, error) {
	switch c := Completion(strings.ToLower(strings.TrimSpace(s))); c {
	case CompletionAll, CompletionCompleted, CompletionIncomplete:
		return c, nil
	case "":
		return CompletionAll, nil
	default:
		return "", fmt.Errorf("invalid completion filter %q", s)
	}
}

// Filter is the ephemeral view state applied to every occurrence list.
type Filter struct {
	Search        string     `json:"search"`
	Category      string     `json:"category"`
	Completion    Completion `json:"completion"`
	HideCompleted bool       `json:"hideCompleted"`
}

// DefaultFilter shows everything.
func DefaultFilter() Filter {
	return Filter{Category: CategoryAll, Completion: CompletionAll}
}

// Match reports whether one occurrence passes every predicate.
func (f Filter) Match(o model.Occurrence) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(o.Description), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && f.Category != CategoryAll && o.Category != f.Category {
		return false
	}
	switch f.Completion {
	case CompletionCompleted:
		if !o.Completed {
			return false
		}
	case CompletionIncomplete:
		if o.Completed {
			return false
		}
	}
	return !f.HideCompleted || !o.Completed
}

// noTime sorts after every real HH:MM value.
const noTime = "99:99"

// Apply filters occs and sorts the survivors by priority rank, then time
// (missing times last), then description. The sort is stable so equal
// tuples keep their input order. occs is not modified.
func Apply(occs []model.Occurrence, f Filter) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, compareOccurrences)
	return out
}

func compareOccurrences(a, b model.Occurrence) int {
	if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(sortTime(a.Time), sortTime(b.Time)); c != 0 {
		return c
	}
	return cmp.Compare(a.Description, b.Description)
}

func sortTime(t string) string {
	if t == "" {
		return noTime
	}
	return t
}
