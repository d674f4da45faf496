package schedule

import (
	"slices"
	"strings"

	"taskcal/internal/model"
)

// Categories is an ordered set of labels with "General" first.
type Categories struct {
	names []string
}

// NewCategories normalizes names: blanks and duplicates are dropped and
// "General" is moved (or inserted) to the front.
func NewCategories(names []string) *Categories {
	c := &Categories{names: []string{model.DefaultCategory}}
	for _, n := range names {
		c.Add(n)
	}
	return c
}

// Add registers name and reports whether it was new.
func (c *Categories) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || slices.Contains(c.names, name) {
		return false
	}
	c.names = append(c.names, name)
	return true
}

func (c *Categories) Has(name string) bool {
	return slices.Contains(c.names, name)
}

// List returns a copy in display order.
func (c *Categories) List() []string {
	return slices.Clone(c.names)
}

// Holidays is the set of user-marked holiday dates.
type Holidays map[model.Date]bool

// Set marks or unmarks date. Unmarking deletes the entry so presence alone
// means "holiday".
func (h Holidays) Set(date model.Date, on bool) {
	if on {
		h[date] = true
		return
	}
	delete(h, date)
}

func (h Holidays) Has(date model.Date) bool {
	return h[date]
}

// Dates returns the holidays in ascending order.
func (h Holidays) Dates() []model.Date {
	out := make([]model.Date, 0, len(h))
	for d, on := range h {
		if on {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, model.Date.Compare)
	return out
}

// Clone copies the set.
func (h Holidays) Clone() Holidays {
	out := make(Holidays, len(h))
	for d, on := range h {
		if on {
			out[d] = true
		}
	}
	return out
}
