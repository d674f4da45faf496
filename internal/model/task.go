package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// DefaultCategory is always present in the category registry.
const DefaultCategory = "General"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// Rank orders priorities for sorting; unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

func ParseRecurrence(s string) (Recurrence, error) {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(s))); r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return r, nil
	case "":
		return RecurrenceNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
}

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ParseTime validates an optional "HH:MM" value. Empty is allowed.
func ParseTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || timeRe.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// TaskDefinition is the stored record for a task and, when Recurrence is
// not "none", its repetition rule. A definition is always stored under the
// key equal to its OriginalDate.
type TaskDefinition struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Completed    bool       `json:"completed"`
	Time         string     `json:"time"`
	Priority     Priority   `json:"priority"`
	Recurrence   Recurrence `json:"recurrence"`
	OriginalDate Date       `json:"originalDate"`
	Exceptions   []Date     `json:"exceptions"`
}

// NewID returns a fresh opaque definition id.
func NewID() string {
	return uuid.NewString()
}

// DefinitionInput is the raw form data for a new task.
type DefinitionInput struct {
	Description string
	Category    string
	Time        string
	Priority    string
	Recurrence  string
	Date        string
}

// NewDefinition validates in and returns a complete definition with a new
// id, no exceptions, and defaults for empty fields.
func NewDefinition(in DefinitionInput) (TaskDefinition, error) {
	date, err := ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return TaskDefinition{}, err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return TaskDefinition{}, ErrEmptyDescription
	}
	tm, err := ParseTime(in.Time)
	if err != nil {
		return TaskDefinition{}, err
	}
	prio, err := ParsePriority(in.Priority)
	if err != nil {
		return TaskDefinition{}, err
	}
	rec, err := ParseRecurrence(in.Recurrence)
	if err != nil {
		return TaskDefinition{}, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	return TaskDefinition{
		ID:           NewID(),
		Description:  desc,
		Category:     category,
		Time:         tm,
		Priority:     prio,
		Recurrence:   rec,
		OriginalDate: date,
		Exceptions:   []Date{},
	}, nil
}

func (t TaskDefinition) IsRecurring() bool {
	return t.Recurrence != RecurrenceNone && t.Recurrence != ""
}

func (t TaskDefinition) HasException(d Date) bool {
	return slices.Contains(t.Exceptions, d)
}

// AddException records d as a suppressed occurrence. It reports whether the
// date was newly added.
func (t *TaskDefinition) AddException(d Date) bool {
	if t.HasException(d) {
		return false
	}
	t.Exceptions = append(t.Exceptions, d)
	return true
}

// Clone returns a deep copy; Exceptions never aliases the original.
func (t TaskDefinition) Clone() TaskDefinition {
	c := t
	c.Exceptions = slices.Clone(t.Exceptions)
	if c.Exceptions == nil {
		c.Exceptions = []Date{}
	}
	return c
}

// Patch is a partial update of a definition; nil means "no change".
type Patch struct {
	Description  *string     `json:"description,omitempty"`
	Category     *string     `json:"category,omitempty"`
	Completed    *bool       `json:"completed,omitempty"`
	Time         *string     `json:"time,omitempty"`
	Priority     *Priority   `json:"priority,omitempty"`
	Recurrence   *Recurrence `json:"recurrence,omitempty"`
	OriginalDate *Date       `json:"originalDate,omitempty"`
}

// Validate checks every set field so an invalid patch is refused before
// anything is mutated.
func (p Patch) Validate() error {
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return ErrEmptyDescription
	}
	if p.Time != nil {
		if _, err := ParseTime(*p.Time); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if _, err := ParsePriority(string(*p.Priority)); err != nil {
			return err
		}
	}
	if p.Recurrence != nil {
		if _, err := ParseRecurrence(string(*p.Recurrence)); err != nil {
			return err
		}
	}
	if p.OriginalDate != nil && p.OriginalDate.IsZero() {
		return fmt.Errorf("%w: empty originalDate", ErrInvalidDateFormat)
	}
	return nil
}

// ApplyTo copies the set fields onto t. OriginalDate is left to the caller,
// which must relocate the definition in the store.
func (p Patch) ApplyTo(t *TaskDefinition) {
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
		if t.Category == "" {
			t.Category = DefaultCategory
		}
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Time != nil {
		t.Time = strings.TrimSpace(*p.Time)
	}
	if p.Priority != nil {
		t.Priority, _ = ParsePriority(string(*p.Priority))
	}
	if p.Recurrence != nil {
		t.Recurrence, _ = ParseRecurrence(string(*p.Recurrence))
	}
}
