// Package schedule holds the task engine: the Task Store and its mutations,
// the occurrence expander, and the view filter/sort.
package schedule

import (
	"fmt"
	"slices"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// Store maps a definition date to the definitions originating on it.
//
// Invariants:
//   - lists are never empty (empty lists are removed);
//   - every definition's OriginalDate equals its key;
//   - exceptions are unique and not before OriginalDate.
//
// Store is not safe for concurrent use; the owner serializes access.
type Store struct {
	tasks map[model.Date][]model.TaskDefinition
}

func NewStore() *Store {
	return &Store{tasks: map[model.Date][]model.TaskDefinition{}}
}

// NewStoreFrom builds a store from loaded data, re-keying any definition
// whose OriginalDate disagrees with the key it was found under and
// dropping exceptions that break the store invariants.
func NewStoreFrom(data map[model.Date][]model.TaskDefinition) *Store {
	s := NewStore()
	for _, key := range sortedKeys(data) {
		for _, def := range data[key] {
			if def.OriginalDate.IsZero() {
				def.OriginalDate = key
			}
			if def.OriginalDate != key {
				appLog.Warn("definition stored under foreign key; re-keying",
					"id", def.ID, "key", key, "original_date", def.OriginalDate)
			}
			def = def.Clone()
			def.Exceptions = pruneExceptions(def.Exceptions, def.OriginalDate)
			s.insert(def)
		}
	}
	return s
}

// Add appends def under its OriginalDate.
func (s *Store) Add(def model.TaskDefinition) error {
	if def.OriginalDate.IsZero() {
		return fmt.Errorf("add %q: %w", def.ID, model.ErrInvalidDateFormat)
	}
	if def.ID == "" {
		def.ID = model.NewID()
	}
	def = def.Clone()
	def.Exceptions = pruneExceptions(def.Exceptions, def.OriginalDate)
	s.insert(def)
	appLog.Debug("task added", "id", def.ID, "date", def.OriginalDate, "recurrence", def.Recurrence)
	return nil
}

// Get returns a copy of the definition at (key, index).
func (s *Store) Get(key model.Date, index int) (model.TaskDefinition, error) {
	list := s.tasks[key]
	if index < 0 || index >= len(list) {
		return model.TaskDefinition{}, notFound(key, index)
	}
	return list[index].Clone(), nil
}

// IndexOf resolves a definition id under key to its current index.
func (s *Store) IndexOf(key model.Date, id string) (int, error) {
	i := slices.IndexFunc(s.tasks[key], func(t model.TaskDefinition) bool { return t.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("id %q under %s: %w", id, key, model.ErrDefinitionNotFound)
	}
	return i, nil
}

// Update applies patch to the definition at (key, index).
//
// An edit made from a single occurrence of a recurring series
// (instanceEdit) changes the whole series: there is no per-occurrence
// override. If the patch moves OriginalDate the definition is relocated to
// the new key with its id preserved, and exceptions before the new start
// are dropped.
func (s *Store) Update(key model.Date, index int, patch model.Patch, instanceEdit bool, instanceDate model.Date) (model.TaskDefinition, error) {
	if err := patch.Validate(); err != nil {
		return model.TaskDefinition{}, err
	}
	list := s.tasks[key]
	if index < 0 || index >= len(list) {
		return model.TaskDefinition{}, notFound(key, index)
	}

	def := list[index].Clone()
	if instanceEdit && def.IsRecurring() {
		appLog.Debug("instance edit promoted to series", "id", def.ID, "instance_date", instanceDate)
	}
	patch.ApplyTo(&def)

	if patch.OriginalDate != nil && *patch.OriginalDate != key {
		def.OriginalDate = *patch.OriginalDate
		def.Exceptions = pruneExceptions(def.Exceptions, def.OriginalDate)
		s.removeAt(key, index)
		s.insert(def)
		appLog.Debug("task relocated", "id", def.ID, "from", key, "to", def.OriginalDate)
		return def.Clone(), nil
	}

	list[index] = def
	appLog.Debug("task updated", "id", def.ID, "key", key)
	return def.Clone(), nil
}

// Delete removes a definition, or with instanceDelete on a recurring
// definition only suppresses the occurrence on instanceDate. Deleting an
// already suppressed occurrence is a no-op; a date the series never falls
// on is ErrDefinitionNotFound.
func (s *Store) Delete(key model.Date, index int, instanceDelete bool, instanceDate model.Date) error {
	list := s.tasks[key]
	if index < 0 || index >= len(list) {
		return notFound(key, index)
	}

	def := &list[index]
	if instanceDelete && def.IsRecurring() {
		if instanceDate.IsZero() {
			return fmt.Errorf("delete instance of %q: %w", def.ID, model.ErrInvalidDateFormat)
		}
		if def.HasException(instanceDate) {
			return nil
		}
		if !Matches(*def, instanceDate) {
			return fmt.Errorf("%q does not occur on %s: %w", def.ID, instanceDate, model.ErrDefinitionNotFound)
		}
		def.AddException(instanceDate)
		appLog.Debug("exception added", "id", def.ID, "date", instanceDate)
		return nil
	}

	appLog.Debug("task deleted", "id", def.ID, "key", key)
	s.removeAt(key, index)
	return nil
}

// MoveSingleInstance moves one occurrence of a recurring series from one
// day to another. The series gains an exception on from, and a new
// independent non-recurring copy is stored on to. For a non-recurring
// definition the definition itself is moved. The returned definition is the
// one now occurring on to. from must be a live occurrence of the series.
func (s *Store) MoveSingleInstance(key model.Date, index int, from, to model.Date) (model.TaskDefinition, error) {
	def, err := s.Get(key, index)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	if to.IsZero() || from.IsZero() {
		return model.TaskDefinition{}, fmt.Errorf("move %q: %w", def.ID, model.ErrInvalidDateFormat)
	}
	if !def.IsRecurring() {
		return s.Move(key, index, to)
	}
	if !Matches(def, from) {
		return model.TaskDefinition{}, fmt.Errorf("move %q: no occurrence on %s: %w", def.ID, from, model.ErrDefinitionNotFound)
	}
	if from == to {
		return def, nil
	}

	if err := s.Delete(key, index, true, from); err != nil {
		return model.TaskDefinition{}, err
	}
	moved := def.Clone()
	moved.ID = model.NewID()
	moved.OriginalDate = to
	moved.Recurrence = model.RecurrenceNone
	moved.Exceptions = []model.Date{}
	if err := s.Add(moved); err != nil {
		return model.TaskDefinition{}, err
	}
	appLog.Debug("instance moved", "series_id", def.ID, "new_id", moved.ID, "from", from, "to", to)
	return moved, nil
}

// MoveEntireSeries restarts a series on to. Exceptions are cleared because
// they were relative to the old start.
func (s *Store) MoveEntireSeries(key model.Date, index int, to model.Date) (model.TaskDefinition, error) {
	list := s.tasks[key]
	if index < 0 || index >= len(list) {
		return model.TaskDefinition{}, notFound(key, index)
	}
	if to.IsZero() {
		return model.TaskDefinition{}, fmt.Errorf("move series: %w", model.ErrInvalidDateFormat)
	}

	def := list[index].Clone()
	def.OriginalDate = to
	def.Exceptions = []model.Date{}
	if to == key {
		list[index] = def
		return def.Clone(), nil
	}
	s.removeAt(key, index)
	s.insert(def)
	appLog.Debug("series moved", "id", def.ID, "from", key, "to", to)
	return def.Clone(), nil
}

// Move relocates a definition to a new date, preserving its id and
// everything else.
func (s *Store) Move(key model.Date, index int, to model.Date) (model.TaskDefinition, error) {
	return s.Update(key, index, model.Patch{OriginalDate: &to}, false, model.Date{})
}

// SetCompleted sets the completion flag of a definition. For a recurring
// definition this is the shared flag of the whole series.
func (s *Store) SetCompleted(key model.Date, index int, completed bool) (model.TaskDefinition, error) {
	return s.Update(key, index, model.Patch{Completed: &completed}, false, model.Date{})
}

// Keys returns the definition dates in ascending order.
func (s *Store) Keys() []model.Date {
	return sortedKeys(s.tasks)
}

// At returns copies of the definitions stored under key.
func (s *Store) At(key model.Date) []model.TaskDefinition {
	list := s.tasks[key]
	out := make([]model.TaskDefinition, len(list))
	for i, def := range list {
		out[i] = def.Clone()
	}
	return out
}

// Len counts stored definitions.
func (s *Store) Len() int {
	n := 0
	for _, list := range s.tasks {
		n += len(list)
	}
	return n
}

// Snapshot returns a deep copy of the whole store for persistence.
func (s *Store) Snapshot() map[model.Date][]model.TaskDefinition {
	out := make(map[model.Date][]model.TaskDefinition, len(s.tasks))
	for key := range s.tasks {
		out[key] = s.At(key)
	}
	return out
}

// each visits every definition in key order; fn must not mutate the store.
func (s *Store) each(fn func(key model.Date, index int, def *model.TaskDefinition)) {
	for _, key := range s.Keys() {
		list := s.tasks[key]
		for i := range list {
			fn(key, i, &list[i])
		}
	}
}

func (s *Store) insert(def model.TaskDefinition) {
	s.tasks[def.OriginalDate] = append(s.tasks[def.OriginalDate], def)
}

func (s *Store) removeAt(key model.Date, index int) {
	list := slices.Delete(s.tasks[key], index, index+1)
	if len(list) == 0 {
		delete(s.tasks, key)
		return
	}
	s.tasks[key] = list
}

func pruneExceptions(in []model.Date, start model.Date) []model.Date {
	out := make([]model.Date, 0, len(in))
	for _, d := range in {
		if d.IsZero() || d.Before(start) || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func sortedKeys[V any](m map[model.Date]V) []model.Date {
	keys := make([]model.Date, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, model.Date.Compare)
	return keys
}

func notFound(key model.Date, index int) error {
	return fmt.Errorf("%s[%d]: %w", key, index, model.ErrDefinitionNotFound)
}
