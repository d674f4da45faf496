// Package planner owns the application state: the task store, holidays,
// categories, preferences and the current view filter. Every exported
// method takes the state lock, so the HTTP server, the terminal UI and the
// holiday sync job can share one App.
package planner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/schedule"
	"taskcal/internal/storage"
)

// ErrImportNotConfirmed is returned by Import when the caller did not
// confirm overwriting the current state.
var ErrImportNotConfirmed = errors.New("import would overwrite current data; confirmation required")

type Options struct {
	DueSoonDays       int
	HighDensity       int
	DefaultCategories []string
	Location          *time.Location
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

type App struct {
	mu sync.Mutex

	kv   storage.KV
	opts Options

	store        *schedule.Store
	holidays     schedule.Holidays
	feedHolidays schedule.Holidays
	categories   *schedule.Categories
	prefs        storage.Preferences
	filter       schedule.Filter
}

// New loads the persisted state from kv.
func New(kv storage.KV, opts Options) (*App, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	st, err := storage.Load(kv, opts.DefaultCategories)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	a := &App{
		kv:           kv,
		opts:         opts,
		feedHolidays: schedule.Holidays{},
		filter:       schedule.DefaultFilter(),
	}
	a.replace(st)
	appLog.Info("state loaded", "definitions", a.store.Len(), "holidays", len(a.holidays))
	return a, nil
}

func (a *App) replace(st storage.State) {
	a.store = schedule.NewStoreFrom(st.Tasks)
	a.holidays = st.Holidays.Clone()
	a.categories = schedule.NewCategories(st.Categories)
	a.prefs = st.Preferences
	a.prefs.Mode = storage.ParseMode(string(a.prefs.Mode))
}

func (a *App) state() storage.State {
	return storage.State{
		Tasks:       a.store.Snapshot(),
		Holidays:    a.holidays.Clone(),
		Categories:  a.categories.List(),
		Preferences: a.prefs,
	}
}

// persist writes the whole state. Failures are logged and otherwise
// ignored: the in-memory state stays authoritative.
func (a *App) persist() {
	if err := storage.Save(a.kv, a.state()); err != nil {
		appLog.Error("failed to persist state", err)
	}
}

// Today is the current date in the configured zone.
func (a *App) Today() model.Date {
	return model.Today(a.opts.Now(), a.opts.Location)
}

func (a *App) resolve(ref model.Ref) (int, error) {
	if ref.Key.IsZero() {
		return -1, fmt.Errorf("reference without definition date: %w", model.ErrDefinitionNotFound)
	}
	return a.store.IndexOf(ref.Key, ref.ID)
}

// AddTask creates a definition on in.Date. A category not yet known is
// registered.
func (a *App) AddTask(in model.DefinitionInput) (model.TaskDefinition, error) {
	def, err := model.NewDefinition(in)
	if err != nil {
		return model.TaskDefinition{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Add(def); err != nil {
		return model.TaskDefinition{}, err
	}
	if a.categories.Add(def.Category) {
		appLog.Debug("category registered", "category", def.Category)
	}
	a.persist()
	return def, nil
}

// Update applies patch to the definition behind ref. instance marks an edit
// started from a recurring instance; it still changes the whole series.
func (a *App) Update(ref model.Ref, patch model.Patch, instance bool) (model.TaskDefinition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(ref)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	def, err := a.store.Update(ref.Key, idx, patch, instance, ref.Date)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	a.categories.Add(def.Category)
	a.persist()
	return def, nil
}

// Delete removes one instance (recurring definitions only) or the whole
// definition.
func (a *App) Delete(ref model.Ref, instance bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(ref)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ref.Key, idx, instance, ref.Date); err != nil {
		return err
	}
	a.persist()
	return nil
}

// Move drops the occurrence behind ref on to. With series set a recurring
// definition is shifted as a whole; otherwise only this occurrence moves.
// Non-recurring definitions are simply relocated. Dropping an occurrence
// on its own date changes nothing.
func (a *App) Move(ref model.Ref, to model.Date, series bool) (model.TaskDefinition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(ref)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	if to.IsZero() {
		return model.TaskDefinition{}, fmt.Errorf("move target: %w", model.ErrInvalidDateFormat)
	}

	from := ref.Date
	if from.IsZero() {
		from = ref.Key
	}
	if from == to {
		return a.store.Get(ref.Key, idx)
	}

	var def model.TaskDefinition
	if series {
		def, err = a.store.MoveEntireSeries(ref.Key, idx, to)
	} else {
		def, err = a.store.MoveSingleInstance(ref.Key, idx, from, to)
	}
	if err != nil {
		return model.TaskDefinition{}, err
	}
	a.persist()
	return def, nil
}

// SetCompleted sets the shared completion flag of the definition behind ref.
func (a *App) SetCompleted(ref model.Ref, completed bool) (model.TaskDefinition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(ref)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	def, err := a.store.SetCompleted(ref.Key, idx, completed)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	a.persist()
	return def, nil
}

// ToggleCompleted flips the completion flag.
func (a *App) ToggleCompleted(ref model.Ref) (model.TaskDefinition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(ref)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	cur, err := a.store.Get(ref.Key, idx)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	def, err := a.store.SetCompleted(ref.Key, idx, !cur.Completed)
	if err != nil {
		return model.TaskDefinition{}, err
	}
	a.persist()
	return def, nil
}

// Definitions returns every stored definition in key order.
func (a *App) Definitions() []model.TaskDefinition {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []model.TaskDefinition
	for _, key := range a.store.Keys() {
		out = append(out, a.store.At(key)...)
	}
	return out
}
