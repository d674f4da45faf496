// Package storage persists the calendar state under the same keys the
// browser version used for local storage, and reads/writes the JSON backup
// document.
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"taskcal/internal/config"
	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/schedule"
)

const (
	KeyTasks            = "calendarTasks"
	KeyHolidays         = "calendarHolidays"
	KeyCategories       = "calendarCategories"
	KeyMode             = "calendarMode"
	KeyMonthViewVisible = "monthViewVisible"
	KeyHideCompleted    = "hideCompleted"
)

// Mode is the UI theme.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
	ModeGray  Mode = "gray"
)

// ParseMode returns light for anything unrecognized.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModeLight, ModeDark, ModeGray:
		return m
	default:
		return ModeLight
	}
}

// Next cycles light -> dark -> gray -> light.
func (m Mode) Next() Mode {
	switch m {
	case ModeLight:
		return ModeDark
	case ModeDark:
		return ModeGray
	default:
		return ModeLight
	}
}

// Preferences are the persisted view settings.
type Preferences struct {
	Mode             Mode `json:"mode"`
	MonthViewVisible bool `json:"monthViewVisible"`
	HideCompleted    bool `json:"hideCompleted"`
}

func DefaultPreferences() Preferences {
	return Preferences{Mode: ModeLight}
}

// State is everything that survives a restart. Its JSON form is the backup
// document produced by export and accepted by import.
type State struct {
	Tasks      map[model.Date][]model.TaskDefinition `json:"tasks"`
	Holidays   schedule.Holidays                     `json:"holidays"`
	Categories []string                              `json:"categories"`
	Preferences
}

// NewState returns an empty state with the given default categories.
func NewState(categories []string) State {
	return State{
		Tasks:       map[model.Date][]model.TaskDefinition{},
		Holidays:    schedule.Holidays{},
		Categories:  schedule.NewCategories(categories).List(),
		Preferences: DefaultPreferences(),
	}
}

// Open returns the KV backend selected by cfg.
func Open(cfg *config.Config) (KV, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.DataPath)
	case config.BackendFile, "":
		return OpenFile(cfg.DataPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Load reads the state from kv. Missing or unreadable entries fall back to
// defaults with a warning; only backend errors are returned.
func Load(kv KV, defaultCategories []string) (State, error) {
	st := NewState(defaultCategories)

	if raw, ok, err := kv.Get(KeyTasks); err != nil {
		return st, err
	} else if ok {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			appLog.Warn("stored tasks are not valid JSON; starting empty", "err", err)
		} else if obj, isObj := v.(map[string]any); isObj {
			st.Tasks = migrateTasks(obj)
		} else {
			appLog.Warn("stored tasks are not an object; starting empty")
		}
	}

	if raw, ok, err := kv.Get(KeyHolidays); err != nil {
		return st, err
	} else if ok {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			if obj, isObj := v.(map[string]any); isObj {
				st.Holidays = migrateHolidays(obj)
			}
		} else {
			appLog.Warn("stored holidays are not valid JSON; ignoring", "err", err)
		}
	}

	if raw, ok, err := kv.Get(KeyCategories); err != nil {
		return st, err
	} else if ok {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			if list, isList := v.([]any); isList {
				st.Categories = migrateCategories(list)
			}
		} else {
			appLog.Warn("stored categories are not valid JSON; using defaults", "err", err)
		}
	}

	if raw, ok, err := kv.Get(KeyMode); err != nil {
		return st, err
	} else if ok {
		st.Mode = ParseMode(raw)
	}
	if raw, ok, err := kv.Get(KeyMonthViewVisible); err != nil {
		return st, err
	} else if ok {
		st.MonthViewVisible = raw == "true"
	}
	if raw, ok, err := kv.Get(KeyHideCompleted); err != nil {
		return st, err
	} else if ok {
		st.HideCompleted = raw == "true"
	}

	return st, nil
}

// Save writes every key in one batch.
func Save(kv KV, st State) error {
	tasks, err := json.Marshal(nonNilTasks(st.Tasks))
	if err != nil {
		return err
	}
	holidays, err := json.Marshal(nonNilHolidays(st.Holidays))
	if err != nil {
		return err
	}
	categories, err := json.Marshal(schedule.NewCategories(st.Categories).List())
	if err != nil {
		return err
	}
	return kv.SetMany(map[string]string{
		KeyTasks:            string(tasks),
		KeyHolidays:         string(holidays),
		KeyCategories:       string(categories),
		KeyMode:             string(ParseMode(string(st.Mode))),
		KeyMonthViewVisible: strconv.FormatBool(st.MonthViewVisible),
		KeyHideCompleted:    strconv.FormatBool(st.HideCompleted),
	})
}

// EncodeDocument renders st as the 2-space indented backup document.
func EncodeDocument(st State) ([]byte, error) {
	st.Tasks = nonNilTasks(st.Tasks)
	st.Holidays = nonNilHolidays(st.Holidays)
	st.Categories = schedule.NewCategories(st.Categories).List()
	st.Mode = ParseMode(string(st.Mode))
	return json.MarshalIndent(st, "", "  ")
}

// ParseDocument validates and migrates a backup document. The root must be
// an object and each known field must have the right JSON shape, otherwise
// the whole document is rejected with model.ErrMalformedImport. Inside the
// tasks object, invalid date keys, non-array values and non-object entries
// are skipped the same way Load skips them.
func ParseDocument(data []byte, defaultCategories []string) (State, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return State{}, fmt.Errorf("parse backup: %w: %v", model.ErrMalformedImport, err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return State{}, fmt.Errorf("parse backup: root is not an object: %w", model.ErrMalformedImport)
	}

	st := NewState(defaultCategories)

	if raw, present := root["tasks"]; present && raw != nil {
		obj, isObj := raw.(map[string]any)
		if !isObj {
			return State{}, fmt.Errorf("parse backup: tasks is not an object: %w", model.ErrMalformedImport)
		}
		st.Tasks = migrateTasks(obj)
	}
	if raw, present := root["holidays"]; present && raw != nil {
		obj, isObj := raw.(map[string]any)
		if !isObj {
			return State{}, fmt.Errorf("parse backup: holidays is not an object: %w", model.ErrMalformedImport)
		}
		st.Holidays = migrateHolidays(obj)
	}
	if raw, present := root["categories"]; present && raw != nil {
		list, isList := raw.([]any)
		if !isList {
			return State{}, fmt.Errorf("parse backup: categories is not an array: %w", model.ErrMalformedImport)
		}
		st.Categories = migrateCategories(list)
	}
	if s, isStr := root["mode"].(string); isStr {
		st.Mode = ParseMode(s)
	}
	if b, isBool := root["monthViewVisible"].(bool); isBool {
		st.MonthViewVisible = b
	}
	if b, isBool := root["hideCompleted"].(bool); isBool {
		st.HideCompleted = b
	}
	return st, nil
}

func migrateTasks(obj map[string]any) map[model.Date][]model.TaskDefinition {
	out := make(map[model.Date][]model.TaskDefinition, len(obj))
	for rawKey, rawList := range obj {
		key, err := model.ParseDate(rawKey)
		if err != nil {
			appLog.Warn("skipping invalid date key", "key", rawKey)
			continue
		}
		list, ok := rawList.([]any)
		if !ok {
			appLog.Warn("skipping invalid task array", "key", rawKey)
			continue
		}
		for i, item := range list {
			def, ok := model.DefinitionFromLoose(key, item)
			if !ok {
				appLog.Warn("skipping malformed task", "key", rawKey, "index", i)
				continue
			}
			out[key] = append(out[key], def)
		}
	}
	return out
}

func migrateHolidays(obj map[string]any) schedule.Holidays {
	out := schedule.Holidays{}
	for rawKey, v := range obj {
		d, err := model.ParseDate(rawKey)
		if err != nil {
			appLog.Warn("skipping invalid holiday date", "key", rawKey)
			continue
		}
		if on, _ := v.(bool); on {
			out.Set(d, true)
		}
	}
	return out
}

func migrateCategories(list []any) []string {
	names := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return schedule.NewCategories(names).List()
}

func nonNilTasks(m map[model.Date][]model.TaskDefinition) map[model.Date][]model.TaskDefinition {
	if m == nil {
		return map[model.Date][]model.TaskDefinition{}
	}
	for k, list := range m {
		for i := range list {
			if list[i].Exceptions == nil {
				list[i].Exceptions = []model.Date{}
			}
		}
		m[k] = list
	}
	return m
}

func nonNilHolidays(h schedule.Holidays) schedule.Holidays {
	if h == nil {
		return schedule.Holidays{}
	}
	return h
}
