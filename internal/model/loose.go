package model

import (
	"slices"
	"strings"
)

// DefinitionFromLoose builds a complete definition from an untyped JSON
// value found under key in stored or imported data. Legacy entries that are
// a bare string become a description with every other field defaulted.
// Unknown or ill-typed fields fall back to defaults. ok is false only when
// v is neither a string nor an object.
func DefinitionFromLoose(key Date, v any) (def TaskDefinition, ok bool) {
	def = TaskDefinition{
		Category:     DefaultCategory,
		Priority:     PriorityMedium,
		Recurrence:   RecurrenceNone,
		OriginalDate: key,
		Exceptions:   []Date{},
	}

	switch raw := v.(type) {
	case string:
		def.ID = NewID()
		def.Description = raw
		return def, true
	case map[string]any:
		def.ID = looseString(raw["id"])
		if def.ID == "" {
			def.ID = NewID()
		}
		def.Description = looseString(raw["description"])
		if c := strings.TrimSpace(looseString(raw["category"])); c != "" {
			def.Category = c
		}
		if b, isBool := raw["completed"].(bool); isBool {
			def.Completed = b
		}
		if tm, err := ParseTime(looseString(raw["time"])); err == nil {
			def.Time = tm
		}
		if p, err := ParsePriority(looseString(raw["priority"])); err == nil {
			def.Priority = p
		}
		if r, err := ParseRecurrence(looseString(raw["recurrence"])); err == nil {
			def.Recurrence = r
		}
		if d, err := ParseDate(looseString(raw["originalDate"])); err == nil {
			def.OriginalDate = d
		}
		if list, isList := raw["exceptions"].([]any); isList {
			def.Exceptions = looseExceptions(list, def.OriginalDate)
		}
		return def, true
	default:
		return TaskDefinition{}, false
	}
}

// looseExceptions keeps valid, unique dates not before start, in order.
func looseExceptions(list []any, start Date) []Date {
	out := make([]Date, 0, len(list))
	for _, item := range list {
		d, err := ParseDate(looseString(item))
		if err != nil || d.Before(start) || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func looseString(v any) string {
	s, _ := v.(string)
	return s
}
