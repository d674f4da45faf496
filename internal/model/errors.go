package model

import "errors"

var (
	// ErrInvalidDateFormat is returned for any date that is not a real
	// calendar day written as YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format (want YYYY-MM-DD)")

	// ErrDefinitionNotFound means a (key, index) or (key, id) reference no
	// longer resolves to a stored definition.
	ErrDefinitionNotFound = errors.New("task definition not found")

	// ErrMalformedImport rejects an import payload before any state changes.
	ErrMalformedImport = errors.New("malformed import payload")

	ErrEmptyDescription  = errors.New("task description is empty")
	ErrInvalidTime       = errors.New("invalid time (want HH:MM)")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)
