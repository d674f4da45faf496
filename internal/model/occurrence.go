package model

// Occurrence is a definition projected onto one concrete date. It is
// derived on demand and never persisted.
type Occurrence struct {
	TaskDefinition

	// Date is the calendar day being viewed.
	Date Date `json:"date"`

	// IsRecurringInstance is true when Date is a later repetition rather
	// than the definition's first day.
	IsRecurringInstance bool `json:"isRecurringInstance"`

	// Key and Index locate the definition in the store at expansion time.
	// Key always equals OriginalDate; Index goes stale after any mutation
	// of the same key, so long-lived references should hold (Key, ID).
	Key   Date `json:"key"`
	Index int  `json:"index"`
}

// Ref is the stable back-reference from an occurrence to its definition.
func (o Occurrence) Ref() Ref {
	return Ref{ID: o.ID, Key: o.Key, Date: o.Date}
}

// Ref identifies one occurrence: the definition (ID stored under Key) and
// the concrete day it was shown on.
type Ref struct {
	ID   string
	Key  Date
	Date Date
}
