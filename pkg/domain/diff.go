package domain

import (
	"reflect"
)

// ContextDiff represents the changes a conversation turn made to a session.
// It is designed to be serialized to JSON for partial updates on the client.
type ContextDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Context contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Context map[string]any `json:"context,omitempty"`

	// Turns is set when the turn counter moved.
	Turns *int `json:"turns,omitempty"`
}

// Diff calculates the difference between two session snapshots.
// If old is nil, it returns a diff representing the entire new session.
// It returns nil when nothing changed.
func Diff(old, new *Session) *ContextDiff {
	if new == nil {
		return nil
	}

	diff := &ContextDiff{SessionID: new.ID}

	var oldCtx Context
	if old != nil {
		oldCtx = old.Context
	}
	diff.Context = DiffContext(oldCtx, new.Context)

	if old == nil || old.Turns != new.Turns {
		turns := new.Turns
		diff.Turns = &turns
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// DiffContext returns added or modified keys with their new value and deleted keys with nil.
func DiffContext(old, new Context) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	// Return nil if delta is empty so omitempty can remove the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ContextDiff) IsEmpty() bool {
	return len(d.Context) == 0 && d.Turns == nil
}
