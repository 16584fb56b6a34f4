// Package actions provides ready-made handlers for the mandatory actions.
package actions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
)

// Transcript returns a say handler that writes each message on its own line.
// Writes are serialised so concurrent sessions do not interleave lines.
func Transcript(w io.Writer) registry.SayFunc {
	var mu sync.Mutex
	return func(ctx context.Context, sessionID string, c domain.Context, msg string, done registry.SayDone) {
		mu.Lock()
		fmt.Fprintln(w, msg)
		mu.Unlock()
		done()
	}
}

// MergeEntities is a merge handler that stores the best value of every entity
// under the entity name. Entities without a value are skipped.
func MergeEntities(ctx context.Context, sessionID string, c domain.Context, entities domain.Entities, message string, done registry.Done) {
	for name := range entities {
		if v, ok := FirstEntityValue(entities, name); ok {
			c[name] = v
		}
	}
	done(c)
}

// FirstEntityValue returns the value of the first entity found under name.
// Object values of the form {"value": x} are unwrapped.
func FirstEntityValue(entities domain.Entities, name string) (any, bool) {
	values, ok := entities[name]
	if !ok || len(values) == 0 {
		return nil, false
	}
	v := values[0].Value
	if obj, isObj := v.(map[string]any); isObj {
		if inner, hasValue := obj["value"]; hasValue {
			v = inner
		}
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

// LogError returns an error handler that logs the failure. A nil logger discards it.
func LogError(logger *slog.Logger) registry.ErrorFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, sessionID string, c domain.Context, err error) {
		logger.ErrorContext(ctx, "conversation error", "session_id", sessionID, "err", err)
	}
}

// PrintError returns an error handler that writes the failure to w.
func PrintError(w io.Writer) registry.ErrorFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, err error) {
		fmt.Fprintf(w, "Oops, I don't know what to do. (%v)\n", err)
	}
}

// Set returns a named action that assigns fixed values in the context.
func Set(values domain.Context) registry.ActionFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
		for k, v := range values.MustClone() {
			c[k] = v
		}
		done(c)
	}
}

// Clear returns a named action that removes keys from the context.
func Clear(keys ...string) registry.ActionFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
		for _, k := range keys {
			delete(c, k)
		}
		done(c)
	}
}
