package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/ptab/wit/pkg/domain"
)

// Reserved action names.
const (
	ActionSay   = "say"
	ActionMerge = "merge"
	ActionError = "error"
)

// SayDone completes a say step. It must be called with no arguments.
type SayDone func(args ...any)

// Done completes a merge or named action step with the next context.
// A nil context is treated as empty.
type Done func(next domain.Context)

// SayFunc delivers a message to the user.
type SayFunc func(ctx context.Context, sessionID string, c domain.Context, msg string, done SayDone)

// MergeFunc folds extracted entities into the context.
type MergeFunc func(ctx context.Context, sessionID string, c domain.Context, entities domain.Entities, message string, done Done)

// ErrorFunc is notified when the service reports an error. It has no completion.
type ErrorFunc func(ctx context.Context, sessionID string, c domain.Context, err error)

// ActionFunc implements a named action.
type ActionFunc func(ctx context.Context, sessionID string, c domain.Context, done Done)

// Actions is the set of handlers a Registry is built from.
type Actions struct {
	Say   SayFunc
	Merge MergeFunc
	Error ErrorFunc
	Named map[string]ActionFunc
}

// Registry is a read-only mapping from action names to handlers.
type Registry struct {
	say   SayFunc
	merge MergeFunc
	err   ErrorFunc
	named map[string]ActionFunc
}

// New validates the handlers and builds a Registry.
// Say, Merge and Error are required; named actions must be non-nil and must not
// reuse a reserved name.
func New(a Actions) (*Registry, error) {
	if a.Say == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAction, ActionSay)
	}
	if a.Merge == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAction, ActionMerge)
	}
	if a.Error == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAction, ActionError)
	}

	named := make(map[string]ActionFunc, len(a.Named))
	for _, name := range sortedKeys(a.Named) {
		fn := a.Named[name]
		if name == "" {
			return nil, fmt.Errorf("%w: empty action name", domain.ErrInvalidHandler)
		}
		if isReserved(name) {
			return nil, fmt.Errorf("%w: %q is reserved", domain.ErrInvalidHandler, name)
		}
		if fn == nil {
			return nil, fmt.Errorf("%w: %q is nil", domain.ErrInvalidHandler, name)
		}
		named[name] = fn
	}

	return &Registry{say: a.Say, merge: a.Merge, err: a.Error, named: named}, nil
}

// MustNew is like New but panics on invalid handlers.
func MustNew(a Actions) *Registry {
	r, err := New(a)
	if err != nil {
		panic(err)
	}
	return r
}

// FromMap builds a Registry from a dynamically assembled mapping.
// Each value must be a function with exactly the signature of its kind. The
// completion parameter may be the named SayDone/Done type or its plain
// func(...any) / func(domain.Context) form.
func FromMap(m map[string]any) (*Registry, error) {
	var a Actions
	for _, name := range sortedKeys(m) {
		v := m[name]
		if v == nil {
			return nil, fmt.Errorf("%w: %q is nil", domain.ErrInvalidHandler, name)
		}
		switch name {
		case ActionSay:
			fn, ok := asSay(v)
			if !ok {
				return nil, shapeError(name, v)
			}
			a.Say = fn
		case ActionMerge:
			fn, ok := asMerge(v)
			if !ok {
				return nil, shapeError(name, v)
			}
			a.Merge = fn
		case ActionError:
			fn, ok := asError(v)
			if !ok {
				return nil, shapeError(name, v)
			}
			a.Error = fn
		default:
			fn, ok := asAction(v)
			if !ok {
				return nil, shapeError(name, v)
			}
			if a.Named == nil {
				a.Named = make(map[string]ActionFunc)
			}
			a.Named[name] = fn
		}
	}
	return New(a)
}

// Say returns the say handler.
func (r *Registry) Say() (SayFunc, bool) { return r.say, r.say != nil }

// Merge returns the merge handler.
func (r *Registry) Merge() (MergeFunc, bool) { return r.merge, r.merge != nil }

// Error returns the error handler.
func (r *Registry) Error() (ErrorFunc, bool) { return r.err, r.err != nil }

// Action returns the named action handler.
func (r *Registry) Action(name string) (ActionFunc, bool) {
	fn, ok := r.named[name]
	return fn, ok
}

// Names lists every registered action, reserved ones included, sorted.
func (r *Registry) Names() []string {
	names := []string{ActionError, ActionMerge, ActionSay}
	for name := range r.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NotFoundError reports an instruction naming an unregistered action.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No '%s' action found.", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == domain.ErrActionNotFound
}

func isReserved(name string) bool {
	return name == ActionSay || name == ActionMerge || name == ActionError
}

func shapeError(name string, v any) error {
	return fmt.Errorf("%w: %q has type %T", domain.ErrInvalidHandler, name, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asSay(v any) (SayFunc, bool) {
	switch fn := v.(type) {
	case SayFunc:
		return fn, true
	case func(context.Context, string, domain.Context, string, SayDone):
		return fn, true
	case func(context.Context, string, domain.Context, string, func(...any)):
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context, sessionID string, c domain.Context, msg string, done SayDone) {
			fn(ctx, sessionID, c, msg, done)
		}, true
	}
	return nil, false
}

func asMerge(v any) (MergeFunc, bool) {
	switch fn := v.(type) {
	case MergeFunc:
		return fn, true
	case func(context.Context, string, domain.Context, domain.Entities, string, Done):
		return fn, true
	case func(context.Context, string, domain.Context, domain.Entities, string, func(domain.Context)):
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context, sessionID string, c domain.Context, entities domain.Entities, message string, done Done) {
			fn(ctx, sessionID, c, entities, message, done)
		}, true
	}
	return nil, false
}

func asError(v any) (ErrorFunc, bool) {
	switch fn := v.(type) {
	case ErrorFunc:
		return fn, true
	case func(context.Context, string, domain.Context, error):
		return fn, true
	}
	return nil, false
}

func asAction(v any) (ActionFunc, bool) {
	switch fn := v.(type) {
	case ActionFunc:
		return fn, true
	case func(context.Context, string, domain.Context, Done):
		return fn, true
	case func(context.Context, string, domain.Context, func(domain.Context)):
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context, sessionID string, c domain.Context, done Done) {
			fn(ctx, sessionID, c, done)
		}, true
	}
	return nil, false
}
