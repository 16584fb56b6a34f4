package runtime_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
)

type converseCall struct {
	text    *string
	context domain.Context
}

// scriptedTransport replays instructions in order and repeats the last one
// once the script is exhausted.
type scriptedTransport struct {
	mu     sync.Mutex
	script []*domain.Instruction
	errAt  map[int]error
	calls  []converseCall
}

func newScript(steps ...*domain.Instruction) *scriptedTransport {
	return &scriptedTransport{script: steps, errAt: map[int]error{}}
}

func (t *scriptedTransport) Converse(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := len(t.calls)
	t.calls = append(t.calls, converseCall{text: text, context: c.MustClone()})

	if err, ok := t.errAt[idx]; ok {
		return nil, err
	}
	if idx >= len(t.script) {
		idx = len(t.script) - 1
	}
	return t.script[idx], nil
}

func (t *scriptedTransport) Message(ctx context.Context, text string, c domain.Context) (*domain.Meaning, error) {
	return nil, errors.New("not used")
}

func (t *scriptedTransport) Calls() []converseCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]converseCall(nil), t.calls...)
}

// recorder captures handler invocations in order.
type recorder struct {
	mu       sync.Mutex
	invoked  []string
	messages []string
	errors   []error
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoked = append(r.invoked, name)
}

func (r *recorder) Invoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.invoked...)
}

// baseActions returns say, merge and error handlers that record and pass the context through.
func (r *recorder) baseActions() registry.Actions {
	return registry.Actions{
		Say: func(ctx context.Context, sessionID string, c domain.Context, msg string, done registry.SayDone) {
			r.record("say")
			r.mu.Lock()
			r.messages = append(r.messages, msg)
			r.mu.Unlock()
			done()
		},
		Merge: func(ctx context.Context, sessionID string, c domain.Context, entities domain.Entities, message string, done registry.Done) {
			r.record("merge")
			done(c)
		},
		Error: func(ctx context.Context, sessionID string, c domain.Context, err error) {
			r.record("error")
			r.mu.Lock()
			r.errors = append(r.errors, err)
			r.mu.Unlock()
		},
	}
}

// partialActions resolves only the handlers it was given.
type partialActions struct {
	say   registry.SayFunc
	merge registry.MergeFunc
	err   registry.ErrorFunc
	named map[string]registry.ActionFunc
}

func (p partialActions) Say() (registry.SayFunc, bool)     { return p.say, p.say != nil }
func (p partialActions) Merge() (registry.MergeFunc, bool) { return p.merge, p.merge != nil }
func (p partialActions) Error() (registry.ErrorFunc, bool) { return p.err, p.err != nil }
func (p partialActions) Action(name string) (registry.ActionFunc, bool) {
	fn, ok := p.named[name]
	return fn, ok
}
