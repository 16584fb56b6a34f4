package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ptab/wit/pkg/domain"
)

// resolver is handed to handler adapters to report the outcome of a step.
type resolver interface {
	resolve(next domain.Context, err error)
}

type outcome struct {
	next domain.Context
	err  error
}

// completion accepts the first outcome of a handler and ignores the rest.
type completion struct {
	ch     chan outcome
	once   sync.Once
	dog    *watchdog
	logger *slog.Logger
	action string
}

// resolve copies next before returning, so later writes by the handler to the
// map it supplied never reach the engine.
func (c *completion) resolve(next domain.Context, err error) {
	first := false
	c.once.Do(func() {
		first = true
		c.dog.stop()
		o := outcome{err: err}
		if err == nil {
			o.next, o.err = next.Clone()
			if o.err != nil {
				o.err = fmt.Errorf("context returned by %s: %w", c.action, o.err)
			}
		}
		c.ch <- o
	})
	if !first {
		c.logger.Warn("action callback called more than once, ignoring", "action", c.action)
	}
}

// await invokes a handler with a clone of current and waits for its completion.
// The returned context is the copy taken at completion; nil becomes empty.
func (e *Engine) await(ctx context.Context, s step, action string, current domain.Context, invoke func(domain.Context, resolver)) (domain.Context, error) {
	clone, err := current.Clone()
	if err != nil {
		return nil, err
	}

	c := &completion{
		ch:     make(chan outcome, 1),
		logger: s.logger,
		action: action,
	}
	c.dog = e.arm(ctx, s, action)

	start := time.Now()
	e.emitActionCall(ctx, s, action)
	invoke(clone, c)

	select {
	case o := <-c.ch:
		e.emitActionReturn(ctx, s, action, time.Since(start), o.err != nil)
		if o.err != nil {
			return nil, o.err
		}
		return o.next, nil
	case <-ctx.Done():
		c.dog.stop()
		return nil, ctx.Err()
	}
}
