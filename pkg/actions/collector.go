package actions

import (
	"context"
	"sync"

	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
)

// Collector is a say handler that buffers messages per session until drained.
// Servers use it to return what was said during a turn.
type Collector struct {
	mu   sync.Mutex
	msgs map[string][]string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{msgs: make(map[string][]string)}
}

// Say records msg for the session and completes the step.
func (c *Collector) Say(ctx context.Context, sessionID string, wc domain.Context, msg string, done registry.SayDone) {
	c.mu.Lock()
	c.msgs[sessionID] = append(c.msgs[sessionID], msg)
	c.mu.Unlock()
	done()
}

// Drain returns and forgets the messages buffered for the session.
func (c *Collector) Drain(sessionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.msgs[sessionID]
	delete(c.msgs, sessionID)
	return msgs
}
