package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the persisted snapshot of one conversation.
type Session struct {
	// ID correlates every step of the conversation on the remote side.
	ID string `json:"id"`

	// Context is the authoritative context after the last completed turn.
	Context Context `json:"context"`

	// Turns counts the completed conversation turns.
	Turns int `json:"turns"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session with an empty context.
// An empty id is replaced with a generated one.
func NewSession(id string) *Session {
	if id == "" {
		id = NewSessionID()
	}
	return &Session{
		ID:        id,
		Context:   Context{},
		UpdatedAt: time.Now().UTC(),
	}
}

// NewSessionID generates an opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Snapshot returns a deep copy of the session.
// Context values that are not JSON kinds are dropped from the copy.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	ctx, err := s.Context.Clone()
	if err != nil {
		ctx = Context{}
		for k, v := range s.Context {
			if cv, cerr := cloneValue(v); cerr == nil {
				ctx[k] = cv
			}
		}
	}
	out.Context = ctx
	return &out
}
