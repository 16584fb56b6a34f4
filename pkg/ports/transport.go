package ports

import (
	"context"
	"fmt"

	"github.com/ptab/wit/pkg/domain"
)

// Transport performs the remote exchanges with the NLU service.
type Transport interface {
	// Message extracts the meaning of a single sentence without advancing a conversation.
	Message(ctx context.Context, text string, c domain.Context) (*domain.Meaning, error)

	// Converse asks the service for the next step of a conversation.
	// text is nil on every call but the first of a turn.
	// Explicit error instructions are returned as a KindError instruction, not as an error;
	// the error return is reserved for transport failures.
	Converse(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error)
}

// TransportFunc adapts a function to the converse half of Transport.
// Message is not supported and always fails.
type TransportFunc func(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error)

func (f TransportFunc) Converse(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
	return f(ctx, sessionID, text, c)
}

func (f TransportFunc) Message(ctx context.Context, text string, c domain.Context) (*domain.Meaning, error) {
	return nil, fmt.Errorf("%w: message is not supported by TransportFunc", domain.ErrTransport)
}
