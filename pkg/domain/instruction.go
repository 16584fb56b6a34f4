package domain

import "fmt"

// InstructionKind enumerates the instructions the converse endpoint can return.
type InstructionKind int

const (
	// KindError covers explicit errors, wrapper errors and unrecognized types.
	KindError InstructionKind = iota
	// KindStop ends the conversation turn.
	KindStop
	// KindMessage asks the client to say a message (wire type "msg").
	KindMessage
	// KindMerge asks the client to merge extracted entities into the context.
	KindMerge
	// KindAction asks the client to run a named action.
	KindAction
)

// Wire type names used by the converse endpoint.
const (
	TypeStop   = "stop"
	TypeMsg    = "msg"
	TypeMerge  = "merge"
	TypeAction = "action"
	TypeError  = "error"
)

func (k InstructionKind) String() string {
	switch k {
	case KindStop:
		return TypeStop
	case KindMessage:
		return TypeMsg
	case KindMerge:
		return TypeMerge
	case KindAction:
		return TypeAction
	case KindError:
		return TypeError
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a wire type to its kind. Unknown or empty types map to KindError.
func ParseKind(t string) (InstructionKind, bool) {
	switch t {
	case TypeStop:
		return KindStop, true
	case TypeMsg:
		return KindMessage, true
	case TypeMerge:
		return KindMerge, true
	case TypeAction:
		return KindAction, true
	case TypeError:
		return KindError, true
	default:
		return KindError, false
	}
}

// Entity is a single value extracted by the service.
type Entity struct {
	Value      any     `json:"value,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Type       string  `json:"type,omitempty"`
	Suggested  bool    `json:"suggested,omitempty"`
	Body       string  `json:"body,omitempty"`
	Start      int     `json:"start,omitempty"`
	End        int     `json:"end,omitempty"`
}

// Entities maps an entity name to the values found for it, best first.
type Entities map[string][]Entity

// Instruction is one decoded step returned by the converse endpoint.
type Instruction struct {
	Kind InstructionKind

	// Message is set for KindMessage.
	Message string
	// Action is set for KindAction.
	Action string
	// Entities is set for KindMerge.
	Entities Entities
	// Confidence reported by the service for this step.
	Confidence float64
	// Err describes why the step is an error (KindError only).
	Err error
}

// Stop returns a stop instruction.
func Stop() *Instruction { return &Instruction{Kind: KindStop} }

// Say returns a message instruction.
func Say(msg string) *Instruction { return &Instruction{Kind: KindMessage, Message: msg} }

// Merge returns a merge instruction.
func Merge(entities Entities) *Instruction { return &Instruction{Kind: KindMerge, Entities: entities} }

// Act returns a named action instruction.
func Act(name string) *Instruction { return &Instruction{Kind: KindAction, Action: name} }

// Fail returns an error instruction.
func Fail(err error) *Instruction { return &Instruction{Kind: KindError, Err: err} }

// Meaning is the result of a one-shot message query.
type Meaning struct {
	MsgID    string   `json:"msg_id"`
	Text     string   `json:"_text"`
	Entities Entities `json:"entities"`
}
