package witapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ptab/wit/pkg/domain"
)

// converseResponse is the wire shape of a converse step.
type converseResponse struct {
	Type       string          `json:"type"`
	Msg        string          `json:"msg"`
	Action     string          `json:"action"`
	Entities   domain.Entities `json:"entities"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error"`
}

// DecodeInstruction turns a converse response body into an instruction.
// Bodies that are not JSON objects are transport errors; missing or unknown
// types and error payloads decode to a KindError instruction.
func DecodeInstruction(body []byte) (*domain.Instruction, error) {
	var resp *converseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(err)
	}
	if resp == nil {
		return nil, malformed(errors.New("response body is null"))
	}

	if resp.Error != "" {
		return domain.Fail(fmt.Errorf("wit: %s", resp.Error)), nil
	}

	kind, known := domain.ParseKind(resp.Type)
	if !known {
		if resp.Type == "" {
			return domain.Fail(fmt.Errorf("%w: missing instruction type", domain.ErrProtocol)), nil
		}
		return domain.Fail(fmt.Errorf("%w: unknown instruction type %q", domain.ErrProtocol, resp.Type)), nil
	}

	inst := &domain.Instruction{Kind: kind, Confidence: resp.Confidence}
	switch kind {
	case domain.KindStop:
	case domain.KindMessage:
		inst.Message = resp.Msg
	case domain.KindMerge:
		inst.Entities = resp.Entities
		if inst.Entities == nil {
			inst.Entities = domain.Entities{}
		}
	case domain.KindAction:
		if resp.Action == "" {
			return domain.Fail(fmt.Errorf("%w: action instruction without a name", domain.ErrProtocol)), nil
		}
		inst.Action = resp.Action
	case domain.KindError:
		inst.Err = errors.New("wit: the service returned an error step")
	}
	return inst, nil
}
