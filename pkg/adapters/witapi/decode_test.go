package witapi

import (
	"testing"

	"github.com/ptab/wit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInstruction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind domain.InstructionKind
		check    func(t *testing.T, inst *domain.Instruction)
	}{
		{
			name:     "Stop",
			body:     `{"type":"stop"}`,
			wantKind: domain.KindStop,
		},
		{
			name:     "Message",
			body:     `{"type":"msg","msg":"It's sunny"}`,
			wantKind: domain.KindMessage,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.Equal(t, "It's sunny", inst.Message)
			},
		},
		{
			name:     "Merge",
			body:     `{"type":"merge","entities":{"location":[{"value":"Paris","suggested":true}]}}`,
			wantKind: domain.KindMerge,
			check: func(t *testing.T, inst *domain.Instruction) {
				require.Len(t, inst.Entities["location"], 1)
				assert.Equal(t, "Paris", inst.Entities["location"][0].Value)
				assert.True(t, inst.Entities["location"][0].Suggested)
			},
		},
		{
			name:     "Merge Without Entities",
			body:     `{"type":"merge"}`,
			wantKind: domain.KindMerge,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.NotNil(t, inst.Entities)
			},
		},
		{
			name:     "Action",
			body:     `{"type":"action","action":"fetch-weather"}`,
			wantKind: domain.KindAction,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.Equal(t, "fetch-weather", inst.Action)
			},
		},
		{
			name:     "Explicit Error",
			body:     `{"type":"error"}`,
			wantKind: domain.KindError,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.Error(t, inst.Err)
			},
		},
		{
			name:     "Wrapper Error",
			body:     `{"error":"invalid session id"}`,
			wantKind: domain.KindError,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.EqualError(t, inst.Err, "wit: invalid session id")
			},
		},
		{
			name:     "Missing Type",
			body:     `{"msg":"orphan"}`,
			wantKind: domain.KindError,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.ErrorIs(t, inst.Err, domain.ErrProtocol)
			},
		},
		{
			name:     "Unknown Type",
			body:     `{"type":"dance"}`,
			wantKind: domain.KindError,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.ErrorIs(t, inst.Err, domain.ErrProtocol)
				assert.Contains(t, inst.Err.Error(), "dance")
			},
		},
		{
			name:     "Action Without Name",
			body:     `{"type":"action"}`,
			wantKind: domain.KindError,
			check: func(t *testing.T, inst *domain.Instruction) {
				assert.ErrorIs(t, inst.Err, domain.ErrProtocol)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := DecodeInstruction([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, inst.Kind)
			if tt.check != nil {
				tt.check(t, inst)
			}
		})
	}
}

func TestDecodeInstruction_Malformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2]`, `{"type":`, `null`, `"stop"`} {
		_, err := DecodeInstruction([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
		assert.ErrorIs(t, err, domain.ErrTransport, body)
	}
}
