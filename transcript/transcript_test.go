package transcript

import (
	"fmt"
	"strings"
	"testing"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	turns := []Turn{
		{Role: RoleAssistant, Content: "Tell me about yourself."},
		{Role: RoleUser, Content: "I build backend services in Go."},
		{Role: RoleSystem, Content: "Call ended"},
	}

	got, err := Normalize(turns)
	require.NoError(t, err)
	assert.Equal(t, "1. ASSISTANT: Tell me about yourself.\n2. USER: I build backend services in Go.\n3. SYSTEM: Call ended", got)
}

func TestNormalizeLinePerTurn(t *testing.T) {
	for _, n := range []int{1, 2, 9, 10, 25} {
		t.Run(fmt.Sprintf("%d turns", n), func(t *testing.T) {
			turns := make([]Turn, n)
			for i := range turns {
				role := RoleUser
				if i%2 == 0 {
					role = RoleAssistant
				}
				turns[i] = Turn{Role: role, Content: fmt.Sprintf("line one\nline two %d\r\n", i)}
			}

			got, err := Normalize(turns)
			require.NoError(t, err)

			lines := strings.Split(got, "\n")
			require.Len(t, lines, n)
			for i, line := range lines {
				assert.True(t, strings.HasPrefix(line, fmt.Sprintf("%d. ", i+1)), "line %d: %q", i+1, line)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}}
	first, err := Normalize(turns)
	require.NoError(t, err)
	second, err := Normalize(turns)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		turns     []Turn
		wantField string
	}{
		{name: "empty", turns: nil, wantField: "transcript"},
		{name: "bad role", turns: []Turn{{Role: "interviewer", Content: "hi"}}, wantField: "transcript[0].role"},
		{name: "blank content", turns: []Turn{{Role: RoleUser, Content: "ok"}, {Role: RoleUser, Content: "  "}}, wantField: "transcript[1].content"},
		{name: "valid", turns: []Turn{{Role: RoleUser, Content: "ok"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.turns)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidation)
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}
