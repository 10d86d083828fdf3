// Package transcript turns the turns collected during a voice interview into
// the numbered text block embedded in feedback prompts.
package transcript

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/krshsl/praxis/feedback/apperrors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSystem, RoleAssistant:
		return true
	}
	return false
}

// Turn is a single message of an interview conversation.
type Turn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ErrEmptyTranscript is returned for a transcript without turns.
var ErrEmptyTranscript = apperrors.NewValidationError("transcript", "must contain at least one turn")

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Validate checks that the transcript is non-empty, every role is known and
// every turn has content.
func Validate(turns []Turn) error {
	if len(turns) == 0 {
		return ErrEmptyTranscript
	}
	for i, t := range turns {
		if !t.Role.Valid() {
			return apperrors.NewValidationError(fmt.Sprintf("transcript[%d].role", i), fmt.Sprintf("%q is not one of user, system, assistant", t.Role))
		}
		if strings.TrimSpace(t.Content) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("transcript[%d].content", i), "must not be empty")
		}
	}
	return nil
}

// Normalize renders turns as "<n>. <ROLE>: <content>" lines, numbered from 1.
// Line breaks inside content are folded into spaces so the output always has
// one line per turn.
func Normalize(turns []Turn) (string, error) {
	if err := Validate(turns); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(strings.ToUpper(string(t.Role)))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(lineBreaks.Replace(t.Content)))
	}
	return b.String(), nil
}
