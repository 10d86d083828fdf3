package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/krshsl/praxis/feedback/apperrors"
)

const defaultMaxMessageLength = 4000

// ChatService answers interview preparation questions with free text
type ChatService struct {
	generator TextGenerator
	users     CurrentUserProvider

	generationTimeout time.Duration
	maxLength         int
	now               func() time.Time
}

func NewChatService(generator TextGenerator, users CurrentUserProvider, cfg AssistantConfig) *ChatService {
	if users == nil {
		users = ContextUserProvider{}
	}
	s := &ChatService{
		generator:         generator,
		users:             users,
		generationTimeout: cfg.GenerationTimeout,
		maxLength:         cfg.MaxMessageLength,
		now:               time.Now,
	}
	if s.generationTimeout <= 0 {
		s.generationTimeout = defaultAssistantTimeout
	}
	if s.maxLength <= 0 {
		s.maxLength = defaultMaxMessageLength
	}
	return s
}

type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type ChatReply struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply generates one assistant answer. Context carries earlier turns and
// may be at most four messages long.
func (s *ChatService) Reply(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	message := strings.TrimSpace(req.Message)
	previous := strings.TrimSpace(req.Context)
	switch {
	case message == "":
		return nil, apperrors.NewValidationError("message", "is required")
	case utf8.RuneCountInString(message) > s.maxLength:
		return nil, apperrors.NewValidationError("message", fmt.Sprintf("exceeds %d characters", s.maxLength))
	case utf8.RuneCountInString(previous) > 4*s.maxLength:
		return nil, apperrors.NewValidationError("context", fmt.Sprintf("exceeds %d characters", 4*s.maxLength))
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	result, err := s.generator.GenerateText(genCtx, buildChatPrompt(message, previous))
	if err != nil {
		slog.Error("Chat reply failed", "error", err, "user_id", user.ID)
		return nil, asGenerationError(genCtx, err)
	}

	response := strings.TrimSpace(string(result.Raw))
	if response == "" {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"reply is empty"}}
	}

	slog.Info("Chat reply generated", "user_id", user.ID, "provider", result.Provider, "length", len(response))
	return &ChatReply{Response: response, Timestamp: s.now().UTC()}, nil
}
