package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
)

// Prompt is a single generation request.
type Prompt struct {
	System string
	User   string
}

// GenerationResult is the raw output of a generation backend.
type GenerationResult struct {
	Raw      []byte
	Provider string
	Model    string
}

// StructuredGenerator produces a JSON object constrained by schema. Any
// upstream failure is returned as *apperrors.GenerationError. The output is
// untrusted and must be validated by the caller.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt Prompt, schema assessment.Schema) (*GenerationResult, error)
}

// TextGenerator produces free text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt Prompt) (*GenerationResult, error)
}

// Generator is implemented by every backend.
type Generator interface {
	StructuredGenerator
	TextGenerator
}

var (
	_ Generator = (*GeminiService)(nil)
	_ Generator = (*OpenRouterService)(nil)
)

// NewGenerator builds the backend selected by cfg.Provider.
func NewGenerator(ctx context.Context, cfg AIConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini api key is not configured")
		}
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter api key is not configured")
		}
		return NewOpenRouterService(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// unavailableGenerator stands in when no backend is configured so the API
// still serves stored data and reports generation as failed.
type unavailableGenerator struct {
	reason string
}

func (g unavailableGenerator) GenerateStructured(context.Context, Prompt, assessment.Schema) (*GenerationResult, error) {
	return nil, &apperrors.GenerationError{Diagnostic: g.reason}
}

func (g unavailableGenerator) GenerateText(context.Context, Prompt) (*GenerationResult, error) {
	return nil, &apperrors.GenerationError{Diagnostic: g.reason}
}
