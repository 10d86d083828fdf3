package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
	"github.com/tidwall/gjson"
)

const openRouterProvider = "openrouter"

// OpenRouterService talks to an OpenAI compatible chat completions API
type OpenRouterService struct {
	client *resty.Client
	model  string
}

func NewOpenRouterService(baseURL, apiKey, model string) *OpenRouterService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &OpenRouterService{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *OpenRouterService) messages(prompt Prompt) []chatMessage {
	var msgs []chatMessage
	if prompt.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: prompt.System})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt.User})
}

// GenerateStructured requests a json_schema constrained completion
func (s *OpenRouterService) GenerateStructured(ctx context.Context, prompt Prompt, schema assessment.Schema) (*GenerationResult, error) {
	body := map[string]interface{}{
		"model":       s.model,
		"messages":    s.messages(prompt),
		"temperature": 0.2,
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schema.Name,
				"strict": true,
				"schema": schema.JSONSchema(),
			},
		},
	}
	return s.complete(ctx, body)
}

// GenerateText requests a plain completion
func (s *OpenRouterService) GenerateText(ctx context.Context, prompt Prompt) (*GenerationResult, error) {
	body := map[string]interface{}{
		"model":       s.model,
		"messages":    s.messages(prompt),
		"temperature": 0.7,
	}
	return s.complete(ctx, body)
}

func (s *OpenRouterService) complete(ctx context.Context, body map[string]interface{}) (*GenerationResult, error) {
	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		genErr := &apperrors.GenerationError{Provider: openRouterProvider, Err: err}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			genErr.Timeout = true
		}
		slog.Error("Failed to call OpenRouter", "error", err, "model", s.model, "timeout", genErr.Timeout)
		return nil, genErr
	}

	if resp.IsError() {
		diag := gjson.GetBytes(resp.Body(), "error.message").String()
		slog.Error("OpenRouter returned an error", "status", resp.StatusCode(), "message", diag, "model", s.model)
		return nil, &apperrors.GenerationError{Provider: openRouterProvider, StatusCode: resp.StatusCode(), Diagnostic: diag}
	}

	// Some upstream errors are reported with a 200 status
	if msg := gjson.GetBytes(resp.Body(), "error.message"); msg.Exists() {
		return nil, &apperrors.GenerationError{
			Provider:   openRouterProvider,
			StatusCode: int(gjson.GetBytes(resp.Body(), "error.code").Int()),
			Diagnostic: msg.String(),
		}
	}

	content := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		reason := gjson.GetBytes(resp.Body(), "choices.0.finish_reason").String()
		return nil, &apperrors.GenerationError{Provider: openRouterProvider, Diagnostic: "empty completion (finish reason " + reason + ")"}
	}

	model := gjson.GetBytes(resp.Body(), "model").String()
	if model == "" {
		model = s.model
	}
	slog.Info("OpenRouter generation completed", "model", model, "duration_ms", time.Since(start).Milliseconds())
	return &GenerationResult{
		Raw:      []byte(strings.TrimSpace(content)),
		Provider: openRouterProvider,
		Model:    model,
	}, nil
}
