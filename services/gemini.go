package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
	"google.golang.org/genai"
)

const (
	ModelName = "gemini-2.5-flash"

	geminiProvider   = "gemini"
	breakerThreshold = 5                // consecutive failures before the breaker opens
	breakerCooldown  = 30 * time.Second // how long an open breaker rejects calls
)

// GeminiService generates assessments and question lists with Gemini
type GeminiService struct {
	genaiClient *genai.Client
	model       string

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
}

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = ModelName
	}

	return &GeminiService{
		genaiClient: genaiClient,
		model:       model,
	}, nil
}

// GenerateStructured asks Gemini for JSON constrained by the schema
func (g *GeminiService) GenerateStructured(ctx context.Context, prompt Prompt, schema assessment.Schema) (*GenerationResult, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSchema(schema),
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return g.generate(ctx, prompt.User, config)
}

// GenerateText asks Gemini for a plain text answer
func (g *GeminiService) GenerateText(ctx context.Context, prompt Prompt) (*GenerationResult, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.7)),
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return g.generate(ctx, prompt.User, config)
}

func (g *GeminiService) generate(ctx context.Context, text string, config *genai.GenerateContentConfig) (*GenerationResult, error) {
	if g.genaiClient == nil {
		return nil, &apperrors.GenerationError{Provider: geminiProvider, Diagnostic: "genai client not initialized"}
	}
	if err := g.allow(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := g.genaiClient.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		g.recordFailure()
		genErr := classifyGeminiError(ctx, err)
		slog.Error("Failed to generate content", "error", err, "model", g.model, "status", genErr.StatusCode, "timeout", genErr.Timeout)
		return nil, genErr
	}
	if diag := validateGenerateResponse(result); diag != "" {
		g.recordFailure()
		slog.Error("Gemini returned an unusable response", "model", g.model, "reason", diag)
		return nil, &apperrors.GenerationError{Provider: geminiProvider, Diagnostic: diag}
	}

	g.recordSuccess()
	slog.Info("Gemini generation completed", "model", g.model, "duration_ms", time.Since(start).Milliseconds())
	return &GenerationResult{
		Raw:      []byte(strings.TrimSpace(result.Text())),
		Provider: geminiProvider,
		Model:    g.model,
	}, nil
}

// allow rejects calls while the circuit breaker is open
func (g *GeminiService) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if time.Now().Before(g.openUntil) {
		return &apperrors.GenerationError{Provider: geminiProvider, Diagnostic: "circuit breaker open"}
	}
	return nil
}

func (g *GeminiService) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures++
	if g.consecutiveFailures >= breakerThreshold {
		g.openUntil = time.Now().Add(breakerCooldown)
		slog.Warn("Gemini circuit breaker opened", "failures", g.consecutiveFailures, "cooldown", breakerCooldown)
	}
}

func (g *GeminiService) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures = 0
	g.openUntil = time.Time{}
}

func classifyGeminiError(ctx context.Context, err error) *apperrors.GenerationError {
	genErr := &apperrors.GenerationError{Provider: geminiProvider, Err: err}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		genErr.Timeout = true
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		genErr.StatusCode = apiErr.Code
		genErr.Diagnostic = apiErr.Status
	}
	return genErr
}

func validateGenerateResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "response is nil"
	}
	if len(resp.Candidates) == 0 {
		return "no candidates in response"
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return fmt.Sprintf("candidate has no content (finish reason %s)", candidate.FinishReason)
	}
	if strings.TrimSpace(resp.Text()) == "" {
		return "empty response text"
	}
	return ""
}

// geminiSchema renders the assessment schema in Gemini's response schema
// format. Length limits are enforced afterwards by assessment.Schema.
func geminiSchema(s assessment.Schema) *genai.Schema {
	minScore, maxScore := float64(s.MinScore), float64(s.MaxScore)
	score := &genai.Schema{Type: genai.TypeInteger, Minimum: &minScore, Maximum: &maxScore}
	categories := int64(len(s.Categories))
	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = string(c)
	}
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	properties := map[string]*genai.Schema{
		"totalScore": score,
		"categoryScores": {
			Type:     genai.TypeArray,
			MinItems: &categories,
			MaxItems: &categories,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":    {Type: genai.TypeString, Enum: names, Format: "enum"},
					"score":   score,
					"comment": {Type: genai.TypeString},
				},
				Required:         []string{"name", "score", "comment"},
				PropertyOrdering: []string{"name", "score", "comment"},
			},
		},
		"strengths":           stringList,
		"areasForImprovement": stringList,
		"finalAssessment":     {Type: genai.TypeString},
	}
	for _, l := range s.ExtraLists {
		properties[l.Name] = stringList
	}

	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		Required:         s.RequiredFields(),
		PropertyOrdering: s.RequiredFields(),
	}
}
