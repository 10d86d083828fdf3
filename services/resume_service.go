package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
)

const (
	defaultAssistantTimeout = 30 * time.Second
	defaultMaxResumeLength  = 20000
	defaultJobTitle         = "Software Developer"
)

// ResumeService scores a resume against a target job title. Results are
// returned to the caller and not stored.
type ResumeService struct {
	generator StructuredGenerator
	users     CurrentUserProvider
	schema    assessment.Schema

	generationTimeout time.Duration
	maxLength         int
	now               func() time.Time
}

func NewResumeService(generator StructuredGenerator, users CurrentUserProvider, cfg AssistantConfig) *ResumeService {
	if users == nil {
		users = ContextUserProvider{}
	}
	s := &ResumeService{
		generator:         generator,
		users:             users,
		schema:            assessment.ResumeSchema(),
		generationTimeout: cfg.GenerationTimeout,
		maxLength:         cfg.MaxResumeLength,
		now:               time.Now,
	}
	if s.generationTimeout <= 0 {
		s.generationTimeout = defaultAssistantTimeout
	}
	if s.maxLength <= 0 {
		s.maxLength = defaultMaxResumeLength
	}
	return s
}

type AnalyzeResumeRequest struct {
	ResumeText string `json:"resume_text"`
	JobTitle   string `json:"job_title"`
}

// ResumeReport is a validated resume analysis with how it was produced
type ResumeReport struct {
	*assessment.ResumeAnalysis
	JobTitle         string    `json:"jobTitle"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
}

// AnalyzeResume asks the structured generator for a scored review and
// rejects output that does not satisfy the resume schema.
func (s *ResumeService) AnalyzeResume(ctx context.Context, req AnalyzeResumeRequest) (*ResumeReport, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	text := strings.TrimSpace(req.ResumeText)
	switch {
	case text == "":
		return nil, apperrors.NewValidationError("resume_text", "is required")
	case utf8.RuneCountInString(text) > s.maxLength:
		return nil, apperrors.NewValidationError("resume_text", fmt.Sprintf("exceeds %d characters", s.maxLength))
	}
	jobTitle := strings.TrimSpace(req.JobTitle)
	if jobTitle == "" {
		jobTitle = defaultJobTitle
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	start := s.now()
	result, err := s.generator.GenerateStructured(genCtx, buildResumePrompt(text, jobTitle, s.schema), s.schema)
	elapsed := s.now().Sub(start)
	if err != nil {
		slog.Error("Resume analysis failed", "error", err, "user_id", user.ID)
		return nil, asGenerationError(genCtx, err)
	}

	analysis, err := assessment.DecodeResume(result.Raw)
	if err == nil {
		err = s.schema.ValidateResume(analysis)
	}
	if err != nil {
		slog.Error("Generated resume analysis rejected", "error", err, "provider", result.Provider, "model", result.Model, "user_id", user.ID)
		return nil, err
	}

	slog.Info("Resume analyzed", "user_id", user.ID, "job_title", jobTitle, "score", analysis.TotalScore, "duration_ms", elapsed.Milliseconds())
	return &ResumeReport{
		ResumeAnalysis:   analysis,
		JobTitle:         jobTitle,
		Provider:         result.Provider,
		Model:            result.Model,
		ProcessingTimeMs: elapsed.Milliseconds(),
		AnalyzedAt:       s.now().UTC(),
	}, nil
}
