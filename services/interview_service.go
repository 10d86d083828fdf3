package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
	"github.com/krshsl/praxis/feedback/authz"
	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/repository"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

const (
	defaultMaxQuestions     = 20
	defaultQuestionCount    = 5
	defaultInterviewPageLen = 20
	defaultQuestionTimeout  = 30 * time.Second
)

// InterviewService creates and lists practice interviews
type InterviewService struct {
	store     InterviewStore
	generator TextGenerator
	users     CurrentUserProvider
	catalog   *TechCatalog

	maxQuestions      int
	defaultQuestions  int
	generationTimeout time.Duration
}

func NewInterviewService(store InterviewStore, generator TextGenerator, users CurrentUserProvider, catalog *TechCatalog, cfg InterviewConfig) *InterviewService {
	if users == nil {
		users = ContextUserProvider{}
	}
	s := &InterviewService{
		store:             store,
		generator:         generator,
		users:             users,
		catalog:           catalog,
		maxQuestions:      cfg.MaxQuestions,
		defaultQuestions:  cfg.DefaultQuestions,
		generationTimeout: cfg.GenerationTimeout,
	}
	if s.maxQuestions <= 0 {
		s.maxQuestions = defaultMaxQuestions
	}
	if s.defaultQuestions <= 0 || s.defaultQuestions > s.maxQuestions {
		s.defaultQuestions = defaultQuestionCount
	}
	if s.generationTimeout <= 0 {
		s.generationTimeout = defaultQuestionTimeout
	}
	return s
}

type CreateInterviewRequest struct {
	Role      string   `json:"role"`
	Level     string   `json:"level"`
	Type      string   `json:"type"`
	TechStack []string `json:"techstack"`
	Questions []string `json:"questions"`
}

// CreateInterview stores a finalized interview owned by the current user
func (s *InterviewService) CreateInterview(ctx context.Context, req CreateInterviewRequest) (*models.Interview, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	interview := &models.Interview{
		UserID:    user.ID,
		Role:      strings.TrimSpace(req.Role),
		Level:     strings.TrimSpace(req.Level),
		Type:      strings.TrimSpace(req.Type),
		TechStack: datatypes.JSONSlice[string](s.normalizeTechStack(req.TechStack)),
		Questions: datatypes.JSONSlice[string](nonBlank(req.Questions)),
		Finalized: true,
	}
	switch {
	case interview.Role == "":
		return nil, apperrors.NewValidationError("role", "is required")
	case interview.Level == "":
		return nil, apperrors.NewValidationError("level", "is required")
	case interview.Type == "":
		return nil, apperrors.NewValidationError("type", "is required")
	case len(interview.TechStack) == 0:
		return nil, apperrors.NewValidationError("techstack", "must list at least one technology")
	case len(interview.Questions) == 0:
		return nil, apperrors.NewValidationError("questions", "must contain at least one question")
	case len(interview.Questions) > s.maxQuestions:
		return nil, apperrors.NewValidationError("questions", fmt.Sprintf("must not contain more than %d questions", s.maxQuestions))
	}

	if err := s.store.CreateInterview(ctx, interview); err != nil {
		return nil, &apperrors.PersistenceError{Op: "create interview", Err: err}
	}
	if err := s.store.IncrementInterviewsCreated(ctx, user.ID); err != nil {
		// the interview exists, the counter is informational
		slog.Error("Failed to increment interviews created", "error", err, "user_id", user.ID, "interview_id", interview.ID)
	}

	slog.Info("Interview created", "interview_id", interview.ID, "user_id", user.ID, "role", interview.Role, "questions", len(interview.Questions))
	return interview, nil
}

type QuestionRequest struct {
	Role      string   `json:"role"`
	Level     string   `json:"level"`
	Type      string   `json:"type"`
	TechStack []string `json:"techstack"`
	Amount    int      `json:"amount"`
}

// GenerateQuestions asks the text generator for interview questions
func (s *InterviewService) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	req.Role = strings.TrimSpace(req.Role)
	req.Level = strings.TrimSpace(req.Level)
	req.Type = strings.TrimSpace(req.Type)
	req.TechStack = s.normalizeTechStack(req.TechStack)
	if req.Amount == 0 {
		req.Amount = s.defaultQuestions
	}
	switch {
	case req.Role == "":
		return nil, apperrors.NewValidationError("role", "is required")
	case req.Level == "":
		return nil, apperrors.NewValidationError("level", "is required")
	case req.Type == "":
		return nil, apperrors.NewValidationError("type", "is required")
	case len(req.TechStack) == 0:
		return nil, apperrors.NewValidationError("techstack", "must list at least one technology")
	case req.Amount < 1 || req.Amount > s.maxQuestions:
		return nil, apperrors.NewValidationError("amount", fmt.Sprintf("must be between 1 and %d", s.maxQuestions))
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	result, err := s.generator.GenerateText(genCtx, buildQuestionsPrompt(req))
	if err != nil {
		slog.Error("Question generation failed", "error", err, "user_id", user.ID)
		return nil, asGenerationError(genCtx, err)
	}

	questions, err := parseQuestions(result.Raw)
	if err != nil {
		slog.Error("Generated questions rejected", "error", err, "provider", result.Provider, "model", result.Model)
		return nil, err
	}
	if len(questions) > req.Amount {
		questions = questions[:req.Amount]
	}
	slog.Info("Questions generated", "user_id", user.ID, "role", req.Role, "count", len(questions))
	return questions, nil
}

func parseQuestions(raw []byte) ([]string, error) {
	body := assessment.StripCodeFence(raw)
	if !gjson.ValidBytes(body) {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"questions are not valid JSON"}}
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"questions are not a JSON array"}}
	}

	var questions []string
	for _, q := range parsed.Array() {
		if q.Type != gjson.String {
			continue
		}
		if text := strings.TrimSpace(q.String()); text != "" {
			questions = append(questions, text)
		}
	}
	if len(questions) == 0 {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"no questions were generated"}}
	}
	return questions, nil
}

// GetInterview returns an interview the current user may see
func (s *InterviewService) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !validID(id) {
		return nil, apperrors.ErrInterviewNotFound
	}

	interview, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load interview", Err: err}
	}
	if interview == nil || !interview.VisibleTo(user.ID) {
		return nil, apperrors.ErrInterviewNotFound
	}
	return interview, nil
}

type ListInterviewsOptions struct {
	Limit  int
	Offset int
	Type   string
	Level  string
}

type InterviewPage struct {
	Interviews []models.Interview `json:"interviews"`
	Total      int64              `json:"total"`
	HasMore    bool               `json:"has_more"`
}

// ListUserInterviews pages through the interviews owned by userID
func (s *InterviewService) ListUserInterviews(ctx context.Context, userID string, opts ListInterviewsOptions) (*InterviewPage, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if err := authz.Require(userID, user); err != nil {
		return nil, err
	}

	return s.page(ctx, repository.InterviewQuery{
		OwnerID: userID,
		Type:    opts.Type,
		Level:   opts.Level,
	}, opts)
}

// ListLatestInterviews pages through finalized interviews of other users
func (s *InterviewService) ListLatestInterviews(ctx context.Context, opts ListInterviewsOptions) (*InterviewPage, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	return s.page(ctx, repository.InterviewQuery{
		ExcludeOwnerID: user.ID,
		FinalizedOnly:  true,
		Type:           opts.Type,
		Level:          opts.Level,
	}, opts)
}

// page fetches one extra row to tell whether another page exists
func (s *InterviewService) page(ctx context.Context, q repository.InterviewQuery, opts ListInterviewsOptions) (*InterviewPage, error) {
	limit := clampLimit(opts.Limit, defaultInterviewPageLen, maxListLimit)
	q.Limit = limit + 1
	if opts.Offset > 0 {
		q.Offset = opts.Offset
	}

	interviews, total, err := s.store.ListInterviews(ctx, q)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list interviews", Err: err}
	}

	page := &InterviewPage{Interviews: interviews, Total: total}
	if len(interviews) > limit {
		page.Interviews = interviews[:limit]
		page.HasMore = true
	}
	if page.Interviews == nil {
		page.Interviews = []models.Interview{}
	}
	return page, nil
}

func (s *InterviewService) normalizeTechStack(techs []string) []string {
	if s.catalog == nil {
		return nonBlank(techs)
	}
	return s.catalog.NormalizeAll(techs)
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
