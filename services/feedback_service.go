package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
	"github.com/krshsl/praxis/feedback/authz"
	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/stats"
	"github.com/krshsl/praxis/feedback/transcript"
	"gorm.io/datatypes"
)

const (
	defaultGenerationTimeout = 30 * time.Second
	defaultHistoryLimit      = 10
	maxListLimit             = 50

	// EventFeedbackCreated is pushed to the owner's websocket clients
	EventFeedbackCreated = "feedback.created"
)

// Notifier delivers events to a user's connected clients
type Notifier interface {
	NotifyUser(userID, eventType string, payload interface{})
}

// FeedbackService generates, stores and serves interview feedback
type FeedbackService struct {
	store     FeedbackStore
	generator StructuredGenerator
	users     CurrentUserProvider
	stats     *StatsUpdater
	notifier  Notifier
	schema    assessment.Schema

	generationTimeout time.Duration
	historyLimit      int
	now               func() time.Time
}

// FeedbackServiceDeps groups the collaborators of a FeedbackService.
// Notifier may be nil.
type FeedbackServiceDeps struct {
	Store     FeedbackStore
	Generator StructuredGenerator
	Users     CurrentUserProvider
	Stats     *StatsUpdater
	Notifier  Notifier
}

func NewFeedbackService(deps FeedbackServiceDeps, cfg FeedbackConfig) *FeedbackService {
	s := &FeedbackService{
		store:             deps.Store,
		generator:         deps.Generator,
		users:             deps.Users,
		stats:             deps.Stats,
		notifier:          deps.Notifier,
		schema:            assessment.DefaultSchema(),
		generationTimeout: cfg.GenerationTimeout,
		historyLimit:      cfg.HistoryLimit,
		now:               time.Now,
	}
	if s.users == nil {
		s.users = ContextUserProvider{}
	}
	if s.stats == nil {
		s.stats = NewStatsUpdater(deps.Store, defaultStatsAttempts)
	}
	if s.generationTimeout <= 0 {
		s.generationTimeout = defaultGenerationTimeout
	}
	if s.historyLimit <= 0 {
		s.historyLimit = defaultHistoryLimit
	}
	return s
}

// CreateFeedbackRequest is the input of CreateFeedback
type CreateFeedbackRequest struct {
	UserID      string            `json:"user_id"`
	InterviewID string            `json:"interview_id"`
	Transcript  []transcript.Turn `json:"transcript"`
}

func (r CreateFeedbackRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(r.InterviewID) == "" {
		return apperrors.NewValidationError("interview_id", "is required")
	}
	if !validID(r.InterviewID) {
		return apperrors.NewValidationError("interview_id", "is not a valid id")
	}
	return transcript.Validate(r.Transcript)
}

// CreateFeedback scores a finished interview and stores the result.
//
// Input, authorization and interview checks all happen before the generator
// is called. Once the feedback row is written its id is returned even when
// the stats update fails; that error wraps ErrConcurrentUpdate or
// ErrPersistence and the StatsReconciler finishes the update later.
func (s *FeedbackService) CreateFeedback(ctx context.Context, req CreateFeedbackRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	user, err := s.currentUser(ctx)
	if err != nil {
		return "", err
	}
	if err := authz.Require(req.UserID, user); err != nil {
		slog.Warn("Unauthorized feedback creation attempt", "user_id", req.UserID, "interview_id", req.InterviewID)
		return "", err
	}

	interview, err := s.store.GetInterview(ctx, req.InterviewID)
	if err != nil {
		return "", &apperrors.PersistenceError{Op: "load interview", Err: err}
	}
	if interview == nil || !interview.VisibleTo(user.ID) {
		return "", apperrors.ErrInterviewNotFound
	}

	normalized, err := transcript.Normalize(req.Transcript)
	if err != nil {
		return "", err
	}
	prompt := buildFeedbackPrompt(interview, normalized, len(req.Transcript), s.schema)

	slog.Info("Generating feedback", "user_id", req.UserID, "interview_id", req.InterviewID, "turns", len(req.Transcript))

	// The paid generation call and the writes after it must not be cut short
	// by the caller going away, only by the generation timeout.
	detached := context.WithoutCancel(ctx)
	genCtx, cancel := context.WithTimeout(detached, s.generationTimeout)
	defer cancel()

	start := s.now()
	result, err := s.generator.GenerateStructured(genCtx, prompt, s.schema)
	elapsed := s.now().Sub(start)
	if err != nil {
		return "", asGenerationError(genCtx, err)
	}

	parsed, err := assessment.Decode(result.Raw)
	if err == nil {
		err = s.schema.Validate(parsed)
	}
	if err != nil {
		slog.Error("Generated assessment rejected", "error", err, "provider", result.Provider, "model", result.Model,
			"user_id", req.UserID, "interview_id", req.InterviewID)
		return "", err
	}

	feedback := &models.Feedback{
		ID:                  uuid.NewString(),
		InterviewID:         interview.ID,
		UserID:              req.UserID,
		TotalScore:          parsed.TotalScore,
		CategoryScores:      datatypes.JSONSlice[assessment.CategoryScore](parsed.CategoryScores),
		Strengths:           datatypes.JSONSlice[string](parsed.Strengths),
		AreasForImprovement: datatypes.JSONSlice[string](parsed.AreasForImprovement),
		FinalAssessment:     parsed.FinalAssessment,
		InterviewContext: datatypes.NewJSONType(models.InterviewContext{
			Role:             interview.Role,
			Level:            interview.Level,
			Type:             interview.Type,
			TechStack:        interview.TechStack,
			TranscriptLength: len(req.Transcript),
		}),
		Metadata: datatypes.NewJSONType(models.GenerationMetadata{
			Provider:         result.Provider,
			Model:            result.Model,
			ProcessingTimeMs: elapsed.Milliseconds(),
			PromptVersion:    PromptVersion,
		}),
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateFeedback(detached, feedback); err != nil {
		payload, _ := json.Marshal(parsed)
		slog.Error("Failed to persist feedback, assessment logged for recovery",
			"error", err,
			"feedback_id", feedback.ID,
			"user_id", feedback.UserID,
			"interview_id", feedback.InterviewID,
			"provider", result.Provider,
			"model", result.Model,
			"assessment", string(payload))
		return "", &apperrors.PersistenceError{Op: "create feedback", Err: err}
	}

	if _, err := s.stats.Apply(detached, feedback); err != nil {
		slog.Error("Failed to update user stats, left for reconciliation", "error", err, "feedback_id", feedback.ID, "user_id", feedback.UserID)
		return feedback.ID, err
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(feedback.UserID, EventFeedbackCreated, map[string]interface{}{
			"feedback_id":  feedback.ID,
			"interview_id": feedback.InterviewID,
			"total_score":  feedback.TotalScore,
		})
	}

	slog.Info("Feedback created", "feedback_id", feedback.ID, "user_id", feedback.UserID,
		"interview_id", feedback.InterviewID, "total_score", feedback.TotalScore, "duration_ms", elapsed.Milliseconds())
	return feedback.ID, nil
}

// asGenerationError makes sure every generator failure reaches the caller as
// a GenerationError
func asGenerationError(ctx context.Context, err error) error {
	var genErr *apperrors.GenerationError
	if errors.As(err, &genErr) {
		if !genErr.Timeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			genErr.Timeout = true
		}
		return genErr
	}
	return &apperrors.GenerationError{
		Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:     err,
	}
}

// GetFeedbackByInterview returns the newest active feedback of userID for
// an interview, or nil when there is none yet
func (s *FeedbackService) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	if interviewID == "" || userID == "" {
		return nil, apperrors.NewValidationError("interview_id", "and user_id are required")
	}
	if err := s.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if !validID(interviewID) {
		return nil, apperrors.ErrInterviewNotFound
	}

	feedback, err := s.store.LatestFeedback(ctx, interviewID, userID)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load feedback", Err: err}
	}
	return feedback, nil
}

// GetFeedback loads a feedback by id for its owner. Soft deleted records are
// still returned. Records of other users are reported as not found.
func (s *FeedbackService) GetFeedback(ctx context.Context, feedbackID string) (*models.Feedback, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !validID(feedbackID) {
		return nil, apperrors.ErrFeedbackNotFound
	}

	feedback, err := s.store.GetFeedback(ctx, feedbackID)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load feedback", Err: err}
	}
	if feedback == nil || !authz.CheckOwnership(feedback.UserID, user).Authorized {
		return nil, apperrors.ErrFeedbackNotFound
	}
	return feedback, nil
}

// SoftDeleteFeedback hides a feedback from listings. Scores and UserStats are
// left untouched and deleting an already deleted record succeeds.
func (s *FeedbackService) SoftDeleteFeedback(ctx context.Context, feedbackID string) error {
	feedback, err := s.GetFeedback(ctx, feedbackID)
	if err != nil {
		return err
	}
	if feedback.Deleted() {
		return nil
	}

	if err := s.store.SoftDeleteFeedback(ctx, feedback.ID); err != nil {
		return &apperrors.PersistenceError{Op: "delete feedback", Err: err}
	}
	slog.Info("Feedback deleted", "feedback_id", feedback.ID, "user_id", feedback.UserID)
	return nil
}

// ListActiveFeedback returns the user's feedback that is not soft deleted,
// newest first
func (s *FeedbackService) ListActiveFeedback(ctx context.Context, userID string, limit int) ([]models.Feedback, error) {
	if err := s.requireOwner(ctx, userID); err != nil {
		return nil, err
	}

	feedbacks, err := s.store.ListFeedback(ctx, userID, clampLimit(limit, s.historyLimit, maxListLimit), false)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list feedback", Err: err}
	}
	return feedbacks, nil
}

// HistoryView is a user's recent feedback with derived statistics
type HistoryView struct {
	Feedbacks  []models.Feedback `json:"feedbacks"`
	Statistics stats.Summary     `json:"statistics"`
	Stats      models.UserStats  `json:"stats"`
}

// FeedbackHistory summarizes the user's most recent feedback. The summary
// covers deleted records too so trends do not shift when a user tidies their
// list; the returned feedbacks only include active ones.
func (s *FeedbackService) FeedbackHistory(ctx context.Context, userID string, limit int) (*HistoryView, error) {
	if err := s.requireOwner(ctx, userID); err != nil {
		return nil, err
	}

	all, err := s.store.ListFeedback(ctx, userID, clampLimit(limit, s.historyLimit, maxListLimit), true)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list feedback", Err: err}
	}
	if !stats.NewestFirst(all) {
		slog.Warn("Feedback history not ordered newest first, sorting", "user_id", userID)
		sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load user", Err: err}
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}

	active := make([]models.Feedback, 0, len(all))
	for _, f := range all {
		if !f.Deleted() {
			active = append(active, f)
		}
	}

	return &HistoryView{
		Feedbacks:  active,
		Statistics: stats.Summarize(all, true),
		Stats:      user.Stats,
	}, nil
}

func (s *FeedbackService) currentUser(ctx context.Context) (*models.User, error) {
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	return user, nil
}

func (s *FeedbackService) requireOwner(ctx context.Context, ownerID string) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	return authz.Require(ownerID, user)
}

// validID reports whether id can name a stored record. Ids that fail this
// never reach the store, whose uuid columns reject them as driver errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
