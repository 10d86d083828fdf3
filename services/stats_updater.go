package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/stats"
)

const defaultStatsAttempts = 3

// StatsUpdater folds a feedback score into its owner's UserStats with an
// optimistic read, recompute, conditional write loop.
type StatsUpdater struct {
	store       FeedbackStore
	maxAttempts int
	backoff     time.Duration
}

func NewStatsUpdater(store FeedbackStore, maxAttempts int) *StatsUpdater {
	if maxAttempts <= 0 {
		maxAttempts = defaultStatsAttempts
	}
	return &StatsUpdater{store: store, maxAttempts: maxAttempts, backoff: 20 * time.Millisecond}
}

// Apply counts feedback in its owner's stats. A feedback that was already
// counted is left alone and the current stats are returned.
func (u *StatsUpdater) Apply(ctx context.Context, feedback *models.Feedback) (models.UserStats, error) {
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		user, err := u.store.GetUserByID(ctx, feedback.UserID)
		if err != nil {
			return models.UserStats{}, &apperrors.PersistenceError{Op: "load user stats", Err: err}
		}
		if user == nil {
			return models.UserStats{}, fmt.Errorf("user %s: %w", feedback.UserID, apperrors.ErrNotFound)
		}

		next, err := stats.Recompute(user.Stats, feedback.TotalScore)
		if err != nil {
			return models.UserStats{}, err
		}

		err = u.store.CommitFeedbackStats(ctx, feedback.ID, feedback.UserID, user.StatsVersion, next)
		switch {
		case err == nil:
			slog.Info("User stats updated", "user_id", feedback.UserID, "feedback_id", feedback.ID,
				"interviews_completed", next.InterviewsCompleted, "average_score", next.AverageScore)
			return next, nil
		case errors.Is(err, apperrors.ErrAlreadyApplied):
			slog.Info("Feedback stats already applied", "feedback_id", feedback.ID)
			return user.Stats, nil
		case errors.Is(err, apperrors.ErrVersionConflict):
			slog.Warn("User stats version conflict, retrying", "user_id", feedback.UserID, "feedback_id", feedback.ID, "attempt", attempt)
			if err := u.wait(ctx, attempt); err != nil {
				return models.UserStats{}, &apperrors.PersistenceError{Op: "commit feedback stats", Err: err}
			}
		default:
			return models.UserStats{}, &apperrors.PersistenceError{Op: "commit feedback stats", Err: err}
		}
	}

	return models.UserStats{}, fmt.Errorf("stats for feedback %s not applied after %d attempts: %w",
		feedback.ID, u.maxAttempts, apperrors.ErrConcurrentUpdate)
}

func (u *StatsUpdater) wait(ctx context.Context, attempt int) error {
	if u.backoff <= 0 || attempt == u.maxAttempts {
		return nil
	}
	timer := time.NewTimer(time.Duration(attempt) * u.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatsReconciler applies stats for feedback that was stored but never
// counted, e.g. because the process died between the two writes.
type StatsReconciler struct {
	store   FeedbackStore
	updater *StatsUpdater
	grace   time.Duration
	batch   int
}

func NewStatsReconciler(store FeedbackStore, updater *StatsUpdater, grace time.Duration, batch int) *StatsReconciler {
	if batch <= 0 {
		batch = 100
	}
	return &StatsReconciler{store: store, updater: updater, grace: grace, batch: batch}
}

// ReconcilePending applies one batch of pending feedback older than the grace
// period and returns how many were applied.
func (r *StatsReconciler) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := r.store.PendingStatsFeedback(ctx, time.Now().Add(-r.grace), r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending feedback: %w", err)
	}

	applied := 0
	var errs []error
	for i := range pending {
		if _, err := r.updater.Apply(ctx, &pending[i]); err != nil {
			slog.Error("Failed to reconcile feedback stats", "error", err, "feedback_id", pending[i].ID, "user_id", pending[i].UserID)
			errs = append(errs, err)
			continue
		}
		applied++
	}

	if len(pending) > 0 {
		slog.Info("Stats reconciliation finished", "pending", len(pending), "applied", applied)
	}
	return applied, errors.Join(errs...)
}

// Run reconciles every interval until ctx is cancelled
func (r *StatsReconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReconcilePending(ctx); err != nil {
				slog.Error("Stats reconciliation failed", "error", err)
			}
		}
	}
}
