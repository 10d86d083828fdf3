package services

import (
	"context"
	"time"

	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/repository"
)

// FeedbackStore is the persistence the feedback engine needs.
// repository.GORMRepository implements it.
type FeedbackStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	GetFeedback(ctx context.Context, id string) (*models.Feedback, error)
	LatestFeedback(ctx context.Context, interviewID, userID string) (*models.Feedback, error)
	ListFeedback(ctx context.Context, userID string, limit int, includeDeleted bool) ([]models.Feedback, error)
	SoftDeleteFeedback(ctx context.Context, id string) error
	PendingStatsFeedback(ctx context.Context, createdBefore time.Time, limit int) ([]models.Feedback, error)
	CommitFeedbackStats(ctx context.Context, feedbackID, userID string, expectedVersion int64, next models.UserStats) error
}

// InterviewStore is the persistence used by interview management.
type InterviewStore interface {
	CreateInterview(ctx context.Context, interview *models.Interview) error
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	ListInterviews(ctx context.Context, q repository.InterviewQuery) ([]models.Interview, int64, error)
	IncrementInterviewsCreated(ctx context.Context, userID string) error
}

var (
	_ FeedbackStore  = (*repository.GORMRepository)(nil)
	_ InterviewStore = (*repository.GORMRepository)(nil)
)

// CurrentUserProvider resolves the authenticated user of a call. A nil user
// with a nil error means nobody is signed in.
type CurrentUserProvider interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

type contextKey string

const userContextKey contextKey = "user"

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user stored by the auth middleware, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// ContextUserProvider reads the current user from the request context.
type ContextUserProvider struct{}

func (ContextUserProvider) CurrentUser(ctx context.Context) (*models.User, error) {
	user, _ := UserFromContext(ctx)
	return user, nil
}
