package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(models.All()...)
}

// Ping checks the underlying connection
func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// IncrementInterviewsCreated bumps the counter in a single statement
func (r *GORMRepository) IncrementInterviewsCreated(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("interviews_created", gorm.Expr("interviews_created + ?", 1)).Error
	if err != nil {
		slog.Error("Failed to increment interviews created", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Interview operations
func (r *GORMRepository) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.db.WithContext(ctx).Create(interview).Error; err != nil {
		slog.Error("Failed to create interview", "error", err, "user_id", interview.UserID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", id)
		return nil, err
	}
	return &interview, nil
}

// InterviewQuery filters interview listings. Zero values disable a filter.
type InterviewQuery struct {
	OwnerID        string
	ExcludeOwnerID string
	FinalizedOnly  bool
	Type           string
	Level          string
	Limit          int
	Offset         int
}

func (q InterviewQuery) apply(db *gorm.DB) *gorm.DB {
	if q.OwnerID != "" {
		db = db.Where("user_id = ?", q.OwnerID)
	}
	if q.ExcludeOwnerID != "" {
		db = db.Where("user_id <> ?", q.ExcludeOwnerID)
	}
	if q.FinalizedOnly {
		db = db.Where("finalized = ?", true)
	}
	if q.Type != "" {
		db = db.Where("type = ?", q.Type)
	}
	if q.Level != "" {
		db = db.Where("level = ?", q.Level)
	}
	return db
}

// ListInterviews returns one page of interviews, newest first, and the total
// number of matching rows.
func (r *GORMRepository) ListInterviews(ctx context.Context, q InterviewQuery) ([]models.Interview, int64, error) {
	var total int64
	if err := q.apply(r.db.WithContext(ctx).Model(&models.Interview{})).Count(&total).Error; err != nil {
		slog.Error("Failed to count interviews", "error", err)
		return nil, 0, err
	}

	var interviews []models.Interview
	db := q.apply(r.db.WithContext(ctx)).Order("created_at DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if err := db.Find(&interviews).Error; err != nil {
		slog.Error("Failed to list interviews", "error", err)
		return nil, 0, err
	}
	return interviews, total, nil
}

// Feedback operations
func (r *GORMRepository) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		slog.Error("Failed to create feedback", "error", err, "feedback_id", feedback.ID, "user_id", feedback.UserID)
		return err
	}
	return nil
}

// GetFeedback loads a feedback by id, soft deleted records included
func (r *GORMRepository) GetFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Take(&feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get feedback", "error", err, "feedback_id", id)
		return nil, err
	}
	return &feedback, nil
}

// LatestFeedback returns the newest active feedback of a user for an interview
func (r *GORMRepository) LatestFeedback(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	var feedback models.Feedback
	err := r.db.WithContext(ctx).
		Where("interview_id = ? AND user_id = ?", interviewID, userID).
		Order("created_at DESC").
		Take(&feedback).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get latest feedback", "error", err, "interview_id", interviewID, "user_id", userID)
		return nil, err
	}
	return &feedback, nil
}

// ListFeedback returns a user's feedback newest first
func (r *GORMRepository) ListFeedback(ctx context.Context, userID string, limit int, includeDeleted bool) ([]models.Feedback, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	db = db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var feedbacks []models.Feedback
	if err := db.Find(&feedbacks).Error; err != nil {
		slog.Error("Failed to list feedback", "error", err, "user_id", userID)
		return nil, err
	}
	return feedbacks, nil
}

// SoftDeleteFeedback sets deleted_at; deleting twice is a no-op
func (r *GORMRepository) SoftDeleteFeedback(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Feedback{})
	if res.Error != nil {
		slog.Error("Failed to delete feedback", "error", res.Error, "feedback_id", id)
		return res.Error
	}
	slog.Info("Feedback soft deleted", "feedback_id", id, "rows", res.RowsAffected)
	return nil
}

// PendingStatsFeedback lists feedback whose stats were never applied
func (r *GORMRepository) PendingStatsFeedback(ctx context.Context, createdBefore time.Time, limit int) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	db := r.db.WithContext(ctx).Unscoped().
		Where("stats_applied = ? AND created_at < ?", false, createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&feedbacks).Error; err != nil {
		slog.Error("Failed to list pending stats feedback", "error", err)
		return nil, err
	}
	return feedbacks, nil
}

// CommitFeedbackStats marks the feedback as counted and writes next into the
// user's stats, in one transaction. The stats write only succeeds while the
// stored version still equals expectedVersion.
//
// Returns apperrors.ErrAlreadyApplied if the feedback was counted before and
// apperrors.ErrVersionConflict if another writer got there first.
func (r *GORMRepository) CommitFeedbackStats(ctx context.Context, feedbackID, userID string, expectedVersion int64, next models.UserStats) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(&models.Feedback{}).
			Where("id = ? AND stats_applied = ?", feedbackID, false).
			Update("stats_applied", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadyApplied
		}

		res = tx.Model(&models.User{}).
			Where("id = ? AND stats_version = ?", userID, expectedVersion).
			Updates(map[string]interface{}{
				"interviews_completed": next.InterviewsCompleted,
				"total_score":          next.TotalScore,
				"average_score":        next.AverageScore,
				"stats_version":        gorm.Expr("stats_version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrVersionConflict
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrAlreadyApplied), errors.Is(err, apperrors.ErrVersionConflict):
		return err
	case isSerializationFailure(err):
		return apperrors.ErrVersionConflict
	default:
		slog.Error("Failed to commit feedback stats", "error", err, "feedback_id", feedbackID, "user_id", userID)
		return err
	}
}

// isSerializationFailure matches postgres errors that mean "try again"
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// IsUniqueViolation reports whether err is a postgres unique constraint error
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
