package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // Hashed password (excluded from JSON)
	FullName  string         `gorm:"size:255" json:"full_name,omitempty"`
	Role      string         `gorm:"default:'user'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	InterviewsCreated int `gorm:"not null;default:0" json:"interviews_created"`

	// Stats is only written through a versioned update, see repository.CommitFeedbackStats
	Stats        UserStats `gorm:"embedded" json:"stats"`
	StatsVersion int64     `gorm:"not null;default:0" json:"-"`

	// Relationships
	Interviews []Interview `gorm:"foreignKey:UserID" json:"interviews,omitempty"`
	Feedbacks  []Feedback  `gorm:"foreignKey:UserID" json:"feedbacks,omitempty"`
}

// UserStats holds the running performance counters of a user.
// AverageScore is always round(TotalScore / InterviewsCompleted).
type UserStats struct {
	InterviewsCompleted int `gorm:"not null;default:0" json:"interviews_completed"`
	TotalScore          int `gorm:"not null;default:0" json:"total_score"`
	AverageScore        int `gorm:"not null;default:0" json:"average_score"`
}
