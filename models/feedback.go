package models

import (
	"encoding/json"
	"time"

	"github.com/krshsl/praxis/feedback/assessment"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Feedback is the stored assessment of one completed interview attempt.
// Records are never updated after creation apart from StatsApplied and the
// soft delete marker.
type Feedback struct {
	ID                  string                                        `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID         string                                        `gorm:"type:uuid;not null;index:idx_feedback_interview_user" json:"interview_id"`
	UserID              string                                        `gorm:"type:uuid;not null;index:idx_feedback_interview_user;index" json:"user_id"`
	TotalScore          int                                           `gorm:"not null;check:total_score BETWEEN 0 AND 100" json:"total_score"`
	CategoryScores      datatypes.JSONSlice[assessment.CategoryScore] `gorm:"not null" json:"category_scores"`
	Strengths           datatypes.JSONSlice[string]                   `json:"strengths"`
	AreasForImprovement datatypes.JSONSlice[string]                   `json:"areas_for_improvement"`
	FinalAssessment     string                                        `gorm:"type:text;not null" json:"final_assessment"`
	InterviewContext    datatypes.JSONType[InterviewContext]          `json:"interview_context"`
	Metadata            datatypes.JSONType[GenerationMetadata]        `json:"metadata"`
	StatsApplied        bool                                          `gorm:"not null;default:false;index" json:"-"`
	CreatedAt           time.Time                                     `gorm:"index" json:"created_at"`
	DeletedAt           gorm.DeletedAt                                `gorm:"index" json:"deleted_at"`

	// Relationships
	Interview *Interview `gorm:"foreignKey:InterviewID" json:"interview,omitempty"`
}

// InterviewContext is a snapshot of the interview taken when the feedback
// was generated.
type InterviewContext struct {
	Role             string   `json:"role"`
	Level            string   `json:"level"`
	Type             string   `json:"type"`
	TechStack        []string `json:"techstack"`
	TranscriptLength int      `json:"transcript_length"`
}

// GenerationMetadata records how the assessment was produced.
type GenerationMetadata struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	PromptVersion    string `json:"prompt_version"`
}

// Deleted reports whether the record has been soft deleted.
func (f *Feedback) Deleted() bool {
	return f.DeletedAt.Valid
}

// MarshalJSON adds an is_deleted flag next to deleted_at.
func (f Feedback) MarshalJSON() ([]byte, error) {
	type plain Feedback
	return json.Marshal(struct {
		plain
		IsDeleted bool `json:"is_deleted"`
	}{plain: plain(f), IsDeleted: f.DeletedAt.Valid})
}
