package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interview is a practice interview set up by a user. Once finalized it is
// visible to every user; its feedback stays private to whoever took it.
type Interview struct {
	ID        string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string                      `gorm:"type:uuid;not null;index" json:"user_id"`
	Role      string                      `gorm:"size:255;not null" json:"role"`
	Level     string                      `gorm:"size:50;not null;index" json:"level"`
	Type      string                      `gorm:"size:50;not null;index" json:"type"`
	TechStack datatypes.JSONSlice[string] `json:"techstack"`
	Questions datatypes.JSONSlice[string] `json:"questions"`
	Finalized bool                        `gorm:"not null;default:false;index" json:"finalized"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
	DeletedAt gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relationships
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Feedbacks []Feedback `gorm:"foreignKey:InterviewID" json:"feedbacks,omitempty"`
}

// VisibleTo reports whether userID may read the interview.
func (i *Interview) VisibleTo(userID string) bool {
	return i.UserID == userID || i.Finalized
}
