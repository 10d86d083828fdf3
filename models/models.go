package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, UserStats from user.go
// - Interview from interview.go
// - Feedback, InterviewContext, GenerationMetadata from feedback.go

// Database schema overview:
// 1. users - Cookie-authenticated accounts carrying the embedded running stats
// 2. interviews - Practice interviews, public to everyone once finalized
// 3. feedbacks - Immutable AI assessments, soft deleted through deleted_at

// All returns every model managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Interview{},
		&Feedback{},
	}
}
