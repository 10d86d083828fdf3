package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/repository"
	"golang.org/x/crypto/bcrypt"
)

// SeedStore is what the seeder writes through
type SeedStore interface {
	UserStore
	CreateInterview(ctx context.Context, interview *models.Interview) error
	ListInterviews(ctx context.Context, q repository.InterviewQuery) ([]models.Interview, int64, error)
}

var _ SeedStore = (*repository.GORMRepository)(nil)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	store   SeedStore
	catalog *TechCatalog
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(store SeedStore, catalog *TechCatalog) *DatabaseSeeder {
	return &DatabaseSeeder{store: store, catalog: catalog}
}

const demoEmail = "demo@example.com"

var sampleInterviews = []models.Interview{
	{
		Role:      "Senior Frontend Developer",
		Type:      "Technical",
		Level:     "Senior",
		TechStack: []string{"React", "TypeScript", "Next.js", "Tailwind CSS", "GraphQL"},
		Questions: []string{
			"Tell me about your experience with React and modern frontend development.",
			"How do you handle state management in large React applications?",
			"Describe a challenging frontend performance issue you've solved.",
			"How do you ensure code quality and maintainability in your projects?",
			"Walk me through how you would design a reusable component library.",
		},
	},
	{
		Role:      "Full Stack Engineer",
		Type:      "Mixed",
		Level:     "Mid-Level",
		TechStack: []string{"Node.js", "Express", "PostgreSQL", "React", "AWS"},
		Questions: []string{
			"Describe your experience with full-stack development.",
			"How do you design and implement RESTful APIs?",
			"Tell me about a time you had to optimize database performance.",
			"How do you handle error handling and logging in your applications?",
			"Describe your experience with cloud platforms and deployment.",
		},
	},
	{
		Role:      "Backend Engineer",
		Type:      "Technical",
		Level:     "Mid-Level",
		TechStack: []string{"Golang", "Postgres", "Docker", "Kubernetes"},
		Questions: []string{
			"How do goroutines and channels shape the way you structure a service?",
			"How would you make a write path safe under concurrent updates?",
			"Walk me through how you would debug a slow SQL query in production.",
			"How do you decide what to log and what to put in metrics?",
		},
	},
}

// SeedDatabase creates the demo accounts and public sample interviews.
// Running it again only fills in what is missing.
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{Email: "test@example.com", Password: string(hashedPassword), FullName: "Test User", Role: "user"},
		{Email: demoEmail, Password: string(hashedPassword), FullName: "Demo User", Role: "user"},
	}
	for _, user := range users {
		if err := s.seedUser(ctx, user); err != nil {
			slog.Error("Failed to seed user", "email", user.Email, "error", err)
		}
	}

	demo, err := s.store.GetUserByEmail(ctx, demoEmail)
	if err != nil {
		return fmt.Errorf("failed to get demo user: %w", err)
	}
	if demo == nil {
		return fmt.Errorf("demo user not found")
	}

	existing, _, err := s.store.ListInterviews(ctx, repository.InterviewQuery{OwnerID: demo.ID})
	if err != nil {
		return fmt.Errorf("error checking interviews: %w", err)
	}
	have := map[string]bool{}
	for _, i := range existing {
		have[i.Role] = true
	}

	for _, sample := range sampleInterviews {
		if have[sample.Role] {
			slog.Info("Sample interview already exists, skipping", "role", sample.Role)
			continue
		}
		interview := sample
		interview.UserID = demo.ID
		interview.Finalized = true
		if s.catalog != nil {
			interview.TechStack = s.catalog.NormalizeAll(sample.TechStack)
		}
		if err := s.store.CreateInterview(ctx, &interview); err != nil {
			slog.Error("Failed to seed interview", "role", sample.Role, "error", err)
			continue
		}
		slog.Info("Created sample interview", "role", interview.Role, "interview_id", interview.ID)
	}

	slog.Info("Database seeding completed successfully")
	return nil
}

// seedUser seeds a single user (idempotent)
func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) error {
	existingUser, err := s.store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", user.Email, err)
	}
	if existingUser != nil {
		slog.Info("User already exists, skipping", "email", user.Email)
		return nil
	}

	if err := s.store.CreateUser(ctx, &user); err != nil {
		// another instance seeded it between the check and the insert
		if repository.IsUniqueViolation(err) {
			slog.Info("User created concurrently, skipping", "email", user.Email)
			return nil
		}
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	slog.Info("Created user", "email", user.Email)
	return nil
}
