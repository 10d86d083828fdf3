package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterviewFixture(t *testing.T) (*InterviewService, *memoryStore, *fakeGenerator, *models.User) {
	t.Helper()
	catalog, err := DefaultTechCatalog()
	require.NoError(t, err)

	store := newMemoryStore()
	owner := store.addUser(&models.User{ID: ownerID, Email: "candidate@example.com"})
	store.addUser(&models.User{ID: otherID, Email: "someone@example.com"})
	gen := &fakeGenerator{}
	svc := NewInterviewService(store, gen, nil, catalog, InterviewConfig{MaxQuestions: 20, DefaultQuestions: 5})
	return svc, store, gen, owner
}

func TestTechCatalogNormalize(t *testing.T) {
	catalog, err := DefaultTechCatalog()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{in: "React.js", want: "react"},
		{in: "  golang ", want: "go"},
		{in: "Postgres", want: "postgresql"},
		{in: "k8s", want: "kubernetes"},
		{in: "C#", want: "csharp"},
		{in: "Ruby on Rails", want: "rails"},
		{in: "Elixir", want: "Elixir"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.Normalize(tt.in))
		})
	}

	assert.Equal(t, []string{"go", "postgresql"}, catalog.NormalizeAll([]string{"Go", "golang", " ", "postgres"}))
}

func TestParseTechCatalogRejectsAmbiguousAlias(t *testing.T) {
	_, err := ParseTechCatalog([]byte("a:\n  react: [rx]\nb:\n  rxjs: [rx]\n"))
	assert.Error(t, err)
}

func TestCreateInterview(t *testing.T) {
	svc, store, _, owner := newInterviewFixture(t)
	ctx := WithUser(context.Background(), owner)

	interview, err := svc.CreateInterview(ctx, CreateInterviewRequest{
		Role:      "  Backend Engineer ",
		Level:     "Mid",
		Type:      "technical",
		TechStack: []string{"Golang", "Postgres"},
		Questions: []string{"Explain goroutines.", "  ", "How do you design an API?"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, interview.ID)
	assert.Equal(t, ownerID, interview.UserID)
	assert.Equal(t, "Backend Engineer", interview.Role)
	assert.Equal(t, []string{"go", "postgresql"}, []string(interview.TechStack))
	assert.Len(t, interview.Questions, 2)
	assert.True(t, interview.Finalized)

	stored, err := store.GetUserByID(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.InterviewsCreated)
}

func TestCreateInterviewValidation(t *testing.T) {
	tooMany := make([]string, 21)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("Question %d?", i+1)
	}
	valid := func() CreateInterviewRequest {
		return CreateInterviewRequest{Role: "SRE", Level: "Senior", Type: "mixed", TechStack: []string{"aws"}, Questions: []string{"Why SRE?"}}
	}

	tests := []struct {
		name   string
		mutate func(r *CreateInterviewRequest)
	}{
		{name: "missing role", mutate: func(r *CreateInterviewRequest) { r.Role = " " }},
		{name: "missing level", mutate: func(r *CreateInterviewRequest) { r.Level = "" }},
		{name: "missing type", mutate: func(r *CreateInterviewRequest) { r.Type = "" }},
		{name: "empty tech stack", mutate: func(r *CreateInterviewRequest) { r.TechStack = []string{""} }},
		{name: "no questions", mutate: func(r *CreateInterviewRequest) { r.Questions = nil }},
		{name: "too many questions", mutate: func(r *CreateInterviewRequest) { r.Questions = tooMany }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, owner := newInterviewFixture(t)
			req := valid()
			tt.mutate(&req)

			_, err := svc.CreateInterview(WithUser(context.Background(), owner), req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Zero(t, store.callCount())
		})
	}

	t.Run("no user", func(t *testing.T) {
		svc, _, _, _ := newInterviewFixture(t)
		_, err := svc.CreateInterview(context.Background(), valid())
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestGenerateQuestions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		amount  int
		want    []string
		wantErr error
	}{
		{
			name:   "plain array",
			text:   `["Tell me about yourself", "Why Go?"]`,
			amount: 2,
			want:   []string{"Tell me about yourself", "Why Go?"},
		},
		{
			name:   "fenced and padded",
			text:   "```json\n[\"One\", \"  \", \"Two\", 3, \"Three\"]\n```",
			amount: 2,
			want:   []string{"One", "Two"},
		},
		{
			name:    "not an array",
			text:    `{"questions": ["One"]}`,
			amount:  1,
			wantErr: apperrors.ErrGenerationValidation,
		},
		{
			name:    "prose",
			text:    "Sure! Here are some questions.",
			amount:  1,
			wantErr: apperrors.ErrGenerationValidation,
		},
		{
			name:    "amount out of range",
			amount:  21,
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, gen, owner := newInterviewFixture(t)
			gen.text = []byte(tt.text)

			got, err := svc.GenerateQuestions(WithUser(context.Background(), owner), QuestionRequest{
				Role: "Backend Engineer", Level: "Mid", Type: "technical", TechStack: []string{"golang"}, Amount: tt.amount,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, gen.prompts, 1)
			assert.Contains(t, gen.prompts[0].User, "Technology Stack: go")
		})
	}
}

func TestGenerateQuestionsGuards(t *testing.T) {
	t.Run("tech stack is required", func(t *testing.T) {
		for _, stack := range [][]string{nil, {" ", ""}} {
			svc, _, gen, owner := newInterviewFixture(t)
			_, err := svc.GenerateQuestions(WithUser(context.Background(), owner), QuestionRequest{
				Role: "Backend Engineer", Level: "Mid", Type: "technical", TechStack: stack, Amount: 1,
			})
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "techstack", verr.Field)
			assert.Zero(t, gen.callCount())
		}
	})

	t.Run("generation is bounded by the configured timeout", func(t *testing.T) {
		catalog, err := DefaultTechCatalog()
		require.NoError(t, err)
		store := newMemoryStore()
		owner := store.addUser(&models.User{ID: ownerID})
		gen := &fakeGenerator{block: true}
		svc := NewInterviewService(store, gen, nil, catalog, InterviewConfig{GenerationTimeout: 20 * time.Millisecond})

		start := time.Now()
		_, err = svc.GenerateQuestions(WithUser(context.Background(), owner), QuestionRequest{
			Role: "Backend Engineer", Level: "Mid", Type: "technical", TechStack: []string{"go"}, Amount: 1,
		})
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.ErrorIs(t, err, apperrors.ErrGeneration)

		var genErr *apperrors.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.True(t, genErr.Timeout)
		assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
	})
}

func TestGetInterviewVisibility(t *testing.T) {
	svc, store, _, owner := newInterviewFixture(t)
	store.addInterview(&models.Interview{ID: interviewID, UserID: ownerID})
	store.addInterview(&models.Interview{ID: sharedID, UserID: otherID, Finalized: true})
	store.addInterview(&models.Interview{ID: draftID, UserID: otherID})
	ctx := WithUser(context.Background(), owner)

	for _, id := range []string{interviewID, sharedID} {
		got, err := svc.GetInterview(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, id, got.ID)
	}
	for _, id := range []string{draftID, missingID} {
		_, err := svc.GetInterview(ctx, id)
		assert.ErrorIs(t, err, apperrors.ErrInterviewNotFound, id)
	}
	_, err := svc.GetInterview(context.Background(), interviewID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	calls := store.callCount()
	_, err = svc.GetInterview(ctx, "abc")
	assert.ErrorIs(t, err, apperrors.ErrInterviewNotFound)
	assert.Equal(t, calls, store.callCount(), "malformed ids are not looked up")
}

func TestListInterviews(t *testing.T) {
	svc, store, _, owner := newInterviewFixture(t)
	ctx := WithUser(context.Background(), owner)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateInterview(ctx, &models.Interview{UserID: ownerID, Type: "technical", Finalized: true}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, store.CreateInterview(ctx, &models.Interview{UserID: otherID, Type: "behavioral", Finalized: true}))
	}
	require.NoError(t, store.CreateInterview(ctx, &models.Interview{UserID: otherID, Type: "behavioral"}))

	page, err := svc.ListUserInterviews(ctx, ownerID, ListInterviewsOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Interviews, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(3), page.Total)

	page, err = svc.ListUserInterviews(ctx, ownerID, ListInterviewsOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Interviews, 1)
	assert.False(t, page.HasMore)

	_, err = svc.ListUserInterviews(ctx, otherID, ListInterviewsOptions{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	latest, err := svc.ListLatestInterviews(ctx, ListInterviewsOptions{})
	require.NoError(t, err)
	require.Len(t, latest.Interviews, 2)
	for _, i := range latest.Interviews {
		assert.Equal(t, otherID, i.UserID)
		assert.True(t, i.Finalized)
	}
	assert.False(t, latest.HasMore)
}
