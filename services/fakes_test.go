package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/assessment"
	"github.com/krshsl/praxis/feedback/models"
	"github.com/krshsl/praxis/feedback/repository"
	"gorm.io/gorm"
)

// memoryStore is an in-memory FeedbackStore and InterviewStore that counts
// every call it receives.
type memoryStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	interviews map[string]*models.Interview
	feedbacks  []*models.Feedback
	calls      int

	createErr  error
	commitErr  error
	conflicts  int // number of commits rejected with a version conflict
	commitSeen int
	seq        int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      map[string]*models.User{},
		interviews: map[string]*models.Interview{},
	}
}

func (m *memoryStore) addUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

func (m *memoryStore) addInterview(i *models.Interview) *models.Interview {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interviews[i.ID] = i
	return i
}

func (m *memoryStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memoryStore) statsOf(userID string) models.UserStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].Stats
}

func (m *memoryStore) feedbackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feedbacks)
}

func (m *memoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.users {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	m.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.seq)
	}
	cp := *user
	m.users[cp.ID] = &cp
	return nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetInterview(_ context.Context, id string) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	i, ok := m.interviews[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (m *memoryStore) CreateFeedback(_ context.Context, feedback *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.createErr != nil {
		return m.createErr
	}
	cp := *feedback
	m.feedbacks = append(m.feedbacks, &cp)
	return nil
}

func (m *memoryStore) findFeedback(id string) *models.Feedback {
	for _, f := range m.feedbacks {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (m *memoryStore) GetFeedback(_ context.Context, id string) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	f := m.findFeedback(id)
	if f == nil {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *memoryStore) sorted(userID string, includeDeleted bool) []models.Feedback {
	var out []models.Feedback
	for _, f := range m.feedbacks {
		if f.UserID != userID || (!includeDeleted && f.Deleted()) {
			continue
		}
		out = append(out, *f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryStore) LatestFeedback(_ context.Context, interviewID, userID string) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, f := range m.sorted(userID, false) {
		if f.InterviewID == interviewID {
			return &f, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ListFeedback(_ context.Context, userID string, limit int, includeDeleted bool) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := m.sorted(userID, includeDeleted)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) SoftDeleteFeedback(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if f := m.findFeedback(id); f != nil && !f.Deleted() {
		f.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

func (m *memoryStore) PendingStatsFeedback(_ context.Context, createdBefore time.Time, limit int) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []models.Feedback
	for _, f := range m.feedbacks {
		if !f.StatsApplied && f.CreatedAt.Before(createdBefore) {
			out = append(out, *f)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) CommitFeedbackStats(_ context.Context, feedbackID, userID string, expectedVersion int64, next models.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.commitSeen++
	if m.commitErr != nil {
		return m.commitErr
	}
	f := m.findFeedback(feedbackID)
	if f == nil {
		return apperrors.ErrAlreadyApplied
	}
	if f.StatsApplied {
		return apperrors.ErrAlreadyApplied
	}
	u := m.users[userID]
	if m.conflicts > 0 {
		m.conflicts--
		return apperrors.ErrVersionConflict
	}
	if u == nil || u.StatsVersion != expectedVersion {
		return apperrors.ErrVersionConflict
	}
	u.Stats = next
	u.StatsVersion++
	f.StatsApplied = true
	return nil
}

func (m *memoryStore) CreateInterview(_ context.Context, interview *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seq++
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}
	interview.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *interview
	m.interviews[cp.ID] = &cp
	return nil
}

func (m *memoryStore) ListInterviews(_ context.Context, q repository.InterviewQuery) ([]models.Interview, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []models.Interview
	for _, i := range m.interviews {
		if q.OwnerID != "" && i.UserID != q.OwnerID {
			continue
		}
		if q.ExcludeOwnerID != "" && i.UserID == q.ExcludeOwnerID {
			continue
		}
		if q.FinalizedOnly && !i.Finalized {
			continue
		}
		if q.Type != "" && i.Type != q.Type {
			continue
		}
		if q.Level != "" && i.Level != q.Level {
			continue
		}
		out = append(out, *i)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	total := int64(len(out))
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			out = nil
		} else {
			out = out[q.Offset:]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (m *memoryStore) IncrementInterviewsCreated(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if u, ok := m.users[userID]; ok {
		u.InterviewsCreated++
	}
	return nil
}

// fakeGenerator returns canned output. When block is set it waits for the
// context to end instead.
type fakeGenerator struct {
	mu      sync.Mutex
	raw     []byte
	text    []byte
	err     error
	block   bool
	calls   int32
	prompts []Prompt
	respond func(call int32) []byte
}

func (g *fakeGenerator) GenerateStructured(ctx context.Context, prompt Prompt, _ assessment.Schema) (*GenerationResult, error) {
	call := atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return nil, &apperrors.GenerationError{Provider: "fake", Err: ctx.Err()}
	}
	if err := ctx.Err(); err != nil {
		return nil, &apperrors.GenerationError{Provider: "fake", Err: err}
	}
	if g.err != nil {
		return nil, g.err
	}
	raw := g.raw
	if g.respond != nil {
		raw = g.respond(call)
	}
	return &GenerationResult{Raw: raw, Provider: "fake", Model: "fake-1"}, nil
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt Prompt) (*GenerationResult, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return nil, &apperrors.GenerationError{Provider: "fake", Err: ctx.Err()}
	}
	if err := ctx.Err(); err != nil {
		return nil, &apperrors.GenerationError{Provider: "fake", Err: err}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &GenerationResult{Raw: g.text, Provider: "fake", Model: "fake-1"}, nil
}

func (g *fakeGenerator) callCount() int {
	return int(atomic.LoadInt32(&g.calls))
}

type notification struct {
	userID    string
	eventType string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) NotifyUser(userID, eventType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{userID: userID, eventType: eventType})
}

// assessmentJSON renders a schema-valid assessment with the given total.
func assessmentJSON(total int) []byte {
	a := assessment.Assessment{
		TotalScore:          total,
		Strengths:           []string{"Explained goroutines and channels clearly"},
		AreasForImprovement: []string{"Give concrete numbers when describing impact"},
		FinalAssessment:     "A confident mid-level performance with solid Go fundamentals and some gaps in system design depth.",
	}
	for _, c := range assessment.Categories {
		a.CategoryScores = append(a.CategoryScores, assessment.CategoryScore{
			Name:    c,
			Score:   total,
			Comment: "Consistent answers with relevant examples",
		})
	}
	raw, _ := json.Marshal(a)
	return raw
}
