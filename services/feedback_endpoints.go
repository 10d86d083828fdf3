package services

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/transcript"
)

type FeedbackEndpoints struct {
	feedbackService *FeedbackService
}

func NewFeedbackEndpoints(feedbackService *FeedbackService) *FeedbackEndpoints {
	return &FeedbackEndpoints{feedbackService: feedbackService}
}

type CreateFeedbackBody struct {
	InterviewID string            `json:"interview_id"`
	UserID      string            `json:"user_id,omitempty"`
	Transcript  []transcript.Turn `json:"transcript"`
}

func (e *FeedbackEndpoints) RegisterRoutes(r chi.Router) {
	r.Post("/feedback", e.CreateFeedbackHandler)
	r.Get("/feedback", e.ListFeedbackHandler)
	r.Get("/feedback/history", e.HistoryHandler)
	r.Get("/feedback/{id}", e.GetFeedbackHandler)
	r.Delete("/feedback/{id}", e.DeleteFeedbackHandler)
	r.Get("/interviews/{id}/feedback", e.GetInterviewFeedbackHandler)
}

func (e *FeedbackEndpoints) CreateFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	var body CreateFeedbackBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.UserID == "" {
		body.UserID = user.ID
	}

	id, err := e.feedbackService.CreateFeedback(r.Context(), CreateFeedbackRequest{
		UserID:      body.UserID,
		InterviewID: body.InterviewID,
		Transcript:  body.Transcript,
	})
	if err != nil && id == "" {
		slog.Error("Feedback creation failed", "error", err, "user_id", body.UserID, "interview_id", body.InterviewID)
		writeError(w, err)
		return
	}
	if err != nil {
		// stored, but the stats update is left to the reconciler
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"success":       true,
			"feedback_id":   id,
			"stats_pending": true,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"feedback_id": id,
	})
}

func (e *FeedbackEndpoints) GetFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	feedback, err := e.feedbackService.GetFeedback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": feedback})
}

func (e *FeedbackEndpoints) DeleteFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	if err := e.feedbackService.SoftDeleteFeedback(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Feedback deleted successfully",
	})
}

func (e *FeedbackEndpoints) GetInterviewFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}

	feedback, err := e.feedbackService.GetFeedbackByInterview(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": feedback})
}

func (e *FeedbackEndpoints) ListFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	feedbacks, err := e.feedbackService.ListActiveFeedback(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feedbacks": feedbacks,
		"count":     len(feedbacks),
	})
}

func (e *FeedbackEndpoints) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := e.feedbackService.FeedbackHistory(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
