package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/feedback/apperrors"
)

type InterviewEndpoints struct {
	interviewService *InterviewService
}

func NewInterviewEndpoints(interviewService *InterviewService) *InterviewEndpoints {
	return &InterviewEndpoints{interviewService: interviewService}
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Post("/interviews", e.CreateInterviewHandler)
	r.Get("/interviews", e.ListInterviewsHandler)
	r.Get("/interviews/latest", e.LatestInterviewsHandler)
	r.Post("/interviews/questions", e.GenerateQuestionsHandler)
	r.Get("/interviews/{id}", e.GetInterviewHandler)
}

func listOptions(r *http.Request) (ListInterviewsOptions, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return ListInterviewsOptions{}, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return ListInterviewsOptions{}, err
	}
	q := r.URL.Query()
	return ListInterviewsOptions{
		Limit:  limit,
		Offset: offset,
		Type:   q.Get("type"),
		Level:  q.Get("level"),
	}, nil
}

func (e *InterviewEndpoints) CreateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateInterviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	interview, err := e.interviewService.CreateInterview(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"interview": interview,
	})
}

func (e *InterviewEndpoints) GenerateQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	questions, err := e.interviewService.GenerateQuestions(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"questions": questions,
	})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interview, err := e.interviewService.GetInterview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"interview": interview})
}

func (e *InterviewEndpoints) ListInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := e.interviewService.ListUserInterviews(r.Context(), user.ID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (e *InterviewEndpoints) LatestInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := e.interviewService.ListLatestInterviews(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
