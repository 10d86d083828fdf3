package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AssistantEndpoints serves the resume review and the chat assistant
type AssistantEndpoints struct {
	resumeService *ResumeService
	chatService   *ChatService
}

func NewAssistantEndpoints(resumeService *ResumeService, chatService *ChatService) *AssistantEndpoints {
	return &AssistantEndpoints{resumeService: resumeService, chatService: chatService}
}

func (e *AssistantEndpoints) RegisterRoutes(r chi.Router) {
	r.Post("/resume/analyze", e.AnalyzeResumeHandler)
	r.Post("/chatbot", e.ChatHandler)
}

func (e *AssistantEndpoints) AnalyzeResumeHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeResumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	report, err := e.resumeService.AnalyzeResume(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": report,
	})
}

func (e *AssistantEndpoints) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reply, err := e.chatService.Reply(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"response":  reply.Response,
		"timestamp": reply.Timestamp,
	})
}
