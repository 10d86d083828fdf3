package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
)

type AuthEndpoints struct {
	authService *AuthService
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func NewAuthEndpoints(authService *AuthService) *AuthEndpoints {
	return &AuthEndpoints{
		authService: authService,
	}
}

// RegisterPublicRoutes mounts the routes that work without a session
func (e *AuthEndpoints) RegisterPublicRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", e.LoginHandler)
		r.Post("/signup", e.SignupHandler)
		r.Post("/logout", e.LogoutHandler)
	})
}

// RegisterRoutes mounts the routes behind the auth middleware
func (e *AuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", e.MeHandler)
}

func userView(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":                 u.ID,
		"email":              u.Email,
		"full_name":          u.FullName,
		"role":               u.Role,
		"interviews_created": u.InterviewsCreated,
		"stats":              u.Stats,
	}
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authResponse, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("Login failed", "error", err, "email", req.Email)
		if errors.Is(err, errInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "Invalid credentials"})
			return
		}
		writeError(w, err)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    userView(authResponse.User),
		"message": "Login successful",
	})
}

func (e *AuthEndpoints) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authResponse, err := e.authService.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		slog.Error("Signup failed", "error", err, "email", req.Email)
		writeError(w, err)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    userView(authResponse.User),
		"message": "Signup successful",
	})
}

// LogoutHandler clears the session cookie. Tokens are stateless so there is
// nothing to revoke server side.
func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	e.authService.ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Logout successful"})
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userView(user)})
}
