package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/omriShneor/calpal/internal/database"
)

// handleAuthLogin starts Google OAuth login
// GET /api/auth/login
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		respondError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}

	state := uuid.NewString()
	s.states.Add(state, struct{}{})

	respondJSON(w, http.StatusOK, map[string]string{
		"auth_url": s.auth.GetAuthURL(state),
		"state":    state,
	})
}

// handleAuthCallback finishes the OAuth flow and sends the browser back to the frontend
// GET /api/auth/callback?code=...&state=...
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		respondError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.logger.Warn("oauth consent failed", "error", e)
		s.redirectLogin(w, r, url.Values{"login": {"error"}})
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || !s.states.Remove(state) {
		s.logger.Warn("oauth callback rejected", "has_code", code != "", "request_id", RequestIDFromContext(r.Context()))
		s.redirectLogin(w, r, url.Values{"login": {"error"}})
		return
	}

	user, err := s.auth.ExchangeCodeAndLogin(r.Context(), code)
	if err != nil {
		s.logger.Error("oauth login failed", "error", err)
		s.redirectLogin(w, r, url.Values{"login": {"error"}})
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)
	s.redirectLogin(w, r, url.Values{"login": {"success"}, "email": {user.Email}})
}

func (s *Server) redirectLogin(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, s.frontendURL+"?"+params.Encode(), http.StatusFound)
}

// handleGetUser returns a stored user without credentials
// GET /api/auth/user/{email}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := s.users.GetUserByEmail(email)
	if errors.Is(err, database.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
