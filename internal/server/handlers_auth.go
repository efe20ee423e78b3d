package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	username := strings.ToLower(strings.TrimSpace(body.Username))
	if username == "" || body.Password == "" {
		s.writeError(w, apperr.Validation("Username and password are required"))
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		// Same answer as a wrong password; do not reveal which.
		s.writeError(w, apperr.InvalidCredentials())
		return
	}
	if !s.auth.CheckPassword(user.PasswordHash, body.Password) {
		s.writeError(w, apperr.InvalidCredentials())
		return
	}
	if !user.Active {
		s.writeError(w, apperr.AccountDisabled())
		return
	}

	pair, err := s.auth.IssueTokens(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("user logged in", zap.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"user":          user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	claims, err := s.auth.VerifyRefresh(body.RefreshToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.store.GetUser(r.Context(), claims.Subject)
	if err != nil {
		s.writeError(w, apperr.TokenInvalid())
		return
	}
	if !user.Active {
		s.writeError(w, apperr.AccountDisabled())
		return
	}
	pair, err := s.auth.IssueTokens(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": currentUser(r)})
}
