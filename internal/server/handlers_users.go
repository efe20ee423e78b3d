package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

type createUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     types.Role `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	username := strings.ToLower(strings.TrimSpace(body.Username))
	if len(username) < 3 || len(username) > 30 {
		s.writeError(w, apperr.Validation("Username must be 3-30 characters"))
		return
	}
	if len(body.Password) < 6 {
		s.writeError(w, apperr.Validation("Password must be at least 6 characters"))
		return
	}
	if !body.Role.IsValid() {
		s.writeError(w, apperr.Validation("Invalid role: "+string(body.Role)))
		return
	}

	hash, err := s.auth.HashPassword(body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user := &types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         body.Role,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.writeError(w, apperr.UsernameExists(username))
			return
		}
		s.writeError(w, err)
		return
	}
	s.log.Info("user created",
		zap.String("username", username),
		zap.String("role", string(body.Role)),
		zap.String("by", currentUser(r).Username))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// handleDeactivateUser soft-deletes an account. The row stays so
// creator and claimant references keep resolving.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == currentUser(r).ID {
		s.writeError(w, apperr.Validation("Cannot deactivate your own account"))
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, apperr.UserNotFound())
			return
		}
		s.writeError(w, err)
		return
	}
	user.Active = false
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("user deactivated",
		zap.String("username", user.Username),
		zap.String("by", currentUser(r).Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User '" + user.Username + "' deactivated",
	})
}
