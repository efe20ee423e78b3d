package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/types"
)

type ctxKey int

const userKey ctxKey = iota

// requireUser authenticates the bearer token and loads the account
// into the request context. Disabled accounts are rejected even with a
// valid token.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeError(w, apperr.New(apperr.CodeTokenInvalid, "Authentication required"))
			return
		}
		user, err := s.resolveToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), userKey, user)))
	})
}

// resolveToken verifies an access token and loads its account
func (s *Server) resolveToken(ctx context.Context, token string) (*types.User, error) {
	claims, err := s.auth.VerifyAccess(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		// The account behind the token is gone.
		return nil, apperr.TokenInvalid()
	}
	if !user.Active {
		return nil, apperr.AccountDisabled()
	}
	return user, nil
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r).Role != types.RoleAdmin {
			s.writeError(w, apperr.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser returns the authenticated account; requireUser must have
// run on the route.
func currentUser(r *http.Request) *types.User {
	u, _ := r.Context().Value(userKey).(*types.User)
	return u
}
