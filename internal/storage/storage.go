// Package storage defines the persistence interface for warepick.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/warepick/warepick/internal/types"
)

// Sentinel errors returned by Storage implementations
var (
	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a unique constraint violation (name, username)
	ErrDuplicate = errors.New("already exists")

	// ErrAlreadyClaimed indicates another user holds the claim on a request
	ErrAlreadyClaimed = errors.New("request already claimed")

	// ErrConflict indicates a guarded write matched no rows because the
	// request changed underneath the caller
	ErrConflict = errors.New("concurrent modification")
)

// MutateFunc mutates a freshly loaded request inside a transaction.
// Returning an error aborts the transaction.
type MutateFunc func(req *types.Request) error

// Storage is the interface for pick request persistence.
// All request reads load items and resolve creator/claimant usernames;
// no lazy loading crosses a call boundary.
type Storage interface {
	// Users. CreateUser returns ErrDuplicate on a username collision.
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)
	UpdateUser(ctx context.Context, user *types.User) error
	CountActiveAdmins(ctx context.Context) (int, error)

	// Pick requests. CreateRequest inserts the request and its items in
	// one transaction and returns ErrDuplicate if the name is taken.
	CreateRequest(ctx context.Context, req *types.Request) error
	GetRequest(ctx context.Context, name string) (*types.Request, error)
	ListRequests(ctx context.Context, filter types.RequestFilter, offset, limit int) ([]*types.Request, error)
	CountRequests(ctx context.Context, filter types.RequestFilter) (int, error)
	DeleteRequest(ctx context.Context, name string) error

	// AcquireClaim atomically claims a pending request for userID via a
	// conditional update. Exactly one of two concurrent callers wins;
	// the loser gets ErrAlreadyClaimed (wrapped with the holder's name
	// when known) or ErrConflict if the request left pending.
	AcquireClaim(ctx context.Context, name, userID string) error

	// Mutate loads the request, applies fn, and writes the result back
	// guarded by the originally read status and claimant. A lost race
	// returns ErrConflict and nothing is written. On success the
	// request's last_activity_at is advanced and the stored view is
	// returned.
	Mutate(ctx context.Context, name string, fn MutateFunc) (*types.Request, error)

	// Reaper support.
	StaleClaims(ctx context.Context, cutoff time.Time) ([]*types.Request, error)
	// ReleaseIfIdle releases a stale in_progress claim back to pending,
	// preserving started_at and item progress. Returns false if the
	// request was touched since cutoff.
	ReleaseIfIdle(ctx context.Context, name string, cutoff time.Time) (bool, error)
	PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
