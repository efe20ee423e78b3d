package coordinator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

// Start claims a pending request for the acting picker. The claim is a
// conditional update in the store, so two concurrent starts produce
// exactly one winner; the loser learns who holds the claim.
func (c *Coordinator) Start(ctx context.Context, user *types.User, name string) (*types.Request, error) {
	if !user.Role.CanPick() {
		return nil, apperr.Forbidden("Only pickers and admins can start a pick")
	}
	name = strings.ToLower(name)

	err := c.store.AcquireClaim(ctx, name, user.ID)
	switch {
	case err == nil:
		c.log.Info("pick started",
			zap.String("name", name), zap.String("picker", user.Username))
		return c.Get(ctx, name)
	case errors.Is(err, storage.ErrAlreadyClaimed):
		req, getErr := c.Get(ctx, name)
		if getErr != nil {
			return nil, getErr
		}
		holder := req.ClaimantName
		if holder == "" {
			holder = req.ClaimantID
		}
		return nil, apperr.RequestLocked(holder)
	case errors.Is(err, storage.ErrConflict):
		req, getErr := c.Get(ctx, name)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.InvalidStatus(string(req.Status), string(types.StatusPending))
	default:
		return nil, c.translate(name, err)
	}
}

// Pause suspends an in_progress pick. The claimant is kept so the same
// picker can resume.
func (c *Coordinator) Pause(ctx context.Context, user *types.User, name string) (*types.Request, error) {
	return c.mutate(ctx, name, func(req *types.Request) error {
		if req.Status != types.StatusInProgress {
			return apperr.InvalidStatus(string(req.Status), string(types.StatusInProgress))
		}
		if err := verifyClaim(req, user); err != nil {
			return err
		}
		req.Status = types.StatusPaused
		return nil
	})
}

// Resume continues a paused pick (same claimant or admin) or reopens a
// partially_completed one (any picker, who becomes the new claimant).
func (c *Coordinator) Resume(ctx context.Context, user *types.User, name string) (*types.Request, error) {
	return c.mutate(ctx, name, func(req *types.Request) error {
		switch req.Status {
		case types.StatusPaused:
			if err := verifyClaim(req, user); err != nil {
				return err
			}
			req.Status = types.StatusInProgress
			return nil
		case types.StatusPartiallyCompleted:
			if !user.Role.CanPick() {
				return apperr.Forbidden("Only pickers and admins can resume a pick")
			}
			req.Status = types.StatusInProgress
			req.ClaimantID = user.ID
			req.ClaimantName = user.Username
			return nil
		default:
			return apperr.InvalidStatus(string(req.Status),
				string(types.StatusPaused)+" or "+string(types.StatusPartiallyCompleted))
		}
	})
}

// Release gives up the claim and returns the request to pending. Item
// progress, started_at, and any earlier completed_at are preserved; the
// next submit overwrites completed_at.
func (c *Coordinator) Release(ctx context.Context, user *types.User, name string) (*types.Request, error) {
	req, err := c.mutate(ctx, name, func(req *types.Request) error {
		switch req.Status {
		case types.StatusInProgress, types.StatusPaused, types.StatusPartiallyCompleted:
		default:
			return apperr.InvalidStatus(string(req.Status),
				"in_progress, paused, or partially_completed")
		}
		if err := verifyClaim(req, user); err != nil {
			return err
		}
		req.Status = types.StatusPending
		req.ClaimantID = ""
		req.ClaimantName = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("pick released",
		zap.String("name", req.Name), zap.String("by", user.Username))
	return req, nil
}

// Cancel terminates a request from any non-terminal state. Only the
// creator or an admin may cancel.
func (c *Coordinator) Cancel(ctx context.Context, user *types.User, name string) (*types.Request, error) {
	return c.mutate(ctx, name, func(req *types.Request) error {
		if req.Status.IsTerminal() {
			return apperr.InvalidStatus(string(req.Status),
				"pending, in_progress, paused, or partially_completed")
		}
		if req.CreatorID != user.ID && user.Role != types.RoleAdmin {
			return apperr.Forbidden("Only the creator or an admin can cancel a request")
		}
		req.Status = types.StatusCancelled
		req.ClaimantID = ""
		req.ClaimantName = ""
		return nil
	})
}

// Approve accepts a partially_completed request as final. Approval
// notes are appended to the request notes as an audit line.
func (c *Coordinator) Approve(ctx context.Context, user *types.User, name, notes string) (*types.Request, error) {
	return c.mutate(ctx, name, func(req *types.Request) error {
		if req.Status != types.StatusPartiallyCompleted {
			return apperr.InvalidStatus(string(req.Status), string(types.StatusPartiallyCompleted))
		}
		if req.CreatorID != user.ID && user.Role != types.RoleAdmin {
			return apperr.Forbidden("Only the creator or an admin can approve a request")
		}
		req.Status = types.StatusCompleted
		req.ClaimantID = ""
		req.ClaimantName = ""
		if notes != "" {
			req.Notes += "\n[APPROVED by " + user.Username + "]: " + notes
		}
		return nil
	})
}
