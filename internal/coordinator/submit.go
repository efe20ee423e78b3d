package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/types"
)

// SubmitResult is the outcome of a submit: the finalized request plus
// the completion log artifact. LogError is set when the DB transition
// succeeded but the log could not be written; the transition is
// authoritative and is not rolled back for a log failure.
type SubmitResult struct {
	Request  *types.Request `json:"request"`
	LogPath  string         `json:"log_path,omitempty"`
	LogError string         `json:"log_error,omitempty"`
}

// Submit finalizes an in_progress pick. Fully picked requests become
// completed and drop the claim; requests with shortages become
// partially_completed and keep the submitter accountable until approve
// or release. Every shortage item must carry a reason unless the
// caller explicitly skips validation.
func (c *Coordinator) Submit(ctx context.Context, user *types.User, name string, skipShortageValidation bool) (*SubmitResult, error) {
	req, err := c.mutate(ctx, name, func(req *types.Request) error {
		if req.Status != types.StatusInProgress {
			return apperr.InvalidStatus(string(req.Status), string(types.StatusInProgress))
		}
		if err := verifyClaim(req, user); err != nil {
			return err
		}

		short := req.ShortItems()
		if len(short) > 0 && !skipShortageValidation {
			for _, it := range short {
				if it.ShortageReason == "" {
					return apperr.Validation(fmt.Sprintf(
						"Item '%s' has a shortage but no shortage reason", it.ProductName))
				}
				if it.ShortageReason == types.ShortageOther && it.ShortageNotes == "" {
					return apperr.Validation(fmt.Sprintf(
						"Item '%s' has shortage reason 'other' but no notes", it.ProductName))
				}
			}
		}

		// Shortage annotations on fully picked items are stale.
		for _, it := range req.Items {
			if it.IsComplete() {
				it.ShortageReason = ""
				it.ShortageNotes = ""
			}
		}

		now := time.Now().UTC()
		req.CompletedAt = &now
		if len(short) == 0 {
			req.Status = types.StatusCompleted
			req.ClaimantID = ""
			req.ClaimantName = ""
		} else {
			req.Status = types.StatusPartiallyCompleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Request: req}
	if c.logs != nil {
		path, logErr := c.logs.Write(req)
		if logErr != nil {
			// Best effort: the transition already committed.
			result.LogError = logErr.Error()
			c.log.Warn("completion log write failed",
				zap.String("name", req.Name), zap.Error(logErr))
		} else {
			result.LogPath = path
		}
	}

	c.log.Info("pick submitted",
		zap.String("name", req.Name),
		zap.String("status", string(req.Status)),
		zap.String("by", user.Username),
		zap.Int("picked", req.TotalPicked()),
		zap.Int("requested", req.TotalRequested()))
	return result, nil
}

// ShortageGroup is one reason bucket in a shortage summary.
type ShortageGroup struct {
	Reason string        `json:"reason"`
	Items  []*types.Item `json:"items"`
}

// ShortageSummary groups a request's shortage items by reason.
func (c *Coordinator) ShortageSummary(ctx context.Context, name string) ([]ShortageGroup, error) {
	req, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var order []string
	byReason := make(map[string][]*types.Item)
	for _, it := range req.ShortItems() {
		reason := "Not specified"
		if it.ShortageReason != "" {
			reason = it.ShortageReason.DisplayName()
		}
		if _, ok := byReason[reason]; !ok {
			order = append(order, reason)
		}
		byReason[reason] = append(byReason[reason], it)
	}

	groups := make([]ShortageGroup, 0, len(order))
	for _, reason := range order {
		groups = append(groups, ShortageGroup{Reason: reason, Items: byReason[reason]})
	}
	return groups, nil
}
