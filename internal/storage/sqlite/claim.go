package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/warepick/warepick/internal/storage"
)

// AcquireClaim atomically claims a pending request for userID.
//
// The claim is a single conditional update: it succeeds only while the
// request is still pending with no claimant, so two concurrent callers
// cannot both win. When the update matches nothing the request is
// re-read to report why: ErrAlreadyClaimed names the holder, ErrConflict
// covers a request that left pending without a claimant.
func (s *Store) AcquireClaim(ctx context.Context, name, userID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE pick_requests
		SET claimant_id = ?, status = 'in_progress',
			started_at = COALESCE(started_at, ?), last_activity_at = ?
		WHERE name = ? AND status = 'pending' AND claimant_id IS NULL`,
		userID, now, now, name)
	if err != nil {
		return wrapDBErrorf(err, "claim request %s", name)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("claim request", err)
	}
	if n > 0 {
		return nil
	}

	// Lost the race or wrong state. Re-read to say which.
	req, err := s.loadRequest(ctx, s.db, name)
	if err != nil {
		return err
	}
	if req.ClaimantID != "" && req.ClaimantID != userID {
		holder := req.ClaimantName
		if holder == "" {
			holder = req.ClaimantID
		}
		return fmt.Errorf("%w by %s", storage.ErrAlreadyClaimed, holder)
	}
	return fmt.Errorf("claim request %s: status is %s: %w",
		name, req.Status, storage.ErrConflict)
}
