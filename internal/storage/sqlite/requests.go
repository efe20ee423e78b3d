package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

// querier abstracts *sql.DB and *sql.Tx so request loading can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const requestColumns = `
	r.name, r.status, r.priority, r.notes,
	COALESCE(r.creator_id, ''), COALESCE(r.claimant_id, ''),
	r.created_at, r.started_at, r.completed_at, r.last_activity_at,
	COALESCE(cu.username, ''), COALESCE(lu.username, '')`

const requestJoin = `
	FROM pick_requests r
	LEFT JOIN users cu ON cu.id = r.creator_id
	LEFT JOIN users lu ON lu.id = r.claimant_id`

// CreateRequest inserts the request row and all items in one
// transaction. A name collision surfaces as storage.ErrDuplicate.
func (s *Store) CreateRequest(ctx context.Context, req *types.Request) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("create request %s: at least one item required", req.Name)
	}

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.LastActivityAt = now
	if req.Status == "" {
		req.Status = types.StatusPending
	}
	if req.Priority == "" {
		req.Priority = types.PriorityNormal
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("create request", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pick_requests (name, status, priority, notes, creator_id,
			claimant_id, created_at, started_at, completed_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, NULL, NULL, ?)`,
		req.Name, string(req.Status), string(req.Priority), req.Notes,
		nullIfEmpty(req.CreatorID), req.CreatedAt, req.LastActivityAt)
	if err != nil {
		return wrapDBErrorf(err, "create request %s", req.Name)
	}

	for _, it := range req.Items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.RequestName = req.Name
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pick_items (id, request_name, upc, product_name,
				requested_qty, picked_qty, shortage_reason, shortage_notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, req.Name, it.UPC, it.ProductName,
			it.RequestedQty, it.PickedQty,
			nullIfEmpty(string(it.ShortageReason)), nullIfEmpty(it.ShortageNotes))
		if err != nil {
			return wrapDBErrorf(err, "create item %s for %s", it.UPC, req.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapDBError("create request", err)
	}
	return nil
}

// GetRequest loads a request with its items and resolved usernames
func (s *Store) GetRequest(ctx context.Context, name string) (*types.Request, error) {
	return s.loadRequest(ctx, s.db, name)
}

func (s *Store) loadRequest(ctx context.Context, q querier, name string) (*types.Request, error) {
	row := q.QueryRowContext(ctx,
		"SELECT"+requestColumns+requestJoin+" WHERE r.name = ?", name)
	req, err := scanRequest(row)
	if err != nil {
		return nil, wrapDBErrorf(err, "get request %s", name)
	}
	if err := s.loadItems(ctx, q, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) loadItems(ctx context.Context, q querier, req *types.Request) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, request_name, upc, product_name, requested_qty, picked_qty,
			COALESCE(shortage_reason, ''), COALESCE(shortage_notes, '')
		FROM pick_items WHERE request_name = ? ORDER BY rowid`, req.Name)
	if err != nil {
		return wrapDBErrorf(err, "load items for %s", req.Name)
	}
	defer rows.Close()

	for rows.Next() {
		var it types.Item
		var reason string
		if err := rows.Scan(&it.ID, &it.RequestName, &it.UPC, &it.ProductName,
			&it.RequestedQty, &it.PickedQty, &reason, &it.ShortageNotes); err != nil {
			return wrapDBErrorf(err, "scan item for %s", req.Name)
		}
		it.ShortageReason = types.ShortageReason(reason)
		req.Items = append(req.Items, &it)
	}
	return rows.Err()
}

// ListRequests returns requests matching the filter, ordered urgent
// before normal before low, then newest first.
func (s *Store) ListRequests(ctx context.Context, filter types.RequestFilter, offset, limit int) ([]*types.Request, error) {
	where, args := buildFilter(filter)
	query := "SELECT" + requestColumns + requestJoin + where + `
		ORDER BY CASE r.priority WHEN 'urgent' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
			r.created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list requests", err)
	}
	defer rows.Close()

	var reqs []*types.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, wrapDBError("list requests", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("list requests", err)
	}

	for _, req := range reqs {
		if err := s.loadItems(ctx, s.db, req); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// CountRequests counts requests matching the filter
func (s *Store) CountRequests(ctx context.Context, filter types.RequestFilter) (int, error) {
	where, args := buildFilter(filter)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pick_requests r"+where, args...).Scan(&count)
	if err != nil {
		return 0, wrapDBError("count requests", err)
	}
	return count, nil
}

// DeleteRequest removes a request; items cascade
func (s *Store) DeleteRequest(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pick_requests WHERE name = ?`, name)
	if err != nil {
		return wrapDBErrorf(err, "delete request %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete request", err)
	}
	if n == 0 {
		return wrapDBErrorf(sql.ErrNoRows, "delete request %s", name)
	}
	return nil
}

// Mutate loads the request inside a transaction, applies fn, and writes
// the result back guarded by the status and claimant that were read.
// If another writer got there first the guarded update matches nothing
// and storage.ErrConflict is returned with no changes committed.
func (s *Store) Mutate(ctx context.Context, name string, fn storage.MutateFunc) (*types.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDBError("mutate", err)
	}
	defer tx.Rollback()

	req, err := s.loadRequest(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	prevStatus := req.Status
	prevClaimant := req.ClaimantID

	if err := fn(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req.LastActivityAt = now

	res, err := tx.ExecContext(ctx, `
		UPDATE pick_requests
		SET status = ?, notes = ?, claimant_id = ?, started_at = ?,
			completed_at = ?, last_activity_at = ?
		WHERE name = ? AND status = ? AND COALESCE(claimant_id, '') = ?`,
		string(req.Status), req.Notes, nullIfEmpty(req.ClaimantID),
		nullTime(req.StartedAt), nullTime(req.CompletedAt), now,
		name, string(prevStatus), prevClaimant)
	if err != nil {
		return nil, wrapDBErrorf(err, "mutate request %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, wrapDBError("mutate request", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("mutate request %s: %w", name, storage.ErrConflict)
	}

	for _, it := range req.Items {
		_, err := tx.ExecContext(ctx, `
			UPDATE pick_items
			SET picked_qty = ?, shortage_reason = ?, shortage_notes = ?
			WHERE id = ?`,
			it.PickedQty, nullIfEmpty(string(it.ShortageReason)),
			nullIfEmpty(it.ShortageNotes), it.ID)
		if err != nil {
			return nil, wrapDBErrorf(err, "mutate item %s", it.UPC)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapDBError("mutate request", err)
	}

	// Refresh the claimant username for the returned view.
	if req.ClaimantID == "" {
		req.ClaimantName = ""
	} else if req.ClaimantName == "" {
		if u, err := s.GetUser(ctx, req.ClaimantID); err == nil {
			req.ClaimantName = u.Username
		}
	}
	return req, nil
}

// StaleClaims returns in_progress requests idle since before cutoff
func (s *Store) StaleClaims(ctx context.Context, cutoff time.Time) ([]*types.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT"+requestColumns+requestJoin+`
		WHERE r.status = 'in_progress' AND r.last_activity_at < ?`, cutoff.UTC())
	if err != nil {
		return nil, wrapDBError("stale claims", err)
	}
	defer rows.Close()

	var reqs []*types.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, wrapDBError("stale claims", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// ReleaseIfIdle releases a stale claim back to pending in a single
// guarded update. Item progress and started_at are untouched. Returns
// false when the request was touched since cutoff or already left
// in_progress.
func (s *Store) ReleaseIfIdle(ctx context.Context, name string, cutoff time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pick_requests
		SET status = 'pending', claimant_id = NULL, last_activity_at = ?
		WHERE name = ? AND status = 'in_progress' AND last_activity_at < ?`,
		time.Now().UTC(), name, cutoff.UTC())
	if err != nil {
		return false, wrapDBErrorf(err, "release idle %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapDBError("release idle", err)
	}
	return n > 0, nil
}

// PurgeCompletedBefore deletes completed requests older than cutoff.
// Items cascade. Returns the number of requests removed.
func (s *Store) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pick_requests
		WHERE status = 'completed' AND completed_at IS NOT NULL AND completed_at < ?`,
		cutoff.UTC())
	if err != nil {
		return 0, wrapDBError("purge completed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError("purge completed", err)
	}
	return int(n), nil
}

func buildFilter(filter types.RequestFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.Status != nil {
		conds = append(conds, "r.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conds = append(conds, "r.priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.CreatorID != nil {
		conds = append(conds, "r.creator_id = ?")
		args = append(args, *filter.CreatorID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRequest(row rowScanner) (*types.Request, error) {
	var req types.Request
	var status, priority string
	var started, completed sql.NullTime
	if err := row.Scan(&req.Name, &status, &priority, &req.Notes,
		&req.CreatorID, &req.ClaimantID,
		&req.CreatedAt, &started, &completed, &req.LastActivityAt,
		&req.CreatorName, &req.ClaimantName); err != nil {
		return nil, err
	}
	req.Status = types.Status(status)
	req.Priority = types.Priority(priority)
	if started.Valid {
		t := started.Time
		req.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		req.CompletedAt = &t
	}
	return &req, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
