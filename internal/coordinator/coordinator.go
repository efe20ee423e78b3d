// Package coordinator implements the pick request lifecycle: the state
// machine, the exclusive claim discipline, the item ledger, and
// submission. Every mutating operation runs in a single storage
// transaction and returns either the new view of the request or a
// tagged error for the transport to map.
package coordinator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/namevalid"
	"github.com/warepick/warepick/internal/picklog"
	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

// MaxNotesLength bounds request notes.
const MaxNotesLength = 500

// MaxShortageNotesLength bounds per-item shortage notes.
const MaxShortageNotesLength = 255

// DefaultAutoModeThreshold is the requested-qty boundary between
// scan-to-count and bulk entry.
const DefaultAutoModeThreshold = 10

// Coordinator is the service facade over the request store.
type Coordinator struct {
	store     storage.Storage
	logs      *picklog.Writer
	log       *zap.Logger
	threshold int
}

// Options tunes coordinator behavior.
type Options struct {
	// AutoModeThreshold is the scan-to-count boundary; zero means the
	// default of 10.
	AutoModeThreshold int
}

// New creates a coordinator over the given store and log writer
func New(store storage.Storage, logs *picklog.Writer, logger *zap.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := opts.AutoModeThreshold
	if threshold <= 0 {
		threshold = DefaultAutoModeThreshold
	}
	return &Coordinator{store: store, logs: logs, log: logger, threshold: threshold}
}

// NameCheck is the result of validating a request name.
type NameCheck struct {
	Available  bool   `json:"available"`
	Normalized string `json:"normalized,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ValidateName canonicalizes a raw name and reports availability
// against the store.
func (c *Coordinator) ValidateName(ctx context.Context, raw string) (NameCheck, error) {
	res := namevalid.ValidateName(raw)
	if !res.Valid {
		return NameCheck{Error: res.Error}, nil
	}
	_, err := c.store.GetRequest(ctx, res.Normalized)
	switch {
	case err == nil:
		return NameCheck{
			Normalized: res.Normalized,
			Error:      "Request name '" + res.Normalized + "' already exists",
		}, nil
	case errors.Is(err, storage.ErrNotFound):
		return NameCheck{Available: true, Normalized: res.Normalized}, nil
	default:
		return NameCheck{}, c.translate("", err)
	}
}

// CreateParams is the payload for creating a pick request.
type CreateParams struct {
	Name     string           `json:"name"`
	Priority types.Priority   `json:"priority"`
	Notes    string           `json:"notes"`
	Items    []types.ItemSpec `json:"items"`
}

// Create validates the payload and inserts a pending request.
func (c *Coordinator) Create(ctx context.Context, user *types.User, params CreateParams) (*types.Request, error) {
	if !user.Role.CanCreate() {
		return nil, apperr.Forbidden("Only requesters and admins can create pick requests")
	}

	res := namevalid.ValidateName(params.Name)
	if !res.Valid {
		return nil, apperr.InvalidRequestName(params.Name, res.Error)
	}
	name := res.Normalized

	priority := params.Priority
	if priority == "" {
		priority = types.PriorityNormal
	}
	if !priority.IsValid() {
		return nil, apperr.Validation("Invalid priority: " + string(priority))
	}
	if len(params.Notes) > MaxNotesLength {
		return nil, apperr.Validation("Notes must be at most 500 characters")
	}
	if len(params.Items) == 0 {
		return nil, apperr.Validation("At least one item is required")
	}

	seen := make(map[string]bool, len(params.Items))
	items := make([]*types.Item, 0, len(params.Items))
	for _, spec := range params.Items {
		upc := strings.TrimSpace(spec.UPC)
		if err := namevalid.ValidateUPC(upc); err != nil {
			return nil, apperr.Validation(err.Error())
		}
		if seen[upc] {
			return nil, apperr.Validation("Duplicate UPC in request: " + upc)
		}
		seen[upc] = true
		if spec.ProductName == "" {
			return nil, apperr.Validation("Product name is required for UPC " + upc)
		}
		if spec.Quantity < 1 {
			return nil, apperr.Validation("Quantity must be at least 1")
		}
		if err := namevalid.ValidateQuantity(spec.Quantity, 0); err != nil {
			return nil, apperr.Validation(err.Error())
		}
		items = append(items, &types.Item{
			UPC:          upc,
			ProductName:  spec.ProductName,
			RequestedQty: spec.Quantity,
		})
	}

	req := &types.Request{
		Name:        name,
		Status:      types.StatusPending,
		Priority:    priority,
		Notes:       params.Notes,
		CreatorID:   user.ID,
		CreatorName: user.Username,
		Items:       items,
	}
	if err := c.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.RequestNameExists(name)
		}
		return nil, c.translate(name, err)
	}

	c.log.Info("pick request created",
		zap.String("name", name),
		zap.String("creator", user.Username),
		zap.Int("items", len(items)))
	return c.Get(ctx, name)
}

// Get fetches a request by name
func (c *Coordinator) Get(ctx context.Context, name string) (*types.Request, error) {
	req, err := c.store.GetRequest(ctx, strings.ToLower(name))
	if err != nil {
		return nil, c.translate(name, err)
	}
	return req, nil
}

// MaxListLimit caps the page size of List.
const MaxListLimit = 100

// List returns requests matching the filter plus the unpaged total.
// Ordering is urgent before normal before low, then newest first.
func (c *Coordinator) List(ctx context.Context, filter types.RequestFilter, offset, limit int) ([]*types.Request, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.store.ListRequests(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, c.translate("", err)
	}
	total, err := c.store.CountRequests(ctx, filter)
	if err != nil {
		return nil, 0, c.translate("", err)
	}
	return rows, total, nil
}

// Delete removes a pending request. Only the creator or an admin may
// delete, and only while nothing has happened to it.
func (c *Coordinator) Delete(ctx context.Context, user *types.User, name string) error {
	req, err := c.Get(ctx, name)
	if err != nil {
		return err
	}
	if req.CreatorID != user.ID && user.Role != types.RoleAdmin {
		return apperr.Forbidden("Only the creator or an admin can delete a request")
	}
	if req.Status != types.StatusPending {
		return apperr.InvalidStatus(string(req.Status), string(types.StatusPending))
	}
	if err := c.store.DeleteRequest(ctx, req.Name); err != nil {
		return c.translate(name, err)
	}
	c.log.Info("pick request deleted",
		zap.String("name", req.Name), zap.String("by", user.Username))
	return nil
}

// mutate runs fn in a storage transaction, retrying a couple of times
// when the guarded write loses a race. The retry re-reads the request,
// so a state change by the winner surfaces as the proper status error
// instead of a bare conflict.
func (c *Coordinator) mutate(ctx context.Context, name string, fn storage.MutateFunc) (*types.Request, error) {
	name = strings.ToLower(name)
	var req *types.Request
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		req, err = c.store.Mutate(ctx, name, fn)
		if !errors.Is(err, storage.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, c.translate(name, err)
	}
	return req, nil
}

// verifyClaim checks the acting user against the request's claimant.
// Admins bypass the identity check but not the state machine.
func verifyClaim(req *types.Request, user *types.User) error {
	if req.ClaimantID == user.ID || user.Role == types.RoleAdmin {
		return nil
	}
	holder := req.ClaimantName
	if holder == "" {
		holder = req.ClaimantID
	}
	return apperr.RequestLocked(holder)
}

// translate converts storage errors to tagged errors. Tagged errors
// pass through so closures can fail with precise codes.
func (c *Coordinator) translate(name string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.RequestNotFound(strings.ToLower(name))
	}
	c.log.Error("storage failure", zap.String("request", name), zap.Error(err))
	return apperr.Internal("")
}
