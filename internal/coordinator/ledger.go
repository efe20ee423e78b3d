package coordinator

import (
	"context"
	"fmt"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/scanner"
	"github.com/warepick/warepick/internal/types"
)

// ItemUpdate is a quantity change: exactly one of Absolute or Increment
// must be set.
type ItemUpdate struct {
	Absolute  *int `json:"absolute,omitempty"`
	Increment *int `json:"increment,omitempty"`
}

// UpdateItem applies a quantity change to one item of an in_progress
// request held by the acting claimant. Writes above requested_qty are
// rejected, never clamped.
func (c *Coordinator) UpdateItem(ctx context.Context, user *types.User, name, upc string, upd ItemUpdate) (*types.Request, error) {
	if (upd.Absolute == nil) == (upd.Increment == nil) {
		return nil, apperr.Validation("Exactly one of absolute or increment is required")
	}
	return c.mutate(ctx, name, func(req *types.Request) error {
		item, err := c.claimedItem(req, user, upc)
		if err != nil {
			return err
		}
		remaining := item.RequestedQty - item.PickedQty

		if upd.Absolute != nil {
			n := *upd.Absolute
			if n < 0 {
				return apperr.Validation("Quantity cannot be negative")
			}
			if n > item.RequestedQty {
				return apperr.QuantityExceeded(remaining)
			}
			item.PickedQty = n
			return nil
		}

		k := *upd.Increment
		if k < 1 {
			return apperr.Validation("Increment must be at least 1")
		}
		if item.PickedQty+k > item.RequestedQty {
			return apperr.QuantityExceeded(remaining)
		}
		item.PickedQty += k
		return nil
	})
}

// SetItemShortage annotates an item with a shortage reason. Last write
// wins per item. Notes are mandatory iff the reason is "other".
func (c *Coordinator) SetItemShortage(ctx context.Context, user *types.User, name, upc string, reason types.ShortageReason, notes string) (*types.Request, error) {
	if !reason.IsValid() {
		return nil, apperr.Validation("Invalid shortage reason: " + string(reason))
	}
	if reason == types.ShortageOther && notes == "" {
		return nil, apperr.Validation("Shortage notes are required when reason is 'other'")
	}
	if len(notes) > MaxShortageNotesLength {
		return nil, apperr.Validation("Shortage notes must be at most 255 characters")
	}
	return c.mutate(ctx, name, func(req *types.Request) error {
		item, err := c.claimedItem(req, user, upc)
		if err != nil {
			return err
		}
		item.ShortageReason = reason
		item.ShortageNotes = notes
		return nil
	})
}

// ScanResult reports what a scanned code resolved to.
type ScanResult struct {
	Request *types.Request `json:"request"`
	Item    *types.Item    `json:"item"`
	Mode    scanner.Mode   `json:"mode"`
	// Updated is true when the scan auto-incremented the item. A scan
	// of an already-full scan-to-count item is a silent no-op.
	Updated bool `json:"updated"`
}

// Scan resolves a decoded code against the request's items. In
// scan-to-count mode (requested_qty at or under the threshold) the
// matched item is incremented by one; in bulk mode the detection is
// returned and the operator supplies an absolute quantity.
func (c *Coordinator) Scan(ctx context.Context, user *types.User, name, code string) (*ScanResult, error) {
	result := &ScanResult{}
	req, err := c.mutate(ctx, name, func(req *types.Request) error {
		if req.Status != types.StatusInProgress {
			return apperr.InvalidStatus(string(req.Status), string(types.StatusInProgress))
		}
		if err := verifyClaim(req, user); err != nil {
			return err
		}
		item := scanner.MatchItem(req.Items, code)
		if item == nil {
			return apperr.Validation(fmt.Sprintf("No item in this request matches code '%s'", code))
		}
		result.Mode = scanner.ModeFor(item, c.threshold)
		if result.Mode == scanner.ModeScanToCount && item.PickedQty < item.RequestedQty {
			item.PickedQty++
			result.Updated = true
		}
		result.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Request = req
	result.Item = req.ItemByUPC(result.Item.UPC)
	return result, nil
}

// claimedItem enforces the common ledger preconditions and resolves
// the item by UPC.
func (c *Coordinator) claimedItem(req *types.Request, user *types.User, upc string) (*types.Item, error) {
	if req.Status != types.StatusInProgress {
		return nil, apperr.InvalidStatus(string(req.Status), string(types.StatusInProgress))
	}
	if err := verifyClaim(req, user); err != nil {
		return nil, err
	}
	item := req.ItemByUPC(upc)
	if item == nil {
		return nil, apperr.Validation(fmt.Sprintf("Item with UPC '%s' not found in request", upc))
	}
	return item, nil
}
