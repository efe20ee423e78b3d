// Package scanner adapts decoded barcode input to pick request items.
//
// There is no camera here: decoders run on the operator's device and
// the service only sees decoded code strings.
package scanner

import (
	"strings"

	"github.com/warepick/warepick/internal/types"
)

// Mode says how the UI should treat a detected item.
type Mode string

const (
	// ModeScanToCount increments by one per scan.
	ModeScanToCount Mode = "scan_to_count"
	// ModeBulkEntry surfaces the detection and waits for an absolute
	// quantity from the operator.
	ModeBulkEntry Mode = "bulk_entry"
)

// ModeFor selects the picking mode for an item against the configured
// threshold.
func ModeFor(item *types.Item, threshold int) Mode {
	if item.RequestedQty <= threshold {
		return ModeScanToCount
	}
	return ModeBulkEntry
}

// MatchItem finds the request item whose UPC matches a scanned code.
// A stored UPC matches iff it is a substring of the code. When several
// match, the longest stored UPC wins; ties break lexicographically so
// the result is deterministic.
func MatchItem(items []*types.Item, code string) *types.Item {
	var best *types.Item
	for _, it := range items {
		if it.UPC == "" || !strings.Contains(code, it.UPC) {
			continue
		}
		if best == nil ||
			len(it.UPC) > len(best.UPC) ||
			(len(it.UPC) == len(best.UPC) && it.UPC < best.UPC) {
			best = it
		}
	}
	return best
}
