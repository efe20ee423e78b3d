package scanner

import (
	"testing"

	"github.com/warepick/warepick/internal/types"
)

func TestMatchItem(t *testing.T) {
	items := []*types.Item{
		{UPC: "2945", ProductName: "Short"},
		{UPC: "29456086", ProductName: "Long"},
		{UPC: "77777", ProductName: "Other"},
	}

	// Longest matching stored UPC wins.
	if got := MatchItem(items, "0029456086004"); got == nil || got.ProductName != "Long" {
		t.Errorf("MatchItem = %v, want the longest match", got)
	}

	// Only the short one matches.
	if got := MatchItem(items, "xx2945yy"); got == nil || got.ProductName != "Short" {
		t.Errorf("MatchItem = %v, want Short", got)
	}

	if got := MatchItem(items, "00000"); got != nil {
		t.Errorf("MatchItem = %v, want nil for no match", got)
	}
}

func TestMatchItemTieBreak(t *testing.T) {
	items := []*types.Item{
		{UPC: "bbbb", ProductName: "B"},
		{UPC: "aaaa", ProductName: "A"},
	}
	// Both length 4 and both substrings: lexicographic tie-break.
	if got := MatchItem(items, "aaaabbbb"); got == nil || got.ProductName != "A" {
		t.Errorf("MatchItem = %v, want A on tie", got)
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(&types.Item{RequestedQty: 10}, 10) != ModeScanToCount {
		t.Error("qty at threshold is scan-to-count")
	}
	if ModeFor(&types.Item{RequestedQty: 11}, 10) != ModeBulkEntry {
		t.Error("qty above threshold is bulk entry")
	}
}
