package picklog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/warepick/warepick/internal/types"
)

func sampleRequest() *types.Request {
	created := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	started := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	completed := time.Date(2026, 1, 15, 11, 30, 45, 0, time.UTC)
	return &types.Request{
		Name:         "monday-restock",
		Status:       types.StatusPartiallyCompleted,
		Priority:     types.PriorityNormal,
		Notes:        "front aisle first",
		CreatorName:  "alice",
		ClaimantName: "bob",
		CreatedAt:    created,
		StartedAt:    &started,
		CompletedAt:  &completed,
		Items: []*types.Item{
			{UPC: "29456086", ProductName: "Big Mix", RequestedQty: 3, PickedQty: 3},
			{UPC: "29377107", ProductName: "Cookies", RequestedQty: 2, PickedQty: 1,
				ShortageReason: types.ShortageOutOfStock, ShortageNotes: "back room empty"},
		},
	}
}

func TestFormatLayout(t *testing.T) {
	w := NewWriter(t.TempDir())
	w.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	out := w.Format(sampleRequest())

	wantLines := []string{
		"PICK COMPLETION LOG",
		"Request Name:    monday-restock",
		"Status:          PARTIALLY_COMPLETED",
		"Priority:        NORMAL",
		"Notes:           front aisle first",
		"Created By:      alice",
		"Started At:      2026-01-15 10:00:00",
		"Completed At:    2026-01-15 11:30:45",
		"Duration:        1 hour 30 minutes 45 seconds",
		"Picked By:       bob",
		"[✓] COMPLETE",
		"    Product:     Big Mix",
		"    Quantity:    3/3",
		"[!] SHORT",
		"    Product:     Cookies",
		"    Requested:   2",
		"    Picked:      1",
		"    Shortage:    1 items",
		"    Reason:      Out of Stock",
		"    Notes:       back room empty",
		"Total Products:     2",
		"Complete:           1",
		"Short:              1",
		"Total Requested:    5 items",
		"Total Picked:       4 items",
		"Completion Rate:    80.0%",
		"SHORTAGE DETAILS",
		"Total Items Short: 1",
		"Total Qty Short:   1",
		"  Out of Stock:",
		"    - Cookies: 1 short",
		"      Note: back room empty",
		"Generated: 2026-01-15 12:00:00",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("log missing line %q", want)
		}
	}
}

func TestWriteFilename(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "logs"))
	w.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	path, err := w.Write(sampleRequest())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	base := filepath.Base(path)
	pattern := regexp.MustCompile(`^pick_monday-restock_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.log$`)
	if !pattern.MatchString(base) {
		t.Errorf("filename %q does not match the required pattern", base)
	}
	if base != "pick_monday-restock_2026-01-15_12-00-00.log" {
		t.Errorf("filename = %q, want the fixed-clock name", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "PICK COMPLETION LOG") {
		t.Error("written file missing header")
	}
}

func TestFormatNoShortages(t *testing.T) {
	w := NewWriter(t.TempDir())
	req := sampleRequest()
	req.Status = types.StatusCompleted
	req.Items[1].PickedQty = 2
	req.Items[1].ShortageReason = ""
	req.Items[1].ShortageNotes = ""

	out := w.Format(req)
	if strings.Contains(out, "SHORTAGE DETAILS") {
		t.Error("fully picked request must not have a shortage section")
	}
	if !strings.Contains(out, "Completion Rate:    100.0%") {
		t.Error("expected 100.0% completion rate")
	}
}
