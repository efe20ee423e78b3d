// Package picklog renders plain-text completion logs for finished
// pick requests.
package picklog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warepick/warepick/internal/types"
)

const separator = "================================================================================"
const dashSeparator = "--------------------------------------------------------------------------------"

// Writer writes completion logs into a directory, creating it if
// needed. The writer has no other side effects.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a log writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write renders and writes the completion log for a finalized request.
// Returns the path of the written file.
func (w *Writer) Write(req *types.Request) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	ts := w.now().UTC().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("pick_%s_%s.log", req.Name, ts)
	path := filepath.Join(w.dir, filename)

	if err := os.WriteFile(path, []byte(w.Format(req)), 0o640); err != nil {
		return "", fmt.Errorf("write completion log: %w", err)
	}
	return path, nil
}

// Format renders the fixed-layout log document
func (w *Writer) Format(req *types.Request) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(separator)
	line("PICK COMPLETION LOG")
	line(separator)
	line("")
	line("Request Name:    %s", req.Name)
	line("Status:          %s", strings.ToUpper(string(req.Status)))
	line("Priority:        %s", strings.ToUpper(string(req.Priority)))
	if req.Notes != "" {
		line("Notes:           %s", req.Notes)
	}
	line("")
	line("Created At:      %s", formatTime(&req.CreatedAt))
	line("Created By:      %s", orUnknown(req.CreatorName))
	line("")
	if req.StartedAt != nil {
		line("Started At:      %s", formatTime(req.StartedAt))
	}
	if req.CompletedAt != nil {
		line("Completed At:    %s", formatTime(req.CompletedAt))
		if req.StartedAt != nil {
			line("Duration:        %s", formatDuration(req.CompletedAt.Sub(*req.StartedAt)))
		}
	}
	line("Picked By:       %s", orUnknown(req.ClaimantName))
	line("")

	line(separator)
	line("ITEMS")
	line(separator)
	line("")

	var complete, short []*types.Item
	for _, it := range req.Items {
		if it.IsComplete() {
			complete = append(complete, it)
		} else {
			short = append(short, it)
		}
	}

	for _, it := range complete {
		line("[✓] COMPLETE")
		line("    Product:     %s", it.ProductName)
		line("    UPC:         %s", it.UPC)
		line("    Quantity:    %d/%d", it.PickedQty, it.RequestedQty)
		line("")
	}
	for _, it := range short {
		line("[!] SHORT")
		line("    Product:     %s", it.ProductName)
		line("    UPC:         %s", it.UPC)
		line("    Requested:   %d", it.RequestedQty)
		line("    Picked:      %d", it.PickedQty)
		line("    Shortage:    %d items", it.Remaining())
		if it.ShortageReason != "" {
			line("    Reason:      %s", it.ShortageReason.DisplayName())
		} else {
			line("    Reason:      Not specified")
		}
		if it.ShortageNotes != "" {
			line("    Notes:       %s", it.ShortageNotes)
		}
		line("")
	}

	line(separator)
	line("SUMMARY")
	line(separator)
	line("")
	line("Total Products:     %d", len(req.Items))
	line("Complete:           %d", len(complete))
	line("Short:              %d", len(short))
	line("")
	line("Total Requested:    %d items", req.TotalRequested())
	line("Total Picked:       %d items", req.TotalPicked())
	line("Completion Rate:    %.1f%%", req.CompletionRate())
	line("")

	if len(short) > 0 {
		line(dashSeparator)
		line("SHORTAGE DETAILS")
		line(dashSeparator)
		line("")

		totalShort := 0
		for _, it := range short {
			totalShort += it.Remaining()
		}
		line("Total Items Short: %d", len(short))
		line("Total Qty Short:   %d", totalShort)
		line("")

		// Group by reason, preserving first-seen order.
		var order []string
		byReason := make(map[string][]*types.Item)
		for _, it := range short {
			reason := "Not specified"
			if it.ShortageReason != "" {
				reason = it.ShortageReason.DisplayName()
			}
			if _, ok := byReason[reason]; !ok {
				order = append(order, reason)
			}
			byReason[reason] = append(byReason[reason], it)
		}
		for _, reason := range order {
			line("  %s:", reason)
			for _, it := range byReason[reason] {
				line("    - %s: %d short", it.ProductName, it.Remaining())
				if it.ShortageNotes != "" {
					line("      Note: %s", it.ShortageNotes)
				}
			}
			line("")
		}
	}

	line(separator)
	now := w.now().UTC()
	line("Generated: %s", formatTime(&now))
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "N/A"
	}
	secs := int(d.Seconds())
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
