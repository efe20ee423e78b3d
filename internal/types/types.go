// Package types defines the core data structures for warepick.
package types

import (
	"fmt"
	"time"
)

// Role represents a user's capability class.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRequester Role = "requester"
	RolePicker    Role = "picker"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleRequester, RolePicker:
		return true
	}
	return false
}

// CanCreate reports whether the role may create pick requests.
func (r Role) CanCreate() bool {
	return r == RoleAdmin || r == RoleRequester
}

// CanPick reports whether the role may claim and work pick requests.
func (r Role) CanPick() bool {
	return r == RoleAdmin || r == RolePicker
}

// User represents an authenticated principal.
// Users are soft-deleted: Active is cleared instead of removing the row.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PasswordHash is never serialized.
	PasswordHash string `json:"-"`
}

// Status represents the lifecycle state of a pick request.
type Status string

const (
	StatusPending            Status = "pending"
	StatusInProgress         Status = "in_progress"
	StatusPaused             Status = "paused"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPaused,
		StatusPartiallyCompleted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsClaimed reports whether the status implies a claimant is assigned.
func (s Status) IsClaimed() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusPartiallyCompleted:
		return true
	}
	return false
}

// Priority represents pick request urgency.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// SortOrder returns the list ordering rank. Urgent sorts first.
func (p Priority) SortOrder() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	}
	return 1
}

// ShortageReason classifies why an item came up short.
type ShortageReason string

const (
	ShortageOutOfStock ShortageReason = "out_of_stock"
	ShortageDamaged    ShortageReason = "damaged"
	ShortageExpired    ShortageReason = "expired"
	ShortageNotFound   ShortageReason = "not_found"
	ShortageOther      ShortageReason = "other"
)

// IsValid checks if the shortage reason is valid
func (r ShortageReason) IsValid() bool {
	switch r {
	case ShortageOutOfStock, ShortageDamaged, ShortageExpired,
		ShortageNotFound, ShortageOther:
		return true
	}
	return false
}

// DisplayName returns the human-readable form used in completion logs.
func (r ShortageReason) DisplayName() string {
	switch r {
	case ShortageOutOfStock:
		return "Out of Stock"
	case ShortageDamaged:
		return "Damaged"
	case ShortageExpired:
		return "Expired"
	case ShortageNotFound:
		return "Not Found"
	case ShortageOther:
		return "Other"
	}
	return "Not specified"
}

// Item is one line of a pick request. UPC is unique within a request.
type Item struct {
	ID             string         `json:"id"`
	RequestName    string         `json:"request_name"`
	UPC            string         `json:"upc"`
	ProductName    string         `json:"product_name"`
	RequestedQty   int            `json:"requested_qty"`
	PickedQty      int            `json:"picked_qty"`
	ShortageReason ShortageReason `json:"shortage_reason,omitempty"`
	ShortageNotes  string         `json:"shortage_notes,omitempty"`
}

// IsComplete reports whether the full requested quantity was picked.
func (i *Item) IsComplete() bool {
	return i.PickedQty >= i.RequestedQty
}

// Remaining returns how many units are still unpicked.
func (i *Item) Remaining() int {
	r := i.RequestedQty - i.PickedQty
	if r < 0 {
		return 0
	}
	return r
}

// HasShortage reports whether the item was picked short.
func (i *Item) HasShortage() bool {
	return i.PickedQty < i.RequestedQty
}

// Request is a named bundle of items to pick. Name is the primary key,
// lowercased and immutable after creation.
type Request struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Notes    string   `json:"notes,omitempty"`

	CreatorID  string `json:"creator_id"`
	ClaimantID string `json:"claimant_id,omitempty"`

	// Usernames resolved at read time for display.
	CreatorName  string `json:"creator_name,omitempty"`
	ClaimantName string `json:"claimant_name,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`

	Items []*Item `json:"items"`
}

// TotalRequested sums requested quantities across items.
func (r *Request) TotalRequested() int {
	total := 0
	for _, it := range r.Items {
		total += it.RequestedQty
	}
	return total
}

// TotalPicked sums picked quantities across items.
func (r *Request) TotalPicked() int {
	total := 0
	for _, it := range r.Items {
		total += it.PickedQty
	}
	return total
}

// CompletionRate returns picked/requested as a percentage.
func (r *Request) CompletionRate() float64 {
	requested := r.TotalRequested()
	if requested == 0 {
		return 0
	}
	return float64(r.TotalPicked()) / float64(requested) * 100
}

// ShortItems returns the items with a shortage.
func (r *Request) ShortItems() []*Item {
	var short []*Item
	for _, it := range r.Items {
		if it.HasShortage() {
			short = append(short, it)
		}
	}
	return short
}

// ItemByUPC returns the item with the given UPC, or nil.
func (r *Request) ItemByUPC(upc string) *Item {
	for _, it := range r.Items {
		if it.UPC == upc {
			return it
		}
	}
	return nil
}

// Validate checks structural invariants on a request.
func (r *Request) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("request name is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if !r.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", r.Priority)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("request must have at least one item")
	}
	if r.Status.IsClaimed() && r.ClaimantID == "" {
		return fmt.Errorf("status %s requires a claimant", r.Status)
	}
	if !r.Status.IsClaimed() && r.ClaimantID != "" {
		return fmt.Errorf("status %s forbids a claimant", r.Status)
	}
	for _, it := range r.Items {
		if it.PickedQty < 0 || it.PickedQty > it.RequestedQty {
			return fmt.Errorf("item %s: picked_qty %d out of range [0,%d]",
				it.UPC, it.PickedQty, it.RequestedQty)
		}
	}
	return nil
}

// ItemSpec is the creation payload for one item.
type ItemSpec struct {
	UPC         string `json:"upc"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// RequestFilter selects requests for list and count operations.
// Nil fields match everything.
type RequestFilter struct {
	Status    *Status
	Priority  *Priority
	CreatorID *string
}

// Product is one catalog entry.
type Product struct {
	Name         string `json:"name"`
	UPC          string `json:"upc"`
	MainCategory string `json:"main_category,omitempty"`
	Subcategory  string `json:"subcategory,omitempty"`
}
