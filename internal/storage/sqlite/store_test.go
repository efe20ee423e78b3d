package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

// setupTestDB creates an in-memory store for testing
func setupTestDB(t *testing.T) (*Store, func()) {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, func() { store.Close() }
}

func testUser(t *testing.T, store *Store, username string, role types.Role) *types.User {
	t.Helper()
	u := &types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		Active:       true,
		PasswordHash: "x",
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func testRequest(t *testing.T, store *Store, name string, creator *types.User, items ...*types.Item) *types.Request {
	t.Helper()
	if len(items) == 0 {
		items = []*types.Item{
			{UPC: "29456086", ProductName: "Big Mix", RequestedQty: 3},
			{UPC: "29377107", ProductName: "Cookies", RequestedQty: 2},
		}
	}
	req := &types.Request{
		Name:      name,
		Status:    types.StatusPending,
		Priority:  types.PriorityNormal,
		CreatorID: creator.ID,
		Items:     items,
	}
	if err := store.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("failed to create request %s: %v", name, err)
	}
	return req
}

func TestCreateAndGetUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	u := testUser(t, store, "Alice", types.RoleRequester)

	got, err := store.GetUserByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want folded %q", got.Username, "alice")
	}
	if got.ID != u.ID || got.Role != types.RoleRequester || !got.Active {
		t.Errorf("unexpected user: %+v", got)
	}

	// Duplicate username is a conflict.
	dup := &types.User{ID: uuid.NewString(), Username: "alice", Role: types.RolePicker, Active: true, PasswordHash: "y"}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("duplicate username error = %v, want ErrDuplicate", err)
	}

	if _, err := store.GetUserByUsername(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestCountActiveAdmins(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	n, err := store.CountActiveAdmins(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CountActiveAdmins = %d, %v; want 0, nil", n, err)
	}

	admin := testUser(t, store, "root", types.RoleAdmin)
	testUser(t, store, "bob", types.RolePicker)

	if n, _ = store.CountActiveAdmins(ctx); n != 1 {
		t.Errorf("CountActiveAdmins = %d, want 1", n)
	}

	// Deactivated admins do not count.
	admin.Active = false
	if err := store.UpdateUser(ctx, admin); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if n, _ = store.CountActiveAdmins(ctx); n != 0 {
		t.Errorf("CountActiveAdmins after deactivate = %d, want 0", n)
	}
}

func TestCreateAndGetRequest(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	testRequest(t, store, "monday-restock", alice)

	got, err := store.GetRequest(ctx, "monday-restock")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Status != types.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.CreatorName != "alice" {
		t.Errorf("creator name = %q, want alice", got.CreatorName)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if got.Items[0].UPC != "29456086" || got.Items[0].RequestedQty != 3 {
		t.Errorf("unexpected first item: %+v", got.Items[0])
	}
	if got.StartedAt != nil || got.CompletedAt != nil {
		t.Error("new request should have no started/completed timestamps")
	}

	// Duplicate name is a conflict.
	dup := &types.Request{
		Name: "monday-restock", CreatorID: alice.ID,
		Items: []*types.Item{{UPC: "1000", ProductName: "X", RequestedQty: 1}},
	}
	if err := store.CreateRequest(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("duplicate name error = %v, want ErrDuplicate", err)
	}
}

func TestListRequestsOrderAndFilter(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)

	mk := func(name string, prio types.Priority) {
		req := &types.Request{
			Name: name, Priority: prio, CreatorID: alice.ID,
			Items: []*types.Item{{UPC: "1000" + name, ProductName: "X", RequestedQty: 1}},
		}
		if err := store.CreateRequest(ctx, req); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		time.Sleep(5 * time.Millisecond) // distinct created_at
	}
	mk("low-one", types.PriorityLow)
	mk("normal-one", types.PriorityNormal)
	mk("urgent-one", types.PriorityUrgent)
	mk("normal-two", types.PriorityNormal)

	rows, err := store.ListRequests(ctx, types.RequestFilter{}, 0, 100)
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	want := []string{"urgent-one", "normal-two", "normal-one", "low-one"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	prio := types.PriorityNormal
	rows, err = store.ListRequests(ctx, types.RequestFilter{Priority: &prio}, 0, 100)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("filtered rows = %d, want 2", len(rows))
	}

	count, err := store.CountRequests(ctx, types.RequestFilter{Priority: &prio})
	if err != nil || count != 2 {
		t.Errorf("CountRequests = %d, %v; want 2", count, err)
	}
}

func TestDeleteRequestCascades(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	testRequest(t, store, "doomed", alice)

	if err := store.DeleteRequest(ctx, "doomed"); err != nil {
		t.Fatalf("DeleteRequest failed: %v", err)
	}
	if _, err := store.GetRequest(ctx, "doomed"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted request error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteRequest(ctx, "doomed"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestMutateWritesBack(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	bob := testUser(t, store, "bob", types.RolePicker)
	testRequest(t, store, "monday-restock", alice)

	if err := store.AcquireClaim(ctx, "monday-restock", bob.ID); err != nil {
		t.Fatalf("AcquireClaim failed: %v", err)
	}

	updated, err := store.Mutate(ctx, "monday-restock", func(req *types.Request) error {
		req.Items[0].PickedQty = 3
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if updated.Items[0].PickedQty != 3 {
		t.Errorf("returned picked_qty = %d, want 3", updated.Items[0].PickedQty)
	}

	got, err := store.GetRequest(ctx, "monday-restock")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Items[0].PickedQty != 3 {
		t.Errorf("persisted picked_qty = %d, want 3", got.Items[0].PickedQty)
	}
	if got.Status != types.StatusInProgress || got.ClaimantName != "bob" {
		t.Errorf("unexpected state after claim+mutate: %s / %s", got.Status, got.ClaimantName)
	}

	// A failing closure leaves the row untouched.
	boom := errors.New("boom")
	if _, err := store.Mutate(ctx, "monday-restock", func(req *types.Request) error {
		req.Items[0].PickedQty = 99
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Mutate error = %v, want boom", err)
	}
	got, _ = store.GetRequest(ctx, "monday-restock")
	if got.Items[0].PickedQty != 3 {
		t.Errorf("rolled-back picked_qty = %d, want 3", got.Items[0].PickedQty)
	}
}

func TestReaperQueries(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	bob := testUser(t, store, "bob", types.RolePicker)
	testRequest(t, store, "stale-pick", alice)

	if err := store.AcquireClaim(ctx, "stale-pick", bob.ID); err != nil {
		t.Fatalf("AcquireClaim failed: %v", err)
	}
	if _, err := store.Mutate(ctx, "stale-pick", func(req *types.Request) error {
		req.Items[0].PickedQty = 2
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	// Nothing is stale against a cutoff in the past.
	past := time.Now().UTC().Add(-time.Hour)
	stale, err := store.StaleClaims(ctx, past)
	if err != nil {
		t.Fatalf("StaleClaims failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("stale = %d, want 0", len(stale))
	}

	// Against a future cutoff the claim is stale and gets released.
	future := time.Now().UTC().Add(time.Hour)
	stale, err = store.StaleClaims(ctx, future)
	if err != nil || len(stale) != 1 {
		t.Fatalf("StaleClaims = %d, %v; want 1", len(stale), err)
	}
	released, err := store.ReleaseIfIdle(ctx, "stale-pick", future)
	if err != nil || !released {
		t.Fatalf("ReleaseIfIdle = %v, %v; want true", released, err)
	}

	got, _ := store.GetRequest(ctx, "stale-pick")
	if got.Status != types.StatusPending || got.ClaimantID != "" {
		t.Errorf("after release: status=%s claimant=%q, want pending/empty", got.Status, got.ClaimantID)
	}
	if got.StartedAt == nil {
		t.Error("release must preserve started_at")
	}
	if got.Items[0].PickedQty != 2 {
		t.Errorf("release must preserve progress, picked=%d", got.Items[0].PickedQty)
	}

	// Release is idempotent-safe: no longer in_progress, so no-op.
	released, err = store.ReleaseIfIdle(ctx, "stale-pick", future)
	if err != nil || released {
		t.Errorf("second ReleaseIfIdle = %v, %v; want false", released, err)
	}
}

func TestPurgeCompletedBefore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	bob := testUser(t, store, "bob", types.RolePicker)
	testRequest(t, store, "old-done", alice)

	if err := store.AcquireClaim(ctx, "old-done", bob.ID); err != nil {
		t.Fatalf("AcquireClaim failed: %v", err)
	}
	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := store.Mutate(ctx, "old-done", func(req *types.Request) error {
		for _, it := range req.Items {
			it.PickedQty = it.RequestedQty
		}
		req.Status = types.StatusCompleted
		req.ClaimantID = ""
		req.CompletedAt = &old
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	n, err := store.PurgeCompletedBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeCompletedBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if _, err := store.GetRequest(ctx, "old-done"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("purged request error = %v, want ErrNotFound", err)
	}
}
