package sqlite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

func TestAcquireClaim(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	bob := testUser(t, store, "bob", types.RolePicker)
	carol := testUser(t, store, "carol", types.RolePicker)
	testRequest(t, store, "monday-restock", alice)

	if err := store.AcquireClaim(ctx, "monday-restock", bob.ID); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	got, err := store.GetRequest(ctx, "monday-restock")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Status != types.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
	if got.ClaimantID != bob.ID {
		t.Errorf("claimant = %q, want bob", got.ClaimantID)
	}
	if got.StartedAt == nil {
		t.Error("started_at not set by claim")
	}

	// Second claimant is refused and told who holds it.
	err = store.AcquireClaim(ctx, "monday-restock", carol.ID)
	if !errors.Is(err, storage.ErrAlreadyClaimed) {
		t.Fatalf("second claim error = %v, want ErrAlreadyClaimed", err)
	}
	if !strings.Contains(err.Error(), "bob") {
		t.Errorf("claim error should name the holder: %v", err)
	}
}

func TestAcquireClaimMissing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	bob := testUser(t, store, "bob", types.RolePicker)
	err := store.AcquireClaim(context.Background(), "no-such-pick", bob.ID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("claim on missing request = %v, want ErrNotFound", err)
	}
}

// Two concurrent claims on the same pending request: exactly one wins.
func TestConcurrentClaims(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser(t, store, "alice", types.RoleRequester)
	bob := testUser(t, store, "bob", types.RolePicker)
	carol := testUser(t, store, "carol", types.RolePicker)
	testRequest(t, store, "contended", alice)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []string{bob.ID, carol.ID} {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			errs[i] = store.AcquireClaim(ctx, "contended", uid)
		}(i, uid)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrAlreadyClaimed) || errors.Is(err, storage.ErrConflict):
			losses++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("wins=%d losses=%d, want exactly one of each", wins, losses)
	}

	got, err := store.GetRequest(ctx, "contended")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.ClaimantID != bob.ID && got.ClaimantID != carol.ID {
		t.Errorf("claimant = %q, want one of the two pickers", got.ClaimantID)
	}
}
