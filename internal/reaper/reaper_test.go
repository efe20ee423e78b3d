package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warepick/warepick/internal/storage/sqlite"
	"github.com/warepick/warepick/internal/types"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *sqlite.Store, username string, role types.Role) *types.User {
	t.Helper()
	u := &types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		Active:       true,
		PasswordHash: "x",
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func seedClaimedRequest(t *testing.T, store *sqlite.Store, name string) (*types.User, *types.User) {
	t.Helper()
	ctx := context.Background()
	creator := seedUser(t, store, name+"-req", types.RoleRequester)
	picker := seedUser(t, store, name+"-pick", types.RolePicker)
	req := &types.Request{
		Name:      name,
		Status:    types.StatusPending,
		Priority:  types.PriorityNormal,
		CreatorID: creator.ID,
		Items: []*types.Item{
			{UPC: "29456086", ProductName: "Big Mix", RequestedQty: 3},
		},
	}
	require.NoError(t, store.CreateRequest(ctx, req))
	require.NoError(t, store.AcquireClaim(ctx, name, picker.ID))
	return creator, picker
}

// A negative idle timeout puts the cutoff in the future, making any
// claim stale; progress and started_at must survive the release.
func TestRunOnceReleasesStale(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedClaimedRequest(t, store, "stale-one")

	_, err := store.Mutate(ctx, "stale-one", func(req *types.Request) error {
		req.Items[0].PickedQty = 2
		return nil
	})
	require.NoError(t, err)

	r := New(store, nil, Options{
		IdleTimeout: -time.Minute,
		Retention:   time.Hour,
		Interval:    time.Hour,
		Enabled:     true,
	})
	released, purged, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, purged)

	got, err := store.GetRequest(ctx, "stale-one")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Empty(t, got.ClaimantID)
	assert.NotNil(t, got.StartedAt)
	assert.Equal(t, 2, got.Items[0].PickedQty)

	st := r.GetStatus()
	assert.Equal(t, 1, st.TotalReleased)
	assert.Equal(t, 1, st.CompletedPasses)
	assert.False(t, st.LastRun.IsZero())
}

func TestRunOncePurgesCompleted(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedClaimedRequest(t, store, "done-one")

	_, err := store.Mutate(ctx, "done-one", func(req *types.Request) error {
		req.Items[0].PickedQty = 3
		req.Status = types.StatusCompleted
		req.ClaimantID = ""
		now := time.Now().UTC()
		req.CompletedAt = &now
		return nil
	})
	require.NoError(t, err)

	// Negative retention puts the purge cutoff in the future.
	r := New(store, nil, Options{
		IdleTimeout: time.Hour,
		Retention:   -time.Minute,
		Interval:    time.Hour,
		Enabled:     true,
	})
	released, purged, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, 1, purged)

	_, err = store.GetRequest(ctx, "done-one")
	assert.Error(t, err)
}

func TestRunOnceLeavesActiveClaims(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, picker := seedClaimedRequest(t, store, "fresh-one")

	r := New(store, nil, Options{
		IdleTimeout: 30 * time.Minute,
		Retention:   24 * time.Hour,
		Interval:    time.Hour,
		Enabled:     true,
	})
	released, purged, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, 0, purged)

	got, err := store.GetRequest(ctx, "fresh-one")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)
	assert.Equal(t, picker.ID, got.ClaimantID)
}

func TestLoopRunsAndStops(t *testing.T) {
	store := setupStore(t)
	seedClaimedRequest(t, store, "loop-one")

	r := New(store, nil, Options{
		IdleTimeout: -time.Minute,
		Retention:   time.Hour,
		Interval:    10 * time.Millisecond,
		Enabled:     true,
	})
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return r.GetStatus().TotalReleased >= 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetRequest(context.Background(), "loop-one")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestDisabledLoopDoesNothing(t *testing.T) {
	store := setupStore(t)
	seedClaimedRequest(t, store, "idle-one")

	r := New(store, nil, Options{
		IdleTimeout: -time.Minute,
		Retention:   time.Hour,
		Interval:    10 * time.Millisecond,
		Enabled:     false,
	})
	r.Start()
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	assert.Equal(t, 0, r.GetStatus().CompletedPasses)
	got, err := store.GetRequest(context.Background(), "idle-one")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)
}
