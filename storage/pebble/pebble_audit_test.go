package pebble_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"

	"github.com/acrine/authstack"
	"github.com/acrine/authstack/storage/pebble"
)

func newTestStore(t *testing.T) *pebble.AuditStore {
	t.Helper()
	store, err := pebble.NewAuditStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func newDecision(t *testing.T, domain string, verdict authstack.Verdict) authstack.Decision {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return authstack.Decision{
		ID:          id,
		Domain:      domain,
		Layer:       authstack.LayerComponent,
		Identity:    "alice",
		Verdict:     verdict,
		EvaluatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestRecordAndReadDecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := newDecision(t, "payments", authstack.Permit)
	require.NoError(t, store.Record(ctx, want))

	got, err := store.ReadDecision(ctx, want.ID)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestReadUnknownDecision(t *testing.T) {
	store := newTestStore(t)

	id, err := uuid.NewV7()
	require.NoError(t, err)
	_, err = store.ReadDecision(context.Background(), id)
	require.ErrorIs(t, err, authstack.ErrNotFound)
}

func TestDecisionsListedInCreationOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	recorded := make([]authstack.Decision, 0, 5)
	for i := 0; i < 5; i++ {
		d := newDecision(t, "payments", authstack.Deny)
		require.NoError(t, store.Record(ctx, d))
		recorded = append(recorded, d)
		// UUIDv7 ordering is millisecond-granular.
		time.Sleep(2 * time.Millisecond)
	}

	decisions, err := store.Decisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 5)

	ids := make([]string, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.ID.String())
	}
	require.True(t, slices.IsSorted(ids), "decisions come back in key order")
	for i, d := range decisions {
		require.Equal(t, recorded[i].ID, d.ID)
	}
}

func TestDecisionsHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Record(ctx, newDecision(t, "payments", authstack.Permit)))
	}

	decisions, err := store.Decisions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
}
