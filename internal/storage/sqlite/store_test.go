package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/ledger"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreForTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "questhall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_QuestRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStoreForTest(t)

	cap := 3
	q := quest.Quest{
		ID:             "q1",
		Title:          "Harvest Festival",
		Type:           quest.TypeArt,
		Status:         quest.StatusActive,
		ParticipantCap: &cap,
		Participants: map[string]quest.Participant{
			"u1": {CharacterName: "Lira", Progress: quest.ProgressInProgress, RPPostCount: 2},
		},
	}
	require.NoError(t, st.Put(ctx, q))

	got, ok, err := st.Get(ctx, "q1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Harvest Festival", got.Title)
	require.NotNil(t, got.ParticipantCap)
	assert.Equal(t, 3, *got.ParticipantCap)
	assert.Equal(t, 2, got.Participants["u1"].RPPostCount)

	_, ok, err = st.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// Upsert replaces in place.
	q.Status = quest.StatusCompleted
	require.NoError(t, st.Put(ctx, q))
	got, _, err = st.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, quest.StatusCompleted, got.Status)

	require.NoError(t, st.Delete(ctx, "q1"))
	_, ok, err = st.Get(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListActiveCapped(t *testing.T) {
	ctx := context.Background()
	st := newStoreForTest(t)

	cap := 5
	require.NoError(t, st.Seed(ctx, []quest.Quest{
		{ID: "q_active_capped", Status: quest.StatusActive, ParticipantCap: &cap},
		{ID: "q_active_open", Status: quest.StatusActive},
		{ID: "q_draft_capped", Status: quest.StatusDraft, ParticipantCap: &cap},
	}))

	out, err := st.ListActiveCapped(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "q_active_capped", out[0].ID)

	all, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLedgerStore_LegacyTransferExactlyOnce(t *testing.T) {
	ctx := context.Background()
	ls := newStoreForTest(t).Ledgers()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ls.ApplyLegacyTransfer(ctx, "u1", 20, 6, at)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ledger.ErrAlreadyTransferred)
		}
	}
	assert.Equal(t, 1, succeeded)

	l, err := ls.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, l.Legacy.PendingTurnIns)
	assert.True(t, l.Legacy.TransferUsed)
	require.NotNil(t, l.Legacy.TransferredAt)
	assert.True(t, l.Legacy.TransferredAt.Equal(at))
}

func TestLedgerStore_ConsumeDrainsLegacyFirst(t *testing.T) {
	ctx := context.Background()
	ls := newStoreForTest(t).Ledgers()

	_, err := ls.RecordCompletion(ctx, "u1", 7)
	require.NoError(t, err)
	_, err = ls.ApplyLegacyTransfer(ctx, "u1", 40, 5, time.Now().UTC())
	require.NoError(t, err)

	l, err := ls.Consume(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Legacy.PendingTurnIns)
	assert.Equal(t, 2, l.PendingTurnIns)
	assert.Equal(t, 7, l.TotalCompleted)

	// 2 remaining cannot cover another batch, and nothing moves.
	_, err = ls.Consume(ctx, "u1", 10)
	assert.ErrorIs(t, err, ledger.ErrInsufficientTurnIns)
	l, err = ls.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.TotalPending())
}

func TestLedgerStore_GetUnknownActorIsZero(t *testing.T) {
	ctx := context.Background()
	ls := newStoreForTest(t).Ledgers()

	l, err := ls.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", l.ActorID)
	assert.Zero(t, l.TotalPending())
	assert.False(t, l.Legacy.TransferUsed)
}
