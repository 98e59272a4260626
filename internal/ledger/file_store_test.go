package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = st.RecordCompletion(ctx, "u1", 3)
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = st.ApplyLegacyTransfer(ctx, "u1", 9, 9, at)
	require.NoError(t, err)
	_, err = st.Consume(ctx, "u1", 10)
	require.NoError(t, err)

	// A fresh store over the same directory sees the drained state and still
	// refuses a second legacy transfer.
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	l, err := reopened.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, l.TotalCompleted)
	assert.Equal(t, 2, l.TotalPending())
	assert.Equal(t, 0, l.Legacy.PendingTurnIns)
	assert.True(t, l.Legacy.TransferUsed)

	_, err = reopened.ApplyLegacyTransfer(ctx, "u1", 9, 9, at)
	assert.ErrorIs(t, err, ErrAlreadyTransferred)
}
