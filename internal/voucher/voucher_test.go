package voucher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryService_ConsumeIsIdempotentPerJoin(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryService()

	has, err := s.HasBypassVoucher(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	s.Grant("u1", 1)
	has, err = s.HasBypassVoucher(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.ConsumeBypassVoucher(ctx, "u1", "q1"))
	// A retried consume of the same join burns nothing further.
	require.NoError(t, s.ConsumeBypassVoucher(ctx, "u1", "q1"))

	has, err = s.HasBypassVoucher(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	spent, ok := s.SpentOn("u1")
	require.True(t, ok)
	assert.Equal(t, "q1", spent)
}

func TestFileService_BalancesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileService(dir)
	require.NoError(t, err)
	require.NoError(t, s.Grant("u1", 2))
	require.NoError(t, s.ConsumeBypassVoucher(ctx, "u1", "q1"))

	reopened, err := NewFileService(dir)
	require.NoError(t, err)

	has, err := reopened.HasBypassVoucher(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has, "one of the two vouchers is left")

	// The recorded spend keeps the retry idempotent across restarts.
	require.NoError(t, reopened.ConsumeBypassVoucher(ctx, "u1", "q1"))
	has, err = reopened.HasBypassVoucher(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)
}
