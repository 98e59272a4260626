package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyTransferred means the one-time legacy transfer was already
	// used for this actor, or a concurrent attempt won the race.
	ErrAlreadyTransferred = errors.New("legacy transfer already used")
	// ErrInsufficientTurnIns means the actor's pending pool cannot cover a
	// full batch, or a concurrent request consumed it first.
	ErrInsufficientTurnIns = errors.New("not enough pending turn-ins")
	// ErrInvalidTransfer rejects malformed legacy transfer input.
	ErrInvalidTransfer = errors.New("invalid legacy transfer")
)

// Store holds actor ledgers. Every guard-and-mutate operation below must be
// atomic inside the store: a read-check-write expressed as one conditional
// update, so two concurrent requests can never both pass the guard.
type Store interface {
	// Get returns the actor's ledger, or a zero ledger if none exists.
	Get(ctx context.Context, actorID string) (ActorLedger, error)

	// RecordCompletion increments TotalCompleted and PendingTurnIns by n.
	RecordCompletion(ctx context.Context, actorID string, n int) (ActorLedger, error)

	// ApplyLegacyTransfer sets the legacy block iff TransferUsed is still
	// false. Fails with ErrAlreadyTransferred otherwise.
	ApplyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pending int, at time.Time) (ActorLedger, error)

	// Consume drains exactly batch turn-ins, legacy credits first, iff the
	// total pending pool covers it. Fails with ErrInsufficientTurnIns
	// without mutating anything otherwise.
	Consume(ctx context.Context, actorID string, batch int) (ActorLedger, error)
}

// drain applies the consumption order to an in-memory ledger copy: legacy
// credits are redeemed before newly earned ones.
func drain(l ActorLedger, batch int) (ActorLedger, bool) {
	if batch <= 0 || l.TotalPending() < batch {
		return l, false
	}
	fromLegacy := batch
	if l.Legacy.PendingTurnIns < fromLegacy {
		fromLegacy = l.Legacy.PendingTurnIns
	}
	l.Legacy.PendingTurnIns -= fromLegacy
	l.PendingTurnIns -= batch - fromLegacy
	return l, true
}
