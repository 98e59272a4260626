package ledger

import (
	"time"
)

// Legacy records the one-time import of pre-system completion counts.
type Legacy struct {
	TotalTransferred int        `json:"totalTransferred"`
	PendingTurnIns   int        `json:"pendingTurnIns"`
	TransferredAt    *time.Time `json:"transferredAt,omitempty"`
	TransferUsed     bool       `json:"transferUsed"`
}

// ActorLedger is one human actor's turn-in account. TotalCompleted only
// grows; PendingTurnIns shrinks only through batch consumption.
type ActorLedger struct {
	ActorID        string `json:"actorId"`
	TotalCompleted int    `json:"totalCompleted"`
	PendingTurnIns int    `json:"pendingTurnIns"`
	Legacy         Legacy `json:"legacy"`
}

// TotalPending is the redeemable pool: current credits plus legacy credits.
func (l ActorLedger) TotalPending() int {
	return l.PendingTurnIns + l.Legacy.PendingTurnIns
}

// Summary is the pure projection of an actor's redeemable position.
type Summary struct {
	ActorID        string `json:"actorId"`
	TotalCompleted int    `json:"totalCompleted"`
	TotalPending   int    `json:"totalPending"`
	RedeemableSets int    `json:"redeemableSets"`
	Remainder      int    `json:"remainder"`
	BatchSize      int    `json:"batchSize"`
}

// Summarize projects a ledger onto the given batch size. No side effects.
func Summarize(l ActorLedger, batchSize int) Summary {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	total := l.TotalPending()
	return Summary{
		ActorID:        l.ActorID,
		TotalCompleted: l.TotalCompleted,
		TotalPending:   total,
		RedeemableSets: total / batchSize,
		Remainder:      total % batchSize,
		BatchSize:      batchSize,
	}
}

// DefaultBatchSize is the number of turn-ins in one redeemable set.
const DefaultBatchSize = 10
