package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps actor ledgers in a mutex-guarded map. The single lock
// makes every guard-and-mutate pair atomic, which is sufficient while this
// process is the sole writer.
type MemoryStore struct {
	mu      sync.Mutex
	ledgers map[string]ActorLedger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[string]ActorLedger),
	}
}

func (s *MemoryStore) Get(ctx context.Context, actorID string) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(actorID), nil
}

func (s *MemoryStore) RecordCompletion(ctx context.Context, actorID string, n int) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.getLocked(actorID)
	if n > 0 {
		l.TotalCompleted += n
		l.PendingTurnIns += n
	}
	s.ledgers[actorID] = l
	return l, nil
}

func (s *MemoryStore) ApplyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pending int, at time.Time) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.getLocked(actorID)
	if l.Legacy.TransferUsed {
		return ActorLedger{}, ErrAlreadyTransferred
	}

	l.Legacy.TotalTransferred = totalCompleted
	l.Legacy.PendingTurnIns = pending
	l.Legacy.TransferredAt = &at
	l.Legacy.TransferUsed = true
	s.ledgers[actorID] = l
	return l, nil
}

func (s *MemoryStore) Consume(ctx context.Context, actorID string, batch int) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := drain(s.getLocked(actorID), batch)
	if !ok {
		return ActorLedger{}, ErrInsufficientTurnIns
	}
	s.ledgers[actorID] = l
	return l, nil
}

func (s *MemoryStore) getLocked(actorID string) ActorLedger {
	l, ok := s.ledgers[actorID]
	if !ok {
		l = ActorLedger{ActorID: actorID}
	}
	return l
}
