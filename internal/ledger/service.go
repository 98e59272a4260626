package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/clock"
)

// ErrRewardGrantFailed flags a redemption whose batch was consumed but whose
// follow-up reward grant failed. The batch is not refunded; the error carries
// enough detail for an operator to reconcile manually.
var ErrRewardGrantFailed = errors.New("reward grant failed after consuming turn-ins")

// Service applies turn-in ledger operations on top of a Store. The store
// enforces the atomic guards; the service validates input and shapes results.
type Service struct {
	Store     Store
	BatchSize int
	Clock     clock.Clock
	Logger    *log.Logger
}

func NewService(store Store, batchSize int, clk clock.Clock, logger *log.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Store:     store,
		BatchSize: batchSize,
		Clock:     clk,
		Logger:    logger,
	}
}

// ApplyLegacyTransfer imports pre-system completion counts, at most once per
// actor. The freshness of the guard check lives in the store.
func (s *Service) ApplyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pendingTurnIns int) (Summary, error) {
	if totalCompleted < 0 || pendingTurnIns < 0 {
		return Summary{}, fmt.Errorf("%w: counts must be non-negative", ErrInvalidTransfer)
	}
	if pendingTurnIns > totalCompleted {
		return Summary{}, fmt.Errorf("%w: pending %d exceeds completed %d", ErrInvalidTransfer, pendingTurnIns, totalCompleted)
	}

	l, err := s.Store.ApplyLegacyTransfer(ctx, actorID, totalCompleted, pendingTurnIns, s.Clock.Now())
	if err != nil {
		return Summary{}, err
	}
	return Summarize(l, s.BatchSize), nil
}

// GetTurnInSummary projects the actor's redeemable position. Pure read.
func (s *Service) GetTurnInSummary(ctx context.Context, actorID string) (Summary, error) {
	l, err := s.Store.Get(ctx, actorID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(l, s.BatchSize), nil
}

// ConsumeTurnIns irreversibly spends one batch of turn-ins.
func (s *Service) ConsumeTurnIns(ctx context.Context, actorID string) (Summary, error) {
	l, err := s.Store.Consume(ctx, actorID, s.BatchSize)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(l, s.BatchSize), nil
}

// RecordCompletion credits a verified quest completion.
func (s *Service) RecordCompletion(ctx context.Context, actorID string) (Summary, error) {
	l, err := s.Store.RecordCompletion(ctx, actorID, 1)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(l, s.BatchSize), nil
}

// GrantFunc performs the reward step that follows a successful consumption
// (character-slot increment, item grant). It runs outside the ledger.
type GrantFunc func(ctx context.Context, actorID string) error

// Redeem consumes one batch, then runs the reward grant. A grant failure
// does not refund the batch: the consumed credits are reported through
// ErrRewardGrantFailed for manual reconciliation.
func (s *Service) Redeem(ctx context.Context, actorID string, grant GrantFunc) (Summary, error) {
	sum, err := s.ConsumeTurnIns(ctx, actorID)
	if err != nil {
		return Summary{}, err
	}
	if grant != nil {
		if err := grant(ctx, actorID); err != nil {
			s.Logger.Printf("reward grant failed actor=%s consumed=%d: %v", actorID, s.BatchSize, err)
			return sum, fmt.Errorf("%w: actor=%s consumed=%d: %v", ErrRewardGrantFailed, actorID, s.BatchSize, err)
		}
	}
	return sum, nil
}
