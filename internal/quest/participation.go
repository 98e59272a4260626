package quest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/clock"
)

// RuleValidator checks quest-type specific eligibility rules. Implementations
// live outside this package; failures surface as ErrRuleViolation.
type RuleValidator interface {
	ValidateTypeRules(q Quest) error
	ValidateLocationRule(q Quest, actorVillage string) error
}

// VoucherService grants one-time capacity-bypass vouchers.
type VoucherService interface {
	HasBypassVoucher(ctx context.Context, actorID string) (bool, error)
	ConsumeBypassVoucher(ctx context.Context, actorID, questID string) error
}

// Manager validates and mutates quest rosters. It owns no coordination
// state; callers schedule display passes after successful mutations.
type Manager struct {
	Quests   Repository
	Rules    RuleValidator
	Vouchers VoucherService
	Clock    clock.Clock
	Logger   *log.Logger
}

func NewManager(repo Repository, rules RuleValidator, vouchers VoucherService, clk clock.Clock, logger *log.Logger) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		Quests:   repo,
		Rules:    rules,
		Vouchers: vouchers,
		Clock:    clk,
		Logger:   logger,
	}
}

// JoinRequest carries one actor's signup attempt.
type JoinRequest struct {
	QuestID       string
	ActorID       string
	CharacterName string
	ActorVillage  string
}

// Join runs the signup validation chain and inserts the participant.
// Every failure is a caller input error, returned without retry.
func (m *Manager) Join(ctx context.Context, req JoinRequest) (Quest, error) {
	if strings.TrimSpace(req.ActorID) == "" {
		return Quest{}, fmt.Errorf("%w: actor id is required", ErrRuleViolation)
	}

	q, ok, err := m.Quests.Get(ctx, req.QuestID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}

	now := m.Clock.Now()
	if !q.OpenForSignup(now) {
		return Quest{}, ErrNotActive
	}
	if q.HasMember(req.ActorID) {
		return Quest{}, ErrAlreadyMember
	}

	usedVoucher := false
	if q.Capped() {
		conflict, err := m.otherCappedMembership(ctx, q.ID, req.ActorID)
		if err != nil {
			return Quest{}, err
		}
		if conflict {
			return Quest{}, ErrCrossQuestCap
		}
		if q.Full() {
			has, err := m.hasVoucher(ctx, req.ActorID)
			if err != nil {
				return Quest{}, err
			}
			if !has {
				return Quest{}, ErrQuestFull
			}
			usedVoucher = true
		}
	}

	if m.Rules != nil {
		if err := m.Rules.ValidateLocationRule(q, req.ActorVillage); err != nil {
			return Quest{}, fmt.Errorf("%w: %v", ErrRuleViolation, err)
		}
	}

	q.ensureParticipants()
	q.Participants[req.ActorID] = Participant{
		CharacterName:   req.CharacterName,
		Progress:        ProgressInProgress,
		RequiredVillage: q.RequiredVillage,
		JoinedAt:        now,
		UsedVoucher:     usedVoucher,
	}
	q.UpdatedAt = now

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}

	if usedVoucher {
		// Single external call, idempotent on the voucher side. The join has
		// already been persisted; a consume failure is logged, not unwound.
		if err := m.Vouchers.ConsumeBypassVoucher(ctx, req.ActorID, q.ID); err != nil {
			m.Logger.Printf("consume bypass voucher actor=%s quest=%s: %v", req.ActorID, q.ID, err)
		}
	}

	return q, nil
}

// Leave removes the actor's membership entry. Roster size only decreases,
// so no cap invariant can break here.
func (m *Manager) Leave(ctx context.Context, questID, actorID string) (Quest, error) {
	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}
	if !q.HasMember(actorID) {
		return Quest{}, ErrNotMember
	}

	delete(q.Participants, actorID)
	q.UpdatedAt = m.Clock.Now()

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// otherCappedMembership reports whether the actor already belongs to a
// different active member-capped quest. Holding a voucher does not exempt an
// actor from this invariant.
func (m *Manager) otherCappedMembership(ctx context.Context, questID, actorID string) (bool, error) {
	capped, err := m.Quests.ListActiveCapped(ctx)
	if err != nil {
		return false, err
	}
	for _, other := range capped {
		if other.ID == questID {
			continue
		}
		if other.HasMember(actorID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) hasVoucher(ctx context.Context, actorID string) (bool, error) {
	if m.Vouchers == nil {
		return false, nil
	}
	return m.Vouchers.HasBypassVoucher(ctx, actorID)
}
