// Package orchestrator wires user actions to the participation manager and
// the turn-in ledger, then schedules a display pass for the affected quest.
// Domain mutations either fully succeed or fail with a specific reason;
// display sync is always best-effort and never blocks a mutation.
package orchestrator

import (
	"context"
	"log"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/display"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/ledger"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/telemetry"
)

type Orchestrator struct {
	Quests      *quest.Manager
	Ledger      *ledger.Service
	Coordinator *display.Coordinator
	Telemetry   telemetry.Repository
	Logger      *log.Logger
}

func New(quests *quest.Manager, ledgerSvc *ledger.Service, coord *display.Coordinator, repo telemetry.Repository, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Quests:      quests,
		Ledger:      ledgerSvc,
		Coordinator: coord,
		Telemetry:   repo,
		Logger:      logger,
	}
}

// Join signs an actor up and refreshes the quest's display artifact.
func (o *Orchestrator) Join(ctx context.Context, req quest.JoinRequest) (quest.Quest, error) {
	q, err := o.Quests.Join(ctx, req)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventActorJoined, telemetry.EventMetadata{"quest_id": q.ID, "actor_id": req.ActorID})
	o.scheduleRender(q)
	return q, nil
}

// Leave removes an actor and refreshes the quest's display artifact.
func (o *Orchestrator) Leave(ctx context.Context, questID, actorID string) (quest.Quest, error) {
	q, err := o.Quests.Leave(ctx, questID, actorID)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventActorLeft, telemetry.EventMetadata{"quest_id": q.ID, "actor_id": actorID})
	o.scheduleRender(q)
	return q, nil
}

func (o *Orchestrator) CreateQuest(ctx context.Context, req quest.CreateRequest) (quest.Quest, error) {
	q, err := o.Quests.Create(ctx, req)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventQuestCreated, telemetry.EventMetadata{"quest_id": q.ID, "type": string(q.Type)})
	return q, nil
}

// PostQuest activates a quest and renders its first display artifact.
func (o *Orchestrator) PostQuest(ctx context.Context, questID string, ref quest.DisplayRef) (quest.Quest, error) {
	q, err := o.Quests.Post(ctx, questID, ref)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventQuestPosted, telemetry.EventMetadata{"quest_id": q.ID})
	o.scheduleRender(q)
	return q, nil
}

func (o *Orchestrator) UpdateProgress(ctx context.Context, questID, actorID string, upd quest.ProgressUpdate) (quest.Quest, error) {
	q, err := o.Quests.UpdateProgress(ctx, questID, actorID, upd)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventProgressUpdated, telemetry.EventMetadata{"quest_id": q.ID, "actor_id": actorID})
	o.scheduleRender(q)
	return q, nil
}

// SetParticipantProgress applies a moderator edit. A fresh transition to
// completed credits the actor's turn-in ledger exactly once.
func (o *Orchestrator) SetParticipantProgress(ctx context.Context, questID, actorID string, progress quest.ParticipantProgress) (quest.Quest, error) {
	q, completedNow, err := o.Quests.SetParticipantProgress(ctx, questID, actorID, progress)
	if err != nil {
		return quest.Quest{}, err
	}
	if completedNow {
		if _, err := o.Ledger.RecordCompletion(ctx, actorID); err != nil {
			// The roster edit is already persisted; surface the ledger miss
			// instead of unwinding the moderator's change.
			o.Logger.Printf("credit completion actor=%s quest=%s: %v", actorID, questID, err)
			return quest.Quest{}, err
		}
		o.record(telemetry.EventCompletionNoted, telemetry.EventMetadata{"quest_id": q.ID, "actor_id": actorID})
	}
	o.scheduleRender(q)
	return q, nil
}

func (o *Orchestrator) CloseQuest(ctx context.Context, questID string, status quest.Status) (quest.Quest, error) {
	q, err := o.Quests.Close(ctx, questID, status)
	if err != nil {
		return quest.Quest{}, err
	}
	o.record(telemetry.EventQuestClosed, telemetry.EventMetadata{"quest_id": q.ID, "status": string(status)})
	o.scheduleRender(q)
	return q, nil
}

func (o *Orchestrator) GetQuest(ctx context.Context, questID string) (quest.Quest, error) {
	return o.Quests.Get(ctx, questID)
}

func (o *Orchestrator) ListQuests(ctx context.Context) ([]quest.Quest, error) {
	return o.Quests.List(ctx)
}

func (o *Orchestrator) TurnInSummary(ctx context.Context, actorID string) (ledger.Summary, error) {
	return o.Ledger.GetTurnInSummary(ctx, actorID)
}

func (o *Orchestrator) LegacyTransfer(ctx context.Context, actorID string, totalCompleted, pendingTurnIns int) (ledger.Summary, error) {
	sum, err := o.Ledger.ApplyLegacyTransfer(ctx, actorID, totalCompleted, pendingTurnIns)
	if err != nil {
		return ledger.Summary{}, err
	}
	o.record(telemetry.EventLegacyTransfer, telemetry.EventMetadata{"actor_id": actorID, "pending": pendingTurnIns})
	return sum, nil
}

// Redeem consumes one batch of turn-ins, then runs the reward grant. Grant
// failures surface as ledger.ErrRewardGrantFailed without a refund.
func (o *Orchestrator) Redeem(ctx context.Context, actorID string, grant ledger.GrantFunc) (ledger.Summary, error) {
	sum, err := o.Ledger.Redeem(ctx, actorID, grant)
	if err != nil {
		return sum, err
	}
	o.record(telemetry.EventBatchConsumed, telemetry.EventMetadata{"actor_id": actorID, "batch": o.Ledger.BatchSize})
	return sum, nil
}

// scheduleRender queues a display pass for a posted quest. Fire-and-forget.
func (o *Orchestrator) scheduleRender(q quest.Quest) {
	if o.Coordinator == nil || q.Display == nil {
		return
	}
	o.Coordinator.RequestUpdate(q.ID, display.Payload{Ref: *q.Display, Quest: q})
}

func (o *Orchestrator) record(eventType telemetry.EventType, md telemetry.EventMetadata) {
	if o.Telemetry == nil {
		return
	}
	if err := o.Telemetry.RecordEvent(eventType, md); err != nil {
		o.Logger.Printf("record telemetry %s: %v", eventType, err)
	}
}

// CoordinatorEvents bridges coordinator lifecycle events into telemetry.
func CoordinatorEvents(repo telemetry.Repository) display.EventFunc {
	kinds := map[string]telemetry.EventType{
		"render_started":   telemetry.EventRenderStarted,
		"render_failed":    telemetry.EventRenderFailed,
		"update_coalesced": telemetry.EventUpdateCoalesced,
		"flush_forced":     telemetry.EventFlushForced,
	}
	return func(kind, questID string) {
		if repo == nil {
			return
		}
		t, ok := kinds[kind]
		if !ok {
			return
		}
		_ = repo.RecordEvent(t, telemetry.EventMetadata{"quest_id": questID})
	}
}
