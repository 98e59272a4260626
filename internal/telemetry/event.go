package telemetry

import "time"

type EventType string

const (
	EventQuestCreated    EventType = "quest_created"
	EventQuestPosted     EventType = "quest_posted"
	EventQuestClosed     EventType = "quest_closed"
	EventActorJoined     EventType = "actor_joined"
	EventActorLeft       EventType = "actor_left"
	EventProgressUpdated EventType = "progress_updated"
	EventCompletionNoted EventType = "completion_noted"
	EventLegacyTransfer  EventType = "legacy_transfer"
	EventBatchConsumed   EventType = "batch_consumed"
	EventRenderStarted   EventType = "render_started"
	EventRenderFailed    EventType = "render_failed"
	EventUpdateCoalesced EventType = "update_coalesced"
	EventFlushForced     EventType = "flush_forced"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
