package telemetry

import (
	"time"
)

// Stats aggregates domain and coordinator activity over a period. The
// coalescing ratio is the main balance signal: how many update requests were
// absorbed per render actually executed.
type Stats struct {
	Period           string            `json:"period"`
	EventCounts      map[EventType]int `json:"event_counts"`
	Joins            int               `json:"joins"`
	Leaves           int               `json:"leaves"`
	CompletionsNoted int               `json:"completions_noted"`
	BatchesConsumed  int               `json:"batches_consumed"`
	LegacyTransfers  int               `json:"legacy_transfers"`
	RendersStarted   int               `json:"renders_started"`
	RendersFailed    int               `json:"renders_failed"`
	UpdatesCoalesced int               `json:"updates_coalesced"`
	ForcedFlushes    int               `json:"forced_flushes"`
	CoalesceRatio    float64           `json:"coalesce_ratio"`
}

// CalculateStats computes activity stats from recorded events.
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:      since.Format("2006-01-02"),
		EventCounts: make(map[EventType]int),
	}

	for _, event := range events {
		stats.EventCounts[event.Type]++

		switch event.Type {
		case EventActorJoined:
			stats.Joins++
		case EventActorLeft:
			stats.Leaves++
		case EventCompletionNoted:
			stats.CompletionsNoted++
		case EventBatchConsumed:
			stats.BatchesConsumed++
		case EventLegacyTransfer:
			stats.LegacyTransfers++
		case EventRenderStarted:
			stats.RendersStarted++
		case EventRenderFailed:
			stats.RendersFailed++
		case EventUpdateCoalesced:
			stats.UpdatesCoalesced++
		case EventFlushForced:
			stats.ForcedFlushes++
		}
	}

	if stats.RendersStarted > 0 {
		stats.CoalesceRatio = float64(stats.UpdatesCoalesced) / float64(stats.RendersStarted)
	}

	return stats, nil
}
