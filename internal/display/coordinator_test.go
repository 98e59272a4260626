package display

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records every render and can block or fail its first calls.
// maxSeen tracks how many renders ever ran at the same time.
type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
	calls    int

	inFlight int32
	maxSeen  int32

	gate   chan struct{} // first blockN calls wait for a receive
	blockN int
	failN  int
	delay  time.Duration
}

func (r *fakeRenderer) Render(ctx context.Context, ref quest.DisplayRef, q quest.Quest) error {
	_ = ctx

	cur := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		max := atomic.LoadInt32(&r.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&r.maxSeen, max, cur) {
			break
		}
	}

	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	if call <= r.blockN && r.gate != nil {
		<-r.gate
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.rendered = append(r.rendered, q.Description)
	r.mu.Unlock()

	if call <= r.failN {
		return fmt.Errorf("message edit rejected")
	}
	return nil
}

func (r *fakeRenderer) renderedDescs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.rendered))
	copy(out, r.rendered)
	return out
}

type eventLog struct {
	mu    sync.Mutex
	kinds map[string]int
}

func newEventLog() *eventLog {
	return &eventLog{kinds: map[string]int{}}
}

func (l *eventLog) record(kind, questID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds[kind]++
}

func (l *eventLog) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kinds[kind]
}

func payloadFor(questID, marker string) Payload {
	return Payload{
		Ref: quest.DisplayRef{ChannelID: "c1", MessageID: "msg-" + questID},
		Quest: quest.Quest{
			ID:          questID,
			Title:       "Harvest Festival",
			Type:        quest.TypeArt,
			Status:      quest.StatusActive,
			Description: marker,
		},
	}
}

func waitIdle(t *testing.T, c *Coordinator, questID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Idle(questID) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("coordinator never drained quest %s", questID)
}

func TestCoordinator_BurstCoalescesAndNeverOverlaps(t *testing.T) {
	r := &fakeRenderer{delay: time.Millisecond}
	events := newEventLog()
	c := NewCoordinator(Options{
		Renderer:   r,
		FlushDelay: time.Minute, // keep the flush timer out of this test
		OnEvent:    events.record,
	})

	const requests = 50
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.RequestUpdate("q1", payloadFor("q1", fmt.Sprintf("update-%d", i)))
		}(i)
	}
	wg.Wait()
	waitIdle(t, c, "q1")

	renders := len(r.renderedDescs())
	assert.GreaterOrEqual(t, renders, 1)
	assert.LessOrEqual(t, renders, requests+1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.maxSeen), "renders for one quest must never overlap")

	// Every request either started a render or was absorbed into one.
	assert.Equal(t, renders, events.count("render_started"))
	assert.GreaterOrEqual(t, events.count("update_coalesced")+renders, requests)
}

func TestCoordinator_CoalescedBurstRendersLatestPayloadOnly(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{}), blockN: 1}
	events := newEventLog()
	c := NewCoordinator(Options{
		Renderer:   r,
		FlushDelay: time.Minute,
		OnEvent:    events.record,
	})

	// First request starts rendering and blocks inside the renderer.
	c.RequestUpdate("q1", payloadFor("q1", "first"))
	// Both of these land while the render is in flight.
	c.RequestUpdate("q1", payloadFor("q1", "second"))
	c.RequestUpdate("q1", payloadFor("q1", "third"))

	r.gate <- struct{}{}
	waitIdle(t, c, "q1")

	// Exactly one follow-up render, carrying the latest payload. The
	// intermediate "second" state is never rendered.
	assert.Equal(t, []string{"first", "third"}, r.renderedDescs())
	assert.Equal(t, 2, events.count("render_started"))
	assert.Equal(t, 2, events.count("update_coalesced"))
	assert.Equal(t, 0, events.count("flush_forced"))
}

func TestCoordinator_RenderFailureStillDrainsQueue(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{}), blockN: 1, failN: 1}
	events := newEventLog()
	c := NewCoordinator(Options{
		Renderer:   r,
		FlushDelay: time.Minute,
		OnEvent:    events.record,
	})

	c.RequestUpdate("q1", payloadFor("q1", "doomed"))
	c.RequestUpdate("q1", payloadFor("q1", "retry-state"))

	r.gate <- struct{}{}
	waitIdle(t, c, "q1")

	// The failed render completes like any other; the queued payload runs.
	assert.Equal(t, []string{"doomed", "retry-state"}, r.renderedDescs())
	assert.Equal(t, 1, events.count("render_failed"))

	// The coordinator stays usable for the quest afterwards.
	c.RequestUpdate("q1", payloadFor("q1", "after"))
	waitIdle(t, c, "q1")
	assert.Contains(t, r.renderedDescs(), "after")
}

func TestCoordinator_FlushForcesPassBehindStuckRender(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{gate: gate, blockN: 1}
	events := newEventLog()
	c := NewCoordinator(Options{
		Renderer:   r,
		FlushDelay: 30 * time.Millisecond,
		OnEvent:    events.record,
	})

	c.RequestUpdate("q1", payloadFor("q1", "stuck"))
	c.RequestUpdate("q1", payloadFor("q1", "fresh"))

	// The flush timer fires while the first render is still blocked and
	// pushes the queued payload through on a fresh pass.
	require.Eventually(t, func() bool {
		for _, d := range r.renderedDescs() {
			if d == "fresh" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, events.count("flush_forced"))

	// Let the stuck render finish: its completion is stale and must not
	// trigger another render.
	close(gate)
	require.Eventually(t, func() bool {
		return len(r.renderedDescs()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	waitIdle(t, c, "q1")
	assert.Equal(t, 2, events.count("render_started"))
}

func TestCoordinator_DifferentQuestsRenderIndependently(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{gate: gate, blockN: 2}
	c := NewCoordinator(Options{
		Renderer:   r,
		FlushDelay: time.Minute,
	})

	c.RequestUpdate("q1", payloadFor("q1", "a"))
	c.RequestUpdate("q2", payloadFor("q2", "b"))

	// Both renders run at once; one quest's slow render never gates another.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.inFlight) == 2
	}, 2*time.Second, time.Millisecond)

	close(gate)
	waitIdle(t, c, "q1")
	waitIdle(t, c, "q2")
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.maxSeen))
}
