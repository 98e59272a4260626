package display

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/clock"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
)

// Payload is one requested render of a quest's display artifact. Later
// payloads supersede earlier ones: they reflect fresher state.
type Payload struct {
	Ref   quest.DisplayRef
	Quest quest.Quest
}

// EventFunc receives coordinator lifecycle events for telemetry. Kinds:
// render_started, render_failed, update_coalesced, flush_forced.
type EventFunc func(kind, questID string)

type queued struct {
	payload Payload
	at      time.Time
}

// entry is the per-quest coordination record. It is process-local liveness
// state, never persisted, and absent once the quest has fully drained.
type entry struct {
	updating bool
	gen      uint64
	pending  []queued
	timer    *time.Timer
}

// Coordinator serializes display renders per quest ID and coalesces bursts
// of update requests into a single render of the latest payload. Renders for
// different quests are independent.
type Coordinator struct {
	mu      sync.Mutex
	entries map[string]*entry

	renderer   Renderer
	flushDelay time.Duration
	clock      clock.Clock
	logger     *log.Logger
	onEvent    EventFunc
}

// DefaultFlushDelay bounds worst-case staleness behind a stuck render.
const DefaultFlushDelay = 2 * time.Second

type Options struct {
	Renderer   Renderer
	FlushDelay time.Duration
	Clock      clock.Clock
	Logger     *log.Logger
	OnEvent    EventFunc
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Coordinator{
		entries:    make(map[string]*entry),
		renderer:   opts.Renderer,
		flushDelay: opts.FlushDelay,
		clock:      opts.Clock,
		logger:     opts.Logger,
		onEvent:    opts.OnEvent,
	}
}

// RequestUpdate schedules a render of the quest's display artifact. It is
// fire-and-forget: render failures are logged here and never surface to the
// caller, so a display hiccup cannot fail a domain mutation.
func (c *Coordinator) RequestUpdate(questID string, p Payload) {
	c.mu.Lock()
	e := c.entries[questID]
	if e == nil {
		e = &entry{}
		c.entries[questID] = e
	}

	if e.updating {
		e.pending = append(e.pending, queued{payload: p, at: c.clock.Now()})
		if e.timer == nil {
			e.timer = time.AfterFunc(c.flushDelay, func() { c.flush(questID) })
		}
		c.mu.Unlock()
		c.emit("update_coalesced", questID)
		return
	}

	e.updating = true
	e.gen++
	gen := e.gen
	c.mu.Unlock()

	c.emit("render_started", questID)
	go c.render(questID, gen, p)
}

func (c *Coordinator) render(questID string, gen uint64, p Payload) {
	if err := c.renderer.Render(context.Background(), p.Ref, p.Quest); err != nil {
		// Display sync is best-effort; the next mutation catches the
		// artifact up.
		c.logger.Printf("render failed quest=%s channel=%s message=%s: %v", questID, p.Ref.ChannelID, p.Ref.MessageID, err)
		c.emit("render_failed", questID)
	}
	c.drain(questID, gen)
}

// drain runs when a render completes, success or failure alike. The latest
// queued payload wins; everything older is discarded as superseded.
func (c *Coordinator) drain(questID string, gen uint64) {
	c.mu.Lock()
	e := c.entries[questID]
	if e == nil {
		c.mu.Unlock()
		return
	}
	if e.gen != gen {
		// A forced flush already took ownership; this completion is stale.
		c.mu.Unlock()
		return
	}

	e.updating = false
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if len(e.pending) == 0 {
		delete(c.entries, questID)
		c.mu.Unlock()
		return
	}

	next := latest(e.pending)
	e.pending = nil
	e.updating = true
	e.gen++
	nextGen := e.gen
	c.mu.Unlock()

	c.emit("render_started", questID)
	go c.render(questID, nextGen, next.payload)
}

// flush fires when queued updates have waited the full delay behind a slow
// render. It does not cancel the in-flight render; it starts a fresh pass
// with the latest payload and takes over the entry, so the eventual
// completion of the stuck render drains as a no-op.
func (c *Coordinator) flush(questID string) {
	c.mu.Lock()
	e := c.entries[questID]
	if e == nil {
		c.mu.Unlock()
		return
	}
	e.timer = nil
	if len(e.pending) == 0 {
		c.mu.Unlock()
		return
	}

	next := latest(e.pending)
	e.pending = nil
	e.updating = true
	e.gen++
	gen := e.gen
	c.mu.Unlock()

	c.emit("flush_forced", questID)
	c.emit("render_started", questID)
	go c.render(questID, gen, next.payload)
}

func (c *Coordinator) emit(kind, questID string) {
	if c.onEvent != nil {
		c.onEvent(kind, questID)
	}
}

// Idle reports whether no display pass is running or queued for the quest.
func (c *Coordinator) Idle(questID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[questID]
	return !ok
}

func latest(q []queued) queued {
	best := q[0]
	for _, cand := range q[1:] {
		if cand.at.After(best.at) || cand.at.Equal(best.at) {
			best = cand
		}
	}
	return best
}
