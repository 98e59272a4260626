package quest

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	quests map[string]Quest
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		quests: make(map[string]Quest),
	}
}

func (r *MemoryRepo) Seed(ctx context.Context, quests []Quest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range quests {
		if q.Status == "" {
			q.Status = StatusDraft
		}
		q.ensureParticipants()
		r.quests[q.ID] = cloneQuest(q)
	}
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Quest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Quest, 0, len(r.quests))
	for _, q := range r.quests {
		out = append(out, cloneQuest(q))
	}

	// stable ordering is nice for UI/tests
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Quest, bool, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.quests[id]
	if !ok {
		return Quest{}, false, nil
	}
	return cloneQuest(q), true, nil
}

func (r *MemoryRepo) Put(ctx context.Context, q Quest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	q.ensureParticipants()
	r.quests[q.ID] = cloneQuest(q)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.quests, id)
	return nil
}

func (r *MemoryRepo) ListActiveCapped(ctx context.Context) ([]Quest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Quest
	for _, q := range r.quests {
		if q.Status == StatusActive && q.Capped() {
			out = append(out, cloneQuest(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// cloneQuest deep-copies the mutable fields so callers never share the
// repo's internal maps.
func cloneQuest(q Quest) Quest {
	cp := q
	cp.Participants = make(map[string]Participant, len(q.Participants))
	for id, p := range q.Participants {
		if p.Submissions != nil {
			subs := make([]string, len(p.Submissions))
			copy(subs, p.Submissions)
			p.Submissions = subs
		}
		cp.Participants[id] = p
	}
	if q.ParticipantCap != nil {
		cap := *q.ParticipantCap
		cp.ParticipantCap = &cap
	}
	if q.SignupDeadline != nil {
		dl := *q.SignupDeadline
		cp.SignupDeadline = &dl
	}
	if q.Display != nil {
		d := *q.Display
		cp.Display = &d
	}
	return cp
}
