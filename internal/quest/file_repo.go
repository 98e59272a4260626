package quest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type fileState struct {
	Quests map[string]Quest `json:"quests"`
}

// FileRepo persists quests as a single JSON document in the data dir.
type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		path: filepath.Join(dataDir, "quests.json"),
		s:    fileState{Quests: map[string]Quest{}},
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.s = fileState{Quests: map[string]Quest{}}
			return nil
		}
		return err
	}

	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Quests == nil {
		loaded.Quests = map[string]Quest{}
	}
	// Deserialize once into the canonical container; nested maps may be
	// null in documents written before a quest had members.
	for id, q := range loaded.Quests {
		q.ensureParticipants()
		loaded.Quests[id] = q
	}
	r.s = loaded
	return nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileRepo) Seed(ctx context.Context, quests []Quest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range quests {
		if q.Status == "" {
			q.Status = StatusDraft
		}
		q.ensureParticipants()
		r.s.Quests[q.ID] = cloneQuest(q)
	}
	return r.saveLocked()
}

func (r *FileRepo) List(ctx context.Context) ([]Quest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Quest, 0, len(r.s.Quests))
	for _, q := range r.s.Quests {
		out = append(out, cloneQuest(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *FileRepo) Get(ctx context.Context, id string) (Quest, bool, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.s.Quests[id]
	if !ok {
		return Quest{}, false, nil
	}
	return cloneQuest(q), true, nil
}

func (r *FileRepo) Put(ctx context.Context, q Quest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	q.ensureParticipants()
	r.s.Quests[q.ID] = cloneQuest(q)
	return r.saveLocked()
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.s.Quests, id)
	return r.saveLocked()
}

func (r *FileRepo) ListActiveCapped(ctx context.Context) ([]Quest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Quest
	for _, q := range r.s.Quests {
		if q.Status == StatusActive && q.Capped() {
			out = append(out, cloneQuest(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
