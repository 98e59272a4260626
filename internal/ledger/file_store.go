package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileState struct {
	Ledgers map[string]ActorLedger `json:"ledgers"`
}

// FileStore persists actor ledgers as a single JSON document. All guarded
// mutations happen under one lock and are flushed before returning, so the
// on-disk document never reflects a half-applied transfer or consumption.
type FileStore struct {
	mu   sync.Mutex
	path string
	s    fileState
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	st := &FileStore{
		path: filepath.Join(dataDir, "ledgers.json"),
		s:    fileState{Ledgers: map[string]ActorLedger{}},
	}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Ledgers == nil {
		loaded.Ledgers = map[string]ActorLedger{}
	}
	s.s = loaded
	return nil
}

func (s *FileStore) saveLocked() error {
	b, err := json.MarshalIndent(s.s, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Get(ctx context.Context, actorID string) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(actorID), nil
}

func (s *FileStore) RecordCompletion(ctx context.Context, actorID string, n int) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.getLocked(actorID)
	if n > 0 {
		l.TotalCompleted += n
		l.PendingTurnIns += n
	}
	s.s.Ledgers[actorID] = l
	if err := s.saveLocked(); err != nil {
		return ActorLedger{}, err
	}
	return l, nil
}

func (s *FileStore) ApplyLegacyTransfer(ctx context.Context, actorID string, totalCompleted, pending int, at time.Time) (ActorLedger, error) {
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
	s.s.Ledgers[actorID] = l
	if err := s.saveLocked(); err != nil {
		return ActorLedger{}, err
	}
	return l, nil
}

func (s *FileStore) Consume(ctx context.Context, actorID string, batch int) (ActorLedger, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := drain(s.getLocked(actorID), batch)
	if !ok {
		return ActorLedger{}, ErrInsufficientTurnIns
	}
	s.s.Ledgers[actorID] = l
	if err := s.saveLocked(); err != nil {
		return ActorLedger{}, err
	}
	return l, nil
}

func (s *FileStore) getLocked(actorID string) ActorLedger {
	l, ok := s.s.Ledgers[actorID]
	if !ok {
		l = ActorLedger{ActorID: actorID}
	}
	return l
}
