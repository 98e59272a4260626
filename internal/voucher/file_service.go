package voucher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

type fileState struct {
	Vouchers map[string]int    `json:"vouchers"`
	Spent    map[string]string `json:"spent"`
}

// FileService persists voucher balances as a JSON document in the data dir.
type FileService struct {
	mu   sync.Mutex
	path string
	s    fileState
}

func NewFileService(dataDir string) (*FileService, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	svc := &FileService{
		path: filepath.Join(dataDir, "vouchers.json"),
		s:    fileState{Vouchers: map[string]int{}, Spent: map[string]string{}},
	}
	if err := svc.load(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *FileService) load() error {
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
	if loaded.Vouchers == nil {
		loaded.Vouchers = map[string]int{}
	}
	if loaded.Spent == nil {
		loaded.Spent = map[string]string{}
	}
	s.s = loaded
	return nil
}

func (s *FileService) saveLocked() error {
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

func (s *FileService) Grant(actorID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Vouchers[actorID] += n
	return s.saveLocked()
}

func (s *FileService) HasBypassVoucher(ctx context.Context, actorID string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s.Vouchers[actorID] > 0, nil
}

func (s *FileService) ConsumeBypassVoucher(ctx context.Context, actorID, questID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s.Spent[actorID] == questID {
		return nil
	}
	if s.s.Vouchers[actorID] > 0 {
		s.s.Vouchers[actorID]--
		s.s.Spent[actorID] = questID
	}
	return s.saveLocked()
}
