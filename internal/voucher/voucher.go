package voucher

import (
	"context"
	"sync"
)

// MemoryService tracks single-use capacity-bypass vouchers in memory. It
// implements quest.VoucherService. Consumption is idempotent per
// actor+quest: a retried consume of the same join is a no-op.
type MemoryService struct {
	mu       sync.Mutex
	vouchers map[string]int
	spent    map[string]string // actorID -> questID the voucher was spent on
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		vouchers: make(map[string]int),
		spent:    make(map[string]string),
	}
}

// Grant hands the actor n bypass vouchers.
func (s *MemoryService) Grant(actorID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers[actorID] += n
}

func (s *MemoryService) HasBypassVoucher(ctx context.Context, actorID string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vouchers[actorID] > 0, nil
}

func (s *MemoryService) ConsumeBypassVoucher(ctx context.Context, actorID, questID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spent[actorID] == questID {
		return nil
	}
	if s.vouchers[actorID] > 0 {
		s.vouchers[actorID]--
		s.spent[actorID] = questID
	}
	return nil
}

// SpentOn reports which quest, if any, the actor's last voucher went to.
func (s *MemoryService) SpentOn(actorID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.spent[actorID]
	return q, ok
}
