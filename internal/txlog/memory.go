package txlog

import (
	"context"
	"sync"

	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

type storedRecord struct {
	payload []byte
	sum     uint32
}

// MemoryStore keeps the log in process memory. Records are held in their
// encoded form so reads return independent copies.
type MemoryStore struct {
	mu     sync.Mutex
	logs   map[string][]storedRecord
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]storedRecord)}
}

func (s *MemoryStore) Append(ctx context.Context, namespace string, r transaction.Record) error {
	if err := s.check(ctx, namespace); err != nil {
		return err
	}
	payload, sum, err := Encode(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[namespace] = append(s.logs[namespace], storedRecord{payload: payload, sum: sum})
	return nil
}

func (s *MemoryStore) ReadAll(ctx context.Context, namespace string) ([]transaction.Record, error) {
	if err := s.check(ctx, namespace); err != nil {
		return nil, err
	}
	s.mu.Lock()
	stored := s.logs[namespace]
	s.mu.Unlock()

	records := make([]transaction.Record, 0, len(stored))
	for _, sr := range stored {
		r, err := Decode(sr.payload, sr.sum)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *MemoryStore) Truncate(ctx context.Context, namespace string, keep int) error {
	if err := s.check(ctx, namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if log := s.logs[namespace]; keep >= 0 && keep < len(log) {
		s.logs[namespace] = log[:keep:keep]
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return checkNamespace(namespace)
}
