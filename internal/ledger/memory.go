package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
)

type pairKey struct {
	examID int64
	userID string
}

// MemoryStore is an in-memory ledger used for tests and offline runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.ExamAttempt
	byPair  map[pairKey][]string
	numbers map[pairKey]map[int]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]domain.ExamAttempt),
		byPair:  make(map[pairKey][]string),
		numbers: make(map[pairKey]map[int]struct{}),
	}
}

func (s *MemoryStore) Append(_ context.Context, a domain.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt already recorded: id=%s", a.ID))
	}

	k := pairKey{examID: a.ExamID, userID: a.UserID}
	if _, ok := s.numbers[k][a.AttemptNumber]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt number already used: exam=%d user=%s n=%d", a.ExamID, a.UserID, a.AttemptNumber))
	}

	s.byID[a.ID] = a
	s.byPair[k] = append(s.byPair[k], a.ID)
	if s.numbers[k] == nil {
		s.numbers[k] = make(map[int]struct{})
	}
	s.numbers[k][a.AttemptNumber] = struct{}{}
	return nil
}

func (s *MemoryStore) CountFor(_ context.Context, examID int64, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPair[pairKey{examID: examID, userID: userID}]), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*domain.ExamAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) ListFor(_ context.Context, examID int64, userID string) ([]domain.ExamAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPair[pairKey{examID: examID, userID: userID}]
	out := make([]domain.ExamAttempt, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}
