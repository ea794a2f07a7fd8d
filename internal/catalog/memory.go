package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/openlms/assessment/internal/domain"
)

// MemoryStore serves a fixed exam catalog from memory, for tests and
// offline seeds.
type MemoryStore struct {
	mu        sync.RWMutex
	exams     map[int64]domain.Exam
	questions map[int64][]domain.Question
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams:     make(map[int64]domain.Exam),
		questions: make(map[int64][]domain.Question),
	}
}

// Seed registers an exam and its question bank. Questions are kept in
// canonical SortOrder regardless of seed order.
func (s *MemoryStore) Seed(e domain.Exam, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].SortOrder < qs[j].SortOrder })

	s.exams[e.ID] = e
	s.questions[e.ID] = qs
}

func (s *MemoryStore) ExamByCourse(_ context.Context, courseID int64) (*domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.exams {
		if e.CourseID == courseID {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ExamByID(_ context.Context, examID int64) (*domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exams[examID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) Questions(_ context.Context, examID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qs := s.questions[examID]
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out, nil
}
