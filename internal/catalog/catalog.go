// Package catalog serves read-only exam definitions and their question
// banks. Lookups report absence as a nil result, not an error.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
	"github.com/openlms/assessment/internal/ledger"
)

// Store is the read side of the exam catalog. Questions come back in
// canonical SortOrder with answer keys included; callers decide what to
// strip before showing anything to a learner.
type Store interface {
	ExamByCourse(ctx context.Context, courseID int64) (*domain.Exam, error)
	ExamByID(ctx context.Context, examID int64) (*domain.Exam, error)
	Questions(ctx context.Context, examID int64) ([]domain.Question, error)
}

type Config struct {
	Store  Store
	Ledger ledger.Store
}

type Service struct {
	store  Store
	ledger ledger.Store
}

func NewService(c Config) *Service {
	return &Service{
		store:  c.Store,
		ledger: c.Ledger,
	}
}

// FindExamByCourse returns the exam attached to a course, or nil when the
// course has none.
func (s *Service) FindExamByCourse(ctx context.Context, courseID int64) (*domain.Exam, error) {
	return s.store.ExamByCourse(ctx, courseID)
}

// FindExamByID returns an exam definition, or nil when unknown.
func (s *Service) FindExamByID(ctx context.Context, examID int64) (*domain.Exam, error) {
	return s.store.ExamByID(ctx, examID)
}

// QuestionsFor returns the exam's question bank in canonical order.
func (s *Service) QuestionsFor(ctx context.Context, examID int64) ([]domain.Question, error) {
	return s.store.Questions(ctx, examID)
}

// Detail composes the exam landing view for one learner: definition,
// learner-safe questions, and the learner's attempt history.
func (s *Service) Detail(ctx context.Context, examID int64, userID string) (*domain.ExamDetail, error) {
	exam, err := s.store.ExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("exam not found: id=%d", examID))
	}

	questions, err := s.store.Questions(ctx, examID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.ledger.ListFor(ctx, examID, userID)
	if err != nil {
		return nil, err
	}

	detail := &domain.ExamDetail{
		Exam:         *exam,
		Questions:    make([]domain.Question, 0, len(questions)),
		MyAttempts:   attempts,
		AttemptsUsed: len(attempts),
	}
	for _, q := range questions {
		detail.Questions = append(detail.Questions, q.StripKeys())
	}

	var best *decimal.Decimal
	for i := range attempts {
		if best == nil || attempts[i].Score.GreaterThan(*best) {
			sc := attempts[i].Score
			best = &sc
		}
	}
	detail.BestScore = best

	return detail, nil
}
