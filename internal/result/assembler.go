// Package result composes terminal attempts into the view a learner sees
// when reviewing a past exam. Counts are always derived from the stored
// graded answers, never re-graded against current answer keys.
package result

import (
	"context"
	"log/slog"

	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
	"github.com/openlms/assessment/internal/ledger"
)

// Assemble builds the result view for one terminal attempt.
func Assemble(attempt domain.ExamAttempt, exam domain.Exam, questions []domain.Question) domain.ExamResult {
	res := domain.ExamResult{
		Attempt:   attempt,
		Exam:      exam,
		Questions: questions,
		Answers:   attempt.GradedAnswers,
	}

	for _, a := range attempt.GradedAnswers {
		switch {
		case a.Unanswered():
			res.UnansweredCount++
		case a.IsCorrect:
			res.CorrectCount++
		default:
			res.WrongCount++
		}
	}

	return res
}

type Config struct {
	Ledger  ledger.Store
	Catalog *catalog.Service
	Cache   *Cache
}

type Service struct {
	ledger  ledger.Store
	catalog *catalog.Service
	cache   *Cache
}

func NewService(c Config) *Service {
	return &Service{
		ledger:  c.Ledger,
		catalog: c.Catalog,
		cache:   c.Cache,
	}
}

// Result retrieves a past attempt's composed result, serving from the cache
// when possible. Cache failures degrade to recomputation, never to errors.
func (s *Service) Result(ctx context.Context, attemptID string) (*domain.ExamResult, error) {
	if s.cache != nil {
		res, err := s.cache.Get(ctx, attemptID)
		if err != nil {
			slog.ErrorContext(ctx, "result: cache read failed", "attempt_id", attemptID, "error", err)
		}
		if res != nil {
			return res, nil
		}
	}

	attempt, err := s.ledger.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt not found: id=%s", attemptID))
	}

	exam, err := s.catalog.FindExamByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("exam not found: id=%d", attempt.ExamID))
	}

	questions, err := s.catalog.QuestionsFor(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	res := Assemble(*attempt, *exam, questions)

	if s.cache != nil {
		if err := s.cache.Put(ctx, res); err != nil {
			slog.ErrorContext(ctx, "result: cache write failed", "attempt_id", attemptID, "error", err)
		}
	}

	return &res, nil
}
