package result_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
	"github.com/openlms/assessment/internal/ledger"
	"github.com/openlms/assessment/internal/result"
)

func fixtures() (domain.Exam, []domain.Question, domain.ExamAttempt) {
	exam := domain.Exam{
		ID:           1,
		CourseID:     1,
		Title:        "Service basics",
		PassingScore: decimal.NewFromInt(15),
		MaxAttempts:  3,
		Status:       domain.ExamStatusActive,
	}

	questions := []domain.Question{
		{ID: 11, ExamID: 1, Type: domain.QuestionSingle, CorrectKeys: []string{"B"}, Points: decimal.NewFromInt(10), SortOrder: 1},
		{ID: 12, ExamID: 1, Type: domain.QuestionMulti, CorrectKeys: []string{"A", "C"}, Points: decimal.NewFromInt(10), SortOrder: 2},
		{ID: 13, ExamID: 1, Type: domain.QuestionFill, CorrectKeys: []string{"30"}, Points: decimal.NewFromInt(10), SortOrder: 3},
	}

	submitted := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	attempt := domain.ExamAttempt{
		ID:            "a1",
		ExamID:        1,
		UserID:        "u1",
		AttemptNumber: 1,
		Score:         decimal.NewFromInt(10),
		TotalScore:    decimal.NewFromInt(30),
		IsPassed:      false,
		StartedAt:     submitted.Add(-10 * time.Minute),
		SubmittedAt:   &submitted,
		GradedAnswers: []domain.GradedAnswer{
			{QuestionID: 11, Values: []string{"B"}, IsCorrect: true, CreditEarned: decimal.NewFromInt(10)},
			{QuestionID: 12, Values: []string{"A"}, IsCorrect: false, CreditEarned: decimal.Zero},
			{QuestionID: 13, CreditEarned: decimal.Zero},
		},
	}

	return exam, questions, attempt
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	exam, questions, attempt := fixtures()

	res := result.Assemble(attempt, exam, questions)

	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 1, res.UnansweredCount)
	assert.Equal(t, attempt.GradedAnswers, res.Answers)
	assert.True(t, res.Attempt.Score.Equal(decimal.NewFromInt(10)),
		"counts come from stored answers, never from re-grading")
}

func makeService(t *testing.T) (*result.Service, *ledger.MemoryStore, *miniredis.Miniredis) {
	t.Helper()

	exam, questions, _ := fixtures()
	store := catalog.NewMemoryStore()
	store.Seed(exam, questions)

	attempts := ledger.NewMemoryStore()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})

	svc := result.NewService(result.Config{
		Ledger:  attempts,
		Catalog: catalog.NewService(catalog.Config{Store: store, Ledger: attempts}),
		Cache: result.NewCache(result.CacheConfig{
			Redis:  rc,
			Prefix: "assessment",
			TTL:    time.Minute,
		}),
	})

	return svc, attempts, rs
}

func TestService_Result(t *testing.T) {
	t.Parallel()

	svc, attempts, rs := makeService(t)
	ctx := context.Background()

	_, _, attempt := fixtures()
	require.NoError(t, attempts.Append(ctx, attempt))

	res, err := svc.Result(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 1, res.UnansweredCount)

	assert.True(t, rs.Exists("assessment:result:a1"), "retrieval populates the cache")

	// Second read is served from the cache and stays consistent.
	again, err := svc.Result(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, res.CorrectCount, again.CorrectCount)
	assert.Equal(t, res.UnansweredCount, again.UnansweredCount)
	assert.True(t, res.Attempt.Score.Equal(again.Attempt.Score))
}

func TestService_Result_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := makeService(t)

	_, err := svc.Result(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_Result_CacheDownDegradesGracefully(t *testing.T) {
	t.Parallel()

	svc, attempts, rs := makeService(t)
	ctx := context.Background()

	_, _, attempt := fixtures()
	require.NoError(t, attempts.Append(ctx, attempt))

	rs.SetError("redis is down")

	res, err := svc.Result(ctx, "a1")
	require.NoError(t, err, "cache failure must not break retrieval")
	assert.Equal(t, 1, res.CorrectCount)
}
