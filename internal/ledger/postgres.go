package ledger

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
)

const codeUniqueViolation = "23505"

// PostgresStore persists attempts in the exam_attempts table. A unique index
// on (exam_id, user_id, attempt_number) backs the append-only guarantee.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, a domain.ExamAttempt) error {
	answers, err := json.Marshal(a.GradedAnswers)
	if err != nil {
		return fmt.Errorf("marshal graded answers: %w", err)
	}

	const stmt = `
INSERT INTO exam_attempts
	(id, exam_id, user_id, attempt_number, score, total_score, is_passed,
	 started_at, submitted_at, time_spent_seconds, graded_answers)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err = s.db.Exec(ctx, stmt,
		a.ID, a.ExamID, a.UserID, a.AttemptNumber, a.Score, a.TotalScore, a.IsPassed,
		a.StartedAt, a.SubmittedAt, a.TimeSpentSeconds, answers)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt already recorded: exam=%d user=%s n=%d", a.ExamID, a.UserID, a.AttemptNumber),
			errors.WithCause(err))
	}

	return err
}

func (s *PostgresStore) CountFor(ctx context.Context, examID int64, userID string) (int, error) {
	const stmt = `SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1 AND user_id = $2;`

	var n int
	if err := s.db.QueryRow(ctx, stmt, examID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*domain.ExamAttempt, error) {
	const stmt = `
SELECT id, exam_id, user_id, attempt_number, score, total_score, is_passed,
       started_at, submitted_at, time_spent_seconds, graded_answers
FROM exam_attempts WHERE id = $1;`

	a, err := scanAttempt(s.db.QueryRow(ctx, stmt, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListFor(ctx context.Context, examID int64, userID string) ([]domain.ExamAttempt, error) {
	const stmt = `
SELECT id, exam_id, user_id, attempt_number, score, total_score, is_passed,
       started_at, submitted_at, time_spent_seconds, graded_answers
FROM exam_attempts
WHERE exam_id = $1 AND user_id = $2
ORDER BY attempt_number;`

	rows, err := s.db.Query(ctx, stmt, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ExamAttempt, error) {
		return scanAttempt(r)
	})
}

type row interface {
	Scan(dest ...any) error
}

func scanAttempt(r row) (domain.ExamAttempt, error) {
	var (
		a       domain.ExamAttempt
		answers []byte
	)
	err := r.Scan(&a.ID, &a.ExamID, &a.UserID, &a.AttemptNumber, &a.Score, &a.TotalScore,
		&a.IsPassed, &a.StartedAt, &a.SubmittedAt, &a.TimeSpentSeconds, &answers)
	if err != nil {
		return domain.ExamAttempt{}, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.GradedAnswers); err != nil {
			return domain.ExamAttempt{}, fmt.Errorf("unmarshal graded answers: %w", err)
		}
	}
	return a, nil
}
