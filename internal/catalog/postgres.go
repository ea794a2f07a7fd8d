package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlms/assessment/internal/domain"
)

// PostgresStore reads the exam catalog from the exams and questions tables.
// Option lists and answer keys are stored as jsonb.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const examColumns = `
id, course_id, title, description, time_limit_minutes, passing_score,
max_attempts, question_count, shuffle_questions, show_answer_after, status`

func (s *PostgresStore) ExamByCourse(ctx context.Context, courseID int64) (*domain.Exam, error) {
	stmt := `SELECT ` + examColumns + ` FROM exams WHERE course_id = $1 AND status = 'active' LIMIT 1;`
	return s.examRow(ctx, stmt, courseID)
}

func (s *PostgresStore) ExamByID(ctx context.Context, examID int64) (*domain.Exam, error) {
	stmt := `SELECT ` + examColumns + ` FROM exams WHERE id = $1;`
	return s.examRow(ctx, stmt, examID)
}

func (s *PostgresStore) examRow(ctx context.Context, stmt string, arg any) (*domain.Exam, error) {
	var e domain.Exam
	err := s.db.QueryRow(ctx, stmt, arg).Scan(
		&e.ID, &e.CourseID, &e.Title, &e.Description, &e.TimeLimitMinutes, &e.PassingScore,
		&e.MaxAttempts, &e.QuestionCount, &e.ShuffleQuestions, &e.ShowAnswerAfter, &e.Status)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select exam: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Questions(ctx context.Context, examID int64) ([]domain.Question, error) {
	const stmt = `
SELECT id, exam_id, type, text, options, correct_keys, points, explanation, sort_order
FROM questions
WHERE exam_id = $1
ORDER BY sort_order;`

	rows, err := s.db.Query(ctx, stmt, examID)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var (
			q       domain.Question
			options []byte
			keys    []byte
		)
		err := r.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &options, &keys,
			&q.Points, &q.Explanation, &q.SortOrder)
		if err != nil {
			return domain.Question{}, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		if len(keys) > 0 {
			if err := json.Unmarshal(keys, &q.CorrectKeys); err != nil {
				return domain.Question{}, fmt.Errorf("unmarshal answer keys: %w", err)
			}
		}
		return q, nil
	})
}
