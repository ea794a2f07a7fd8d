// Package ledger is the append-only history of exam attempts per
// (exam, learner) pair. It is the source of truth for attempt-limit
// enforcement; the limit itself is checked by the session controller.
package ledger

import (
	"context"

	"github.com/openlms/assessment/internal/domain"
)

// Store records terminal and in-flight attempts. Appended attempts are never
// mutated; a duplicate (exam, user, attempt number) append fails.
type Store interface {
	Append(ctx context.Context, a domain.ExamAttempt) error
	CountFor(ctx context.Context, examID int64, userID string) (int, error)
	FindByID(ctx context.Context, id string) (*domain.ExamAttempt, error)
	ListFor(ctx context.Context, examID int64, userID string) ([]domain.ExamAttempt, error)
}
