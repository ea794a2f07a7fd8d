package domain

import "github.com/shopspring/decimal"

const (
	EventNameExamPassed = "exam.passed"
	EventNameExamFailed = "exam.failed"
)

// GradingNotice is the fire-and-forget payload emitted when an attempt
// reaches its terminal state. External notification systems subscribe to it;
// the assessment core does not wait for them.
type GradingNotice struct {
	UserID    string          `json:"user_id"`
	ExamID    int64           `json:"exam_id"`
	AttemptID string          `json:"attempt_id"`
	IsPassed  bool            `json:"is_passed"`
	Score     decimal.Decimal `json:"score"`
}

// NoticeFor builds the grading notice for a terminal attempt.
func NoticeFor(a ExamAttempt) GradingNotice {
	return GradingNotice{
		UserID:    a.UserID,
		ExamID:    a.ExamID,
		AttemptID: a.ID,
		IsPassed:  a.IsPassed,
		Score:     a.Score,
	}
}

type EventExamPassed struct {
	Notice GradingNotice
}

func (EventExamPassed) Name() string { return EventNameExamPassed }

type EventExamFailed struct {
	Notice GradingNotice
}

func (EventExamFailed) Name() string { return EventNameExamFailed }
