package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExamStatus is the publication state of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft    ExamStatus = "draft"
	ExamStatusActive   ExamStatus = "active"
	ExamStatusArchived ExamStatus = "archived"
)

// QuestionType determines how a submitted answer is graded.
type QuestionType string

const (
	QuestionSingle    QuestionType = "single"
	QuestionMulti     QuestionType = "multi"
	QuestionTrueFalse QuestionType = "true_false"
	QuestionFill      QuestionType = "fill"
)

// Exam is a published exam definition. Immutable once active.
type Exam struct {
	ID               int64           `json:"id"`
	CourseID         int64           `json:"course_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	TimeLimitMinutes int             `json:"time_limit_minutes"`
	PassingScore     decimal.Decimal `json:"passing_score"`
	MaxAttempts      int             `json:"max_attempts"`
	QuestionCount    int             `json:"question_count"`
	ShuffleQuestions bool            `json:"shuffle_questions"`
	ShowAnswerAfter  bool            `json:"show_answer_after"`
	Status           ExamStatus      `json:"status"`
}

// Option is one selectable choice of a choice-type question.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Question belongs to exactly one exam. CorrectKeys holds a single element
// for single/true_false/fill questions and the full key set for multi.
// SortOrder is the canonical order used for grading and storage, independent
// of any presentation shuffle.
type Question struct {
	ID          int64           `json:"id"`
	ExamID      int64           `json:"exam_id"`
	Type        QuestionType    `json:"type"`
	Text        string          `json:"text"`
	Options     []Option        `json:"options,omitempty"`
	CorrectKeys []string        `json:"correct_keys,omitempty"`
	Points      decimal.Decimal `json:"points"`
	Explanation string          `json:"explanation,omitempty"`
	SortOrder   int             `json:"sort_order"`
}

// StripKeys returns a copy of the question safe to show to a learner before
// submission: no answer key, no explanation.
func (q Question) StripKeys() Question {
	q.CorrectKeys = nil
	q.Explanation = ""
	return q
}

// SubmittedAnswer is a learner's in-progress answer to one question. It only
// lives inside an active session and is superseded by a GradedAnswer on
// submit.
type SubmittedAnswer struct {
	QuestionID int64    `json:"question_id"`
	Values     []string `json:"values"`
}

// GradedAnswer is the terminal record of one question within an attempt.
// Values == nil marks the question as unanswered, which is distinct from a
// submitted empty answer.
type GradedAnswer struct {
	QuestionID   int64           `json:"question_id"`
	Values       []string        `json:"values"`
	IsCorrect    bool            `json:"is_correct"`
	CreditEarned decimal.Decimal `json:"credit_earned"`
}

// Unanswered reports whether the learner never submitted a value for this
// question.
func (a GradedAnswer) Unanswered() bool { return a.Values == nil }

// ExamAttempt is one learner's pass through an exam. Created on start,
// finalized exactly once on submit, immutable afterwards.
type ExamAttempt struct {
	ID               string          `json:"id"`
	ExamID           int64           `json:"exam_id"`
	UserID           string          `json:"user_id"`
	AttemptNumber    int             `json:"attempt_number"`
	Score            decimal.Decimal `json:"score"`
	TotalScore       decimal.Decimal `json:"total_score"`
	IsPassed         bool            `json:"is_passed"`
	StartedAt        time.Time       `json:"started_at"`
	SubmittedAt      *time.Time      `json:"submitted_at,omitempty"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	GradedAnswers    []GradedAnswer  `json:"graded_answers,omitempty"`
}

// Terminal reports whether the attempt has been submitted and graded.
func (a ExamAttempt) Terminal() bool { return a.SubmittedAt != nil }

// ExamResult is the composed view of a terminal attempt. It is derived from
// stored data and never re-graded against current answer keys.
type ExamResult struct {
	Attempt         ExamAttempt    `json:"attempt"`
	Exam            Exam           `json:"exam"`
	Questions       []Question     `json:"questions"`
	Answers         []GradedAnswer `json:"answers"`
	CorrectCount    int            `json:"correct_count"`
	WrongCount      int            `json:"wrong_count"`
	UnansweredCount int            `json:"unanswered_count"`
}

// ExamDetail is an exam plus the caller's attempt history, as shown on the
// exam landing page.
type ExamDetail struct {
	Exam         Exam             `json:"exam"`
	Questions    []Question       `json:"questions"`
	MyAttempts   []ExamAttempt    `json:"my_attempts"`
	AttemptsUsed int              `json:"attempts_used"`
	BestScore    *decimal.Decimal `json:"best_score,omitempty"`
}
