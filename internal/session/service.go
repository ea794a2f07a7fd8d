// Package session drives one learner's active exam attempt through its
// lifecycle: start, incremental answer edits, submit, reset. Grading itself
// is delegated to the scoring package; history lives in the ledger.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
	"github.com/openlms/assessment/internal/event"
	"github.com/openlms/assessment/internal/ledger"
	"github.com/openlms/assessment/internal/result"
	"github.com/openlms/assessment/internal/scoring"
	"github.com/openlms/assessment/internal/telemetry"
)

// State of one (exam, learner) pair.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateSubmitting
	StateGraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateGraded:
		return "graded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Catalog  *catalog.Service
	Ledger   ledger.Store
	EventBus *event.Bus

	// Now and Perm are injectable for tests. Perm must return a permutation
	// of [0, n).
	Now  func() time.Time
	Perm func(n int) []int
}

type Service struct {
	catalog *catalog.Service
	ledger  ledger.Store
	eb      *event.Bus
	now     func() time.Time

	permMu sync.Mutex
	perm   func(n int) []int

	mu     sync.Mutex
	active map[pairKey]*activeSession
}

type pairKey struct {
	examID int64
	userID string
}

// activeSession holds everything an in-flight attempt needs. Questions stay
// in canonical order; order holds the presentation permutation.
type activeSession struct {
	mu        sync.Mutex
	state     State
	exam      domain.Exam
	questions []domain.Question
	attempt   domain.ExamAttempt
	answers   map[int64]domain.SubmittedAnswer
	order     []int64
}

func NewService(c Config) *Service {
	s := &Service{
		catalog: c.Catalog,
		ledger:  c.Ledger,
		eb:      c.EventBus,
		now:     c.Now,
		perm:    c.Perm,
		active:  make(map[pairKey]*activeSession),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.perm == nil {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		s.perm = r.Perm
	}
	return s
}

// lock returns the session for a pair with its mutex held. Start and Submit
// must run under this per-pair lock so two concurrent starts cannot both
// pass the attempt-limit guard and two submits cannot both finalize.
func (s *Service) lock(k pairKey) *activeSession {
	s.mu.Lock()
	sess, ok := s.active[k]
	if !ok {
		sess = &activeSession{state: StateIdle}
		s.active[k] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// StartResponse is handed to the learner when an attempt begins. Questions
// are in presentation order with answer keys stripped.
type StartResponse struct {
	AttemptID string            `json:"attempt_id"`
	Exam      domain.Exam       `json:"exam"`
	Questions []domain.Question `json:"questions"`
	StartedAt time.Time         `json:"started_at"`
}

// Start begins a new attempt for (examID, userID). It fails when the exam is
// unknown or the learner has exhausted the exam's attempt allowance.
func (s *Service) Start(ctx context.Context, examID int64, userID string) (*StartResponse, error) {
	k := pairKey{examID: examID, userID: userID}
	sess := s.lock(k)
	defer sess.mu.Unlock()

	exam, err := s.catalog.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		sess.reset()
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("exam not found: id=%d", examID))
	}

	prior, err := s.ledger.CountFor(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if prior >= exam.MaxAttempts {
		sess.reset()
		return nil, errors.New(errors.CodeResourceExhausted,
			errors.WithMessagef("attempt limit exceeded: exam=%d user=%s max=%d", examID, userID, exam.MaxAttempts))
	}

	questions, err := s.catalog.QuestionsFor(ctx, examID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	sess.exam = *exam
	sess.questions = questions
	sess.answers = make(map[int64]domain.SubmittedAnswer)
	sess.attempt = domain.ExamAttempt{
		ID:            id.String(),
		ExamID:        examID,
		UserID:        userID,
		AttemptNumber: prior + 1,
		Score:         decimal.Zero,
		TotalScore:    scoring.TotalPoints(questions),
		StartedAt:     s.now(),
	}
	sess.order = s.presentationOrder(exam.ShuffleQuestions, questions)
	sess.state = StateInProgress

	telemetry.AttemptStarted(examID)

	return &StartResponse{
		AttemptID: sess.attempt.ID,
		Exam:      *exam,
		Questions: s.presentQuestions(sess),
		StartedAt: sess.attempt.StartedAt,
	}, nil
}

// SaveAnswer upserts the in-progress answer for one question. Later calls
// for the same question overwrite earlier ones; nothing is graded here.
func (s *Service) SaveAnswer(_ context.Context, examID int64, userID string, questionID int64, values []string) error {
	sess := s.lock(pairKey{examID: examID, userID: userID})
	defer sess.mu.Unlock()

	if sess.state != StateInProgress {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no attempt in progress: exam=%d user=%s state=%s", examID, userID, sess.state))
	}

	vs := make([]string, len(values))
	copy(vs, values)
	sess.answers[questionID] = domain.SubmittedAnswer{
		QuestionID: questionID,
		Values:     vs,
	}
	return nil
}

// Submit grades the current answer set over the full canonical question set,
// finalizes the attempt, appends it to the ledger and publishes the grading
// event. Only the first submit of an attempt is honored.
func (s *Service) Submit(ctx context.Context, examID int64, userID string, timeSpentSeconds int) (*domain.ExamResult, error) {
	sess := s.lock(pairKey{examID: examID, userID: userID})
	defer sess.mu.Unlock()

	switch sess.state {
	case StateGraded:
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt already submitted: id=%s", sess.attempt.ID))
	case StateInProgress:
	default:
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no attempt in progress: exam=%d user=%s state=%s", examID, userID, sess.state))
	}

	sess.state = StateSubmitting

	outcome := scoring.Grade(sess.questions, sess.answers)

	submittedAt := s.now()
	attempt := sess.attempt
	attempt.Score = outcome.Score
	attempt.IsPassed = outcome.Score.GreaterThanOrEqual(sess.exam.PassingScore)
	attempt.SubmittedAt = &submittedAt
	attempt.TimeSpentSeconds = timeSpentSeconds
	attempt.GradedAnswers = outcome.Graded

	if err := s.ledger.Append(ctx, attempt); err != nil {
		sess.state = StateInProgress
		return nil, err
	}

	sess.attempt = attempt
	sess.answers = nil
	sess.state = StateGraded

	telemetry.AttemptGraded(examID, attempt.IsPassed)
	if attempt.IsPassed {
		s.eb.Publish(ctx, domain.EventExamPassed{Notice: domain.NoticeFor(attempt)})
	} else {
		s.eb.Publish(ctx, domain.EventExamFailed{Notice: domain.NoticeFor(attempt)})
	}

	res := result.Assemble(attempt, sess.exam, sess.questions)
	return &res, nil
}

// Reset abandons the current session and returns the pair to idle. Attempts
// already appended to the ledger stay recorded.
func (s *Service) Reset(_ context.Context, examID int64, userID string) {
	sess := s.lock(pairKey{examID: examID, userID: userID})
	defer sess.mu.Unlock()

	sess.reset()
}

// State reports the lifecycle state for a pair without mutating it.
func (s *Service) State(examID int64, userID string) State {
	s.mu.Lock()
	sess, ok := s.active[pairKey{examID: examID, userID: userID}]
	s.mu.Unlock()
	if !ok {
		return StateIdle
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

func (sess *activeSession) reset() {
	sess.state = StateIdle
	sess.exam = domain.Exam{}
	sess.questions = nil
	sess.attempt = domain.ExamAttempt{}
	sess.answers = nil
	sess.order = nil
}

// presentationOrder draws a fresh permutation of question IDs on every start
// when the exam shuffles; canonical SortOrder is untouched either way.
func (s *Service) presentationOrder(shuffle bool, questions []domain.Question) []int64 {
	order := make([]int64, len(questions))
	if !shuffle {
		for i, q := range questions {
			order[i] = q.ID
		}
		return order
	}

	s.permMu.Lock()
	p := s.perm(len(questions))
	s.permMu.Unlock()
	for i, j := range p {
		order[i] = questions[j].ID
	}
	return order
}

func (s *Service) presentQuestions(sess *activeSession) []domain.Question {
	byID := make(map[int64]domain.Question, len(sess.questions))
	for _, q := range sess.questions {
		byID[q.ID] = q
	}

	out := make([]domain.Question, 0, len(sess.order))
	for _, id := range sess.order {
		out = append(out, byID[id].StripKeys())
	}
	return out
}
