package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/assessment/internal/api"
	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/event"
	"github.com/openlms/assessment/internal/ledger"
	"github.com/openlms/assessment/internal/result"
	"github.com/openlms/assessment/internal/session"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := catalog.NewMemoryStore()
	store.Seed(
		domain.Exam{
			ID:           1,
			CourseID:     7,
			Title:        "Food safety basics",
			PassingScore: decimal.NewFromInt(15),
			MaxAttempts:  2,
			Status:       domain.ExamStatusActive,
		},
		[]domain.Question{
			{ID: 11, ExamID: 1, Type: domain.QuestionSingle, CorrectKeys: []string{"B"}, Points: decimal.NewFromInt(10), SortOrder: 1},
			{ID: 12, ExamID: 1, Type: domain.QuestionMulti, CorrectKeys: []string{"A", "C"}, Points: decimal.NewFromInt(10), SortOrder: 2},
		},
	)

	attempts := ledger.NewMemoryStore()
	cat := catalog.NewService(catalog.Config{Store: store, Ledger: attempts})

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	sess := session.NewService(session.Config{
		Catalog:  cat,
		Ledger:   attempts,
		EventBus: eb,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	})

	gin.SetMode(gin.TestMode)
	e := gin.New()
	api.New(api.Config{
		Router:  e,
		Session: sess,
		Catalog: cat,
		Result:  result.NewService(result.Config{Ledger: attempts, Catalog: cat}),
	})
	return e
}

func do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPI_ExamByCourse(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/courses/7/exam", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var exam domain.Exam
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exam))
	assert.Equal(t, int64(1), exam.ID)

	w = do(t, h, http.MethodGet, "/courses/99/exam", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/courses/abc/exam", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_RequiresCallerIdentity(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/exams/1/start", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/exams/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_StartStripsAnswerKeys(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/exams/1/start", "u1", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		AttemptID string            `json:"attempt_id"`
		Questions []domain.Question `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AttemptID)
	require.Len(t, resp.Questions, 2)
	for _, q := range resp.Questions {
		assert.Empty(t, q.CorrectKeys)
	}
}

func TestAPI_FullAttemptFlow(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/exams/1/start", "u1", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPut, "/exams/1/answers/11", "u1", gin.H{"values": []string{"B"}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPut, "/exams/1/answers/12", "u1", gin.H{"values": []string{"C", "A"}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/exams/1/submit", "u1", gin.H{"time_spent_seconds": 120})
	require.Equal(t, http.StatusOK, w.Code)

	var res domain.ExamResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.CorrectCount)
	assert.True(t, res.Attempt.IsPassed)
	for _, q := range res.Questions {
		assert.Empty(t, q.CorrectKeys, "keys stay hidden unless the exam reveals them")
	}

	// The learner can review the attempt afterwards; others cannot see it.
	path := fmt.Sprintf("/attempts/%s/result", res.Attempt.ID)
	w = do(t, h, http.MethodGet, path, "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, path, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_SubmitWithoutStart(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/exams/1/submit", "u1", gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_AttemptLimit(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	for i := 0; i < 2; i++ {
		w := do(t, h, http.MethodPost, "/exams/1/start", "u1", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		w = do(t, h, http.MethodPost, "/exams/1/submit", "u1", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, h, http.MethodPost, "/exams/1/start", "u1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAPI_ResetAbandonsAttempt(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/exams/1/start", "u1", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPost, "/exams/1/reset", "u1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/exams/1/submit", "u1", gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
}
