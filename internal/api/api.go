// Package api exposes the assessment core over HTTP. It owns no domain
// logic: handlers bind requests, call services and translate typed errors
// into status codes.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/errors"
	"github.com/openlms/assessment/internal/result"
	"github.com/openlms/assessment/internal/session"
)

// userHeader carries the caller identity resolved by the upstream gateway.
// Identity is an external collaborator; the core treats it as opaque.
const userHeader = "X-User-Id"

type Config struct {
	Router  gin.IRouter
	Session *session.Service
	Catalog *catalog.Service
	Result  *result.Service
}

type API struct {
	session *session.Service
	catalog *catalog.Service
	result  *result.Service
}

func New(c Config) *API {
	a := &API{
		session: c.Session,
		catalog: c.Catalog,
		result:  c.Result,
	}

	r := c.Router
	r.GET("/courses/:courseID/exam", a.examByCourse)
	r.GET("/exams/:examID", a.examDetail)
	r.POST("/exams/:examID/start", a.start)
	r.PUT("/exams/:examID/answers/:questionID", a.saveAnswer)
	r.POST("/exams/:examID/submit", a.submit)
	r.POST("/exams/:examID/reset", a.reset)
	r.GET("/attempts/:attemptID/result", a.attemptResult)

	return a
}

func (a *API) examByCourse(c *gin.Context) {
	courseID, err := pathID(c, "courseID")
	if err != nil {
		respondErr(c, err)
		return
	}

	exam, err := a.catalog.FindExamByCourse(c.Request.Context(), courseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if exam == nil {
		respondErr(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no exam for course: id=%d", courseID)))
		return
	}

	c.JSON(http.StatusOK, exam)
}

func (a *API) examDetail(c *gin.Context) {
	examID, err := pathID(c, "examID")
	if err != nil {
		respondErr(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	detail, err := a.catalog.Detail(c.Request.Context(), examID, userID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (a *API) start(c *gin.Context) {
	examID, err := pathID(c, "examID")
	if err != nil {
		respondErr(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp, err := a.session.Start(c.Request.Context(), examID, userID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

type saveAnswerRequest struct {
	Values []string `json:"values"`
}

func (a *API) saveAnswer(c *gin.Context) {
	examID, err := pathID(c, "examID")
	if err != nil {
		respondErr(c, err)
		return
	}
	questionID, err := pathID(c, "questionID")
	if err != nil {
		respondErr(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	var req saveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if err := a.session.SaveAnswer(c.Request.Context(), examID, userID, questionID, req.Values); err != nil {
		respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type submitRequest struct {
	TimeSpentSeconds int `json:"time_spent_seconds"`
}

func (a *API) submit(c *gin.Context) {
	examID, err := pathID(c, "examID")
	if err != nil {
		respondErr(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.session.Submit(c.Request.Context(), examID, userID, req.TimeSpentSeconds)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, learnerView(*res))
}

func (a *API) reset(c *gin.Context) {
	examID, err := pathID(c, "examID")
	if err != nil {
		respondErr(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	a.session.Reset(c.Request.Context(), examID, userID)
	c.Status(http.StatusNoContent)
}

func (a *API) attemptResult(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	res, err := a.result.Result(c.Request.Context(), c.Param("attemptID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if res.Attempt.UserID != userID {
		respondErr(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt not found: id=%s", res.Attempt.ID)))
		return
	}

	c.JSON(http.StatusOK, learnerView(*res))
}

// learnerView strips answer keys and explanations from a result when the
// exam is not configured to reveal them after submission.
func learnerView(res domain.ExamResult) domain.ExamResult {
	if res.Exam.ShowAnswerAfter {
		return res
	}

	qs := make([]domain.Question, 0, len(res.Questions))
	for _, q := range res.Questions {
		qs = append(qs, q.StripKeys())
	}
	res.Questions = qs
	return res
}

func callerID(c *gin.Context) (string, error) {
	id := c.GetHeader(userHeader)
	if id == "" {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing %s header", userHeader))
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid %s: %q", name, c.Param(name)))
	}
	return id, nil
}

func respondErr(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), e)
}
