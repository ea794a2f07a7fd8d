package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_attempts_started_total",
		Help: "Exam attempts started, per exam.",
	}, []string{"exam"})

	attemptsGraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_attempts_graded_total",
		Help: "Exam attempts graded, per exam and outcome.",
	}, []string{"exam", "outcome"})
)

func AttemptStarted(examID int64) {
	attemptsStarted.WithLabelValues(strconv.FormatInt(examID, 10)).Inc()
}

func AttemptGraded(examID int64, passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	attemptsGraded.WithLabelValues(strconv.FormatInt(examID, 10), outcome).Inc()
}
