// Package scoring grades a set of submitted answers against the canonical
// question set. It is pure: no clock, no storage, no session state.
package scoring

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openlms/assessment/internal/domain"
)

// Outcome is the result of grading one full answer set. CorrectCount,
// WrongCount and UnansweredCount partition the question set.
type Outcome struct {
	Graded          []domain.GradedAnswer
	Score           decimal.Decimal
	CorrectCount    int
	WrongCount      int
	UnansweredCount int
}

// Grade evaluates every question independently, in canonical SortOrder.
// A question with no submitted answer is marked unanswered with zero credit;
// a submitted answer earns either the question's full points or nothing.
func Grade(questions []domain.Question, answers map[int64]domain.SubmittedAnswer) Outcome {
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].SortOrder < qs[j].SortOrder })

	out := Outcome{
		Graded: make([]domain.GradedAnswer, 0, len(qs)),
		Score:  decimal.Zero,
	}

	for _, q := range qs {
		sub, ok := answers[q.ID]
		if !ok {
			out.UnansweredCount++
			out.Graded = append(out.Graded, domain.GradedAnswer{
				QuestionID:   q.ID,
				CreditEarned: decimal.Zero,
			})
			continue
		}

		ga := domain.GradedAnswer{
			QuestionID:   q.ID,
			Values:       submittedValues(sub),
			CreditEarned: decimal.Zero,
		}
		if correct(q, sub.Values) {
			ga.IsCorrect = true
			ga.CreditEarned = q.Points
			out.Score = out.Score.Add(q.Points)
			out.CorrectCount++
		} else {
			out.WrongCount++
		}
		out.Graded = append(out.Graded, ga)
	}

	return out
}

// TotalPoints sums the point values of a question set.
func TotalPoints(questions []domain.Question) decimal.Decimal {
	total := decimal.Zero
	for _, q := range questions {
		total = total.Add(q.Points)
	}
	return total
}

func correct(q domain.Question, values []string) bool {
	if len(q.CorrectKeys) == 0 {
		return false
	}

	if q.Type == domain.QuestionMulti {
		return equalKeySets(values, q.CorrectKeys)
	}

	if len(values) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(values[0]), strings.TrimSpace(q.CorrectKeys[0]))
}

// equalKeySets compares two key slices as sets: same cardinality, every
// submitted key present in the canonical set and vice versa. Order never
// matters; a correct subset earns nothing.
func equalKeySets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, k := range a {
		seen[k]++
	}
	for _, k := range b {
		seen[k]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

// submittedValues keeps a non-nil slice for any submitted answer so that an
// empty submission stays distinguishable from an unanswered question.
func submittedValues(sub domain.SubmittedAnswer) []string {
	if sub.Values == nil {
		return []string{}
	}
	vs := make([]string, len(sub.Values))
	copy(vs, sub.Values)
	return vs
}
