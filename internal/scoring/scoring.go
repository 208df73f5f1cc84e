// Package scoring computes deterministic test scores from submitted answers.
package scoring

import (
	"math"

	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
)

// Answer is one submitted answer: a question index and a selected option.
type Answer struct {
	QuestionIndex int `json:"questionIndex"`
	Selected      int `json:"selectedAnswer"`
}

// Result is the outcome of scoring one submission.
type Result struct {
	Score  int
	Passed bool
	Checks []model.AnswerCheck
	Earned int
	Total  int
}

// Score grades answers against the test. Total points cover all questions
// regardless of how many were answered. Answers pointing at a nonexistent
// question are dropped, not counted as incorrect. A question answered more
// than once counts exactly once, last entry wins, so earned points never
// exceed total and the percentage stays within 0–100. The test must be
// normalized before scoring so passing score and per-question points carry
// defaults.
func Score(t *model.Test, answers []Answer) Result {
	var res Result
	for i := range t.Questions {
		res.Total += t.Questions[i].Points
	}

	selected := make(map[int]int, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(t.Questions) {
			continue
		}
		selected[a.QuestionIndex] = a.Selected
	}

	for i := range t.Questions {
		sel, ok := selected[i]
		if !ok {
			continue
		}
		q := t.Questions[i]
		correct := sel == int(q.Correct)
		if correct {
			res.Earned += q.Points
		}
		res.Checks = append(res.Checks, model.AnswerCheck{
			QuestionIndex: i,
			Selected:      sel,
			Correct:       correct,
		})
	}

	if res.Total > 0 {
		res.Score = int(math.Round(100 * float64(res.Earned) / float64(res.Total)))
	}
	res.Passed = res.Score >= t.PassingScore
	return res
}
