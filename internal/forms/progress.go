package forms

import (
	"math"

	"github.com/voiceform/backend/internal/models"
)

// Progress returns the completion percentage for an answer set: the share of
// questions satisfying the non-empty rule, clamped to [0,100]. Pure function;
// no state.
func Progress(answers map[string]models.Answer, totalQuestions int) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	answered := 0
	for _, a := range answers {
		if a.Answered() {
			answered++
		}
	}
	pct := 100 * float64(answered) / float64(totalQuestions)
	return math.Min(100, math.Max(0, pct))
}

// ProgressPercent returns Progress rounded to the nearest integer, as
// displayed to the user.
func ProgressPercent(answers map[string]models.Answer, totalQuestions int) int {
	return int(math.Round(Progress(answers, totalQuestions)))
}
