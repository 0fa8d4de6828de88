package engine

import "github.com/edforge/lectern/internal/model"

// accuracyWindow is how many trailing answers feed the difficulty step.
const accuracyWindow = 3

// Thresholds on the trailing-window accuracy.
const (
	promoteAt = 0.8
	demoteAt  = 0.5
)

// NextDifficulty returns the difficulty to use after the given answer
// history. Only the last accuracyWindow records are considered; with an
// empty history the current level is returned unchanged. Accuracy at or
// above promoteAt moves one level up, at or below demoteAt one level down.
// A single step never skips a level.
func NextDifficulty(answers []model.AnswerRecord, current model.Difficulty) model.Difficulty {
	if len(answers) == 0 {
		return current
	}

	window := answers
	if len(window) > accuracyWindow {
		window = window[len(window)-accuracyWindow:]
	}
	correct := 0
	for _, a := range window {
		if a.IsCorrect {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(window))

	switch {
	case accuracy >= promoteAt:
		return current.Promote()
	case accuracy <= demoteAt:
		return current.Demote()
	default:
		return current
	}
}
