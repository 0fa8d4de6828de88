package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/model"
)

func answers(results ...bool) []model.AnswerRecord {
	out := make([]model.AnswerRecord, len(results))
	for i, ok := range results {
		out[i] = model.AnswerRecord{QuestionID: "q", IsCorrect: ok}
	}
	return out
}

func TestNextDifficulty(t *testing.T) {
	tests := []struct {
		name    string
		history []model.AnswerRecord
		current model.Difficulty
		want    model.Difficulty
	}{
		{"empty history is a no-op", nil, model.DifficultyMedium, model.DifficultyMedium},
		{"single wrong answer demotes", answers(false), model.DifficultyMedium, model.DifficultyEasy},
		{"single correct answer promotes", answers(true), model.DifficultyMedium, model.DifficultyHard},
		{"three correct promotes", answers(true, true, true), model.DifficultyMedium, model.DifficultyHard},
		{"two of three stays put", answers(true, true, false), model.DifficultyMedium, model.DifficultyMedium},
		{"one of three demotes", answers(false, false, true), model.DifficultyMedium, model.DifficultyEasy},
		{"all wrong demotes", answers(false, false, false), model.DifficultyHard, model.DifficultyMedium},
		{"hard is the ceiling", answers(true, true, true), model.DifficultyHard, model.DifficultyHard},
		{"easy is the floor", answers(false, false, false), model.DifficultyEasy, model.DifficultyEasy},
		{
			"only the trailing window counts",
			// Three early misses followed by three hits.
			answers(false, false, false, true, true, true),
			model.DifficultyEasy,
			model.DifficultyMedium,
		},
		{
			"window shorter than three",
			answers(true, true),
			model.DifficultyEasy,
			model.DifficultyMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.NextDifficulty(tt.history, tt.current)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The controller never moves more than one level per step, whatever the
// history looks like.
func TestNextDifficulty_SingleStep(t *testing.T) {
	histories := [][]model.AnswerRecord{
		nil,
		answers(true),
		answers(false),
		answers(true, true, true, true, true),
		answers(false, false, false, false, false),
		answers(true, false, true, false, true),
	}
	levels := []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

	steps := map[model.Difficulty]int{
		model.DifficultyEasy:   0,
		model.DifficultyMedium: 1,
		model.DifficultyHard:   2,
	}

	for _, history := range histories {
		for _, current := range levels {
			next := engine.NextDifficulty(history, current)
			assert.True(t, next.Valid())
			diff := steps[next] - steps[current]
			if diff < 0 {
				diff = -diff
			}
			assert.LessOrEqual(t, diff, 1, "history len %d, current %s", len(history), current)
		}
	}
}
