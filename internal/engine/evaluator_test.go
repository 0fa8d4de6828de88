package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/model"
)

func intp(i int) *int { return &i }

func capitalMCQ() model.Question {
	return model.NewMCQ(
		"What is the capital of France?",
		[]model.MCQOption{
			{Text: "Paris", IsCorrect: true},
			{Text: "Lyon", IsCorrect: false},
		},
		"Paris", "Paris is the capital.", "geography", model.DifficultyEasy,
	)
}

func TestEvaluate_MCQCorrectOption(t *testing.T) {
	correct, canonical, err := engine.Evaluate(capitalMCQ(), engine.Submission{OptionIndex: intp(0)})
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "Paris", canonical)
}

func TestEvaluate_MCQWrongOption(t *testing.T) {
	correct, canonical, err := engine.Evaluate(capitalMCQ(), engine.Submission{OptionIndex: intp(1)})
	require.NoError(t, err)
	assert.False(t, correct)
	assert.Equal(t, "Paris", canonical, "canonical answer still names the correct option")
}

func TestEvaluate_MCQIndexValidation(t *testing.T) {
	q := capitalMCQ()

	tests := []struct {
		name string
		sub  engine.Submission
	}{
		{"missing index", engine.Submission{Text: "Paris"}},
		{"negative index", engine.Submission{OptionIndex: intp(-1)}},
		{"index beyond options", engine.Submission{OptionIndex: intp(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := engine.Evaluate(q, tt.sub)
			assert.ErrorIs(t, err, engine.ErrInvalidSubmission)
		})
	}
}

func TestEvaluate_MCQNoCorrectFlag(t *testing.T) {
	q := model.NewMCQ(
		"Pick one",
		[]model.MCQOption{{Text: "A"}, {Text: "B"}},
		"stored answer", "", "", model.DifficultyMedium,
	)

	for idx := 0; idx < 2; idx++ {
		correct, canonical, err := engine.Evaluate(q, engine.Submission{OptionIndex: intp(idx)})
		require.NoError(t, err)
		assert.False(t, correct, "option %d must grade incorrect when nothing is flagged", idx)
		assert.Equal(t, "stored answer", canonical)
	}
}

func TestEvaluate_MCQMultipleCorrectFlags(t *testing.T) {
	q := model.NewMCQ(
		"Pick one",
		[]model.MCQOption{
			{Text: "first", IsCorrect: true},
			{Text: "second", IsCorrect: true},
		},
		"", "", "", model.DifficultyMedium,
	)

	correct, canonical, err := engine.Evaluate(q, engine.Submission{OptionIndex: intp(1)})
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "first", canonical, "first flagged option wins the canonical text")
}

func TestEvaluate_MCQEmptyOptions(t *testing.T) {
	q := model.NewMCQ("Broken", nil, "fallback", "", "", model.DifficultyMedium)

	_, _, err := engine.Evaluate(q, engine.Submission{OptionIndex: intp(0)})
	assert.ErrorIs(t, err, engine.ErrInvalidSubmission, "no index can be in range of an empty option list")
}

func TestEvaluate_FillBlankNormalization(t *testing.T) {
	q := model.NewFillBlank("___ converts light into energy.", "Photosynthesis", "", "biology", model.DifficultyEasy)

	correct, canonical, err := engine.Evaluate(q, engine.Submission{Text: " photosynthesis "})
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "Photosynthesis", canonical)
}

func TestEvaluate_ShortAnswerExactMatchOnly(t *testing.T) {
	q := model.NewShortAnswer("Define osmosis", "diffusion of water", "", "biology", model.DifficultyHard)

	correct, _, err := engine.Evaluate(q, engine.Submission{Text: "diffusion of water molecules"})
	require.NoError(t, err)
	assert.False(t, correct, "near matches do not count")

	correct, _, err = engine.Evaluate(q, engine.Submission{Text: "Diffusion Of Water"})
	require.NoError(t, err)
	assert.True(t, correct)
}

func TestEvaluate_Deterministic(t *testing.T) {
	q := capitalMCQ()
	sub := engine.Submission{OptionIndex: intp(0)}
	for i := 0; i < 5; i++ {
		correct, canonical, err := engine.Evaluate(q, sub)
		require.NoError(t, err)
		assert.True(t, correct)
		assert.Equal(t, "Paris", canonical)
	}
}
