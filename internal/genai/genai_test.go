package genai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/lectern/internal/genai"
	"github.com/edforge/lectern/internal/model"
)

func TestParseQuestions(t *testing.T) {
	payload := `{
		"questions": [
			{
				"type": "mcq",
				"prompt": "Which organelle runs photosynthesis?",
				"options": [
					{"text": "Chloroplast", "is_correct": true},
					{"text": "Mitochondria", "is_correct": false}
				],
				"answer": "Chloroplast",
				"explanation": "Light reactions run there.",
				"topic": "organelles",
				"difficulty": "easy"
			},
			{
				"type": "fill_blank",
				"prompt": "The green pigment is ____.",
				"answer": "chlorophyll",
				"topic": "pigments",
				"difficulty": "medium"
			},
			{
				"type": "short_answer",
				"prompt": "Name the gas plants release.",
				"answer": "oxygen",
				"topic": "gases",
				"difficulty": "hard"
			}
		]
	}`

	questions, err := genai.ParseQuestions([]byte(payload))
	require.NoError(t, err)
	require.Len(t, questions, 3)

	mcq := questions[0]
	assert.Equal(t, model.TypeMCQ, mcq.Type)
	assert.NotEmpty(t, mcq.ID)
	require.Len(t, mcq.Options, 2)
	assert.True(t, mcq.Options[0].IsCorrect)
	assert.Equal(t, model.DifficultyEasy, mcq.Difficulty)

	assert.Equal(t, model.TypeFillBlank, questions[1].Type)
	assert.Equal(t, "chlorophyll", questions[1].Answer)
	assert.Equal(t, model.TypeShortAnswer, questions[2].Type)
	assert.Equal(t, model.DifficultyHard, questions[2].Difficulty)

	// Catalog order follows payload order, with distinct ids.
	assert.NotEqual(t, questions[0].ID, questions[1].ID)
}

func TestParseQuestions_SkipsUnknownTypes(t *testing.T) {
	payload := `{
		"questions": [
			{"type": "essay", "prompt": "Discuss.", "answer": "n/a", "difficulty": "easy"},
			{"type": "short_answer", "prompt": "Name one.", "answer": "one", "difficulty": "easy"}
		]
	}`

	questions, err := genai.ParseQuestions([]byte(payload))
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, model.TypeShortAnswer, questions[0].Type)
}

func TestParseQuestions_BadDifficultyDefaultsToMedium(t *testing.T) {
	payload := `{
		"questions": [
			{"type": "short_answer", "prompt": "p", "answer": "a", "difficulty": "impossible"},
			{"type": "short_answer", "prompt": "p", "answer": "a", "difficulty": " Hard "}
		]
	}`

	questions, err := genai.ParseQuestions([]byte(payload))
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, model.DifficultyMedium, questions[0].Difficulty)
	// Casing and whitespace are tolerated.
	assert.Equal(t, model.DifficultyHard, questions[1].Difficulty)
}

func TestParseQuestions_InvalidJSON(t *testing.T) {
	_, err := genai.ParseQuestions([]byte("not json"))
	assert.Error(t, err)
}

func TestParseQuestions_EmptyPayload(t *testing.T) {
	questions, err := genai.ParseQuestions([]byte(`{"questions": []}`))
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestMixFromRatios(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		mcqRatio  float64
		fillRatio float64
		want      genai.Mix
	}{
		{"default split", 10, 0.6, 0.2, genai.Mix{MCQ: 6, FillBlank: 2, ShortAnswer: 2}},
		{"rounding remainder goes to short answer", 7, 0.5, 0.25, genai.Mix{MCQ: 3, FillBlank: 1, ShortAnswer: 3}},
		{"all mcq", 5, 1.0, 0.0, genai.Mix{MCQ: 5, FillBlank: 0, ShortAnswer: 0}},
		{"zero questions", 0, 0.6, 0.2, genai.Mix{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := genai.MixFromRatios(tt.n, tt.mcqRatio, tt.fillRatio)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.n, got.Total())
		})
	}
}
