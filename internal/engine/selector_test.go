package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/model"
)

func catalogOf(difficulties ...model.Difficulty) []model.Question {
	out := make([]model.Question, len(difficulties))
	for i, d := range difficulties {
		out[i] = model.NewShortAnswer("prompt", "answer", "", "topic", d)
	}
	return out
}

func sessionAt(d model.Difficulty, answered ...string) *model.Session {
	sess := model.NewSession("lec", "learner")
	sess.CurrentDifficulty = d
	for _, id := range answered {
		sess.Answers = append(sess.Answers, model.AnswerRecord{QuestionID: id})
	}
	return sess
}

func TestNextQuestion_PrefersCurrentDifficulty(t *testing.T) {
	catalog := catalogOf(model.DifficultyEasy, model.DifficultyMedium, model.DifficultyMedium)

	q, ok := engine.NextQuestion(catalog, sessionAt(model.DifficultyMedium))
	require.True(t, ok)
	assert.Equal(t, catalog[1].ID, q.ID, "first medium question in catalog order")
}

func TestNextQuestion_CatalogOrderWithinDifficulty(t *testing.T) {
	catalog := catalogOf(model.DifficultyMedium, model.DifficultyMedium)

	q, ok := engine.NextQuestion(catalog, sessionAt(model.DifficultyMedium, catalog[0].ID))
	require.True(t, ok)
	assert.Equal(t, catalog[1].ID, q.ID)
}

func TestNextQuestion_FallsBackToAnyUnanswered(t *testing.T) {
	catalog := catalogOf(model.DifficultyEasy, model.DifficultyHard)

	q, ok := engine.NextQuestion(catalog, sessionAt(model.DifficultyMedium))
	require.True(t, ok)
	assert.Equal(t, catalog[0].ID, q.ID, "no medium left: first unanswered in catalog order")
}

func TestNextQuestion_NeverRepeats(t *testing.T) {
	catalog := catalogOf(model.DifficultyMedium, model.DifficultyMedium, model.DifficultyEasy)
	sess := sessionAt(model.DifficultyMedium)

	seen := make(map[string]bool)
	for {
		q, ok := engine.NextQuestion(catalog, sess)
		if !ok {
			break
		}
		assert.False(t, seen[q.ID], "question %s selected twice", q.ID)
		seen[q.ID] = true
		sess.Answers = append(sess.Answers, model.AnswerRecord{QuestionID: q.ID})
	}
	assert.Len(t, seen, len(catalog))
}

func TestNextQuestion_ExhaustedCatalog(t *testing.T) {
	catalog := catalogOf(model.DifficultyEasy, model.DifficultyMedium)

	_, ok := engine.NextQuestion(catalog, sessionAt(model.DifficultyMedium, catalog[0].ID, catalog[1].ID))
	assert.False(t, ok)
}

func TestNextQuestion_EmptyCatalog(t *testing.T) {
	_, ok := engine.NextQuestion(nil, sessionAt(model.DifficultyMedium))
	assert.False(t, ok)
}
