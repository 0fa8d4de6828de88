package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/lectern/internal/analytics"
	"github.com/edforge/lectern/internal/model"
)

// completedSession builds a finished session whose answer log matches the
// given per-question results against the catalog.
func completedSession(learnerID string, catalog []model.Question, results []bool) *model.Session {
	sess := model.NewSession("lec-1", learnerID)
	for i, correct := range results {
		q := catalog[i]
		sess.Answers = append(sess.Answers, model.AnswerRecord{
			QuestionID: q.ID,
			IsCorrect:  correct,
			Difficulty: q.Difficulty,
		})
		sess.TotalAnswered++
		if correct {
			sess.CorrectCount++
		}
	}
	now := time.Now()
	sess.CompletedAt = &now
	return sess
}

func smallCatalog() []model.Question {
	return []model.Question{
		model.NewShortAnswer("q1", "a1", "", "mitosis", model.DifficultyEasy),
		model.NewShortAnswer("q2", "a2", "", "mitosis", model.DifficultyMedium),
		model.NewShortAnswer("q3", "a3", "", "meiosis", model.DifficultyHard),
		model.NewShortAnswer("q4", "a4", "", "meiosis", model.DifficultyHard),
	}
}

func TestSessionCompleted_NilSession(t *testing.T) {
	r := analytics.NewRecorder()
	assert.Error(t, r.SessionCompleted(nil, nil))
}

func TestStudentReport(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()

	// Two exams: 2/4 then 4/4.
	require.NoError(t, r.SessionCompleted(completedSession("amy", catalog, []bool{true, true, false, false}), catalog))
	require.NoError(t, r.SessionCompleted(completedSession("amy", catalog, []bool{true, true, true, true}), catalog))

	report := r.Student("amy")
	assert.Equal(t, 2, report.TotalExams)
	assert.InDelta(t, 0.75, report.AverageScore, 1e-9)
	assert.Equal(t, []float64{0.5, 1.0}, report.ImprovementTrend)

	// Difficulty performance is a percentage over all answers at that level.
	assert.InDelta(t, 100.0, report.DifficultyPerformance[model.DifficultyEasy], 1e-9)
	assert.InDelta(t, 100.0, report.DifficultyPerformance[model.DifficultyMedium], 1e-9)
	assert.InDelta(t, 50.0, report.DifficultyPerformance[model.DifficultyHard], 1e-9)

	// Topic performance joins answers back through the catalog.
	assert.InDelta(t, 100.0, report.TopicPerformance["mitosis"], 1e-9)
	assert.InDelta(t, 50.0, report.TopicPerformance["meiosis"], 1e-9)
}

func TestStudentReport_UnknownLearner(t *testing.T) {
	r := analytics.NewRecorder()
	report := r.Student("ghost")
	assert.Equal(t, 0, report.TotalExams)
	assert.Empty(t, report.ImprovementTrend)
	assert.NotNil(t, report.DifficultyPerformance)
}

func TestStudentReport_TrendCapped(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()[:1]

	for i := 0; i < 13; i++ {
		correct := i%2 == 0
		require.NoError(t, r.SessionCompleted(completedSession("amy", catalog, []bool{correct}), catalog))
	}

	report := r.Student("amy")
	assert.Equal(t, 13, report.TotalExams)
	assert.Len(t, report.ImprovementTrend, 10)
	// The trend keeps the most recent scores: sessions 3..12.
	assert.Equal(t, 0.0, report.ImprovementTrend[0])
	assert.Equal(t, 1.0, report.ImprovementTrend[9])
}

func TestAnonymousLearner(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()[:1]
	require.NoError(t, r.SessionCompleted(completedSession("", catalog, []bool{true}), catalog))

	report := r.Student("anonymous")
	assert.Equal(t, 1, report.TotalExams)
}

func TestClassReport(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()

	// Seven learners with distinct averages; only five make the leaderboard.
	for i := 0; i < 7; i++ {
		results := make([]bool, 4)
		for j := 0; j <= i%4; j++ {
			results[j] = true
		}
		learner := fmt.Sprintf("learner-%d", i)
		require.NoError(t, r.SessionCompleted(completedSession(learner, catalog, results), catalog))
	}

	report := r.Class()
	assert.Equal(t, 7, report.TotalStudents)
	assert.Equal(t, 7, report.TotalExams)
	assert.Greater(t, report.AverageScore, 0.0)
	require.Len(t, report.TopPerformers, 5)
	assert.Equal(t, "learner-3", report.TopPerformers[0].LearnerID)
	assert.InDelta(t, 1.0, report.TopPerformers[0].Average, 1e-9)
	for i := 1; i < len(report.TopPerformers); i++ {
		assert.LessOrEqual(t, report.TopPerformers[i].Average, report.TopPerformers[i-1].Average)
	}
}

func TestClassReport_WeakTopics(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()

	// mitosis answered correctly, meiosis mostly wrong across the class.
	require.NoError(t, r.SessionCompleted(completedSession("a", catalog, []bool{true, true, false, false}), catalog))
	require.NoError(t, r.SessionCompleted(completedSession("b", catalog, []bool{true, true, true, false}), catalog))

	report := r.Class()
	require.Len(t, report.WeakTopics, 1)
	assert.Equal(t, "meiosis", report.WeakTopics[0].Topic)
	assert.InDelta(t, 25.0, report.WeakTopics[0].Performance, 1e-9)
}

func TestClassReport_Empty(t *testing.T) {
	r := analytics.NewRecorder()
	report := r.Class()
	assert.Equal(t, 0, report.TotalStudents)
	assert.Empty(t, report.TopPerformers)
	assert.Empty(t, report.WeakTopics)
}

func TestRecommendations(t *testing.T) {
	r := analytics.NewRecorder()
	catalog := smallCatalog()

	recs := r.Recommendations("ghost")
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "first exam")

	// A weak learner: 1/4 correct, hard and meiosis both under 60%.
	require.NoError(t, r.SessionCompleted(completedSession("amy", catalog, []bool{true, false, false, false}), catalog))
	recs = r.Recommendations("amy")
	assert.Contains(t, recs[0], "fundamental concepts")
	joined := fmt.Sprint(recs)
	assert.Contains(t, joined, "medium level questions")
	assert.Contains(t, joined, "hard level questions")
	assert.Contains(t, joined, "meiosis")

	// A strong learner.
	require.NoError(t, r.SessionCompleted(completedSession("bea", catalog, []bool{true, true, true, true}), catalog))
	recs = r.Recommendations("bea")
	assert.Contains(t, recs[0], "Excellent performance")
}
