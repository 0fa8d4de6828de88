// Package analytics aggregates completed exam sessions into per-learner and
// class-wide performance views. It consumes completion notifications from
// the assessment engine and never feeds anything back into it.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edforge/lectern/internal/model"
)

// trendLength caps the improvement trend at the most recent scores.
const trendLength = 10

type sessionRecord struct {
	SessionID   string    `json:"session_id"`
	LectureID   string    `json:"lecture_id"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

type learnerData struct {
	sessions   []sessionRecord
	scores     []float64
	difficulty map[model.Difficulty][]float64
	topics     map[string][]float64
}

// Recorder implements the engine's completion notifier and keeps all
// aggregates in memory, keyed by learner.
type Recorder struct {
	mu       sync.Mutex
	learners map[string]*learnerData
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{learners: make(map[string]*learnerData)}
}

// SessionCompleted records a finished session. The catalog lets answers be
// joined back to topic and difficulty metadata.
func (r *Recorder) SessionCompleted(sess *model.Session, catalog []model.Question) error {
	if sess == nil {
		return fmt.Errorf("nil session")
	}
	learnerID := sess.LearnerID
	if learnerID == "" {
		learnerID = "anonymous"
	}

	byID := make(map[string]model.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	completedAt := time.Now()
	if sess.CompletedAt != nil {
		completedAt = *sess.CompletedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.learners[learnerID]
	if !ok {
		data = &learnerData{
			difficulty: make(map[model.Difficulty][]float64),
			topics:     make(map[string][]float64),
		}
		r.learners[learnerID] = data
	}

	score := sess.Score()
	data.sessions = append(data.sessions, sessionRecord{
		SessionID:   sess.ID,
		LectureID:   sess.LectureID,
		Score:       score,
		CompletedAt: completedAt,
	})
	data.scores = append(data.scores, score)

	for _, a := range sess.Answers {
		point := 0.0
		if a.IsCorrect {
			point = 1.0
		}
		if a.Difficulty.Valid() {
			data.difficulty[a.Difficulty] = append(data.difficulty[a.Difficulty], point)
		}
		if q, ok := byID[a.QuestionID]; ok && q.Topic != "" {
			data.topics[q.Topic] = append(data.topics[q.Topic], point)
		}
	}
	return nil
}

// StudentReport summarizes one learner's history.
type StudentReport struct {
	LearnerID             string                       `json:"learner_id"`
	TotalExams            int                          `json:"total_exams"`
	AverageScore          float64                      `json:"average_score"`
	DifficultyPerformance map[model.Difficulty]float64 `json:"difficulty_performance"`
	TopicPerformance      map[string]float64           `json:"topic_performance"`
	ImprovementTrend      []float64                    `json:"improvement_trend"`
}

// Student builds the report for one learner. Unknown learners get an empty
// report rather than an error.
func (r *Recorder) Student(learnerID string) StudentReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := StudentReport{
		LearnerID:             learnerID,
		DifficultyPerformance: make(map[model.Difficulty]float64),
		TopicPerformance:      make(map[string]float64),
	}
	data, ok := r.learners[learnerID]
	if !ok || len(data.scores) == 0 {
		return report
	}

	report.TotalExams = len(data.sessions)
	report.AverageScore = mean(data.scores)
	for d, points := range data.difficulty {
		report.DifficultyPerformance[d] = mean(points) * 100
	}
	for topic, points := range data.topics {
		report.TopicPerformance[topic] = mean(points) * 100
	}

	trend := data.scores
	if len(trend) > trendLength {
		trend = trend[len(trend)-trendLength:]
	}
	report.ImprovementTrend = append([]float64(nil), trend...)
	return report
}

// Performer pairs a learner with their average score.
type Performer struct {
	LearnerID string  `json:"learner_id"`
	Average   float64 `json:"average"`
}

// WeakTopic is a topic where class accuracy falls below 60%.
type WeakTopic struct {
	Topic       string  `json:"topic"`
	Performance float64 `json:"performance"`
}

// ClassReport is the class-wide overview.
type ClassReport struct {
	TotalStudents int         `json:"total_students"`
	TotalExams    int         `json:"total_exams"`
	AverageScore  float64     `json:"average_score"`
	TopPerformers []Performer `json:"top_performers"`
	WeakTopics    []WeakTopic `json:"common_weak_topics"`
}

// Class builds an overview across all recorded learners: totals, the top
// five performers, and topics where class accuracy is below 60%.
func (r *Recorder) Class() ClassReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := ClassReport{
		TopPerformers: []Performer{},
		WeakTopics:    []WeakTopic{},
	}

	var allScores []float64
	allTopics := make(map[string][]float64)
	for learnerID, data := range r.learners {
		if len(data.scores) == 0 {
			continue
		}
		report.TotalStudents++
		report.TotalExams += len(data.sessions)
		allScores = append(allScores, data.scores...)
		report.TopPerformers = append(report.TopPerformers, Performer{
			LearnerID: learnerID,
			Average:   mean(data.scores),
		})
		for topic, points := range data.topics {
			allTopics[topic] = append(allTopics[topic], points...)
		}
	}
	if len(allScores) > 0 {
		report.AverageScore = mean(allScores)
	}

	sort.Slice(report.TopPerformers, func(i, j int) bool {
		if report.TopPerformers[i].Average != report.TopPerformers[j].Average {
			return report.TopPerformers[i].Average > report.TopPerformers[j].Average
		}
		return report.TopPerformers[i].LearnerID < report.TopPerformers[j].LearnerID
	})
	if len(report.TopPerformers) > 5 {
		report.TopPerformers = report.TopPerformers[:5]
	}

	for topic, points := range allTopics {
		perf := mean(points) * 100
		if perf < 60 {
			report.WeakTopics = append(report.WeakTopics, WeakTopic{Topic: topic, Performance: perf})
		}
	}
	sort.Slice(report.WeakTopics, func(i, j int) bool {
		if report.WeakTopics[i].Performance != report.WeakTopics[j].Performance {
			return report.WeakTopics[i].Performance < report.WeakTopics[j].Performance
		}
		return report.WeakTopics[i].Topic < report.WeakTopics[j].Topic
	})
	if len(report.WeakTopics) > 5 {
		report.WeakTopics = report.WeakTopics[:5]
	}

	return report
}

// Recommendations produces study suggestions from a learner's aggregates.
func (r *Recorder) Recommendations(learnerID string) []string {
	report := r.Student(learnerID)
	if report.TotalExams == 0 {
		return []string{"Take your first exam to get personalized recommendations"}
	}

	var recs []string
	avg := report.AverageScore * 100
	switch {
	case avg < 50:
		recs = append(recs, "Review lecture materials and focus on fundamental concepts")
	case avg < 70:
		recs = append(recs, "Good progress, practice more medium difficulty questions")
	default:
		recs = append(recs, "Excellent performance, challenge yourself with harder questions")
	}

	for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
		if perf, ok := report.DifficultyPerformance[d]; ok && perf < 60 {
			recs = append(recs, fmt.Sprintf("Focus on %s level questions - current performance: %.1f%%", d, perf))
		}
	}

	var weak []string
	for topic, perf := range report.TopicPerformance {
		if perf < 60 {
			weak = append(weak, topic)
		}
	}
	if len(weak) > 0 {
		sort.Strings(weak)
		if len(weak) > 3 {
			weak = weak[:3]
		}
		recs = append(recs, "Review these topics: "+strings.Join(weak, ", "))
	}
	return recs
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
