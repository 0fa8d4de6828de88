package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Difficulty represents question difficulty level. Levels are ordered:
// easy < medium < hard.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// difficultyOrder lists the levels from easiest to hardest.
var difficultyOrder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the three known levels.
func (d Difficulty) Valid() bool {
	for _, lvl := range difficultyOrder {
		if d == lvl {
			return true
		}
	}
	return false
}

// Promote returns the next harder level, or d unchanged if d is already the
// hardest (or unknown).
func (d Difficulty) Promote() Difficulty {
	for i, lvl := range difficultyOrder {
		if d == lvl && i < len(difficultyOrder)-1 {
			return difficultyOrder[i+1]
		}
	}
	return d
}

// Demote returns the next easier level, or d unchanged if d is already the
// easiest (or unknown).
func (d Difficulty) Demote() Difficulty {
	for i, lvl := range difficultyOrder {
		if d == lvl && i > 0 {
			return difficultyOrder[i-1]
		}
	}
	return d
}

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	TypeMCQ         QuestionType = "mcq"
	TypeFillBlank   QuestionType = "fill_blank"
	TypeShortAnswer QuestionType = "short_answer"
)

// MCQOption is a single choice of a multiple-choice question.
type MCQOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a generated exam question. Questions are immutable once
// generated: they belong to a lecture's catalog and are never edited
// afterwards. Options is present only for mcq questions.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	Options     []MCQOption  `json:"options,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	Difficulty  Difficulty   `json:"difficulty,omitempty"`
}

// NewMCQ builds a multiple-choice question. The options slice may be empty
// when the generator misbehaves; such questions grade as always incorrect
// rather than failing construction.
func NewMCQ(prompt string, options []MCQOption, answer, explanation, topic string, difficulty Difficulty) Question {
	return Question{
		ID:          uuid.NewString(),
		Type:        TypeMCQ,
		Prompt:      prompt,
		Options:     options,
		Answer:      answer,
		Explanation: explanation,
		Topic:       topic,
		Difficulty:  difficulty,
	}
}

// NewFillBlank builds a fill-in-the-blank question.
func NewFillBlank(prompt, answer, explanation, topic string, difficulty Difficulty) Question {
	return Question{
		ID:          uuid.NewString(),
		Type:        TypeFillBlank,
		Prompt:      prompt,
		Answer:      answer,
		Explanation: explanation,
		Topic:       topic,
		Difficulty:  difficulty,
	}
}

// NewShortAnswer builds a short-answer question.
func NewShortAnswer(prompt, answer, explanation, topic string, difficulty Difficulty) Question {
	return Question{
		ID:          uuid.NewString(),
		Type:        TypeShortAnswer,
		Prompt:      prompt,
		Answer:      answer,
		Explanation: explanation,
		Topic:       topic,
		Difficulty:  difficulty,
	}
}

// Validate checks the variant rules: the type must be one of the three known
// types, and only mcq questions may carry options.
func (q Question) Validate() error {
	switch q.Type {
	case TypeMCQ:
		return nil
	case TypeFillBlank, TypeShortAnswer:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %s: type %s must not carry options", q.ID, q.Type)
		}
		return nil
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
}

// SourceType tells where a lecture's text came from.
type SourceType string

const (
	SourceAudio SourceType = "audio"
	SourceVideo SourceType = "video"
	SourceText  SourceType = "text"
)

// Lecture is the source material and its generated question catalog. The
// catalog keeps generation order; the selector relies on that order being
// stable.
type Lecture struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	SourceType SourceType `json:"source_type"`
	RawText    string     `json:"raw_text"`
	Summary    string     `json:"summary,omitempty"`
	Questions  []Question `json:"questions"`
}

// NewLecture creates a lecture with a fresh id and no questions yet.
func NewLecture(title string, sourceType SourceType, rawText, summary string) *Lecture {
	return &Lecture{
		ID:         uuid.NewString(),
		Title:      title,
		SourceType: sourceType,
		RawText:    rawText,
		Summary:    summary,
	}
}

// AnswerRecord is one entry of a session's append-only answer log. It
// references the question by id and captures the question's difficulty at
// the time of answering.
type AnswerRecord struct {
	QuestionID   string     `json:"question_id"`
	IsCorrect    bool       `json:"is_correct"`
	GivenAnswer  string     `json:"given_answer,omitempty"`
	OptionIndex  *int       `json:"selected_option_index,omitempty"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	TimeSpentSec float64    `json:"time_spent_sec,omitempty"`
}

// ProctorFlag is a pre-classified integrity event attached to a session.
// The engine stores these opaquely; scoring lives in the proctor package.
type ProctorFlag struct {
	EventType  string    `json:"event_type"`
	Confidence float64   `json:"confidence,omitempty"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Session is one learner's attempt at a lecture's adaptive quiz. It is
// mutated only by the engine's answer-submission path and becomes read-only
// once CompletedAt is set, except for late proctor flags.
type Session struct {
	ID                string         `json:"id"`
	LectureID         string         `json:"lecture_id"`
	LearnerID         string         `json:"learner_id,omitempty"`
	CurrentDifficulty Difficulty     `json:"current_difficulty"`
	Answers           []AnswerRecord `json:"answers"`
	CorrectCount      int            `json:"correct_count"`
	TotalAnswered     int            `json:"total_answered"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	ProctorFlags      []ProctorFlag  `json:"proctor_flags,omitempty"`
}

// NewSession creates an active session starting at medium difficulty.
func NewSession(lectureID, learnerID string) *Session {
	return &Session{
		ID:                uuid.NewString(),
		LectureID:         lectureID,
		LearnerID:         learnerID,
		CurrentDifficulty: DifficultyMedium,
		StartedAt:         time.Now(),
	}
}

// Complete reports whether the session has reached its terminal state.
func (s *Session) Complete() bool {
	return s.CompletedAt != nil
}

// Answered reports whether the given question id already appears in the
// session's answer log.
func (s *Session) Answered(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// Score returns correct_count / total_answered, or 0.0 before any answers.
func (s *Session) Score() float64 {
	if s.TotalAnswered == 0 {
		return 0.0
	}
	return float64(s.CorrectCount) / float64(s.TotalAnswered)
}
