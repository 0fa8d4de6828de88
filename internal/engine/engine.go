// Package engine implements the adaptive assessment core: session lifecycle,
// answer evaluation, difficulty adjustment, and question selection over a
// lecture's generated question catalog.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edforge/lectern/internal/model"
)

// CatalogStore provides read-only access to lectures and their question
// catalogs. Implementations return ErrLectureNotFound for unknown ids.
type CatalogStore interface {
	Lecture(id string) (*model.Lecture, error)
}

// SessionStore persists sessions. Implementations return ErrSessionNotFound
// for unknown ids and must be safe for concurrent use across sessions.
type SessionStore interface {
	Session(id string) (*model.Session, error)
	SaveSession(s *model.Session) error
}

// Notifier receives completed sessions together with the lecture's catalog,
// so a consumer can join answers to topic and difficulty metadata. The
// engine treats the notification as fire-and-forget: a Notifier error is
// logged and never rolls back the completed session.
type Notifier interface {
	SessionCompleted(sess *model.Session, catalog []model.Question) error
}

// Engine orchestrates test sessions. It is the only component that mutates
// sessions; per-session locking serializes concurrent submissions against
// the same session.
type Engine struct {
	lectures CatalogStore
	sessions SessionStore
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier registers the analytics collaborator notified on completion.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine over the given stores.
func New(lectures CatalogStore, sessions SessionStore, opts ...Option) *Engine {
	e := &Engine{
		lectures: lectures,
		sessions: sessions,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sessionLock returns the mutex guarding a single session's
// read-mutate-write cycle.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

func (e *Engine) dropLock(sessionID string) {
	e.mu.Lock()
	delete(e.locks, sessionID)
	e.mu.Unlock()
}

// StartResult is returned by StartSession.
type StartResult struct {
	Session        *model.Session
	FirstQuestion  model.Question
	TotalQuestions int
}

// StartSession creates a session against a lecture's catalog at medium
// difficulty and selects the first question. If the lecture has no
// questions, it fails with ErrNoQuestionsAvailable and nothing is persisted.
func (e *Engine) StartSession(lectureID, learnerID string) (*StartResult, error) {
	lecture, err := e.lectures.Lecture(lectureID)
	if err != nil {
		return nil, err
	}
	if len(lecture.Questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	sess := model.NewSession(lectureID, learnerID)
	first, ok := NextQuestion(lecture.Questions, sess)
	if !ok {
		return nil, ErrNoQuestionsAvailable
	}

	if err := e.sessions.SaveSession(sess); err != nil {
		return nil, err
	}

	slog.Info("session started",
		"session_id", sess.ID,
		"lecture_id", lectureID,
		"learner_id", learnerID,
		"questions", len(lecture.Questions))

	return &StartResult{
		Session:        sess,
		FirstQuestion:  first,
		TotalQuestions: len(lecture.Questions),
	}, nil
}

// AnswerResult is returned by SubmitAnswer. NextQuestion is nil exactly when
// Finished is true.
type AnswerResult struct {
	Correct       bool
	CorrectAnswer string
	Explanation   string
	Score         float64
	Finished      bool
	NextQuestion  *model.Question
	Difficulty    model.Difficulty
}

// SubmitAnswer evaluates a submission for an active session, appends the
// answer record, adjusts difficulty from the trailing answer window, and
// selects the next question. When the catalog is exhausted the session
// transitions to complete, the completion timestamp is stamped, and the
// analytics notifier is invoked.
//
// Caller errors (ErrSessionNotFound, ErrSessionComplete, ErrQuestionNotFound,
// ErrInvalidSubmission) leave the session untouched.
func (e *Engine) SubmitAnswer(sessionID, questionID string, sub Submission) (*AnswerResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.sessions.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Complete() {
		return nil, ErrSessionComplete
	}

	lecture, err := e.lectures.Lecture(sess.LectureID)
	if err != nil {
		return nil, err
	}
	question, err := findQuestion(lecture.Questions, questionID)
	if err != nil {
		return nil, err
	}
	if sess.Answered(questionID) {
		return nil, fmt.Errorf("%w: question %s already answered", ErrInvalidSubmission, questionID)
	}

	correct, canonical, err := Evaluate(question, sub)
	if err != nil {
		return nil, err
	}

	sess.Answers = append(sess.Answers, model.AnswerRecord{
		QuestionID:   question.ID,
		IsCorrect:    correct,
		GivenAnswer:  sub.Text,
		OptionIndex:  sub.OptionIndex,
		Difficulty:   question.Difficulty,
		TimeSpentSec: sub.TimeSpentSec,
	})
	sess.TotalAnswered++
	if correct {
		sess.CorrectCount++
	}

	sess.CurrentDifficulty = NextDifficulty(sess.Answers, sess.CurrentDifficulty)

	result := &AnswerResult{
		Correct:       correct,
		CorrectAnswer: canonical,
		Explanation:   question.Explanation,
		Score:         sess.Score(),
		Difficulty:    sess.CurrentDifficulty,
	}

	next, ok := NextQuestion(lecture.Questions, sess)
	if ok {
		result.NextQuestion = &next
	} else {
		now := time.Now()
		sess.CompletedAt = &now
		result.Finished = true
	}

	if err := e.sessions.SaveSession(sess); err != nil {
		return nil, err
	}

	if result.Finished {
		e.dropLock(sessionID)
		slog.Info("session complete",
			"session_id", sess.ID,
			"score", result.Score,
			"answered", sess.TotalAnswered)
		if e.notifier != nil {
			if err := e.notifier.SessionCompleted(sess, lecture.Questions); err != nil {
				// Completion is authoritative regardless of the analytics outcome.
				slog.Error("analytics notification failed", "session_id", sess.ID, "error", err)
			}
		}
	}

	return result, nil
}

// Session returns the current state of a session.
func (e *Engine) Session(sessionID string) (*model.Session, error) {
	return e.sessions.Session(sessionID)
}

// AttachProctorFlags appends pre-classified integrity events to a session.
// Late flags are accepted even after completion; the engine stores them
// opaquely and does not interpret them.
func (e *Engine) AttachProctorFlags(sessionID string, flags []model.ProctorFlag) error {
	if len(flags) == 0 {
		return nil
	}
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.sessions.Session(sessionID)
	if err != nil {
		return err
	}
	sess.ProctorFlags = append(sess.ProctorFlags, flags...)
	return e.sessions.SaveSession(sess)
}

func findQuestion(catalog []model.Question, questionID string) (model.Question, error) {
	for _, q := range catalog {
		if q.ID == questionID {
			return q, nil
		}
	}
	return model.Question{}, ErrQuestionNotFound
}
