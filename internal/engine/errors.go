package engine

import "errors"

// Caller and integration errors surfaced by the engine. Handlers map these
// to HTTP status codes with errors.Is; they are never coerced into an
// "incorrect answer" result.
var (
	ErrLectureNotFound      = errors.New("lecture not found")
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrSessionNotFound      = errors.New("session not found")
	ErrQuestionNotFound     = errors.New("question not found in lecture")
	ErrSessionComplete      = errors.New("session already complete")
	ErrInvalidSubmission    = errors.New("invalid submission")
)
