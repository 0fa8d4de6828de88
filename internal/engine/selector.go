package engine

import "github.com/edforge/lectern/internal/model"

// NextQuestion picks the next question for a session, or reports that the
// catalog is exhausted (ok == false). Exhaustion is the expected terminal
// state, not an error.
//
// Selection order: unanswered questions matching the session's current
// difficulty first, then any unanswered question. Ties break on catalog
// order in both passes, so a session prefers staying at its level but will
// finish the whole catalog regardless of how difficulties are distributed.
func NextQuestion(catalog []model.Question, sess *model.Session) (model.Question, bool) {
	for _, q := range catalog {
		if q.Difficulty == sess.CurrentDifficulty && !sess.Answered(q.ID) {
			return q, true
		}
	}
	for _, q := range catalog {
		if !sess.Answered(q.ID) {
			return q, true
		}
	}
	return model.Question{}, false
}
