package engine

import (
	"fmt"
	"strings"

	"github.com/edforge/lectern/internal/model"
)

// Submission is a learner's answer to one question. OptionIndex is set for
// mcq questions, Text for the free-text types. TimeSpentSec is optional.
type Submission struct {
	Text         string
	OptionIndex  *int
	TimeSpentSec float64
}

// Evaluate grades a submission against a question. It returns whether the
// submission is correct and the canonical answer text to show the learner.
// It is deterministic and has no side effects.
//
// For mcq questions the submission must carry an option index within range;
// anything else is ErrInvalidSubmission. Correctness is the selected
// option's is_correct flag. The canonical text is the first option flagged
// correct; if the generator flagged none, the question's stored answer is
// reported and the question grades as always incorrect.
//
// For fill_blank and short_answer, both sides are normalized (trim plus
// lowercase) and compared exactly. No fuzzy matching: grading stays
// deterministic and auditable.
func Evaluate(q model.Question, sub Submission) (bool, string, error) {
	if q.Type != model.TypeMCQ {
		correct := normalize(sub.Text) == normalize(q.Answer)
		return correct, q.Answer, nil
	}

	if sub.OptionIndex == nil {
		return false, "", fmt.Errorf("%w: selected_option_index is required for mcq questions", ErrInvalidSubmission)
	}
	idx := *sub.OptionIndex
	if idx < 0 || idx >= len(q.Options) {
		return false, "", fmt.Errorf("%w: selected_option_index %d out of range for %d options", ErrInvalidSubmission, idx, len(q.Options))
	}

	canonical := q.Answer
	for _, opt := range q.Options {
		if opt.IsCorrect {
			canonical = opt.Text
			break
		}
	}
	return q.Options[idx].IsCorrect, canonical, nil
}

// normalize trims surrounding whitespace and lowercases for comparison.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
