// Package questionnaire implements the linear question flow shared by the
// risk assessment and the post-video quizzes: one question at a time, an
// answer per question, forward/backward navigation gated on the current
// answer, and scoring on submission.
package questionnaire

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrMissingAnswer is returned when the displayed question has no answer.
	ErrMissingAnswer = errors.New("no answer selected for the current question")
	// ErrOutOfRange is returned when the position does not address a question.
	ErrOutOfRange = errors.New("question position out of range")
	// ErrInvalidCatalog is returned when a catalog cannot be scored.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrUnknownOption is returned by SelectCurrent for an option the current
	// question does not offer.
	ErrUnknownOption = errors.New("option does not belong to the current question")
	// ErrSubmitted is returned when navigating a submitted questionnaire.
	ErrSubmitted = errors.New("questionnaire already submitted")
)

// Engine holds the ordered question ids, the answer set and the position.
// It is not safe for concurrent use.
type Engine struct {
	ids       []string
	options   map[string][]string
	answers   map[string]string
	position  int
	submitted bool
}

// newEngine builds an engine over question ids in display order. options maps
// each question id to the option ids it offers.
func newEngine(ids []string, options map[string][]string) (*Engine, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty question id", ErrInvalidCatalog)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, id)
		}
		seen[id] = true
		if len(options[id]) == 0 {
			return nil, fmt.Errorf("%w: question %q has no options", ErrInvalidCatalog, id)
		}
	}
	return &Engine{
		ids:     ids,
		options: options,
		answers: make(map[string]string, len(ids)),
	}, nil
}

// Len returns the number of questions.
func (e *Engine) Len() int { return len(e.ids) }

// Position returns the zero-based index of the displayed question.
func (e *Engine) Position() int { return e.position }

// Submitted reports whether Submit has succeeded.
func (e *Engine) Submitted() bool { return e.submitted }

// IsLast reports whether the displayed question is the final one.
func (e *Engine) IsLast() bool { return e.position == len(e.ids)-1 }

// Answer returns the option selected for a question.
func (e *Engine) Answer(questionID string) (string, bool) {
	a, ok := e.answers[questionID]
	return a, ok
}

// Answers returns a copy of the answer set.
func (e *Engine) Answers() map[string]string {
	out := make(map[string]string, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// Progress is the display percentage of the current position.
func (e *Engine) Progress() int {
	return percentage(e.position+1, len(e.ids))
}

func (e *Engine) currentID() (string, error) {
	if e.position < 0 || e.position >= len(e.ids) {
		return "", fmt.Errorf("%w: position %d of %d", ErrOutOfRange, e.position, len(e.ids))
	}
	return e.ids[e.position], nil
}

// SelectAnswer records or overwrites the answer for questionID. The ids are
// not checked against the displayed question. Ignored once submitted.
func (e *Engine) SelectAnswer(questionID, optionID string) {
	if e.submitted {
		return
	}
	e.answers[questionID] = optionID
}

// SelectCurrent records optionID for the displayed question, rejecting options
// the question does not offer.
func (e *Engine) SelectCurrent(optionID string) error {
	if e.submitted {
		return ErrSubmitted
	}
	id, err := e.currentID()
	if err != nil {
		return err
	}
	if !slices.Contains(e.options[id], optionID) {
		return fmt.Errorf("%w: %q for question %q", ErrUnknownOption, optionID, id)
	}
	e.answers[id] = optionID
	return nil
}

// Advance moves to the next question once the displayed one is answered.
// At the last question it does nothing; submission is a separate step.
func (e *Engine) Advance() error {
	if e.submitted {
		return ErrSubmitted
	}
	if err := e.requireCurrentAnswer(); err != nil {
		return err
	}
	if e.position < len(e.ids)-1 {
		e.position++
	}
	return nil
}

// Retreat moves to the previous question, if any.
func (e *Engine) Retreat() {
	if e.submitted {
		return
	}
	if e.position > 0 {
		e.position--
	}
}

// markSubmitted validates the displayed question and flips the submitted flag.
// Calling it again after success is allowed so results can be recomputed.
func (e *Engine) markSubmitted() error {
	if err := e.requireCurrentAnswer(); err != nil {
		return err
	}
	e.submitted = true
	return nil
}

func (e *Engine) requireCurrentAnswer() error {
	id, err := e.currentID()
	if err != nil {
		return err
	}
	if _, ok := e.answers[id]; !ok {
		return fmt.Errorf("%w: question %q", ErrMissingAnswer, id)
	}
	return nil
}

// percentage rounds part/whole*100 half away from zero.
func percentage(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
