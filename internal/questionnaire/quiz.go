package questionnaire

import (
	"fmt"
	"slices"
	"time"

	"github.com/biosecureindia/biosecure/internal/model"
)

// Quiz scores a post-video quiz: a question earns its full marks when the
// selected option is one of its correct answers.
type Quiz struct {
	*Engine
	quiz        model.Quiz
	maxScore    int
	submittedAt time.Time
	now         func() time.Time
}

// NewQuiz builds a quiz session over an immutable quiz catalog.
func NewQuiz(q model.Quiz) (*Quiz, error) {
	if q.PassThreshold < 0 || q.PassThreshold > 100 {
		return nil, fmt.Errorf("%w: quiz %q pass threshold %d outside 0..100", ErrInvalidCatalog, q.ID, q.PassThreshold)
	}
	ids := make([]string, 0, len(q.Questions))
	options := make(map[string][]string, len(q.Questions))
	maxScore := 0
	for _, qq := range q.Questions {
		if qq.Marks < 0 {
			return nil, fmt.Errorf("%w: question %q has negative marks", ErrInvalidCatalog, qq.ID)
		}
		if len(qq.CorrectAnswerIDs) == 0 {
			return nil, fmt.Errorf("%w: question %q has no correct answer", ErrInvalidCatalog, qq.ID)
		}
		ids = append(ids, qq.ID)
		for _, c := range qq.Options {
			if slices.Contains(options[qq.ID], c.ID) {
				return nil, fmt.Errorf("%w: question %q repeats option %q", ErrInvalidCatalog, qq.ID, c.ID)
			}
			options[qq.ID] = append(options[qq.ID], c.ID)
		}
		for _, id := range qq.CorrectAnswerIDs {
			if !slices.Contains(options[qq.ID], id) {
				return nil, fmt.Errorf("%w: question %q correct answer %q is not an option", ErrInvalidCatalog, qq.ID, id)
			}
		}
		maxScore += qq.Marks
	}
	e, err := newEngine(ids, options)
	if err != nil {
		return nil, err
	}
	if maxScore == 0 {
		return nil, fmt.Errorf("%w: quiz %q has no marks", ErrInvalidCatalog, q.ID)
	}
	return &Quiz{
		Engine:   e,
		quiz:     q,
		maxScore: maxScore,
		now:      time.Now,
	}, nil
}

// ID returns the quiz catalog id.
func (q *Quiz) ID() string { return q.quiz.ID }

// PassThreshold is the minimum percentage that passes.
func (q *Quiz) PassThreshold() int { return q.quiz.PassThreshold }

// CurrentQuestion returns the displayed question.
func (q *Quiz) CurrentQuestion() (model.QuizQuestion, error) {
	if _, err := q.currentID(); err != nil {
		return model.QuizQuestion{}, err
	}
	return q.quiz.Questions[q.position], nil
}

// MaxScore is the sum of all question marks.
func (q *Quiz) MaxScore() int { return q.maxScore }

// Review derives the per-question outcome from the current answer set.
func (q *Quiz) Review() []model.QuestionReview {
	out := make([]model.QuestionReview, 0, len(q.quiz.Questions))
	for _, qq := range q.quiz.Questions {
		sel, answered := q.answers[qq.ID]
		correct := answered && slices.Contains(qq.CorrectAnswerIDs, sel)
		r := model.QuestionReview{
			QuestionID:       qq.ID,
			SelectedOptionID: sel,
			IsCorrect:        correct,
			CorrectOptionIDs: slices.Clone(qq.CorrectAnswerIDs),
			RemedialVideo:    qq.RemedialVideo,
		}
		if correct {
			r.AwardedMarks = qq.Marks
		}
		out = append(out, r)
	}
	return out
}

// Passed reports whether a percentage meets the pass threshold.
func (q *Quiz) Passed(pct int) bool {
	return pct >= q.quiz.PassThreshold
}

// Submit validates the displayed question and computes the result.
func (q *Quiz) Submit() (model.QuizResult, error) {
	if err := q.markSubmitted(); err != nil {
		return model.QuizResult{}, err
	}
	if q.submittedAt.IsZero() {
		q.submittedAt = q.now()
	}
	review := q.Review()
	total, correct := 0, 0
	for _, r := range review {
		total += r.AwardedMarks
		if r.IsCorrect {
			correct++
		}
	}
	pct := percentage(total, q.maxScore)
	return model.QuizResult{
		QuizID:       q.quiz.ID,
		TotalScore:   total,
		MaxScore:     q.maxScore,
		Percentage:   pct,
		Passed:       q.Passed(pct),
		CorrectCount: correct,
		Review:       review,
		SubmittedAt:  q.submittedAt,
	}, nil
}
