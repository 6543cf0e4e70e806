package questionnaire

import (
	"fmt"
	"slices"
	"time"

	"github.com/biosecureindia/biosecure/internal/model"
)

// weakShare is the percentage of a question's best weight below which the
// question's category is reported as a weak area.
const weakShare = 60

// Assessment scores the risk assessment by summing selected option weights.
type Assessment struct {
	*Engine
	questions   []model.AssessmentQuestion
	maxScore    int
	submittedAt time.Time
	now         func() time.Time
}

// NewAssessment builds an assessment session over an immutable catalog.
func NewAssessment(questions []model.AssessmentQuestion) (*Assessment, error) {
	ids := make([]string, 0, len(questions))
	options := make(map[string][]string, len(questions))
	maxScore := 0
	for _, q := range questions {
		ids = append(ids, q.ID)
		best := 0
		for _, o := range q.Options {
			if o.Weight < 0 {
				return nil, fmt.Errorf("%w: question %q option %q has negative weight", ErrInvalidCatalog, q.ID, o.ID)
			}
			if slices.Contains(options[q.ID], o.ID) {
				return nil, fmt.Errorf("%w: question %q repeats option %q", ErrInvalidCatalog, q.ID, o.ID)
			}
			options[q.ID] = append(options[q.ID], o.ID)
			best = max(best, o.Weight)
		}
		maxScore += best
	}
	e, err := newEngine(ids, options)
	if err != nil {
		return nil, err
	}
	if maxScore == 0 {
		return nil, fmt.Errorf("%w: maximum score is zero", ErrInvalidCatalog)
	}
	return &Assessment{
		Engine:    e,
		questions: questions,
		maxScore:  maxScore,
		now:       time.Now,
	}, nil
}

// CurrentQuestion returns the displayed question.
func (a *Assessment) CurrentQuestion() (model.AssessmentQuestion, error) {
	if _, err := a.currentID(); err != nil {
		return model.AssessmentQuestion{}, err
	}
	return a.questions[a.position], nil
}

// MaxScore is the sum of every question's highest option weight.
func (a *Assessment) MaxScore() int { return a.maxScore }

// TotalScore sums the weights of the selected options. Unanswered questions
// and answers naming an unknown option contribute nothing.
func (a *Assessment) TotalScore() int {
	total := 0
	for _, q := range a.questions {
		if o, ok := a.selected(q); ok {
			total += o.Weight
		}
	}
	return total
}

// Submit validates the displayed question and computes the result.
func (a *Assessment) Submit() (model.AssessmentResult, error) {
	if err := a.markSubmitted(); err != nil {
		return model.AssessmentResult{}, err
	}
	if a.submittedAt.IsZero() {
		a.submittedAt = a.now()
	}
	total := a.TotalScore()
	pct := percentage(total, a.maxScore)
	return model.AssessmentResult{
		TotalScore:     total,
		MaxScore:       a.maxScore,
		Percentage:     pct,
		Band:           model.BandFor(pct),
		WeakCategories: a.weakCategories(),
		SubmittedAt:    a.submittedAt,
	}, nil
}

func (a *Assessment) selected(q model.AssessmentQuestion) (model.Option, bool) {
	id, ok := a.answers[q.ID]
	if !ok {
		return model.Option{}, false
	}
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return model.Option{}, false
}

// weakCategories lists, in catalog order and without repeats, the categories
// of questions scoring below weakShare percent of their best option.
func (a *Assessment) weakCategories() []string {
	var out []string
	for _, q := range a.questions {
		best := 0
		for _, o := range q.Options {
			best = max(best, o.Weight)
		}
		if best == 0 {
			continue
		}
		got := 0
		if o, ok := a.selected(q); ok {
			got = o.Weight
		}
		if got*100 < best*weakShare && !slices.Contains(out, q.Category) {
			out = append(out, q.Category)
		}
	}
	return out
}
