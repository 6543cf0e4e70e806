package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/biosecureindia/biosecure/internal/i18n"
	"github.com/biosecureindia/biosecure/internal/model"
	"github.com/biosecureindia/biosecure/internal/questionnaire"
	"github.com/biosecureindia/biosecure/internal/session"
)

var errBadRequest = errors.New("bad request")

// flow is the navigation surface shared by assessments and quizzes.
type flow interface {
	Len() int
	Position() int
	Progress() int
	IsLast() bool
	Submitted() bool
	Answer(questionID string) (string, bool)
	Answers() map[string]string
	SelectCurrent(optionID string) error
	Advance() error
	Retreat()
}

// assessmentSession and quizSession remember whether the result was stored,
// so a failed write is retried on the next submit.
type assessmentSession struct {
	*questionnaire.Assessment
	saved bool
}

type quizSession struct {
	*questionnaire.Quiz
	saved bool
}

// questionView is a question as shown to the farmer: no weights, no answers.
type questionView struct {
	ID       string             `json:"id"`
	Category string             `json:"category,omitempty"`
	Type     model.QuestionType `json:"type,omitempty"`
	Prompt   string             `json:"prompt"`
	Options  []model.Choice     `json:"options"`
	Info     string             `json:"info,omitempty"`
	Marks    int                `json:"marks,omitempty"`
}

type sessionState struct {
	SessionID        string       `json:"session_id"`
	QuizID           string       `json:"quiz_id,omitempty"`
	Position         int          `json:"position"`
	Total            int          `json:"total"`
	Progress         int          `json:"progress"`
	IsLast           bool         `json:"is_last"`
	Submitted        bool         `json:"submitted"`
	Answered         int          `json:"answered"`
	AnsweredText     string       `json:"answered_text"`
	Question         questionView `json:"question"`
	SelectedOptionID string       `json:"selected_option_id,omitempty"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

type quizSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoID       string `json:"video_id"`
	PassThreshold int    `json:"pass_threshold"`
	QuestionCount int    `json:"question_count"`
	MaxScore      int    `json:"max_score"`
}

type assessmentSubmitResponse struct {
	model.AssessmentResult
	Message string `json:"message"`
}

type quizSubmitResponse struct {
	model.QuizResult
	Message string `json:"message"`
}

func assessmentView(s *assessmentSession) (questionView, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return questionView{}, err
	}
	opts := make([]model.Choice, len(q.Options))
	for i, o := range q.Options {
		opts[i] = model.Choice{ID: o.ID, Label: o.Label}
	}
	return questionView{ID: q.ID, Category: q.Category, Prompt: q.Prompt, Options: opts, Info: q.Info}, nil
}

func quizView(s *quizSession) (questionView, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return questionView{}, err
	}
	return questionView{ID: q.ID, Type: q.Type, Prompt: q.Prompt, Options: q.Options, Marks: q.Marks}, nil
}

func buildState[T flow](r *http.Request, id string, f T, view func(T) (questionView, error)) (sessionState, error) {
	q, err := view(f)
	if err != nil {
		return sessionState{}, err
	}
	answered := len(f.Answers())
	st := sessionState{
		SessionID:    id,
		Position:     f.Position(),
		Total:        f.Len(),
		Progress:     f.Progress(),
		IsLast:       f.IsLast(),
		Submitted:    f.Submitted(),
		Answered:     answered,
		AnsweredText: appI18n.Tp(r.Context(), "QuestionsAnswered", answered),
		Question:     q,
	}
	st.SelectedOptionID, _ = f.Answer(q.ID)
	if quiz, ok := any(f).(interface{ ID() string }); ok {
		st.QuizID = quiz.ID()
	}
	return st, nil
}

// act runs action on the caller's session and responds with the new state.
func act[T flow](h *Handler, w http.ResponseWriter, r *http.Request, reg *session.Registry[T], view func(T) (questionView, error), action func(T) error) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")
	var st sessionState
	err := reg.With(id, user.ID, func(f T) error {
		if err := action(f); err != nil {
			return err
		}
		var err error
		st, err = buildState(r, id, f, view)
		return err
	})
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// discard drops the caller's session once they leave the flow.
func discard[T flow](h *Handler, w http.ResponseWriter, r *http.Request, reg *session.Registry[T]) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")
	if err := reg.Delete(id, user.ID); err != nil {
		h.flowError(w, r, err)
		return
	}
	h.observeSessions()
	w.WriteHeader(http.StatusNoContent)
}

func selectAction[T flow](r *http.Request, view func(T) (questionView, error)) func(T) error {
	return func(f T) error {
		var req answerRequest
		if err := decodeJSON(r, &req); err != nil || req.OptionID == "" {
			return errBadRequest
		}
		if req.QuestionID != "" {
			q, err := view(f)
			if err != nil {
				return err
			}
			if q.ID != req.QuestionID {
				return fmt.Errorf("%w: question %q is not displayed", questionnaire.ErrUnknownOption, req.QuestionID)
			}
		}
		return f.SelectCurrent(req.OptionID)
	}
}

func advance[T flow](f T) error { return f.Advance() }

func retreat[T flow](f T) error {
	f.Retreat()
	return nil
}

func noop[T flow](T) error { return nil }

// flowError maps questionnaire and session errors onto HTTP statuses.
func (h *Handler) flowError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, appI18n.T(ctx, "SessionNotFound"))
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, appI18n.T(ctx, "InvalidRequest"))
	case errors.Is(err, questionnaire.ErrMissingAnswer):
		writeError(w, http.StatusUnprocessableEntity, appI18n.T(ctx, "SelectAnswer"))
	case errors.Is(err, questionnaire.ErrUnknownOption):
		writeError(w, http.StatusBadRequest, appI18n.T(ctx, "UnknownOption"))
	case errors.Is(err, questionnaire.ErrSubmitted):
		writeError(w, http.StatusConflict, appI18n.T(ctx, "AlreadySubmitted"))
	default:
		h.internalError(w, r, "questionnaire operation", err)
	}
}

func (h *Handler) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := questionnaire.NewAssessment(h.catalog.Assessment)
	if err != nil {
		h.internalError(w, r, "create assessment", err)
		return
	}
	s := &assessmentSession{Assessment: a}
	id := h.assessments.Create(user.ID, s)
	h.observeSessions()
	slog.Info("assessment started", "user", user.ID, "session", id)

	st, err := buildState(r, id, s, assessmentView)
	if err != nil {
		h.internalError(w, r, "build assessment state", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleAssessmentState(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.assessments, assessmentView, noop[*assessmentSession])
}

func (h *Handler) handleAssessmentAnswer(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.assessments, assessmentView, selectAction(r, assessmentView))
}

func (h *Handler) handleAssessmentNext(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.assessments, assessmentView, advance[*assessmentSession])
}

func (h *Handler) handleAssessmentPrevious(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.assessments, assessmentView, retreat[*assessmentSession])
}

func (h *Handler) handleAssessmentSubmit(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")

	var res model.AssessmentResult
	err := h.assessments.With(id, user.ID, func(s *assessmentSession) error {
		first := !s.Submitted()
		var err error
		if res, err = s.Submit(); err != nil {
			return err
		}
		if s.saved {
			return nil
		}
		if first {
			h.pause(h.config.SubmitDelay)
		}
		if _, err := h.store.SaveScore(user.ID, res.Percentage, res.SubmittedAt); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
		s.saved = true
		h.metrics.Submissions.WithLabelValues("assessment").Inc()
		slog.Info("assessment submitted", "user", user.ID, "session", id,
			"score", res.TotalScore, "max", res.MaxScore, "percentage", res.Percentage)
		return nil
	})
	if err != nil {
		h.flowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessmentSubmitResponse{
		AssessmentResult: res,
		Message:          appI18n.Td(r.Context(), "AssessmentComplete", map[string]any{"Percentage": res.Percentage}),
	})
}

func (h *Handler) handleAssessmentDiscard(w http.ResponseWriter, r *http.Request) {
	discard(h, w, r, h.assessments)
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	out := make([]quizSummary, 0, len(h.catalog.Quizzes))
	for _, q := range h.catalog.Quizzes {
		total := 0
		for _, qq := range q.Questions {
			total += qq.Marks
		}
		out = append(out, quizSummary{
			ID:            q.ID,
			Title:         q.Title,
			Description:   q.Description,
			VideoID:       q.VideoID,
			PassThreshold: q.PassThreshold,
			QuestionCount: len(q.Questions),
			MaxScore:      total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	catalogQuiz, ok := h.catalog.Quiz(chi.URLParam(r, "quizID"))
	if !ok {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "QuizNotFound"))
		return
	}
	q, err := questionnaire.NewQuiz(catalogQuiz)
	if err != nil {
		h.internalError(w, r, "create quiz", err)
		return
	}
	s := &quizSession{Quiz: q}
	id := h.quizzes.Create(user.ID, s)
	h.observeSessions()
	slog.Info("quiz started", "user", user.ID, "quiz", q.ID(), "session", id)

	st, err := buildState(r, id, s, quizView)
	if err != nil {
		h.internalError(w, r, "build quiz state", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleQuizState(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.quizzes, quizView, noop[*quizSession])
}

func (h *Handler) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.quizzes, quizView, selectAction(r, quizView))
}

func (h *Handler) handleQuizNext(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.quizzes, quizView, advance[*quizSession])
}

func (h *Handler) handleQuizPrevious(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, h.quizzes, quizView, retreat[*quizSession])
}

func (h *Handler) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "sessionID")

	var res model.QuizResult
	var threshold int
	err := h.quizzes.With(id, user.ID, func(s *quizSession) error {
		var err error
		if res, err = s.Submit(); err != nil {
			return err
		}
		threshold = s.PassThreshold()
		if s.saved {
			return nil
		}
		if _, err := h.store.SaveQuizAttempt(model.QuizAttempt{
			UserID:     user.ID,
			QuizID:     res.QuizID,
			TotalScore: res.TotalScore,
			MaxScore:   res.MaxScore,
			Percentage: res.Percentage,
			Passed:     res.Passed,
			TakenAt:    res.SubmittedAt,
		}); err != nil {
			return fmt.Errorf("save quiz attempt: %w", err)
		}
		s.saved = true
		outcome := "failed"
		if res.Passed {
			outcome = "passed"
		}
		h.metrics.Submissions.WithLabelValues("quiz").Inc()
		h.metrics.QuizOutcomes.WithLabelValues(res.QuizID, outcome).Inc()
		slog.Info("quiz submitted", "user", user.ID, "quiz", res.QuizID, "session", id,
			"percentage", res.Percentage, "passed", res.Passed)
		return nil
	})
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	data := map[string]any{"Percentage": res.Percentage, "Threshold": threshold}
	msg := appI18n.Td(r.Context(), "QuizFailed", data)
	if res.Passed {
		msg = appI18n.Td(r.Context(), "QuizPassed", data)
	}
	writeJSON(w, http.StatusOK, quizSubmitResponse{QuizResult: res, Message: msg})
}

func (h *Handler) handleQuizDiscard(w http.ResponseWriter, r *http.Request) {
	discard(h, w, r, h.quizzes)
}
