package model

import (
	"context"
	"time"
)

// User represents a registered farmer account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	FarmName     string    `json:"farm_name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Option is a weighted answer choice of an assessment question.
type Option struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// AssessmentQuestion is one question of the risk assessment.
type AssessmentQuestion struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	Info     string   `json:"info,omitempty"`
}

// QuestionType distinguishes quiz question layouts.
type QuestionType string

const (
	QuestionMCQSingle QuestionType = "mcq_single"
	QuestionTrueFalse QuestionType = "true_false"
)

// Choice is an unweighted answer choice of a quiz question.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// QuizQuestion is one question of a post-video quiz.
type QuizQuestion struct {
	ID               string       `json:"id"`
	Type             QuestionType `json:"type"`
	Prompt           string       `json:"prompt"`
	Options          []Choice     `json:"options"`
	CorrectAnswerIDs []string     `json:"correct_answer_ids"`
	Marks            int          `json:"marks"`
	RemedialVideo    string       `json:"remedial_video,omitempty"`
}

// Quiz is an immutable quiz catalog.
type Quiz struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	VideoID       string         `json:"video_id"`
	PassThreshold int            `json:"pass_threshold"`
	Questions     []QuizQuestion `json:"questions"`
}

// ScoreBand classifies an assessment percentage for display.
type ScoreBand string

const (
	BandGood   ScoreBand = "good"
	BandFair   ScoreBand = "fair"
	BandAtRisk ScoreBand = "at_risk"
)

// BandFor returns the display band of an assessment percentage.
func BandFor(percentage int) ScoreBand {
	switch {
	case percentage >= 80:
		return BandGood
	case percentage >= 60:
		return BandFair
	default:
		return BandAtRisk
	}
}

// AssessmentResult is the outcome of a submitted risk assessment.
type AssessmentResult struct {
	TotalScore     int       `json:"total_score"`
	MaxScore       int       `json:"max_score"`
	Percentage     int       `json:"percentage"`
	Band           ScoreBand `json:"band"`
	WeakCategories []string  `json:"weak_categories"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// QuestionReview is the per-question outcome of a quiz.
type QuestionReview struct {
	QuestionID       string   `json:"question_id"`
	SelectedOptionID string   `json:"selected_option_id"`
	IsCorrect        bool     `json:"is_correct"`
	AwardedMarks     int      `json:"awarded_marks"`
	CorrectOptionIDs []string `json:"correct_option_ids"`
	RemedialVideo    string   `json:"remedial_video,omitempty"`
}

// QuizResult is the outcome of a submitted quiz.
type QuizResult struct {
	QuizID       string           `json:"quiz_id"`
	TotalScore   int              `json:"total_score"`
	MaxScore     int              `json:"max_score"`
	Percentage   int              `json:"percentage"`
	Passed       bool             `json:"passed"`
	CorrectCount int              `json:"correct_count"`
	Review       []QuestionReview `json:"review"`
	SubmittedAt  time.Time        `json:"submitted_at"`
}

// ScoreRecord is a persisted assessment percentage.
type ScoreRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Percentage int       `json:"percentage"`
	TakenAt    time.Time `json:"taken_at"`
}

// QuizAttempt is a persisted quiz outcome.
type QuizAttempt struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuizID     string    `json:"quiz_id"`
	TotalScore int       `json:"total_score"`
	MaxScore   int       `json:"max_score"`
	Percentage int       `json:"percentage"`
	Passed     bool      `json:"passed"`
	TakenAt    time.Time `json:"taken_at"`
}

// PortalConfig holds runtime parameters set via CLI flags.
type PortalConfig struct {
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	SubmitDelay   time.Duration // pause before an assessment result is returned
	SessionTTL    time.Duration // idle lifetime of a questionnaire session
	ChatRate      float64       // chat requests per second across the server
	ChatBurst     int
}
