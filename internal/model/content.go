package model

import "time"

// Difficulty is a video module level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Video is a learning module in the video catalog.
type Video struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"` // seconds
	Languages   []string   `json:"languages"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category"`
	Thumbnail   string     `json:"thumbnail"`
	Instructor  string     `json:"instructor"`
	Views       int        `json:"views"`
	Rating      float64    `json:"rating"`
	QuizID      string     `json:"quiz_id,omitempty"`
	Tags        []string   `json:"tags"`
}

// CategoryCount is a video category with the number of modules in it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Severity is the severity of an outbreak alert.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Alert is a reported disease outbreak.
type Alert struct {
	ID            string   `json:"id"`
	Disease       string   `json:"disease"`
	Location      string   `json:"location"`
	State         string   `json:"state"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Severity      Severity `json:"severity"`
	Date          string   `json:"date"`
	AffectedFarms int      `json:"affected_farms"`
	AnimalType    string   `json:"animal_type"`
	Description   string   `json:"description"`
}

// AlertStats summarizes a set of alerts.
type AlertStats struct {
	Total         int              `json:"total"`
	BySeverity    map[Severity]int `json:"by_severity"`
	AffectedFarms int              `json:"affected_farms"`
}

// ComplianceTask is a gamified biosecurity task.
type ComplianceTask struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Task        string `json:"task"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Deadline    string `json:"deadline,omitempty"`
}

// TaskStatus is a compliance task together with the user's completion state.
type TaskStatus struct {
	ComplianceTask
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Badge is an achievement shown on the compliance page.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement string `json:"requirement"`
}

// Level is a compliance tier.
type Level string

const (
	LevelBronze   Level = "Bronze"
	LevelSilver   Level = "Silver"
	LevelGold     Level = "Gold"
	LevelPlatinum Level = "Platinum"
)

// ComplianceSummary is the gamified compliance state of a user.
type ComplianceSummary struct {
	Tasks                []TaskStatus `json:"tasks"`
	Badges               []Badge      `json:"badges"`
	CompletedTasks       int          `json:"completed_tasks"`
	TotalTasks           int          `json:"total_tasks"`
	CompletionPercentage int          `json:"completion_percentage"`
	Points               int          `json:"points"`
	Level                Level        `json:"level"`
	NextLevel            Level        `json:"next_level,omitempty"`
	PointsToNext         int          `json:"points_to_next"`
}

// Dashboard is the landing view of a signed-in farmer.
type Dashboard struct {
	User            User         `json:"user"`
	LatestScore     *ScoreRecord `json:"latest_score,omitempty"`
	Band            ScoreBand    `json:"band,omitempty"`
	QuizzesPassed   int          `json:"quizzes_passed"`
	QuizAttempts    int          `json:"quiz_attempts"`
	ComplianceLevel Level        `json:"compliance_level"`
	Points          int          `json:"points"`
	CriticalAlerts  int          `json:"critical_alerts"`
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body accepted by the chat relay.
type ChatRequest struct {
	Message  string        `json:"message"`
	Language string        `json:"language"`
	History  []ChatMessage `json:"history"`
}
