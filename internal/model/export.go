package model

import "time"

// ScoreExport is the top-level JSON structure for score history export.
type ScoreExport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Farmers     []FarmResult `json:"farmers"`
}

// FarmResult holds one farmer's persisted results for export.
type FarmResult struct {
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	FarmName     string        `json:"farm_name"`
	Assessments  []ScoreRecord `json:"assessments"`
	QuizAttempts []QuizAttempt `json:"quiz_attempts"`
	TasksDone    []string      `json:"tasks_done"`
}
