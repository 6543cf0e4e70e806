package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/biosecureindia/biosecure/internal/model"
)

// SaveScore records a submitted assessment percentage for a user.
func (s *Store) SaveScore(userID int64, percentage int, takenAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO assessment_scores (user_id, percentage, taken_at) VALUES (?, ?, ?)`,
		userID, percentage, takenAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert score: %w", err)
	}
	return res.LastInsertId()
}

// LatestScore returns the most recent assessment score of a user, or nil if
// the user never submitted one.
func (s *Store) LatestScore(userID int64) (*model.ScoreRecord, error) {
	var r model.ScoreRecord
	err := s.db.QueryRow(
		`SELECT id, user_id, percentage, taken_at FROM assessment_scores
		 WHERE user_id = ? ORDER BY taken_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&r.ID, &r.UserID, &r.Percentage, &r.TakenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListScores returns the assessment history of a user, newest first.
func (s *Store) ListScores(userID int64) ([]model.ScoreRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, percentage, taken_at FROM assessment_scores
		 WHERE user_id = ? ORDER BY taken_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ScoreRecord
	for rows.Next() {
		var r model.ScoreRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Percentage, &r.TakenAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveQuizAttempt records a submitted quiz for a user.
func (s *Store) SaveQuizAttempt(a model.QuizAttempt) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO quiz_attempts (user_id, quiz_id, total_score, max_score, percentage, passed, taken_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.QuizID, a.TotalScore, a.MaxScore, a.Percentage, a.Passed, a.TakenAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert quiz attempt: %w", err)
	}
	return res.LastInsertId()
}

// ListQuizAttempts returns the quiz attempts of a user, newest first.
func (s *Store) ListQuizAttempts(userID int64) ([]model.QuizAttempt, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, quiz_id, total_score, max_score, percentage, passed, taken_at
		 FROM quiz_attempts WHERE user_id = ? ORDER BY taken_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.QuizAttempt
	for rows.Next() {
		var a model.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.TotalScore, &a.MaxScore, &a.Percentage, &a.Passed, &a.TakenAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// QuizStats returns how many quiz attempts a user made and how many distinct
// quizzes they passed.
func (s *Store) QuizStats(userID int64) (attempts, passed int, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT CASE WHEN passed THEN quiz_id END)
		 FROM quiz_attempts WHERE user_id = ?`, userID,
	).Scan(&attempts, &passed)
	return attempts, passed, err
}
