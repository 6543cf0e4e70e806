package store

import (
	"time"
)

// ToggleTask flips the completion state of a compliance task for a user and
// reports whether the task is completed afterwards.
func (s *Store) ToggleTask(userID int64, taskID string, now time.Time) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM task_completions WHERE user_id = ? AND task_id = ?`, userID, taskID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := tx.Exec(
			`INSERT INTO task_completions (user_id, task_id, completed_at) VALUES (?, ?, ?)`,
			userID, taskID, now,
		); err != nil {
			return false, err
		}
	}
	return n == 0, tx.Commit()
}

// CompletedTasks returns the completion time of every task a user completed.
func (s *Store) CompletedTasks(userID int64) (map[string]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT task_id, completed_at FROM task_completions WHERE user_id = ? ORDER BY completed_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		done[id] = at
	}
	return done, rows.Err()
}
