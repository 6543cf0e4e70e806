package store

import (
	"fmt"
	"sort"

	"github.com/biosecureindia/biosecure/internal/model"
)

// ExportAll builds export-ready results for every registered farmer.
func (s *Store) ExportAll() ([]model.FarmResult, error) {
	users, err := s.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	results := make([]model.FarmResult, 0, len(users))
	for _, u := range users {
		scores, err := s.ListScores(u.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores for user %d: %w", u.ID, err)
		}
		attempts, err := s.ListQuizAttempts(u.ID)
		if err != nil {
			return nil, fmt.Errorf("list quiz attempts for user %d: %w", u.ID, err)
		}
		done, err := s.CompletedTasks(u.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks for user %d: %w", u.ID, err)
		}
		tasks := make([]string, 0, len(done))
		for id := range done {
			tasks = append(tasks, id)
		}
		sort.Strings(tasks)

		results = append(results, model.FarmResult{
			Email:        u.Email,
			Name:         u.Name,
			FarmName:     u.FarmName,
			Assessments:  scores,
			QuizAttempts: attempts,
			TasksDone:    tasks,
		})
	}
	return results, nil
}
