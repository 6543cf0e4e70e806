// Package compliance computes the gamified compliance state: points earned
// from completed tasks and the level they unlock.
package compliance

import (
	"time"

	"github.com/biosecureindia/biosecure/internal/model"
)

type tier struct {
	level model.Level
	floor int
}

// tiers are ordered by ascending point floor.
var tiers = []tier{
	{model.LevelBronze, 0},
	{model.LevelSilver, 100},
	{model.LevelGold, 200},
	{model.LevelPlatinum, 300},
}

// LevelFor returns the level reached with points, the next level (empty at the
// top tier) and the points still missing to reach it.
func LevelFor(points int) (level, next model.Level, toNext int) {
	i := 0
	for j, t := range tiers {
		if points >= t.floor {
			i = j
		}
	}
	if i == len(tiers)-1 {
		return tiers[i].level, "", 0
	}
	return tiers[i].level, tiers[i+1].level, tiers[i+1].floor - points
}

// Summarize combines the task catalog with the completion times of one user.
// completed maps task id to completion time; ids not in the catalog are ignored.
func Summarize(tasks []model.ComplianceTask, badges []model.Badge, completed map[string]time.Time) model.ComplianceSummary {
	s := model.ComplianceSummary{
		Tasks:      make([]model.TaskStatus, 0, len(tasks)),
		Badges:     badges,
		TotalTasks: len(tasks),
	}
	for _, t := range tasks {
		st := model.TaskStatus{ComplianceTask: t}
		if at, ok := completed[t.ID]; ok {
			st.Completed = true
			st.CompletedAt = &at
			s.CompletedTasks++
			s.Points += t.Points
		}
		s.Tasks = append(s.Tasks, st)
	}
	if s.TotalTasks > 0 {
		s.CompletionPercentage = (s.CompletedTasks*100 + s.TotalTasks/2) / s.TotalTasks
	}
	s.Level, s.NextLevel, s.PointsToNext = LevelFor(s.Points)
	return s
}
