package compliance

import (
	"testing"
	"time"

	"github.com/biosecureindia/biosecure/internal/model"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points     int
		wantLevel  model.Level
		wantNext   model.Level
		wantToNext int
	}{
		{0, model.LevelBronze, model.LevelSilver, 100},
		{25, model.LevelBronze, model.LevelSilver, 75},
		{99, model.LevelBronze, model.LevelSilver, 1},
		{100, model.LevelSilver, model.LevelGold, 100},
		{199, model.LevelSilver, model.LevelGold, 1},
		{200, model.LevelGold, model.LevelPlatinum, 100},
		{300, model.LevelPlatinum, "", 0},
		{450, model.LevelPlatinum, "", 0},
	}
	for _, tt := range tests {
		level, next, toNext := LevelFor(tt.points)
		if level != tt.wantLevel || next != tt.wantNext || toNext != tt.wantToNext {
			t.Errorf("LevelFor(%d) = %s, %s, %d; want %s, %s, %d",
				tt.points, level, next, toNext, tt.wantLevel, tt.wantNext, tt.wantToNext)
		}
	}
}

func TestSummarize(t *testing.T) {
	tasks := []model.ComplianceTask{
		{ID: "task_001", Points: 10},
		{ID: "task_002", Points: 15},
		{ID: "task_003", Points: 20},
	}
	done := time.Date(2025, 10, 4, 8, 0, 0, 0, time.UTC)
	s := Summarize(tasks, nil, map[string]time.Time{
		"task_001": done,
		"task_002": done,
		"unknown":  done,
	})

	if s.CompletedTasks != 2 || s.TotalTasks != 3 {
		t.Errorf("completed %d of %d, want 2 of 3", s.CompletedTasks, s.TotalTasks)
	}
	if s.Points != 25 {
		t.Errorf("points = %d, want 25", s.Points)
	}
	if s.CompletionPercentage != 67 {
		t.Errorf("completion = %d%%, want 67%%", s.CompletionPercentage)
	}
	if s.Level != model.LevelBronze || s.PointsToNext != 75 {
		t.Errorf("level %s, %d to next", s.Level, s.PointsToNext)
	}
	if !s.Tasks[0].Completed || s.Tasks[0].CompletedAt == nil || s.Tasks[2].Completed {
		t.Errorf("unexpected task states: %+v", s.Tasks)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, nil)
	if s.CompletionPercentage != 0 || s.Level != model.LevelBronze {
		t.Errorf("unexpected empty summary: %+v", s)
	}
}
