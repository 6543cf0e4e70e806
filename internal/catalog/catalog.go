// Package catalog loads the portal's static content: the assessment
// questions, the quizzes, the video modules, the outbreak alerts and the
// compliance tasks. Catalogs are read once and never mutated.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/biosecureindia/biosecure/internal/model"
	"github.com/biosecureindia/biosecure/internal/questionnaire"
)

//go:embed data/*.json
var dataFS embed.FS

const (
	assessmentFile = "assessment.json"
	quizzesFile    = "quizzes.json"
	videosFile     = "videos.json"
	alertsFile     = "alerts.json"
	complianceFile = "compliance.json"
)

// Catalog is the immutable content of the portal.
type Catalog struct {
	Assessment []model.AssessmentQuestion
	Quizzes    []model.Quiz
	Videos     []model.Video
	Alerts     []model.Alert
	Tasks      []model.ComplianceTask
	Badges     []model.Badge
}

type complianceDoc struct {
	Tasks  []model.ComplianceTask `json:"tasks"`
	Badges []model.Badge          `json:"badges"`
}

// Load reads the catalogs from dir. Files missing from dir fall back to the
// embedded defaults; an empty dir uses the embedded defaults only.
func Load(dir string) (*Catalog, error) {
	embedded, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return LoadFS(embedded)
	}
	return LoadFS(overlayFS{primary: os.DirFS(dir), fallback: embedded})
}

// LoadFS reads and validates all catalogs from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var c Catalog
	if err := readJSON(fsys, assessmentFile, &c.Assessment); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, quizzesFile, &c.Quizzes); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, videosFile, &c.Videos); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, alertsFile, &c.Alerts); err != nil {
		return nil, err
	}
	var doc complianceDoc
	if err := readJSON(fsys, complianceFile, &doc); err != nil {
		return nil, err
	}
	c.Tasks, c.Badges = doc.Tasks, doc.Badges

	if err := c.validate(); err != nil {
		return nil, err
	}
	slog.Info("loaded catalogs",
		"assessment_questions", len(c.Assessment),
		"quizzes", len(c.Quizzes),
		"videos", len(c.Videos),
		"alerts", len(c.Alerts),
		"tasks", len(c.Tasks),
	)
	return &c, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// validate fails fast on catalogs the questionnaire engine cannot score.
func (c *Catalog) validate() error {
	if _, err := questionnaire.NewAssessment(c.Assessment); err != nil {
		return fmt.Errorf("%s: %w", assessmentFile, err)
	}
	seen := make(map[string]bool)
	for _, q := range c.Quizzes {
		if seen[q.ID] {
			return fmt.Errorf("%s: duplicate quiz id %q", quizzesFile, q.ID)
		}
		seen[q.ID] = true
		if _, err := questionnaire.NewQuiz(q); err != nil {
			return fmt.Errorf("%s: quiz %q: %w", quizzesFile, q.ID, err)
		}
	}
	for _, v := range c.Videos {
		if v.QuizID != "" && !seen[v.QuizID] {
			return fmt.Errorf("%s: video %q links unknown quiz %q", videosFile, v.ID, v.QuizID)
		}
	}
	return nil
}

// Quiz returns the quiz with the given id.
func (c *Catalog) Quiz(id string) (model.Quiz, bool) {
	for _, q := range c.Quizzes {
		if q.ID == id {
			return q, true
		}
	}
	return model.Quiz{}, false
}

// Task returns the compliance task with the given id.
func (c *Catalog) Task(id string) (model.ComplianceTask, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.ComplianceTask{}, false
}

// FilterVideos returns the videos in category (empty or "all" for every
// category) whose title, description or tags contain query, case-insensitively.
func (c *Catalog) FilterVideos(category, query string) []model.Video {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []model.Video{}
	for _, v := range c.Videos {
		if category != "" && category != "all" && !strings.EqualFold(v.Category, category) {
			continue
		}
		if query != "" && !videoMatches(v, query) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func videoMatches(v model.Video, query string) bool {
	if strings.Contains(strings.ToLower(v.Title), query) ||
		strings.Contains(strings.ToLower(v.Description), query) {
		return true
	}
	return slices.ContainsFunc(v.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), query)
	})
}

// VideoCategories counts videos per category in first-seen order.
func (c *Catalog) VideoCategories() []model.CategoryCount {
	var out []model.CategoryCount
	for _, v := range c.Videos {
		i := slices.IndexFunc(out, func(cc model.CategoryCount) bool { return cc.Category == v.Category })
		if i < 0 {
			out = append(out, model.CategoryCount{Category: v.Category, Count: 1})
			continue
		}
		out[i].Count++
	}
	return out
}

// FilterAlerts returns the alerts of the given severity, or all of them when
// severity is empty or "all".
func (c *Catalog) FilterAlerts(severity string) []model.Alert {
	out := []model.Alert{}
	for _, a := range c.Alerts {
		if severity != "" && severity != "all" && !strings.EqualFold(string(a.Severity), severity) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// AlertStats summarizes alerts by severity and affected farms.
func AlertStats(alerts []model.Alert) model.AlertStats {
	st := model.AlertStats{
		Total:      len(alerts),
		BySeverity: make(map[model.Severity]int),
	}
	for _, a := range alerts {
		st.BySeverity[a.Severity]++
		st.AffectedFarms += a.AffectedFarms
	}
	return st
}
