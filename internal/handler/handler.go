// Package handler serves the portal's JSON API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/biosecureindia/biosecure/internal/catalog"
	"github.com/biosecureindia/biosecure/internal/compliance"
	appI18n "github.com/biosecureindia/biosecure/internal/i18n"
	"github.com/biosecureindia/biosecure/internal/metrics"
	"github.com/biosecureindia/biosecure/internal/model"
	"github.com/biosecureindia/biosecure/internal/session"
	"github.com/biosecureindia/biosecure/internal/store"
)

const maxBodyBytes = 1 << 20

// ChatClient relays a chat request to the language model.
type ChatClient interface {
	Chat(ctx context.Context, req model.ChatRequest) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	catalog *catalog.Catalog
	llm     ChatClient
	metrics *metrics.Metrics
	config  model.PortalConfig

	assessments *session.Registry[*assessmentSession]
	quizzes     *session.Registry[*quizSession]
	chatLimiter *clientLimiter

	pause func(time.Duration)
	now   func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, c *catalog.Catalog, l ChatClient, m *metrics.Metrics, cfg model.PortalConfig) *Handler {
	limit := rate.Inf
	if cfg.ChatRate > 0 {
		limit = rate.Limit(cfg.ChatRate)
	}
	burst := cfg.ChatBurst
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		store:       s,
		catalog:     c,
		llm:         l,
		metrics:     m,
		config:      cfg,
		assessments: session.NewRegistry[*assessmentSession]("assessment", cfg.SessionTTL),
		quizzes:     session.NewRegistry[*quizSession]("quiz", cfg.SessionTTL),
		chatLimiter: newClientLimiter(limit, burst),
		pause:       time.Sleep,
		now:         time.Now,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", h.handleSignup)
		api.Post("/auth/login", h.handleLogin)
		api.Post("/auth/logout", h.handleLogout)

		api.Get("/videos", h.handleVideos)
		api.Get("/videos/categories", h.handleVideoCategories)
		api.Get("/alerts", h.handleAlerts)

		api.With(middleware.RealIP, cors).Options("/chat", h.handlePreflight)
		api.With(middleware.RealIP, cors).Post("/chat", h.handleChat)

		api.Group(func(p chi.Router) {
			p.Use(h.requireAuth)
			p.Use(h.csrfMiddleware)

			p.Get("/me", h.handleMe)
			p.Get("/dashboard", h.handleDashboard)

			p.Post("/assessment", h.handleStartAssessment)
			p.Get("/assessment/{sessionID}", h.handleAssessmentState)
			p.Post("/assessment/{sessionID}/answer", h.handleAssessmentAnswer)
			p.Post("/assessment/{sessionID}/next", h.handleAssessmentNext)
			p.Post("/assessment/{sessionID}/previous", h.handleAssessmentPrevious)
			p.Post("/assessment/{sessionID}/submit", h.handleAssessmentSubmit)
			p.Delete("/assessment/{sessionID}", h.handleAssessmentDiscard)

			p.Get("/quizzes", h.handleListQuizzes)
			p.Post("/quizzes/{quizID}", h.handleStartQuiz)
			p.Get("/quiz-sessions/{sessionID}", h.handleQuizState)
			p.Post("/quiz-sessions/{sessionID}/answer", h.handleQuizAnswer)
			p.Post("/quiz-sessions/{sessionID}/next", h.handleQuizNext)
			p.Post("/quiz-sessions/{sessionID}/previous", h.handleQuizPrevious)
			p.Post("/quiz-sessions/{sessionID}/submit", h.handleQuizSubmit)
			p.Delete("/quiz-sessions/{sessionID}", h.handleQuizDiscard)

			p.Get("/compliance", h.handleCompliance)
			p.Post("/compliance/tasks/{taskID}/toggle", h.handleToggleTask)
		})
	})
}

// Run sweeps idle questionnaire sessions and chat clients until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	interval := h.config.SessionTTL / 2
	if interval <= 0 {
		interval = time.Minute
	} else {
		go h.assessments.Run(ctx, interval)
		go h.quizzes.Run(ctx, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.observeSessions()
			if n := h.chatLimiter.Sweep(chatVisitorTTL); n > 0 {
				slog.Debug("dropped idle chat clients", "count", n)
			}
		}
	}
}

func (h *Handler) observeSessions() {
	h.metrics.ActiveSessions.WithLabelValues("assessment").Set(float64(h.assessments.Len()))
	h.metrics.ActiveSessions.WithLabelValues("quiz").Set(float64(h.quizzes.Len()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos := h.catalog.FilterVideos(r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"videos": videos,
		"count":  len(videos),
	})
}

func (h *Handler) handleVideoCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      len(h.catalog.Videos),
		"categories": h.catalog.VideoCategories(),
	})
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.catalog.FilterAlerts(r.URL.Query().Get("severity"))
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"stats":  catalog.AlertStats(h.catalog.Alerts),
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	latest, err := h.store.LatestScore(user.ID)
	if err != nil {
		h.internalError(w, r, "load latest score", err)
		return
	}
	attempts, passed, err := h.store.QuizStats(user.ID)
	if err != nil {
		h.internalError(w, r, "load quiz stats", err)
		return
	}
	done, err := h.store.CompletedTasks(user.ID)
	if err != nil {
		h.internalError(w, r, "load completed tasks", err)
		return
	}
	summary := compliance.Summarize(h.catalog.Tasks, h.catalog.Badges, done)

	d := model.Dashboard{
		User:            *user,
		LatestScore:     latest,
		QuizzesPassed:   passed,
		QuizAttempts:    attempts,
		ComplianceLevel: summary.Level,
		Points:          summary.Points,
	}
	if latest != nil {
		d.Band = model.BandFor(latest.Percentage)
	}
	for _, a := range h.catalog.Alerts {
		if a.Severity == model.SeverityCritical {
			d.CriticalAlerts++
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCompliance(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	done, err := h.store.CompletedTasks(user.ID)
	if err != nil {
		h.internalError(w, r, "load completed tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, compliance.Summarize(h.catalog.Tasks, h.catalog.Badges, done))
}

func (h *Handler) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")
	if _, ok := h.catalog.Task(taskID); !ok {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "TaskNotFound"))
		return
	}
	completed, err := h.store.ToggleTask(user.ID, taskID, h.now())
	if err != nil {
		h.internalError(w, r, "toggle task", err)
		return
	}
	slog.Info("toggled compliance task", "user", user.ID, "task", taskID, "completed", completed)

	done, err := h.store.CompletedTasks(user.ID)
	if err != nil {
		h.internalError(w, r, "load completed tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, compliance.Summarize(h.catalog.Tasks, h.catalog.Badges, done))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, what string, err error) {
	slog.Error(what, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, appI18n.T(r.Context(), "InternalError"))
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
