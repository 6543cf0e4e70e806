package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/biosecureindia/biosecure/internal/catalog"
	appI18n "github.com/biosecureindia/biosecure/internal/i18n"
	"github.com/biosecureindia/biosecure/internal/metrics"
	"github.com/biosecureindia/biosecure/internal/model"
	"github.com/biosecureindia/biosecure/internal/store"
)

type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error
	got   []model.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req model.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.reply, f.err
}

func (f *fakeChat) requests() []model.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatRequest(nil), f.got...)
}

type testEnv struct {
	h    *Handler
	chat *fakeChat
	srv  *httptest.Server

	mu     sync.Mutex
	pauses []time.Duration
}

func (e *testEnv) pauseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pauses)
}

func newTestEnv(t *testing.T, cfg model.PortalConfig) *testEnv {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	c, err := catalog.Load("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Minute
	}
	if cfg.SubmitDelay == 0 {
		cfg.SubmitDelay = 1500 * time.Millisecond
	}

	env := &testEnv{chat: &fakeChat{reply: "Use footbaths."}}
	env.h = New(s, c, env.chat, metrics.New(), cfg)
	env.h.pause = func(d time.Duration) {
		env.mu.Lock()
		env.pauses = append(env.pauses, d)
		env.mu.Unlock()
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	env.h.Routes(r)
	env.srv = httptest.NewServer(r)
	t.Cleanup(env.srv.Close)
	return env
}

type testClient struct {
	t      *testing.T
	base   string
	http   *http.Client
	csrf   string
	header http.Header
}

func (e *testEnv) client(t *testing.T) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &testClient{t: t, base: e.srv.URL, http: &http.Client{Jar: jar}, header: http.Header{}}
}

func (c *testClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.csrf != "" {
		req.Header.Set(csrfHeaderName, c.csrf)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (c *testClient) decode(data []byte, v any) {
	c.t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		c.t.Fatalf("decode %s: %v", data, err)
	}
}

func (c *testClient) errorMessage(data []byte) string {
	c.t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	c.decode(data, &body)
	return body.Error
}

// signup registers a farmer and keeps the CSRF token for later calls.
func (c *testClient) signup(email string) {
	c.t.Helper()
	status, data := c.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name":      "Asha",
		"email":     email,
		"farm_name": "Sunrise Poultry",
		"password":  "secret123",
	})
	if status != http.StatusCreated {
		c.t.Fatalf("signup: status %d, body %s", status, data)
	}
	var resp authResponse
	c.decode(data, &resp)
	if resp.CSRFToken == "" {
		c.t.Fatal("signup returned no CSRF token")
	}
	c.csrf = resp.CSRFToken
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, model.PortalConfig{})
	status, _ := env.client(t).do(http.MethodGet, "/healthz", nil)
	if status != http.StatusOK {
		t.Errorf("healthz status = %d", status)
	}
}

func TestSignupLoginLogout(t *testing.T) {
	env := newTestEnv(t, model.PortalConfig{})
	c := env.client(t)
	c.signup("asha@example.com")

	status, data := c.do(http.MethodGet, "/api/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d, body %s", status, data)
	}
	var me authResponse
	c.decode(data, &me)
	if me.User.Email != "asha@example.com" || me.User.FarmName != "Sunrise Poultry" {
		t.Errorf("unexpected user: %+v", me.User)
	}
	if me.CSRFToken != c.csrf {
		t.Errorf("csrf token changed: %q vs %q", me.CSRFToken, c.csrf)
	}

	other := env.client(t)
	status, data = other.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "X", "email": "ASHA@example.com", "farm_name": "Y", "password": "secret123",
	})
	if status != http.StatusConflict {
		t.Errorf("duplicate signup: status %d, body %s", status, data)
	}

	status, _ = c.do(http.MethodPost, "/api/auth/logout", nil)
	if status != http.StatusNoContent {
		t.Errorf("logout status = %d", status)
	}
	status, _ = c.do(http.MethodGet, "/api/me", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d", status)
	}

	status, data = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "asha@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("bad login: status %d", status)
	}
	if msg := c.errorMessage(data); msg != "Invalid email or password." {
		t.Errorf("bad login message = %q", msg)
	}

	status, data = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d, body %s", status, data)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t, model.PortalConfig{})
	c := env.client(t)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing farm", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123"},
			"Name, email, farm name and password are required."},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "farm_name": "F", "password": "123"},
			"Password must be at least 6 characters."},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "farm_name": "F", "password": "secret123"},
			"Invalid request body."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := c.do(http.MethodPost, "/api/auth/signup", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if msg := c.errorMessage(data); msg != tt.want {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestAuthAndCSRFRequired(t *testing.T) {
	env := newTestEnv(t, model.PortalConfig{})
	c := env.client(t)

	status, _ := c.do(http.MethodGet, "/api/dashboard", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("dashboard without session: status %d", status)
	}

	c.signup("asha@example.com")
	token := c.csrf

	c.csrf = ""
	status, _ = c.do(http.MethodPost, "/api/assessment", nil)
	if status != http.StatusForbidden {
		t.Errorf("missing CSRF header: status %d", status)
	}

	c.csrf = "forged"
	status, _ = c.do(http.MethodPost, "/api/assessment", nil)
	if status != http.StatusForbidden {
		t.Errorf("forged CSRF header: status %d", status)
	}

	c.csrf = token
	status, _ = c.do(http.MethodPost, "/api/assessment", nil)
	if status != http.StatusCreated {
		t.Errorf("valid CSRF header: status %d", status)
	}
}

func TestPublicContent(t *testing.T) {
	env := newTestEnv(t, model.PortalConfig{})
	c := env.client(t)

	status, data := c.do(http.MethodGet, "/api/videos?category=Biosecurity%20Basics", nil)
	if status != http.StatusOK {
		t.Fatalf("videos: status %d", status)
	}
	var videos struct {
		Count  int           `json:"count"`
		Videos []model.Video `json:"videos"`
	}
	c.decode(data, &videos)
	if videos.Count != 3 || len(videos.Videos) != 3 {
		t.Errorf("expected 3 basics videos, got %d", videos.Count)
	}

	status, data = c.do(http.MethodGet, "/api/videos/categories", nil)
	if status != http.StatusOK {
		t.Fatalf("categories: status %d", status)
	}
	var cats struct {
		Total      int                   `json:"total"`
		Categories []model.CategoryCount `json:"categories"`
	}
	c.decode(data, &cats)
	if cats.Total != 6 || len(cats.Categories) != 3 {
		t.Errorf("unexpected categories: %+v", cats)
	}

	status, data = c.do(http.MethodGet, "/api/alerts?severity=High", nil)
	if status != http.StatusOK {
		t.Fatalf("alerts: status %d", status)
	}
	var alerts struct {
		Alerts []model.Alert    `json:"alerts"`
		Stats  model.AlertStats `json:"stats"`
	}
	c.decode(data, &alerts)
	if len(alerts.Alerts) != 2 || alerts.Stats.Total != 6 || alerts.Stats.AffectedFarms != 43 {
		t.Errorf("unexpected alerts: %d alerts, stats %+v", len(alerts.Alerts), alerts.Stats)
	}
}
