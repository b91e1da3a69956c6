package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/campuserp/internal/auth"
	"github.com/geocoder89/campuserp/internal/db"
	apphttp "github.com/geocoder89/campuserp/internal/http"
	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/phone"
	queuemem "github.com/geocoder89/campuserp/internal/queue/memory"
	"github.com/geocoder89/campuserp/internal/registration"
	"github.com/geocoder89/campuserp/internal/repo/memory"
	"github.com/geocoder89/campuserp/internal/security"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const adminPassword = "admin-test-pass"

type recordingNotifier struct {
	mu     sync.Mutex
	fail   bool
	emails []string
	events []notifications.AdminEvent
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("provider down")
	}
	n.emails = append(n.emails, to)
	return nil
}

func (n *recordingNotifier) NotifyAdmins(_ context.Context, e notifications.AdminEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("provider down")
	}
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) setFail(v bool) {
	n.mu.Lock()
	n.fail = v
	n.mu.Unlock()
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emails), len(n.events)
}

type app struct {
	router   *gin.Engine
	notifier *recordingNotifier
	retry    *queuemem.Queue
	log      *slog.Logger
}

type appStore interface {
	store.Store
	store.SignupReader
}

func newApp(t *testing.T, st appStore, ping func(context.Context) error) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := db.EnsureUsers(ctx, st, db.DemoUsers()); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	hash, err := security.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	a := &app{notifier: &recordingNotifier{}, retry: queuemem.New(), log: logger}

	rule := phone.India("91")
	sessions := registration.NewSessions(registration.Deps{
		Store:    st,
		Notifier: a.notifier,
		Retry:    a.retry,
		Rule:     rule,
		Log:      logger,
		Prom:     prom,
	}, time.Minute)

	a.router = apphttp.NewRouter(apphttp.Deps{
		Env:                "test",
		Log:                logger,
		Authenticator:      auth.NewValidator(st, auth.AdminCredential{Username: "admin", PasswordHash: hash}, auth.WithLogger(logger)),
		Tokens:             auth.NewManager("integration-secret", time.Hour),
		Sessions:           sessions,
		Requests:           st,
		Users:              st,
		Rule:               rule,
		Ping:               ping,
		Prom:               prom,
		Gatherer:           reg,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		LoginRateLimit:     100,
		RequestTimeout:     2 * time.Second,
	})
	return a
}

func newMemoryApp(t *testing.T) *app {
	st := memory.NewStore()
	return newApp(t, st, st.Ping)
}

func (a *app) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("invalid json response: %v body=%s", err, w.Body.String())
	}
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, w.Code, w.Body.String())
	}
}

func (a *app) login(t *testing.T, identifier, secret, role string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"identifier": identifier,
		"secret":     secret,
		"role":       role,
	}, "")
	mustStatus(t, w, http.StatusOK)

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	mustReadJSON(t, w, &resp)
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	return resp.AccessToken
}

// completeSignup walks a fresh session through every step and submits it.
func (a *app) completeSignup(t *testing.T, email string) *httptest.ResponseRecorder {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/signup/sessions", nil, "")
	mustStatus(t, w, http.StatusCreated)

	var started struct {
		SessionID string `json:"sessionId"`
	}
	mustReadJSON(t, w, &started)
	base := "/api/v1/signup/sessions/" + started.SessionID

	steps := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, base + "/identity", map[string]string{
			"role": "student", "firstName": "Asha", "lastName": "Rao", "email": email,
		}},
		{http.MethodPost, base + "/next", nil},
		{http.MethodPut, base + "/contact", map[string]string{"phone": "98765 43210"}},
		{http.MethodPost, base + "/next", nil},
		{http.MethodPut, base + "/academic", map[string]any{
			"department": "Computer Science", "rollNumber": "CS24-17", "termsAccepted": true,
		}},
	}
	for _, s := range steps {
		mustStatus(t, a.do(t, s.method, s.path, s.body, ""), http.StatusOK)
	}

	return a.do(t, http.MethodPost, base+"/submit", nil, "")
}
