package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/octopus/bulletin-digest/internal/api"
	"github.com/octopus/bulletin-digest/internal/api/handler"
	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/mailer"
	"github.com/octopus/bulletin-digest/internal/metrics"
	"github.com/octopus/bulletin-digest/internal/repository"
	"github.com/octopus/bulletin-digest/internal/service"
)

var now = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type env struct {
	srv   *httptest.Server
	repo  *repository.MockNotificationRepository
	users *repository.MockUserRepository
}

func newEnv(t *testing.T, ping error) *env {
	t.Helper()
	repo := repository.NewMockNotificationRepository()
	users := repository.NewMockUserRepository()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.NewBulletinService(repo, users, mailer.NewLogMailer(zap.NewNop()), zap.NewNop(),
		service.WithClock(func() time.Time { return now }),
		service.WithRunHook(m.RunHook()),
	)
	srv := httptest.NewServer(api.NewRouter(svc, stubPinger{err: ping}, reg, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &env{srv: srv, repo: repo, users: users}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	e := newEnv(t, nil)
	if resp := e.do(t, http.MethodGet, "/health", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodGet, "/ready", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("ready: %d", resp.StatusCode)
	}

	down := newEnv(t, errors.New("connection refused"))
	if resp := down.do(t, http.MethodGet, "/ready", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database is down, got %d", resp.StatusCode)
	}
}

func TestIngestThenSend(t *testing.T) {
	e := newEnv(t, nil)
	e.users.Put(domain.User{ID: "u1", Email: "u1@example.org"})

	resp := e.do(t, http.MethodPost, "/api/v1/bulletins/notifications", domain.IngestRequest{
		Notifications: []domain.NewBulletinNotification{
			{UserID: "u1", EntityID: "pub-1", ActionType: domain.ActionVersionPeerReviewed, Payload: domain.Payload{Title: "T", URL: "https://octopus.ac/p/1"}},
			{UserID: "u1", EntityID: "pub-2", ActionType: domain.ActionBookmarkVersionCreated},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest: expected 201, got %d", resp.StatusCode)
	}
	if got := decode[map[string]int](t, resp)["created"]; got != 2 {
		t.Fatalf("expected created=2, got %d", got)
	}

	resp = e.do(t, http.MethodPost, "/api/v1/bulletins/send?force=true&delta=48h", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send: expected 200, got %d", resp.StatusCode)
	}
	out := decode[handler.SendResponse](t, resp)
	if out.TotalSent != 2 || out.EmailsSent != 1 || len(out.Errors) != 0 {
		t.Fatalf("unexpected send response %+v", out)
	}
	if e.repo.Len() != 0 {
		t.Fatalf("expected store drained, %d left", e.repo.Len())
	}

	metricsResp := e.do(t, http.MethodGet, "/metrics", nil)
	var body bytes.Buffer
	_, _ = body.ReadFrom(metricsResp.Body)
	if !strings.Contains(body.String(), "bulletin_runs_total") {
		t.Fatal("expected bulletin metrics on /metrics")
	}
}

func TestSend_RejectsBadParameters(t *testing.T) {
	e := newEnv(t, nil)
	for _, path := range []string{
		"/api/v1/bulletins/send?force=maybe",
		"/api/v1/bulletins/send?delta=soon",
		"/api/v1/bulletins/send?delta=-1h",
	} {
		if resp := e.do(t, http.MethodPost, path, nil); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestSend_ReportsPerUserErrors(t *testing.T) {
	e := newEnv(t, nil)
	e.repo.Seed(domain.Notification{ID: "n1", UserID: "ghost", EntityID: "pub-1", ActionType: domain.ActionVersionPeerReviewed, CreatedAt: now})

	resp := e.do(t, http.MethodPost, "/api/v1/bulletins/send", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on partial failure, got %d", resp.StatusCode)
	}
	out := decode[handler.SendResponse](t, resp)
	if out.TotalFailed != 1 || len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "lookup error") {
		t.Fatalf("expected a lookup error for ghost, got %+v", out)
	}
}

func TestIngest_Validation(t *testing.T) {
	e := newEnv(t, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty list", domain.IngestRequest{}, http.StatusUnprocessableEntity},
		{"unknown action", domain.IngestRequest{Notifications: []domain.NewBulletinNotification{{UserID: "u", EntityID: "e", ActionType: "NOPE"}}}, http.StatusUnprocessableEntity},
		{"missing user", domain.IngestRequest{Notifications: []domain.NewBulletinNotification{{EntityID: "e", ActionType: domain.ActionVersionPeerReviewed}}}, http.StatusUnprocessableEntity},
		{"not json", "][", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if resp := e.do(t, http.MethodPost, "/api/v1/bulletins/notifications", tc.body); resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestFailedMaintenanceAndStats(t *testing.T) {
	e := newEnv(t, nil)
	e.repo.Seed(
		domain.Notification{ID: "f1", UserID: "u1", EntityID: "pub-1", ActionType: domain.ActionVersionPeerReviewed, Status: domain.StatusFailed},
		domain.Notification{ID: "f2", UserID: "u1", EntityID: "pub-2", ActionType: domain.ActionVersionPeerReviewed, Status: domain.StatusFailed},
		domain.Notification{ID: "p1", UserID: "u2", EntityID: "pub-1", ActionType: domain.ActionVersionPeerReviewed},
	)

	stats := decode[map[string]int](t, e.do(t, http.MethodGet, "/api/v1/bulletins/stats", nil))
	if stats["FAILED"] != 2 || stats["PENDING"] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	reset := decode[map[string]int](t, e.do(t, http.MethodPost, "/api/v1/bulletins/failed/reset", nil))
	if reset["reset"] != 2 {
		t.Fatalf("expected 2 reset, got %v", reset)
	}

	_ = e.repo.UpdateStatus(context.Background(), "p1", domain.StatusFailed)
	cleared := decode[map[string]int](t, e.do(t, http.MethodDelete, "/api/v1/bulletins/failed", nil))
	if cleared["deleted"] != 1 {
		t.Fatalf("expected 1 deleted, got %v", cleared)
	}
	if e.repo.Len() != 2 {
		t.Fatalf("expected 2 left, got %d", e.repo.Len())
	}
}
