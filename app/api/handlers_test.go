package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/jobs"
	"github.com/dkotenko/newsmill/app/ratelimit"
	"github.com/dkotenko/newsmill/app/sources"
)

type fakeBridge struct {
	lastJob string
	lastKey string
	result  *jobs.Result
	err     error
}

func (f *fakeBridge) Trigger(ctx context.Context, jobName, idempotencyKey string) (*jobs.Result, error) {
	f.lastJob = jobName
	f.lastKey = idempotencyKey
	if f.err != nil {
		return nil, f.err
	}
	if jobName != jobs.JobSyncNews && jobName != jobs.JobProcessRaw && jobName != jobs.JobTelegramPost {
		return nil, fmt.Errorf("%w: %s", jobs.ErrUnknownJob, jobName)
	}
	if f.result != nil {
		return f.result, nil
	}
	return &jobs.Result{Queued: true, Mode: "queued"}, nil
}

type stubSourceRepo struct{}

func (stubSourceRepo) GetOrCreate(url, kind, name string) (string, error) { return "", nil }
func (stubSourceRepo) Touch(sourceID string) error                        { return nil }
func (stubSourceRepo) GetByURL(url string) (*database.Source, error)      { return nil, nil }
func (stubSourceRepo) GetAll() ([]database.Source, error)                 { return nil, nil }
func (stubSourceRepo) GetCount() (int, error)                             { return 2, nil }

type stubItemRepo struct{}

func (stubItemRepo) Insert(draft database.RawItemDraft) (bool, error)     { return false, nil }
func (stubItemRepo) GetUnprocessed(limit int) ([]database.RawItem, error) { return nil, nil }
func (stubItemRepo) MarkProcessed(itemID string) error                    { return nil }
func (stubItemRepo) GetCounts() (int, int, error)                         { return 10, 3, nil }

type stubArticleRepo struct{}

func (stubArticleRepo) Insert(article database.NewArticle) (string, error)  { return "", nil }
func (stubArticleRepo) GetByID(articleID string) (*database.Article, error) { return nil, nil }
func (stubArticleRepo) SlugExists(slug string) (bool, error)                { return false, nil }
func (stubArticleRepo) MarkPosted(articleID string, messageID int64) error  { return nil }
func (stubArticleRepo) GetUnposted(limit int) ([]database.Article, error)   { return nil, nil }
func (stubArticleRepo) GetCount() (int, error)                              { return 7, nil }

type stubRunRepo struct {
	runs []database.PipelineRun
}

func (s *stubRunRepo) Create(runID string) error                              { return nil }
func (s *stubRunRepo) Finalize(runID string, update database.RunUpdate) error { return nil }

func (s *stubRunRepo) GetByID(runID string) (*database.PipelineRun, error) {
	for i := range s.runs {
		if s.runs[i].ID == runID {
			return &s.runs[i], nil
		}
	}
	return nil, nil
}

func (s *stubRunRepo) GetRecent(limit int) ([]database.PipelineRun, error) {
	return s.runs, nil
}

type stubUsageRepo struct{}

func (stubUsageRepo) Insert(record database.NewUsageRecord) (string, error) { return "", nil }

func (stubUsageRepo) AttachArticle(articleID string, usageIDs []string) error { return nil }

func (stubUsageRepo) GetRecent(limit int) ([]database.UsageRecord, error) {
	return []database.UsageRecord{
		{ID: "u-1", Model: "gpt-4o-mini", Operation: "transform_full", PromptTokens: 100, CompletionTokens: 50, Cost: 0.001},
		{ID: "u-2", Model: "gpt-4o-mini", Operation: "transform_title", PromptTokens: 40, CompletionTokens: 30, Cost: 0.0005},
	}, nil
}

func newTestServer(t *testing.T, bridge TriggerInterface, limit int) (*httptest.Server, func()) {
	t.Helper()

	handler := NewHandler(bridge, sources.NewConfigCache(t.TempDir()),
		stubSourceRepo{}, stubItemRepo{}, stubArticleRepo{},
		&stubRunRepo{runs: []database.PipelineRun{{ID: "run-1", Status: "completed"}}},
		stubUsageRepo{})

	limiter := ratelimit.NewLimiter("", "", limit, 60)
	server := httptest.NewServer(NewServer(handler, limiter, "secret-key"))

	return server, func() {
		server.Close()
		limiter.Close()
	}
}

func TestTriggerRequiresAuth(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	resp, err := http.Post(server.URL+"/api/trigger", "application/json",
		strings.NewReader(`{"operation": "sync-news"}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", resp.StatusCode)
	}
}

func TestTriggerQueuesOperation(t *testing.T) {
	bridge := &fakeBridge{}
	server, cleanup := newTestServer(t, bridge, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/trigger",
		strings.NewReader(`{"operation": "sync-news", "idempotency_key": "cron-123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	if bridge.lastJob != "sync-news" || bridge.lastKey != "cron-123" {
		t.Errorf("Bridge called with %s/%s", bridge.lastJob, bridge.lastKey)
	}
}

func TestTriggerUnknownOperation(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/trigger",
		strings.NewReader(`{"operation": "bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown operation, got %d", resp.StatusCode)
	}
}

func TestTriggerDuplicateReturnsOK(t *testing.T) {
	bridge := &fakeBridge{result: &jobs.Result{Queued: false, Mode: "duplicate"}}
	server, cleanup := newTestServer(t, bridge, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/trigger",
		strings.NewReader(`{"operation": "sync-news", "idempotency_key": "seen"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Duplicate trigger should return 200, got %d", resp.StatusCode)
	}
}

func TestRateLimitRunsBeforeAuth(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 2)
	defer cleanup()

	// Exhaust the budget with unauthenticated requests.
	for i := 0; i < 2; i++ {
		resp, err := http.Post(server.URL+"/api/trigger", "application/json",
			strings.NewReader(`{"operation": "sync-news"}`))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("Expected 401 while budget lasts, got %d", resp.StatusCode)
		}
	}

	resp, err := http.Post(server.URL+"/api/trigger", "application/json",
		strings.NewReader(`{"operation": "sync-news"}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once the budget is spent, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected 0 remaining, got %q", resp.Header.Get("X-RateLimit-Remaining"))
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Denied response must carry a Retry-After header")
	}
	if resp.Header.Get("X-RateLimit-Reset") == "" {
		t.Error("Denied response must carry the window reset time")
	}
}

func TestHealthIsPublic(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestListRunsWithAuth(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/runs", nil)
	req.Header.Set("Authorization", "Bearer secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with bearer auth, got %d", resp.StatusCode)
	}
}

func TestParseLimit(t *testing.T) {
	if got := parseLimit("", 20); got != 20 {
		t.Errorf("Empty limit should fall back, got %d", got)
	}
	if got := parseLimit("5", 20); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if got := parseLimit("100000", 20); got != 20 {
		t.Errorf("Out-of-range limit should fall back, got %d", got)
	}
	if got := parseLimit("junk", 20); got != 20 {
		t.Errorf("Bad limit should fall back, got %d", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/runs/missing", nil)
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestUsageAggregates(t *testing.T) {
	server, cleanup := newTestServer(t, &fakeBridge{}, 100)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/usage", nil)
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
