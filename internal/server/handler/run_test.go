package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/backtest"
	"makersim/internal/domain"
	"makersim/internal/feed"
	"makersim/internal/service"
	"makersim/internal/strategy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() *service.BacktestService {
	logger := testLogger()
	engine := backtest.NewEngine(strategy.DefaultRegistry(), logger)
	sweeper := backtest.NewSweeper(engine, logger)
	return service.NewBacktestService(feed.NewLoader(logger), engine, sweeper, nil, nil, nil, 1, logger)
}

func writeTicksCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%d,100.0,1.0,100.0,%d,%t,true\n", i+1, 1609459200000+int64(i)*1000, i%2 == 0)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

type stubStatusCache struct {
	status domain.RunStatus
	err    error
}

func (c *stubStatusCache) Set(context.Context, domain.RunStatus) error { return nil }

func (c *stubStatusCache) Get(context.Context, string) (domain.RunStatus, error) {
	return c.status, c.err
}

type stubRunStore struct {
	runs map[string]domain.RunSummary
}

func (s *stubRunStore) Insert(context.Context, domain.RunSummary) error { return nil }

func (s *stubRunStore) GetByID(_ context.Context, runID string) (domain.RunSummary, error) {
	run, ok := s.runs[runID]
	if !ok {
		return domain.RunSummary{}, domain.ErrNotFound
	}
	return run, nil
}

func (s *stubRunStore) List(context.Context, domain.ListOpts) ([]domain.RunSummary, error) {
	return nil, nil
}

func (s *stubRunStore) Count(context.Context) (int64, error) { return 0, nil }

type stubBlobReader struct {
	objects map[string][]byte
}

func (r *stubBlobReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := r.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (r *stubBlobReader) List(context.Context, string) ([]string, error) { return nil, nil }

func newMux(runs *RunHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", runs.TriggerRun)
	mux.HandleFunc("GET /api/runs/{id}/status", runs.GetRunStatus)
	mux.HandleFunc("GET /api/runs/{id}/archive", runs.GetRunArchive)
	return mux
}

func TestTriggerRun(t *testing.T) {
	h := NewRunHandler(newTestService(), nil, nil, testLogger())
	mux := newMux(h)

	body := fmt.Sprintf(`{"strategy":"fixed_spread","data_source":%q,"order_size":0.1}`, writeTicksCSV(t))
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp struct {
		RunID   string              `json:"run_id"`
		Summary domain.SummaryStats `json:"summary_stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 10, resp.Summary.TotalTrades)
}

func TestTriggerRunBadRequests(t *testing.T) {
	h := NewRunHandler(newTestService(), nil, nil, testLogger())
	mux := newMux(h)

	cases := map[string]string{
		"invalid json":        `{"strategy":`,
		"missing data source": `{"strategy":"fixed_spread","order_size":0.1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTriggerRunUnknownStrategy(t *testing.T) {
	h := NewRunHandler(newTestService(), nil, nil, testLogger())
	mux := newMux(h)

	body := fmt.Sprintf(`{"strategy":"momentum","data_source":%q,"order_size":0.1}`, writeTicksCSV(t))
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunStatus(t *testing.T) {
	cache := &stubStatusCache{status: domain.RunStatus{
		RunID: "r1",
		State: domain.RunStateRunning,
		Ticks: 500,
	}}
	h := NewRunHandler(newTestService(), cache, nil, testLogger())
	mux := newMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/r1/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, domain.RunStateRunning, got.State)
}

func TestGetRunStatusNotFound(t *testing.T) {
	cache := &stubStatusCache{err: domain.ErrNotFound}
	h := NewRunHandler(newTestService(), cache, nil, testLogger())
	mux := newMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/r1/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunStatusWithoutCache(t *testing.T) {
	h := NewRunHandler(newTestService(), nil, nil, testLogger())
	mux := newMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/r1/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetRunArchive(t *testing.T) {
	startedAt := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	logger := testLogger()
	engine := backtest.NewEngine(strategy.DefaultRegistry(), logger)
	sweeper := backtest.NewSweeper(engine, logger)
	store := &stubRunStore{runs: map[string]domain.RunSummary{
		"r1": {RunID: "r1", StartedAt: startedAt},
	}}
	svc := service.NewBacktestService(feed.NewLoader(logger), engine, sweeper, store, nil, nil, 1, logger)

	payload := `{"run_id":"r1","trades":[]}`
	blobs := &stubBlobReader{objects: map[string][]byte{
		domain.ResultBlobPath("r1", startedAt): []byte(payload),
	}}
	mux := newMux(NewRunHandler(svc, nil, blobs, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/r1/archive", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, payload, rec.Body.String())

	t.Run("unknown run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/missing/archive", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("run without archive", func(t *testing.T) {
		store.runs["r2"] = domain.RunSummary{RunID: "r2", StartedAt: startedAt}
		req := httptest.NewRequest(http.MethodGet, "/api/runs/r2/archive", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetRunArchiveWithoutBlobStore(t *testing.T) {
	mux := newMux(NewRunHandler(newTestService(), nil, nil, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/r1/archive", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseListOpts(t *testing.T) {
	mk := func(query string) *http.Request {
		return &http.Request{URL: &url.URL{RawQuery: query}}
	}

	opts := parseListOpts(mk(""))
	assert.Equal(t, 50, opts.Limit)
	assert.Zero(t, opts.Offset)
	assert.Nil(t, opts.Since)

	opts = parseListOpts(mk("limit=900&offset=20"))
	assert.Equal(t, 500, opts.Limit, "limit is capped")
	assert.Equal(t, 20, opts.Offset)

	opts = parseListOpts(mk("limit=bogus&offset=-3"))
	assert.Equal(t, 50, opts.Limit)
	assert.Zero(t, opts.Offset)

	opts = parseListOpts(mk("since=2024-01-01T00:00:00Z"))
	require.NotNil(t, opts.Since)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), opts.Since.UTC())
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
