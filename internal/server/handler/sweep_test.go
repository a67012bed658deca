package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

type stubSweepBoard struct {
	points []domain.SweepPoint
	err    error
}

func (b *stubSweepBoard) Record(context.Context, string, domain.SweepPoint) error { return nil }

func (b *stubSweepBoard) Top(context.Context, string, int) ([]domain.SweepPoint, error) {
	return b.points, b.err
}

func newSweepMux(h *SweepHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sweeps", h.TriggerSweep)
	mux.HandleFunc("GET /api/sweeps/{id}/top", h.TopPoints)
	return mux
}

func TestTriggerSweep(t *testing.T) {
	h := NewSweepHandler(newTestService(), nil, testLogger())
	mux := newSweepMux(h)

	body := fmt.Sprintf(
		`{"data_source":%q,"order_size":0.1,"min_spread_bps":0,"max_spread_bps":20,"step_bps":10}`,
		writeTicksCSV(t),
	)
	req := httptest.NewRequest(http.MethodPost, "/api/sweeps", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.SweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SweepID)
	assert.Len(t, res.Points, 3)
	require.NotNil(t, res.Best)
}

func TestTriggerSweepBadRequests(t *testing.T) {
	h := NewSweepHandler(newTestService(), nil, testLogger())
	mux := newSweepMux(h)

	cases := map[string]string{
		"invalid json":        `{"data_source":`,
		"missing data source": `{"order_size":0.1,"step_bps":5}`,
		"invalid params":      `{"data_source":"x.csv","order_size":0.1,"step_bps":0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sweeps", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTopPoints(t *testing.T) {
	board := &stubSweepBoard{points: []domain.SweepPoint{
		{SpreadBps: 10, RunID: "r1"},
		{SpreadBps: 20, RunID: "r2"},
	}}
	h := NewSweepHandler(newTestService(), board, testLogger())
	mux := newSweepMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/sweeps/s1/top?n=2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		SweepID string              `json:"sweep_id"`
		Points  []domain.SweepPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SweepID)
	assert.Len(t, resp.Points, 2)
}

func TestTopPointsWithoutBoard(t *testing.T) {
	h := NewSweepHandler(newTestService(), nil, testLogger())
	mux := newSweepMux(h)

	req := httptest.NewRequest(http.MethodGet, "/api/sweeps/s1/top", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
