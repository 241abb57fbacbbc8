package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/weatherdesk/degreeday/internal/adapter/http"
	"github.com/weatherdesk/degreeday/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockQuerier struct {
	models  []string
	runID   string
	records []domain.DegreeDayRecord
}

func (m *mockQuerier) Models(_ context.Context) ([]string, error) { return m.models, nil }

func (m *mockQuerier) LatestRun(_ context.Context, model string) (string, []domain.DegreeDayRecord, error) {
	if m.runID == "" {
		return "", nil, fmt.Errorf("latest run %s: %w", model, domain.ErrInsufficientHistory)
	}
	return m.runID, m.records, nil
}

func newTestServer(readyErr error, q *mockQuerier) *httpadapter.Server {
	if q == nil {
		q = &mockQuerier{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, q, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestModelsEndpoint(t *testing.T) {
	srv := newTestServer(nil, &mockQuerier{models: []string{"ecmwf", "gfs"}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"ecmwf", "gfs"}, body.Models)
}

func TestModelsEndpointEmpty(t *testing.T) {
	srv := newTestServer(nil, &mockQuerier{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[]}`, rec.Body.String())
}

func TestLatestRunEndpoint(t *testing.T) {
	date, err := domain.ParseDate("2026-01-15")
	require.NoError(t, err)

	q := &mockQuerier{
		runID: "20260114_00z",
		records: []domain.DegreeDayRecord{
			{Model: "gfs", RunID: "20260114_00z", Date: date, MeanTemp: 50, HDD: 15},
		},
	}
	srv := newTestServer(nil, q)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models/gfs/latest", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Model   string                   `json:"model"`
		RunID   string                   `json:"run_id"`
		Records []domain.DegreeDayRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gfs", body.Model)
	assert.Equal(t, "20260114_00z", body.RunID)
	require.Len(t, body.Records, 1)
	assert.Equal(t, 15.0, body.Records[0].HDD)
}

func TestLatestRunEndpointNoHistory(t *testing.T) {
	srv := newTestServer(nil, &mockQuerier{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models/icon/latest", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
