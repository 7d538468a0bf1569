package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordEvaluation(t *testing.T) {
	m := NewMetricsService()
	m.RecordEvaluation(20*time.Millisecond, map[string]int{"student": 2, "advisor": 1, "approval": 0})
	m.RecordEvaluation(10*time.Millisecond, nil)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.EvaluationRuns)
	assert.Equal(t, uint64(3), snap.RecordFailures)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/oversight/dashboard", http.StatusOK, 5*time.Millisecond)
	m.RecordRefresh("succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "http_requests_total"))
	assert.True(t, strings.Contains(body, `oversight_risk_refresh_runs_total{status="succeeded"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordEvaluation(time.Millisecond, map[string]int{"student": 1})
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Zero(t, m.Snapshot().EvaluationRuns)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
