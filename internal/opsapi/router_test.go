package opsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurujiofficial51-wq/info1/internal/metrics"
	"github.com/gurujiofficial51-wq/info1/internal/model"
)

type stubStats struct {
	st  *model.Stats
	err error
}

func (s stubStats) Stats(context.Context) (*model.Stats, error) { return s.st, s.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	var up atomic.Bool
	r := NewRouter(up.Load, stubStats{})

	rr := get(t, r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unhealthy"`)

	up.Store(true)
	rr = get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"healthy"`)
}

func TestStats(t *testing.T) {
	r := NewRouter(func() bool { return true }, stubStats{st: &model.Stats{TotalPrincipals: 3, TotalCredits: 42}})
	rr := get(t, r, "/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var got model.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(3), got.TotalPrincipals)
	assert.Equal(t, int64(42), got.TotalCredits)

	r = NewRouter(func() bool { return true }, stubStats{err: errors.New("db down")})
	rr = get(t, r, "/stats")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestMetricsExposed(t *testing.T) {
	metrics.RefundsTotal.Inc()
	rr := get(t, NewRouter(func() bool { return true }, stubStats{}), "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "lookupbot_refunds_total"))
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":500`)
}
