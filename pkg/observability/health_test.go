package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func TestHealthChecker_NoDependencies(t *testing.T) {
	h := NewHealthChecker(nil, nil)

	status := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Empty(t, status.Dependencies)
}

func TestHealthChecker_StoreFailureIsUnhealthy(t *testing.T) {
	h := NewHealthChecker(&stubPinger{err: errors.New("disk gone")}, nil)

	status := h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["directory_store"].Status)
	assert.Contains(t, status.Dependencies["directory_store"].Message, "disk gone")
}

func TestHealthChecker_RedisFailureOnlyDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := NewHealthChecker(&stubPinger{}, client)

	status := h.Check(context.Background())
	require.Equal(t, StatusHealthy, status.Status)

	mr.Close()
	status = h.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["directory_store"].Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(&stubPinger{err: errors.New("down")}, nil)

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest("GET", "/healthz", nil))

	// Liveness ignores dependencies; it only reports that the process is up.
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := NewHealthChecker(&stubPinger{}, nil)
		w := httptest.NewRecorder()
		h.Readiness(w, httptest.NewRequest("GET", "/readyz", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, StatusHealthy, status.Status)
	})

	t.Run("not ready", func(t *testing.T) {
		h := NewHealthChecker(&stubPinger{err: errors.New("down")}, nil)
		w := httptest.NewRecorder()
		h.Readiness(w, httptest.NewRequest("GET", "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
