package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startManager(t *testing.T, health Pinger) (*Manager, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	m := NewManager(cfg, reg, health, zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, reg
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestManager_Metrics(t *testing.T) {
	m, reg := startManager(t, nil)
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "truffle_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	assert.True(t, m.IsRunning())
	code, body := get(t, "http://"+m.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "truffle_test_total 1")
}

func TestManager_Healthz(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	m, _ := startManager(t, PingFunc(func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("redis down")
	}))

	code, body := get(t, "http://"+m.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	healthy.Store(false)
	code, body = get(t, "http://"+m.Addr()+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "redis down")
}

func TestManager_Lifecycle(t *testing.T) {
	m, _ := startManager(t, nil)
	assert.Error(t, m.Start(), "second start")

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.Shutdown(context.Background()), "shutdown is idempotent")
	assert.Error(t, m.Start(), "closed server cannot restart")
}
