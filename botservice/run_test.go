package botservice

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurujiofficial51-wq/info1/internal/config"
	"github.com/gurujiofficial51-wq/info1/internal/dispatch"
)

type flipHealth struct{ calls atomic.Int32 }

// Evaluate reports healthy from the third call on.
func (f *flipHealth) Evaluate() bool { return f.calls.Add(1) >= 3 }

type neverHealthy struct{}

func (neverHealthy) Evaluate() bool { return false }

func TestWaitUntilHealthy(t *testing.T) {
	cfg := config.NewForTesting()
	f := &flipHealth{}
	require.NoError(t, waitUntilHealthy(context.Background(), cfg, f))
	assert.GreaterOrEqual(t, f.calls.Load(), int32(3))
}

func TestWaitUntilHealthy_Timeout(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.BootstrapTimeoutSecs = 0
	err := waitUntilHealthy(context.Background(), cfg, neverHealthy{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not healthy")
}

func TestWaitUntilHealthy_Cancelled(t *testing.T) {
	cfg := config.NewForTesting()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitUntilHealthy(ctx, cfg, neverHealthy{}), context.Canceled)
}

func TestNewExecutor_ReportsFailures(t *testing.T) {
	cfg := config.NewForTesting()
	exec := newExecutor(cfg, zerolog.Nop())
	var ran atomic.Bool
	require.NoError(t, exec.Submit(context.Background(), "1", dispatch.JobFunc(func(context.Context) error {
		ran.Store(true)
		return errors.New("boom")
	})))
	exec.Stop()
	assert.True(t, ran.Load())
}

func TestServeOps_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := newOpsServer(ctx, "127.0.0.1:0", http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- serveOps(ctx, srv, zerolog.Nop()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serveOps did not return")
	}
}
