package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Service.DataDir = t.TempDir()
	cfg.Service.Port = 0 // ephemeral port
	return cfg
}

func TestDaemon_StopWhileWaiting(t *testing.T) {
	cfg := testConfig(t)

	d := NewDaemon(cfg)
	require.NoError(t, d.Start(http.NewServeMux()))

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()

	// Let Wait block on its signal select before stopping.
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked against a running Wait")
	}

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

func TestDaemon_ShutdownHooksAndPID(t *testing.T) {
	cfg := testConfig(t)

	d := NewDaemon(cfg)
	hookRan := false
	d.OnShutdown(func() { hookRan = true })

	require.NoError(t, d.Start(http.NewServeMux()))

	running, pid := IsRunning(cfg)
	require.True(t, running, "PID file must mark the daemon as running")
	assert.NotZero(t, pid)

	go d.Wait()
	time.Sleep(50 * time.Millisecond)
	d.Stop()

	assert.True(t, hookRan, "shutdown hooks must run")
	running, _ = IsRunning(cfg)
	assert.False(t, running, "PID file must be cleared on shutdown")
}
