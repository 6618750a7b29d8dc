package browser

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/common"
)

func TestPool_NotInitialized(t *testing.T) {
	logger := arbor.NewLogger()
	pool := NewPool(common.BrowserConfig{PoolSize: 2}, logger)

	if pool.IsInitialized() {
		t.Error("Pool should not be initialized initially")
	}

	if _, _, err := pool.Get(); err == nil {
		t.Error("Get should fail before Init")
	}

	// Shutdown before Init is a no-op, not an error
	if err := pool.Shutdown(); err != nil {
		t.Errorf("Shutdown on uninitialized pool should be nil, got: %v", err)
	}
}

func TestPool_InitRejectsZeroSize(t *testing.T) {
	logger := arbor.NewLogger()
	pool := NewPool(common.BrowserConfig{PoolSize: 0}, logger)

	if err := pool.Init(); err == nil {
		t.Error("Init should reject pool_size 0")
	}
	if pool.IsInitialized() {
		t.Error("Pool should not report initialized after failed Init")
	}
}

func TestPool_ShutdownCancelsEachInstanceOnce(t *testing.T) {
	logger := arbor.NewLogger()
	pool := NewPool(common.BrowserConfig{PoolSize: 2}, logger)

	// Stand in for Init without launching Chrome: two instances whose
	// cancel funcs count invocations.
	var cancels int64
	countingCancel := func() { atomic.AddInt64(&cancels, 1) }
	pool.browsers = []context.Context{context.Background(), context.Background()}
	pool.browserCancels = []context.CancelFunc{countingCancel, countingCancel}
	pool.allocatorCancels = []context.CancelFunc{countingCancel, countingCancel}
	pool.initialized = true

	if err := pool.Shutdown(); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if got := atomic.LoadInt64(&cancels); got != 4 {
		t.Errorf("expected each cancel func called exactly once (4 total), got %d calls", got)
	}
	if pool.IsInitialized() {
		t.Error("Pool should not report initialized after Shutdown")
	}

	// A second Shutdown finds no state to clean up.
	if err := pool.Shutdown(); err != nil {
		t.Fatalf("repeated Shutdown returned error: %v", err)
	}
	if got := atomic.LoadInt64(&cancels); got != 4 {
		t.Errorf("repeated Shutdown re-ran cancellations, total calls now %d", got)
	}
}

func TestPool_Stats(t *testing.T) {
	logger := arbor.NewLogger()
	pool := NewPool(common.BrowserConfig{PoolSize: 3}, logger)

	stats := pool.Stats()
	if stats["max_instances"] != 3 {
		t.Errorf("expected max_instances 3, got %v", stats["max_instances"])
	}
	if stats["active_instances"] != 0 {
		t.Errorf("expected active_instances 0, got %v", stats["active_instances"])
	}
	if stats["initialized"] != false {
		t.Errorf("expected initialized false, got %v", stats["initialized"])
	}
}
