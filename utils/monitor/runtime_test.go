package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRuntimeMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	mon := NewRuntimeMonitor(context.Background(), reg, "test", 10*time.Millisecond, zaptest.NewLogger(t))

	// the first sample is taken synchronously
	assert.Greater(t, testutil.ToFloat64(mon.metrics.goroutines), float64(0))
	assert.Greater(t, testutil.ToFloat64(mon.metrics.heapAlloc), float64(0))
	assert.GreaterOrEqual(t, testutil.ToFloat64(mon.metrics.gcPause), float64(0))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)

	time.Sleep(30 * time.Millisecond)
	mon.Stop()
}

func TestRuntimeMonitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mon := NewRuntimeMonitor(ctx, prometheus.NewRegistry(), "test", 0, nil)
	assert.Equal(t, DefaultInterval, mon.interval)

	cancel()
	done := make(chan struct{})
	go func() {
		mon.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
