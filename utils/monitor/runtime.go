package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/utils"
)

// DefaultInterval is the sampling period used when none is given
const DefaultInterval = time.Second

// RuntimeMonitor samples Go runtime statistics of the sweep process into gauges
type RuntimeMonitor struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	interval time.Duration
	metrics  struct {
		goroutines  prometheus.Gauge
		heapObjects prometheus.Gauge
		heapAlloc   prometheus.Gauge
		gcPause     prometheus.Gauge
	}
	wg sync.WaitGroup
}

// NewRuntimeMonitor registers the runtime gauges with reg and starts sampling
// every interval until ctx is done or Stop is called.
func NewRuntimeMonitor(ctx context.Context, reg prometheus.Registerer, namespace string, interval time.Duration, logger *zap.Logger) *RuntimeMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &RuntimeMonitor{
		ctx:      ctx,
		cancel:   cancel,
		logger:   utils.OrNop(logger),
		interval: interval,
	}

	factory := promauto.With(reg)
	m.metrics.goroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runtime_goroutines",
		Help:      "Current number of goroutines",
	})
	m.metrics.heapObjects = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runtime_heap_objects",
		Help:      "Current number of heap objects",
	})
	m.metrics.heapAlloc = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runtime_heap_alloc_bytes",
		Help:      "Current heap allocation in bytes",
	})
	m.metrics.gcPause = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runtime_gc_pause_seconds",
		Help:      "Duration of the most recent GC pause",
	})

	m.collect()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run()
	}()

	return m
}

func (m *RuntimeMonitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *RuntimeMonitor) collect() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.metrics.goroutines.Set(float64(runtime.NumGoroutine()))
	m.metrics.heapObjects.Set(float64(memStats.HeapObjects))
	m.metrics.heapAlloc.Set(float64(memStats.HeapAlloc))
	m.metrics.gcPause.Set(time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]).Seconds())
}

// Stop ends sampling and waits for the sampler to exit
func (m *RuntimeMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Debug("Runtime monitor stopped")
}
