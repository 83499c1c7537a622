package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime gauges on the OTel meter so the
// Prometheus endpoint carries process health next to the pipeline
// counters.
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcTotal    metric.Int64Gauge
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge
}

// RuntimeSnapshot holds one sample of the runtime counters.
type RuntimeSnapshot struct {
	Goroutines  int
	HeapAlloc   uint64
	HeapSys     uint64
	GCCount     uint32
	LastGCPause time.Duration
	Uptime      time.Duration
}

// NewRuntimeMetrics registers the runtime instruments on the meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	heapSys, err := meter.Int64Gauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcTotal, err := meter.Int64Gauge(
		"runtime_gc_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Pause duration of the most recent garbage collection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		heapSys:    heapSys,
		gcTotal:    gcTotal,
		gcPause:    gcPause,
		uptime:     uptime,
	}, nil
}

// Collect samples the runtime and records one data point per instrument.
// The snapshot is returned so callers can log or assert on the values.
func (m *RuntimeMetrics) Collect(ctx context.Context, started time.Time) RuntimeSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := RuntimeSnapshot{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		HeapSys:    mem.HeapSys,
		GCCount:    mem.NumGC,
		Uptime:     time.Since(started),
	}
	if mem.NumGC > 0 {
		snap.LastGCPause = time.Duration(mem.PauseNs[(mem.NumGC+255)%256])
	}

	m.goroutines.Record(ctx, int64(snap.Goroutines))
	m.heapAlloc.Record(ctx, int64(snap.HeapAlloc))
	m.heapSys.Record(ctx, int64(snap.HeapSys))
	m.gcTotal.Record(ctx, int64(snap.GCCount))
	m.uptime.Record(ctx, snap.Uptime.Seconds())
	if snap.LastGCPause > 0 {
		m.gcPause.Record(ctx, snap.LastGCPause.Seconds())
	}

	return snap
}

// RuntimeCollector samples the runtime metrics on a fixed interval until
// stopped. Stop is safe to call more than once.
type RuntimeCollector struct {
	metrics  *RuntimeMetrics
	started  time.Time
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRuntimeCollector builds a collector that samples every interval.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		metrics:  metrics,
		started:  time.Now(),
		interval: interval,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start samples immediately and then on every tick. It blocks until Stop
// is called or the context is cancelled; run it on its own goroutine.
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.started)

	for {
		select {
		case <-ticker.C:
			c.metrics.Collect(ctx, c.started)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the sampling loop.
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Snapshot records one sample outside the loop and returns it.
func (c *RuntimeCollector) Snapshot(ctx context.Context) RuntimeSnapshot {
	return c.metrics.Collect(ctx, c.started)
}
