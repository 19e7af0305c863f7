package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time snapshot of the Go runtime
type RuntimeStats struct {
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	SysBytes       uint64  `json:"sys_bytes"`
	NumGC          uint32  `json:"num_gc"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// CollectRuntime reads the runtime counters relative to startTime
func CollectRuntime(startTime time.Time) RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: m.HeapAlloc,
		SysBytes:       m.Sys,
		NumGC:          m.NumGC,
		UptimeSeconds:  time.Since(startTime).Seconds(),
	}
}

// RegisterRuntimeGauges exposes goroutine count, heap size and uptime as
// observable gauges sampled at collection time
func RegisterRuntimeGauges(meter metric.Meter, startTime time.Time) error {
	goroutines, err := meter.Int64ObservableGauge("runtime_goroutines",
		metric.WithDescription("Number of live goroutines"))
	if err != nil {
		return err
	}
	heap, err := meter.Int64ObservableGauge("runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"))
	if err != nil {
		return err
	}
	uptime, err := meter.Float64ObservableGauge("process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := CollectRuntime(startTime)
		o.ObserveInt64(goroutines, int64(stats.Goroutines))
		o.ObserveInt64(heap, int64(stats.HeapAllocBytes))
		o.ObserveFloat64(uptime, stats.UptimeSeconds)
		return nil
	}, goroutines, heap, uptime)
	return err
}
