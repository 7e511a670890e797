package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const report_perf_stats_cpu = "perf_stats.cpu"

type perfGauges struct {
	cpu         metric.Float64Gauge
	memory      metric.Int64Gauge
	liveObjects metric.Int64Gauge
	goroutines  metric.Int64Gauge
}

func newPerfGauges() (perfGauges, error) {
	meter := otel.Meter("eams.perf_stats")

	var g perfGauges
	var err error
	if g.cpu, err = meter.Float64Gauge("cpu_usage"); err != nil {
		return g, err
	}
	if g.memory, err = meter.Int64Gauge("allocated_mb"); err != nil {
		return g, err
	}
	if g.liveObjects, err = meter.Int64Gauge("live_objects"); err != nil {
		return g, err
	}
	if g.goroutines, err = meter.Int64Gauge("goroutine_count"); err != nil {
		return g, err
	}
	return g, nil
}

// InstrumentPerfStats records process CPU, memory and goroutine gauges every
// interval until ctx is done. It must be called after Setup so the gauges bind
// to the installed meter provider.
func InstrumentPerfStats(ctx context.Context, interval time.Duration, tel API) error {
	gauges, err := newPerfGauges()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, interval/2, false)
				if err == nil && len(cpuUsage) > 0 {
					gauges.cpu.Record(ctx, cpuUsage[0])
				} else if ctx.Err() == nil {
					tel.ReportWarning(report_perf_stats_cpu, err)
				}

				gauges.memory.Record(ctx, int64(memStats.Alloc/1_000_000))
				gauges.liveObjects.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				gauges.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
