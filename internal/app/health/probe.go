// Package health aggregates dependency and host diagnostics for the voice
// service.
package health

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"tutor-voice-server/internal/domain/voicecache"
	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/platform/observability"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Pipeline is the part of the orchestrator the probe inspects.
type Pipeline interface {
	SynthesisAvailable(ctx context.Context) error
	LipSyncAvailable() bool
	InFlight() int64
}

// Cache is the part of the artifact cache the probe inspects.
type Cache interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (voicecache.Stats, error)
}

// SystemReport describes the host process.
type SystemReport struct {
	Goroutines        int     `json:"goroutines"`
	HeapAllocMB       float64 `json:"heap_alloc_mb"`
	MemoryTotalMB     float64 `json:"memory_total_mb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
}

// Report is the health snapshot returned by Check.
type Report struct {
	Status               string       `json:"status"`
	SynthesisAvailable   bool         `json:"synthesis_available"`
	SynthesisError       string       `json:"synthesis_error,omitempty"`
	LipSyncToolAvailable bool         `json:"lipsync_tool_available"`
	CacheStoreReachable  bool         `json:"cache_store_reachable"`
	CacheDriver          string       `json:"cache_driver"`
	CacheEntryCount      int64        `json:"cache_entry_count"`
	ApproximateHitRate   float64      `json:"approximate_hit_rate"`
	InFlight             int64        `json:"in_flight"`
	System               SystemReport `json:"system"`
	// Metrics is empty unless observability is enabled.
	Metrics   []observability.Series `json:"metrics,omitempty"`
	CheckedAt time.Time              `json:"checked_at"`
}

// Probe runs the checks. Each check gets its own timeout, and Check itself
// never fails.
type Probe struct {
	pipeline Pipeline
	cache    Cache
	timeout  time.Duration
	logger   *logging.Logger
	system   func(ctx context.Context) SystemReport
	now      func() time.Time
}

// NewProbe 创建健康检查探针
func NewProbe(pipeline Pipeline, cache Cache, timeout time.Duration, logger *logging.Logger) *Probe {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Probe{
		pipeline: pipeline,
		cache:    cache,
		timeout:  timeout,
		logger:   logger,
		system:   collectSystem,
		now:      time.Now,
	}
}

// Check runs all checks concurrently.
func (p *Probe) Check(ctx context.Context) Report {
	report := Report{CheckedAt: p.now().UTC()}
	var g errgroup.Group

	if p.pipeline != nil {
		report.LipSyncToolAvailable = p.pipeline.LipSyncAvailable()
		report.InFlight = p.pipeline.InFlight()

		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			if err := p.pipeline.SynthesisAvailable(cctx); err != nil {
				p.logger.WarnTag("Health", "synthesis check failed: %v", err)
				report.SynthesisError = "speech provider unreachable"
				return nil
			}
			report.SynthesisAvailable = true
			return nil
		})
	}

	if p.cache != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			if err := p.cache.Ping(cctx); err != nil {
				p.logger.WarnTag("Health", "cache ping failed: %v", err)
				return nil
			}
			report.CacheStoreReachable = true

			st, err := p.cache.Stats(cctx)
			report.CacheDriver = st.Driver
			report.ApproximateHitRate = st.HitRate
			if err != nil {
				p.logger.WarnTag("Health", "cache stats failed: %v", err)
				return nil
			}
			report.CacheEntryCount = st.Entries
			return nil
		})
	}

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		report.System = p.system(cctx)
		return nil
	})

	_ = g.Wait()
	report.Metrics = observability.Snapshot()

	report.Status = StatusOK
	if !report.SynthesisAvailable || !report.CacheStoreReachable {
		report.Status = StatusDegraded
	}
	return report
}

func collectSystem(ctx context.Context) SystemReport {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sr := SystemReport{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / 1024 / 1024,
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sr.MemoryTotalMB = float64(vm.Total) / 1024 / 1024
		sr.MemoryUsedPercent = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		sr.CPUPercent = pct[0]
	}
	return sr
}
