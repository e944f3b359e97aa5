// Package system samples host and process resource usage for /health.
package system

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is one resource sample. Host fields are zero when the platform
// does not expose them.
type Stats struct {
	Goroutines     int     `json:"goroutines"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	MemoryUsedMB   uint64  `json:"memory_used_mb"`
	ProcessRSSMB   uint64  `json:"process_rss_mb"`
	ProcessThreads int32   `json:"process_threads"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
}

var started = time.Now()

// Sample collects Stats. Individual probe failures leave their fields at
// zero instead of failing the sample.
func Sample(ctx context.Context) Stats {
	s := Stats{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(started).Seconds()),
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemoryPercent = vm.UsedPercent
		s.MemoryUsedMB = vm.Used >> 20
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			s.ProcessRSSMB = info.RSS >> 20
		}
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			s.ProcessThreads = n
		}
	}
	return s
}
