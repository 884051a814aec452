package perf

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
)

// Sampler builds performance snapshots from gopsutil. Rates are deltas over
// Interval. Individual probes that fail leave their fields at zero.
type Sampler struct {
	Interval time.Duration
	log      *zap.Logger

	now           func() time.Time
	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskIO        func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)
	netIO         func(ctx context.Context, pernic bool) ([]gnet.IOCountersStat, error)
	pids          func(ctx context.Context) ([]int32, error)
	totals        func(ctx context.Context) (threads, handles int64, err error)
}

func NewSampler(interval time.Duration, counters CounterSource, log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{
		Interval:      interval,
		log:           log,
		now:           time.Now,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskIO:        disk.IOCountersWithContext,
		netIO:         gnet.IOCountersWithContext,
		pids:          process.PidsWithContext,
		totals:        objectTotals(counters, interval),
	}
}

type ioTotals struct {
	diskRead, diskWrite uint64
	netSent, netRecv    uint64
}

func (s *Sampler) io(ctx context.Context) ioTotals {
	var t ioTotals
	if disks, err := s.diskIO(ctx); err == nil {
		for _, d := range disks {
			t.diskRead += d.ReadBytes
			t.diskWrite += d.WriteBytes
		}
	} else {
		s.log.Debug("disk counters unavailable", zap.Error(err))
	}
	if nics, err := s.netIO(ctx, false); err == nil {
		for _, n := range nics {
			t.netSent += n.BytesSent
			t.netRecv += n.BytesRecv
		}
	} else {
		s.log.Debug("network counters unavailable", zap.Error(err))
	}
	return t
}

func (s *Sampler) Snapshot(ctx context.Context) (model.PerformanceSnapshot, error) {
	snap := model.PerformanceSnapshot{Timestamp: s.now()}

	before, t0 := s.io(ctx), s.now()
	if pct, err := s.cpuPercent(ctx, s.Interval, false); err == nil && len(pct) > 0 {
		snap.CPUUsagePercent = pct[0]
	} else if err != nil {
		s.log.Debug("cpu percent unavailable", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return model.PerformanceSnapshot{}, err
	}
	after, t1 := s.io(ctx), s.now()
	if secs := t1.Sub(t0).Seconds(); secs > 0 {
		snap.DiskReadBytesPerSec = rate(before.diskRead, after.diskRead, secs)
		snap.DiskWriteBytesPerSec = rate(before.diskWrite, after.diskWrite, secs)
		snap.NetworkSentBytesPerSec = rate(before.netSent, after.netSent, secs)
		snap.NetworkReceivedBytesPerSec = rate(before.netRecv, after.netRecv, secs)
	}

	if vm, err := s.virtualMemory(ctx); err == nil && vm != nil {
		snap.TotalMemoryBytes = vm.Total
		snap.AvailableMemoryBytes = vm.Available
		if vm.Total > 0 && vm.Available <= vm.Total {
			snap.MemoryUsagePercent = float64(vm.Total-vm.Available) * 100 / float64(vm.Total)
		}
	}
	if pids, err := s.pids(ctx); err == nil {
		snap.ProcessCount = len(pids)
	}
	if s.totals != nil {
		if threads, handles, err := s.totals(ctx); err == nil {
			snap.ThreadCount, snap.HandleCount = threads, handles
		} else {
			s.log.Debug("thread and handle totals unavailable", zap.Error(err))
		}
	}
	return snap, nil
}

// rate is the per-second delta between two monotonically increasing totals.
// A counter reset yields zero.
func rate(before, after uint64, secs float64) float64 {
	if after < before {
		return 0
	}
	return float64(after-before) / secs
}

// processTotals sums thread and handle counts over the process table.
func processTotals(ctx context.Context) (int64, int64, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	var threads, handles int64
	for _, p := range procs {
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			threads += int64(n)
		}
		if n, err := p.NumFDsWithContext(ctx); err == nil {
			handles += int64(n)
		}
	}
	return threads, handles, nil
}
