// Package process reports running processes.
package process

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/pattern"
	"wininvestigator/internal/winerr"
)

const topN = 10

// Source reads the process table. Get returns a NotFound error when pid is
// not running.
type Source interface {
	List(ctx context.Context) ([]model.ProcessInfo, error)
	Get(ctx context.Context, pid int32) (model.ProcessInfo, error)
}

type Service struct {
	src Source
	log *zap.Logger
}

func NewService(src Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, log: log}
}

// List returns all processes ordered by name, then pid.
func (s *Service) List(ctx context.Context) ([]model.ProcessInfo, error) {
	procs, err := s.src.List(ctx)
	if err != nil {
		return nil, err
	}
	sortByName(procs)
	return procs, nil
}

// Get returns the process with pid, or nil if it is not running.
func (s *Service) Get(ctx context.Context, pid int32) (*model.ProcessInfo, error) {
	if pid <= 0 {
		return nil, winerr.InvalidArgument("processId", "Process ID must be greater than 0")
	}
	p, err := s.src.Get(ctx, pid)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Search returns processes whose name or command line matches expr.
func (s *Service) Search(ctx context.Context, expr string) ([]model.ProcessInfo, error) {
	m, err := pattern.Compile("pattern", expr)
	if err != nil {
		return nil, err
	}
	procs, err := s.src.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProcessInfo, 0)
	for _, p := range procs {
		if m.Match(p.Name) || (p.CommandLine != "" && m.Match(p.CommandLine)) {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

// Summary totals the process table and ranks the heaviest consumers.
func (s *Service) Summary(ctx context.Context) (model.ProcessSummary, error) {
	procs, err := s.List(ctx)
	if err != nil {
		return model.ProcessSummary{}, err
	}
	sum := model.ProcessSummary{TotalProcesses: len(procs)}
	for _, p := range procs {
		sum.TotalThreads += int64(p.ThreadCount)
		sum.TotalWorkingSetBytes += p.WorkingSetBytes
	}
	sum.TopCPUProcesses = top(procs, func(a, b model.ProcessInfo) bool { return a.CPUPercent > b.CPUPercent })
	sum.TopMemoryProcesses = top(procs, func(a, b model.ProcessInfo) bool { return a.WorkingSetBytes > b.WorkingSetBytes })
	return sum, nil
}

func top(procs []model.ProcessInfo, less func(a, b model.ProcessInfo) bool) []model.ProcessInfo {
	ranked := append([]model.ProcessInfo(nil), procs...)
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func sortByName(procs []model.ProcessInfo) {
	sort.SliceStable(procs, func(i, j int) bool {
		a, b := strings.ToLower(procs[i].Name), strings.ToLower(procs[j].Name)
		if a != b {
			return a < b
		}
		return procs[i].ProcessID < procs[j].ProcessID
	})
}

// PriorityName maps a Windows priority class to its display name.
func PriorityName(class int32) string {
	switch class {
	case 0x40:
		return "Idle"
	case 0x4000:
		return "BelowNormal"
	case 0x20:
		return "Normal"
	case 0x8000:
		return "AboveNormal"
	case 0x80:
		return "High"
	case 0x100:
		return "RealTime"
	}
	return ""
}
