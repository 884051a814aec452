package process

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"time"

	gproc "github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

// TableSource reads processes through gopsutil. Per-field failures leave the
// field empty; processes that exit mid-walk are dropped.
type TableSource struct {
	log *zap.Logger
}

func NewSource(log *zap.Logger) *TableSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &TableSource{log: log}
}

func (t *TableSource) List(ctx context.Context) ([]model.ProcessInfo, error) {
	procs, err := gproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, winerr.Classify("EnumProcesses", "Process", "", err)
	}
	out := make([]model.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, ok := t.describe(ctx, p)
		if !ok {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (t *TableSource) Get(ctx context.Context, pid int32) (model.ProcessInfo, error) {
	p, err := gproc.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, gproc.ErrorProcessNotRunning) {
			return model.ProcessInfo{}, winerr.NotFound("Process", itoa(pid))
		}
		return model.ProcessInfo{}, winerr.Classify("OpenProcess", "Process", itoa(pid), err)
	}
	info, ok := t.describe(ctx, p)
	if !ok {
		return model.ProcessInfo{}, winerr.NotFound("Process", itoa(pid))
	}
	return info, nil
}

func (t *TableSource) describe(ctx context.Context, p *gproc.Process) (model.ProcessInfo, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		if running, rerr := p.IsRunningWithContext(ctx); rerr == nil && !running {
			return model.ProcessInfo{}, false
		}
		t.log.Debug("process name unavailable", zap.Int32("pid", p.Pid), zap.Error(err))
	}
	info := model.ProcessInfo{ProcessID: p.Pid, Name: trimExe(name)}

	if v, err := p.CmdlineWithContext(ctx); err == nil {
		info.CommandLine = v
	}
	if v, err := p.ExeWithContext(ctx); err == nil {
		info.ExecutablePath = v
	}
	if v, err := p.CwdWithContext(ctx); err == nil {
		info.WorkingDirectory = v
	}
	if v, err := p.PpidWithContext(ctx); err == nil {
		info.ParentProcessID = &v
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
		st := time.UnixMilli(ms)
		info.StartTime = &st
	}
	if v, err := p.UsernameWithContext(ctx); err == nil {
		info.UserName = v
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.WorkingSetBytes = mem.RSS
		info.VirtualMemoryBytes = mem.VMS
		// on Windows VMS is the pagefile-backed private commit
		if runtime.GOOS == "windows" {
			info.PrivateMemoryBytes = mem.VMS
		} else {
			info.PrivateMemoryBytes = mem.RSS
		}
	}
	if v, err := p.CPUPercentWithContext(ctx); err == nil {
		info.CPUPercent = v
	}
	if v, err := p.NumThreadsWithContext(ctx); err == nil {
		info.ThreadCount = v
	}
	if v, err := p.NumFDsWithContext(ctx); err == nil {
		info.HandleCount = v
	}
	if runtime.GOOS == "windows" {
		if v, err := p.NiceWithContext(ctx); err == nil {
			info.Priority = PriorityName(v)
		}
	}
	return info, true
}

func trimExe(name string) string {
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}

func itoa(pid int32) string { return strconv.Itoa(int(pid)) }
