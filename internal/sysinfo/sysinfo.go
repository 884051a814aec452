// Package sysinfo assembles a host overview: OS identity, boot time, user
// context, processors and memory.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/registry"
)

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

type Service struct {
	hive registry.Hive
	log  *zap.Logger

	now           func() time.Time
	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	currentUser   func() (name, domain string)
	numCPU        func() int
}

func NewService(hive registry.Hive, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		hive:          hive,
		log:           log,
		now:           time.Now,
		hostInfo:      host.InfoWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		currentUser:   currentUser,
		numCPU:        runtime.NumCPU,
	}
}

// Info collects the overview. Probes that fail leave their fields empty.
func (s *Service) Info(ctx context.Context) (model.SystemInfo, error) {
	info := model.SystemInfo{ProcessorCount: s.numCPU()}
	info.UserName, info.UserDomain = s.currentUser()

	h, err := s.hostInfo(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return info, ctx.Err()
		}
		s.log.Warn("host info unavailable", zap.Error(err))
		h = &host.InfoStat{}
	}
	info.ComputerName = h.Hostname
	if info.ComputerName == "" {
		info.ComputerName, _ = os.Hostname()
	}
	info.OSArchitecture = Architecture(h.KernelArch)
	info.OSName, info.OSVersion, info.OSBuild = h.Platform, h.PlatformVersion, h.KernelVersion
	if name, version, build, ok := s.windowsVersion(); ok {
		info.OSName, info.OSVersion, info.OSBuild = name, version, build
	}

	if h.BootTime > 0 {
		info.LastBootTime = time.Unix(int64(h.BootTime), 0)
		up := s.now().Sub(info.LastBootTime)
		if up < 0 {
			up = 0
		}
		info.UptimeSeconds = uint64(up / time.Second)
		info.Uptime = FormatUptime(up)
	}

	if vm, err := s.virtualMemory(ctx); err == nil && vm != nil {
		info.TotalMemoryMB = vm.Total / (1024 * 1024)
		info.AvailableMemoryMB = vm.Available / (1024 * 1024)
	} else if err != nil {
		s.log.Warn("memory info unavailable", zap.Error(err))
	}
	return info, nil
}

// windowsVersion reads the product identity recorded by setup.
func (s *Service) windowsVersion() (name, version, build string, ok bool) {
	if s.hive == nil {
		return "", "", "", false
	}
	k, err := s.hive.Open(registry.LocalMachine, currentVersionKey)
	if err != nil {
		s.log.Debug("CurrentVersion key unavailable", zap.Error(err))
		return "", "", "", false
	}
	defer k.Close()

	str := func(n string) string {
		v, err := k.Value(n)
		if err != nil {
			return ""
		}
		out, _ := v.Data.(string)
		return out
	}
	name = str("ProductName")
	if name == "" {
		name = "Windows"
	}
	version = str("DisplayVersion")
	build = str("CurrentBuild")
	if v, err := k.Value("UBR"); err == nil {
		switch n := v.Data.(type) {
		case uint32:
			build += "." + strconv.FormatUint(uint64(n), 10)
		case uint64:
			build += "." + strconv.FormatUint(n, 10)
		}
	}
	return name, version, build, true
}

// FormatUptime renders d.hh:mm:ss, omitting the day part when zero.
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hms := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	if days == 0 {
		return hms
	}
	return fmt.Sprintf("%d.%s", days, hms)
}

// Architecture normalizes kernel architecture names.
func Architecture(kernelArch string) string {
	arch := strings.ToLower(kernelArch)
	if arch == "" {
		arch = runtime.GOARCH
	}
	switch arch {
	case "x86_64", "amd64", "x64":
		return "X64"
	case "arm64", "aarch64":
		return "Arm64"
	case "386", "i386", "i686", "x86":
		return "X86"
	case "arm":
		return "Arm"
	}
	return kernelArch
}

func currentUser() (string, string) {
	name, domain := os.Getenv("USERNAME"), os.Getenv("USERDOMAIN")
	if u, err := user.Current(); err == nil {
		if d, n, ok := strings.Cut(u.Username, `\`); ok {
			return n, d
		}
		name = u.Username
	}
	if domain == "" {
		domain, _ = os.Hostname()
	}
	return name, domain
}
