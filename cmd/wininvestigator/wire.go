package main

import (
	"os"

	"go.uber.org/zap"

	"wininvestigator/internal/config"
	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/filelog"
	"wininvestigator/internal/network"
	"wininvestigator/internal/perf"
	"wininvestigator/internal/printing"
	"wininvestigator/internal/process"
	"wininvestigator/internal/registry"
	"wininvestigator/internal/reliability"
	"wininvestigator/internal/service"
	"wininvestigator/internal/sysinfo"
	"wininvestigator/internal/tasks"
	"wininvestigator/internal/telemetry"
	"wininvestigator/internal/tools"
	"wininvestigator/internal/updates"
)

// newToolServer connects every service to its native adapter.
func newToolServer(cfg config.Config, log *zap.Logger, metrics *telemetry.Metrics) *tools.Server {
	events := eventlog.NewSource()
	hive := registry.NewHive()
	counters := perf.NewCounterSource()
	windowsDir := filelog.WindowsDir(os.Getenv)

	deps := tools.Deps{
		Events:    eventlog.NewService(events, log.Named("eventlog")),
		System:    sysinfo.NewService(hive, log.Named("sysinfo")),
		Services:  service.NewService(service.NewSource(log.Named("services")), log.Named("services")),
		Network:   network.NewService(log.Named("network")),
		Printing:  printing.NewService(printing.NewSource(), log.Named("printing")),
		Logs:      filelog.NewService(filelog.DefaultLocations(os.Getenv), windowsDir, cfg.ExtraLogDirs, log.Named("filelog")),
		Registry:  registry.NewService(hive, log.Named("registry")),
		Processes: process.NewService(process.NewSource(log.Named("process")), log.Named("process")),
		Perf: perf.NewService(counters,
			perf.NewSampler(cfg.CounterSampleInterval, counters, log.Named("perf")),
			cfg.CounterSampleInterval, log.Named("perf")),
		Tasks:       tasks.NewService(tasks.NewScheduler(log.Named("tasks")), events, log.Named("tasks")),
		Reliability: reliability.NewService(events, log.Named("reliability")),
		Updates: updates.NewService(updates.NewHotfixSource(), hive, events,
			updates.NewLogCollector(cfg.WULogTempPath, windowsDir, cfg.MaxLogBytes, cfg.CommandTimeout, log.Named("wulog")),
			log.Named("updates")),
	}
	return tools.New(appName, version, deps, tools.Options{Redact: cfg.Redact}, log.Named("tools"), metrics)
}
