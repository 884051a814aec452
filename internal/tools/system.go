package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

type serviceNameParams struct {
	ServiceName string `json:"serviceName"`
}

type patternParams struct {
	Pattern string `json:"pattern"`
}

type processIDParams struct {
	ProcessID int32 `json:"processId"`
}

type counterParams struct {
	CategoryName string `json:"categoryName"`
	CounterName  string `json:"counterName"`
	InstanceName string `json:"instanceName"`
}

type categoryParams struct {
	CategoryName string `json:"categoryName"`
	InstanceName string `json:"instanceName"`
}

func (s *Server) registerSystem() {
	if info := s.deps.System; info != nil {
		register(s, newTool("get_system_info",
			"Gets comprehensive system information including OS version, hardware, and uptime"),
			noParams{},
			func(ctx context.Context, _ noParams) (any, error) {
				return info.Info(ctx)
			})
	}

	svcs := s.deps.Services
	if svcs == nil {
		return
	}
	register(s, newTool("list_services", "Lists all Windows services on the system"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return svcs.List(ctx)
		})

	register(s, newTool("get_service", "Gets information about a specific Windows service",
		mcp.WithString("serviceName", mcp.Required(),
			mcp.Description("The name of the service (e.g., Spooler, wuauserv)")),
	), serviceNameParams{},
		func(ctx context.Context, p serviceNameParams) (any, error) {
			return svcs.Get(ctx, p.ServiceName)
		})

	register(s, newTool("search_services", "Searches for services matching a name pattern",
		mcp.WithString("pattern", mcp.Required(),
			mcp.Description("Regex pattern to match service name or display name")),
	), patternParams{},
		func(ctx context.Context, p patternParams) (any, error) {
			return svcs.Search(ctx, p.Pattern)
		})
}

func (s *Server) registerProcesses() {
	procs := s.deps.Processes
	if procs == nil {
		return
	}

	register(s, newTool("list_processes", "Lists all running processes on the system"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return procs.List(ctx)
		})

	register(s, newTool("get_process", "Gets information about a specific process by ID",
		mcp.WithNumber("processId", mcp.Required(), mcp.Description("The process ID")),
	), processIDParams{},
		func(ctx context.Context, p processIDParams) (any, error) {
			return procs.Get(ctx, p.ProcessID)
		})

	register(s, newTool("search_processes", "Searches for processes matching a pattern",
		mcp.WithString("pattern", mcp.Required(),
			mcp.Description("Regex pattern to match process name or command line")),
	), patternParams{},
		func(ctx context.Context, p patternParams) (any, error) {
			return procs.Search(ctx, p.Pattern)
		})

	register(s, newTool("get_process_summary",
		"Gets a summary of system resource usage including top CPU and memory consumers"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return procs.Summary(ctx)
		})
}

func (s *Server) registerPerformance() {
	counters := s.deps.Perf
	if counters == nil {
		return
	}

	register(s, newTool("get_performance_snapshot",
		"Gets a snapshot of current system performance including CPU, memory, disk, and network usage"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return counters.Snapshot(ctx)
		})

	register(s, newTool("list_performance_categories", "Lists available performance counter categories"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return counters.Categories(ctx)
		})

	register(s, newTool("get_performance_counter", "Gets the value of a specific performance counter",
		mcp.WithString("categoryName", mcp.Required(),
			mcp.Description("The performance counter category name (e.g., 'Processor', 'Memory', 'PhysicalDisk')")),
		mcp.WithString("counterName", mcp.Required(),
			mcp.Description("The counter name within the category (e.g., '% Processor Time', 'Available Bytes')")),
		mcp.WithString("instanceName",
			mcp.Description("Optional instance name (e.g., '_Total' for all instances, or a specific instance)")),
	), counterParams{},
		func(ctx context.Context, p counterParams) (any, error) {
			return counters.Counter(ctx, p.CategoryName, p.CounterName, p.InstanceName)
		})

	register(s, newTool("get_category_counters", "Gets all counter values for a performance category",
		mcp.WithString("categoryName", mcp.Required(),
			mcp.Description("The performance counter category name")),
		mcp.WithString("instanceName", mcp.Description("Optional instance name")),
	), categoryParams{},
		func(ctx context.Context, p categoryParams) (any, error) {
			return counters.CategoryCounters(ctx, p.CategoryName, p.InstanceName)
		})
}
