package tools

import (
	"context"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"wininvestigator/internal/model"
	"wininvestigator/internal/sanitizer"
)

type listTasksParams struct {
	IncludeHidden bool `json:"includeHidden"`
}

type taskPathParams struct {
	TaskPath string `json:"taskPath"`
}

type taskHistoryParams struct {
	TaskPath   string `json:"taskPath"`
	MaxResults int    `json:"maxResults" validate:"gt=0"`
}

type maxResultsParams struct {
	MaxResults int `json:"maxResults" validate:"gt=0"`
}

type reliabilityEventsParams struct {
	StartTime  *string `json:"startTime"`
	EndTime    *string `json:"endTime"`
	MaxResults int     `json:"maxResults" validate:"gt=0"`
}

type daysParams struct {
	Days int `json:"days" validate:"gt=0"`
}

func maxResultsOption(what string, def int) mcp.ToolOption {
	return mcp.WithNumber("maxResults",
		mcp.Description("Maximum number of "+what+" to return (default: "+strconv.Itoa(def)+")"),
		mcp.DefaultNumber(float64(def)))
}

// masked applies redaction to a reliability result.
func (s *Server) masked(events []model.ReliabilityEvent, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if s.opts.Redact {
		sanitizer.MaskReliability(events)
	}
	return events, nil
}

func (s *Server) registerTasks() {
	ts := s.deps.Tasks
	if ts == nil {
		return
	}

	register(s, newTool("list_scheduled_tasks", "Lists all scheduled tasks on the system",
		mcp.WithBoolean("includeHidden",
			mcp.Description("Include hidden tasks (default: false)"), mcp.DefaultBool(false)),
	), listTasksParams{},
		func(ctx context.Context, p listTasksParams) (any, error) {
			return ts.List(ctx, p.IncludeHidden)
		})

	register(s, newTool("get_scheduled_task", "Gets information about a specific scheduled task",
		mcp.WithString("taskPath", mcp.Required(),
			mcp.Description("The full path of the task (e.g., '\\Microsoft\\Windows\\WindowsUpdate\\Scheduled Start')")),
	), taskPathParams{},
		func(ctx context.Context, p taskPathParams) (any, error) {
			return ts.Get(ctx, p.TaskPath)
		})

	register(s, newTool("search_scheduled_tasks", "Searches for scheduled tasks matching a pattern",
		mcp.WithString("pattern", mcp.Required(),
			mcp.Description("Regex pattern to match task name, path, or description")),
	), patternParams{},
		func(ctx context.Context, p patternParams) (any, error) {
			return ts.Search(ctx, p.Pattern)
		})

	register(s, newTool("get_failed_tasks", "Gets scheduled tasks that have failed recently"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return ts.Failed(ctx)
		})

	register(s, newTool("get_task_history", "Gets the run history for a specific scheduled task",
		mcp.WithString("taskPath", mcp.Required(), mcp.Description("The full path of the task")),
		maxResultsOption("history entries", 20),
	), taskHistoryParams{MaxResults: 20},
		func(ctx context.Context, p taskHistoryParams) (any, error) {
			return ts.History(ctx, p.TaskPath, p.MaxResults)
		})
}

func (s *Server) registerReliability() {
	rel := s.deps.Reliability
	if rel == nil {
		return
	}

	register(s, newTool("get_reliability_events",
		"Gets reliability events (crashes, hangs, failures) from Reliability Monitor",
		mcp.WithString("startTime",
			mcp.Description("Start time for the query (ISO 8601 format, e.g., '2024-01-01T00:00:00'). Defaults to 30 days ago.")),
		mcp.WithString("endTime",
			mcp.Description("End time for the query (ISO 8601 format). Defaults to now.")),
		maxResultsOption("events", 50),
	), reliabilityEventsParams{MaxResults: 50},
		func(ctx context.Context, p reliabilityEventsParams) (any, error) {
			start, err := s.parseTime("startTime", p.StartTime)
			if err != nil {
				return nil, err
			}
			end, err := s.parseTime("endTime", p.EndTime)
			if err != nil {
				return nil, err
			}
			out, err := rel.Events(ctx, start, end, p.MaxResults)
			if err != nil {
				return nil, err
			}
			if s.opts.Redact {
				sanitizer.MaskReliability(out)
			}
			return out, nil
		})

	recent := []struct {
		name, desc, what string
		run              func(context.Context, int) (any, error)
	}{
		{"get_application_crashes", "Gets recent application crashes from Reliability Monitor", "crashes",
			func(ctx context.Context, n int) (any, error) { return s.masked(rel.ApplicationCrashes(ctx, n)) }},
		{"get_application_hangs", "Gets recent application hangs from Reliability Monitor", "hangs",
			func(ctx context.Context, n int) (any, error) { return s.masked(rel.ApplicationHangs(ctx, n)) }},
		{"get_system_failures", "Gets system failures (BSODs, unexpected shutdowns) from Reliability Monitor", "failures",
			func(ctx context.Context, n int) (any, error) { return s.masked(rel.SystemFailures(ctx, n)) }},
	}
	for _, r := range recent {
		register(s, newTool(r.name, r.desc, maxResultsOption(r.what, 20)),
			maxResultsParams{MaxResults: 20},
			func(ctx context.Context, p maxResultsParams) (any, error) {
				return r.run(ctx, p.MaxResults)
			})
	}

	register(s, newTool("get_reliability_scores", "Gets daily reliability scores showing system stability over time",
		mcp.WithNumber("days",
			mcp.Description("Number of days of history to retrieve (default: 30)"), mcp.DefaultNumber(30)),
	), daysParams{Days: 30},
		func(ctx context.Context, p daysParams) (any, error) {
			return rel.Scores(ctx, p.Days)
		})
}

func (s *Server) registerUpdates() {
	wu := s.deps.Updates
	if wu == nil {
		return
	}

	register(s, newTool("get_update_status",
		"Gets the current Windows Update status including pending updates and reboot requirements"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return wu.Status(ctx)
		})

	register(s, newTool("get_update_history", "Gets the history of installed Windows updates",
		maxResultsOption("updates", 50),
	), maxResultsParams{MaxResults: 50},
		func(ctx context.Context, p maxResultsParams) (any, error) {
			return wu.History(ctx, p.MaxResults)
		})

	register(s, newTool("get_pending_updates", "Gets pending Windows updates waiting to be installed"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return wu.Pending(ctx)
		})

	register(s, newTool("get_update_failures", "Gets recent Windows Update failures",
		maxResultsOption("failures", 20),
	), maxResultsParams{MaxResults: 20},
		func(ctx context.Context, p maxResultsParams) (any, error) {
			return wu.Failures(ctx, p.MaxResults)
		})

	register(s, newTool("get_windows_update_log",
		"Collects the Windows Update log and returns a summary with error lines"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			out, err := wu.Log(ctx)
			if err != nil {
				return nil, err
			}
			if s.opts.Redact {
				sanitizer.MaskUpdateLog(&out)
			}
			return out, nil
		})
}
