package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/sanitizer"
)

type noParams struct{}

// newTool builds a read-only tool definition.
func newTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	return mcp.NewTool(name, append(base, opts...)...)
}

type queryEventLogParams struct {
	LogName              string  `json:"logName"`
	Level                string  `json:"level"`
	Source               string  `json:"source"`
	MaxResults           int     `json:"maxResults" validate:"gt=0"`
	ReverseChronological bool    `json:"reverseChronological"`
	StartTime            *string `json:"startTime"`
	EndTime              *string `json:"endTime"`
}

type summarizeEventLogParams struct {
	LogName   string  `json:"logName"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	MaxEvents int     `json:"maxEvents" validate:"gt=0"`
}

func (s *Server) registerEventLog() {
	events := s.deps.Events
	if events == nil {
		return
	}

	register(s, newTool("list_event_logs", "Lists all available Windows Event Log names"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return events.ListLogs(ctx)
		})

	register(s, newTool("query_event_log", "Queries events from a Windows Event Log",
		mcp.WithString("logName", mcp.Required(),
			mcp.Description("Name of the event log (e.g., System, Application, Security)")),
		mcp.WithString("level",
			mcp.Description("Filter by level: Critical, Error, Warning, Information, Verbose")),
		mcp.WithString("source",
			mcp.Description("Filter by event source/provider name")),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of events to return"), mcp.DefaultNumber(50)),
		mcp.WithBoolean("reverseChronological",
			mcp.Description("If true, returns most recent events first (default: true)"), mcp.DefaultBool(true)),
		mcp.WithString("startTime",
			mcp.Description("Filter for events after this time (ISO 8601 format, e.g., 2026-01-12T10:00:00)")),
		mcp.WithString("endTime",
			mcp.Description("Filter for events before this time (ISO 8601 format, e.g., 2026-01-12T12:00:00)")),
	), queryEventLogParams{MaxResults: 50, ReverseChronological: true},
		func(ctx context.Context, p queryEventLogParams) (any, error) {
			start, err := s.parseTime("startTime", p.StartTime)
			if err != nil {
				return nil, err
			}
			end, err := s.parseTime("endTime", p.EndTime)
			if err != nil {
				return nil, err
			}
			out, err := events.Query(ctx, eventlog.Filter{
				LogName:    p.LogName,
				Level:      p.Level,
				Source:     p.Source,
				MaxResults: p.MaxResults,
				Reverse:    p.ReverseChronological,
				Start:      start,
				End:        end,
			})
			if err != nil {
				return nil, err
			}
			if s.opts.Redact {
				sanitizer.MaskEvents(out)
			}
			return out, nil
		})

	register(s, newTool("summarize_event_log", "Summarizes a Windows Event Log by level, event ID and source",
		mcp.WithString("logName", mcp.Required(),
			mcp.Description("Name of the event log (e.g., System, Application)")),
		mcp.WithString("startTime",
			mcp.Description("Only count events after this time (ISO 8601 format)")),
		mcp.WithString("endTime",
			mcp.Description("Only count events before this time (ISO 8601 format)")),
		mcp.WithNumber("maxEvents",
			mcp.Description("Maximum number of recent events to scan (default: 500)"), mcp.DefaultNumber(500)),
	), summarizeEventLogParams{MaxEvents: 500},
		func(ctx context.Context, p summarizeEventLogParams) (any, error) {
			start, err := s.parseTime("startTime", p.StartTime)
			if err != nil {
				return nil, err
			}
			end, err := s.parseTime("endTime", p.EndTime)
			if err != nil {
				return nil, err
			}
			sum, err := events.Summarize(ctx, p.LogName, start, end, p.MaxEvents)
			if err != nil {
				return nil, err
			}
			if s.opts.Redact {
				sanitizer.MaskEvents(sum.Recent)
			}
			return sum, nil
		})
}
