package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"wininvestigator/internal/filelog"
	"wininvestigator/internal/sanitizer"
)

type discoverLogsParams struct {
	IncludeSystemLogs bool `json:"includeSystemLogs"`
	MaxFiles          int  `json:"maxFiles" validate:"gt=0"`
}

type readLogParams struct {
	Path          string `json:"path"`
	TailLines     *int   `json:"tailLines" validate:"omitempty,gt=0"`
	SearchPattern string `json:"searchPattern"`
	MaxLines      int    `json:"maxLines" validate:"gt=0"`
}

type registryKeyParams struct {
	Path string `json:"path"`
}

type registryValueParams struct {
	Path      string `json:"path"`
	ValueName string `json:"valueName"`
}

type registrySearchParams struct {
	BasePath   string `json:"basePath"`
	Pattern    string `json:"pattern"`
	MaxResults int    `json:"maxResults" validate:"gt=0"`
}

func (s *Server) registerFileLogs() {
	logs := s.deps.Logs
	if logs == nil {
		return
	}

	register(s, newTool("discover_logs", "Discovers log files in common Windows locations",
		mcp.WithBoolean("includeSystemLogs",
			mcp.Description("Include system log locations like C:\\Windows\\Logs (default: true)"), mcp.DefaultBool(true)),
		mcp.WithNumber("maxFiles",
			mcp.Description("Maximum number of files to return (default: 100)"), mcp.DefaultNumber(100)),
	), discoverLogsParams{IncludeSystemLogs: true, MaxFiles: 100},
		func(ctx context.Context, p discoverLogsParams) (any, error) {
			return logs.Discover(ctx, p.IncludeSystemLogs, p.MaxFiles)
		})

	register(s, newTool("read_log", "Reads content from a log file",
		mcp.WithString("path", mcp.Required(), mcp.Description("Full path to the log file")),
		mcp.WithNumber("tailLines",
			mcp.Description("Number of lines to read from end of file (omit to read from start)")),
		mcp.WithString("searchPattern", mcp.Description("Regex pattern to filter lines")),
		mcp.WithNumber("maxLines",
			mcp.Description("Maximum number of lines to return (default: 500)"), mcp.DefaultNumber(500)),
	), readLogParams{MaxLines: 500},
		func(ctx context.Context, p readLogParams) (any, error) {
			opts := filelog.ReadOptions{Pattern: p.SearchPattern, MaxLines: p.MaxLines}
			if p.TailLines != nil {
				opts.Tail = *p.TailLines
			}
			out, err := logs.ReadLog(ctx, p.Path, opts)
			if err != nil {
				return nil, err
			}
			if s.opts.Redact {
				out.Lines = sanitizer.MaskLines(out.Lines)
			}
			return out, nil
		})
}

func (s *Server) registerRegistry() {
	reg := s.deps.Registry
	if reg == nil {
		return
	}

	register(s, newTool("get_registry_key", "Gets information about a registry key including subkeys and values",
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Registry path (e.g., HKLM\\SOFTWARE\\Microsoft, HKCU\\Software)")),
	), registryKeyParams{},
		func(ctx context.Context, p registryKeyParams) (any, error) {
			return reg.GetKey(ctx, p.Path)
		})

	register(s, newTool("get_registry_value", "Gets a specific value from a registry key",
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Registry path (e.g., HKLM\\SOFTWARE\\Microsoft)")),
		mcp.WithString("valueName", mcp.Required(),
			mcp.Description("Name of the value (empty string for default value)")),
	), registryValueParams{},
		func(ctx context.Context, p registryValueParams) (any, error) {
			return reg.GetValue(ctx, p.Path, p.ValueName)
		})

	register(s, newTool("search_registry_keys", "Searches for registry keys matching a pattern",
		mcp.WithString("basePath", mcp.Required(),
			mcp.Description("Base registry path to search from (e.g., HKLM\\SOFTWARE)")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Regex pattern to match key names")),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results (default: 100)"), mcp.DefaultNumber(100)),
	), registrySearchParams{MaxResults: 100},
		func(ctx context.Context, p registrySearchParams) (any, error) {
			return reg.SearchKeys(ctx, p.BasePath, p.Pattern, p.MaxResults)
		})

	register(s, newTool("search_registry_values", "Searches for registry values matching a pattern",
		mcp.WithString("basePath", mcp.Required(),
			mcp.Description("Base registry path to search from (e.g., HKLM\\SOFTWARE)")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Regex pattern to match value names or data")),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results (default: 100)"), mcp.DefaultNumber(100)),
	), registrySearchParams{MaxResults: 100},
		func(ctx context.Context, p registrySearchParams) (any, error) {
			return reg.SearchValues(ctx, p.BasePath, p.Pattern, p.MaxResults)
		})
}
