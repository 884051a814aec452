// Package tools exposes the investigation services as MCP tools. Each tool
// decodes its arguments into a parameter struct, calls one service operation
// and returns the result as JSON text.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

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
	"wininvestigator/internal/updates"
	"wininvestigator/internal/winerr"
)

// Deps holds the services behind the tools. A nil service leaves its tools
// unregistered.
type Deps struct {
	Events      *eventlog.Service
	System      *sysinfo.Service
	Services    *service.Service
	Network     *network.Service
	Printing    *printing.Service
	Logs        *filelog.Service
	Registry    *registry.Service
	Processes   *process.Service
	Perf        *perf.Service
	Tasks       *tasks.Service
	Reliability *reliability.Service
	Updates     *updates.Service
}

type Options struct {
	// Redact masks addresses and account names in returned text.
	Redact bool
	// Location applies to time arguments without a zone. Defaults to time.Local.
	Location *time.Location
}

type Server struct {
	mcp      *server.MCPServer
	deps     Deps
	opts     Options
	log      *zap.Logger
	metrics  *telemetry.Metrics
	validate *validator.Validate

	handlers map[string]server.ToolHandlerFunc
	catalog  []mcp.Tool
}

// New builds the MCP server and registers every tool whose service is set.
func New(name, version string, deps Deps, opts Options, log *zap.Logger, metrics *telemetry.Metrics) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		deps:     deps,
		opts:     opts,
		log:      log,
		metrics:  metrics,
		validate: newValidator(),
		handlers: make(map[string]server.ToolHandlerFunc),
	}
	s.registerEventLog()
	s.registerSystem()
	s.registerNetwork()
	s.registerPrinting()
	s.registerFileLogs()
	s.registerRegistry()
	s.registerProcesses()
	s.registerPerformance()
	s.registerTasks()
	s.registerReliability()
	s.registerUpdates()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Tools returns the registered tool definitions in registration order.
func (s *Server) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Call invokes a tool the same way the protocol server does.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

// register adds tool with a handler that decodes arguments onto a copy of
// defaults, validates them and runs fn.
func register[P any](s *Server, tool mcp.Tool, defaults P, fn func(ctx context.Context, p P) (any, error)) {
	h := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.invoke(ctx, tool.Name, func(ctx context.Context) (any, error) {
			p := defaults
			if err := s.decode(req.GetArguments(), &p); err != nil {
				return nil, err
			}
			return fn(ctx, p)
		}), nil
	}
	s.mcp.AddTool(tool, h)
	s.handlers[tool.Name] = h
	s.catalog = append(s.catalog, tool)
}

func (s *Server) invoke(ctx context.Context, name string, run func(context.Context) (any, error)) *mcp.CallToolResult {
	log := s.log.With(zap.String("tool", name), zap.String("request_id", uuid.NewString()))
	log.Debug("tool call started")
	start := time.Now()

	out, err := run(ctx)
	var text []byte
	if err == nil {
		text, err = encode(out)
	}
	d := time.Since(start)

	if err != nil {
		kind := winerr.KindOf(err)
		if kind == "" {
			log.Error("tool call failed", zap.Duration("duration", d), zap.Error(err))
			kind = winerr.KindPlatformAPI
		} else {
			log.Warn("tool call failed",
				zap.Duration("duration", d),
				zap.String("error_kind", string(kind)),
				zap.Error(err),
			)
		}
		s.metrics.Observe(name, outcome(kind), d)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, err.Error()))
	}

	log.Info("tool call completed", zap.Duration("duration", d), zap.Int("result_count", resultCount(out)))
	s.metrics.Observe(name, telemetry.OutcomeOK, d)
	return mcp.NewToolResultText(string(text))
}

// encode renders v as indented JSON. Nil slices render as empty arrays and
// nil pointers as null.
func encode(v any) ([]byte, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		return []byte("[]"), nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}

func resultCount(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return 0
	case reflect.Slice, reflect.Map:
		return rv.Len()
	case reflect.Pointer:
		if rv.IsNil() {
			return 0
		}
	}
	return 1
}

func outcome(k winerr.Kind) string {
	switch k {
	case winerr.KindInvalidArgument:
		return telemetry.OutcomeInvalidArgument
	case winerr.KindNotFound:
		return telemetry.OutcomeNotFound
	case winerr.KindAccessDenied:
		return telemetry.OutcomeAccessDenied
	}
	return telemetry.OutcomePlatformFailure
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// decode fills p from args and checks its validate tags.
func (s *Server) decode(args map[string]any, p any) error {
	if len(args) > 0 {
		raw, err := json.Marshal(args)
		if err != nil {
			return winerr.InvalidArgument("arguments", err.Error())
		}
		if err := json.Unmarshal(raw, p); err != nil {
			var te *json.UnmarshalTypeError
			if errors.As(err, &te) {
				return winerr.InvalidArgument(te.Field, "must be of type "+te.Type.String())
			}
			return winerr.InvalidArgument("arguments", err.Error())
		}
	}

	err := s.validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return winerr.InvalidArgument("arguments", err.Error())
	}
	fe := verrs[0]
	return winerr.InvalidArgument(fe.Field(), constraintMessage(fe))
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("fails %q", fe.Tag())
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads an optional ISO 8601 argument. Values without a zone are
// taken in the configured location.
func (s *Server) parseTime(param string, v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	str := strings.TrimSpace(*v)
	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		return &t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, str, s.opts.Location); err == nil {
			return &t, nil
		}
	}
	return nil, winerr.InvalidArgument(param, "must be an ISO 8601 date or date-time")
}
