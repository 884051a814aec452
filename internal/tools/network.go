package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

type testConnectionParams struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	TimeoutMs int    `json:"timeoutMs" validate:"gt=0"`
}

type resolveDNSParams struct {
	HostName string `json:"hostName"`
}

type printerParams struct {
	PrinterName string `json:"printerName"`
}

func (s *Server) registerNetwork() {
	nw := s.deps.Network
	if nw == nil {
		return
	}

	register(s, newTool("test_connection", "Tests TCP connectivity to a host and port",
		mcp.WithString("host", mcp.Required(),
			mcp.Description("The hostname or IP address to connect to")),
		mcp.WithNumber("port", mcp.Required(), mcp.Description("The TCP port to connect to")),
		mcp.WithNumber("timeoutMs",
			mcp.Description("Timeout in milliseconds (default: 5000)"), mcp.DefaultNumber(5000)),
	), testConnectionParams{TimeoutMs: 5000},
		func(ctx context.Context, p testConnectionParams) (any, error) {
			return nw.TestConnection(ctx, p.Host, p.Port, time.Duration(p.TimeoutMs)*time.Millisecond)
		})

	register(s, newTool("resolve_dns", "Resolves a hostname to IP addresses",
		mcp.WithString("hostName", mcp.Required(), mcp.Description("The hostname to resolve")),
	), resolveDNSParams{},
		func(ctx context.Context, p resolveDNSParams) (any, error) {
			return nw.ResolveDNS(ctx, p.HostName)
		})

	register(s, newTool("get_network_adapters", "Gets information about all network adapters"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return nw.Adapters(ctx)
		})
}

func (s *Server) registerPrinting() {
	pr := s.deps.Printing
	if pr == nil {
		return
	}

	register(s, newTool("list_printers", "Lists all installed printers on the system"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return pr.Printers(ctx)
		})

	register(s, newTool("get_printer", "Gets detailed information about a specific printer",
		mcp.WithString("printerName", mcp.Required(), mcp.Description("The name of the printer")),
	), printerParams{},
		func(ctx context.Context, p printerParams) (any, error) {
			return pr.Printer(ctx, p.PrinterName)
		})

	register(s, newTool("get_print_jobs", "Gets print jobs for a specific printer",
		mcp.WithString("printerName", mcp.Required(), mcp.Description("The name of the printer")),
	), printerParams{},
		func(ctx context.Context, p printerParams) (any, error) {
			return pr.Jobs(ctx, p.PrinterName)
		})

	register(s, newTool("get_all_print_jobs", "Gets all print jobs across all printers"),
		noParams{},
		func(ctx context.Context, _ noParams) (any, error) {
			return pr.AllJobs(ctx)
		})
}
