package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wininvestigator/internal/telemetry"
)

var callArgs string

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := newToolServer(cfg, logger, nil)
			return writeJSON(cmd, srv.Tools())
		},
	}

	callCmd = &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool locally and print its result",
		Args:  cobra.ExactArgs(1),
		RunE:  runCall,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logger.Warn("stdin is a terminal; expecting an MCP client to speak JSON-RPC on stdio")
	}

	metrics := telemetry.NewMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	srv := newToolServer(cfg, logger, metrics)
	stdio := server.NewStdioServer(srv.MCP())
	stdio.SetErrorLogger(zap.NewStdLog(logger.Named("mcp")))

	logger.Info("server started",
		zap.String("version", version),
		zap.Int("tools", len(srv.Tools())),
		zap.Bool("redact", cfg.Redact),
	)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runCall(cmd *cobra.Command, args []string) error {
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(callArgs), &toolArgs); err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	srv := newToolServer(cfg, logger, nil)
	res, err := srv.Call(cmd.Context(), args[0], toolArgs)
	if err != nil {
		return err
	}
	for _, c := range res.Content {
		if text, ok := c.(mcp.TextContent); ok {
			fmt.Fprintln(cmd.OutOrStdout(), text.Text)
		}
	}
	if res.IsError {
		return fmt.Errorf("%s returned an error", args[0])
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
