// Command wininvestigator serves read-only Windows diagnostics to MCP clients
// over stdio.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wininvestigator/internal/config"
	"wininvestigator/internal/logging"
)

const appName = "wininvestigator"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string

	cfg         config.Config
	logger      = zap.NewNop()
	closeLogger = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:          appName,
		Short:        "MCP server exposing read-only Windows investigation tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger, closeLogger, err = logging.New(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
			_ = closeLogger()
		},
		RunE: runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wininvestigator.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	callCmd.Flags().StringVar(&callArgs, "args", "{}", "tool arguments as a JSON object")

	rootCmd.AddCommand(serveCmd, toolsCmd, callCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
