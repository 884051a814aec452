// Package logging builds the process logger. Stdout carries the MCP protocol,
// so log output goes to stderr or to a file.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level string
	Path  string
	// Writer overrides the sink; used by tests.
	Writer io.Writer
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New returns a logger writing to opts.Path, or stderr when no path is set.
// The returned closer releases the log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := parseLevel(opts.Level)
	encCfg := encoderConfig()

	var (
		sink    zapcore.WriteSyncer
		encoder zapcore.Encoder
		closer  = func() error { return nil }
	)
	switch {
	case opts.Writer != nil:
		sink = zapcore.AddSync(opts.Writer)
		encoder = zapcore.NewJSONEncoder(encCfg)
	case opts.Path != "":
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		sink = zapcore.AddSync(f)
		encoder = zapcore.NewJSONEncoder(encCfg)
		closer = f.Close
	default:
		sink = zapcore.Lock(os.Stderr)
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			encoder = zapcore.NewConsoleEncoder(encCfg)
		} else {
			encoder = zapcore.NewJSONEncoder(encCfg)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.Named("wininvestigator"), closer, nil
}

// Nop is used where no logger was supplied.
func Nop() *zap.Logger { return zap.NewNop() }
