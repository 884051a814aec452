package updates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

const (
	maxErrorLines   = 5
	defaultMaxBytes = 5 * 1024 * 1024
)

// LogCollector renders the ETW-based Windows Update log with
// Get-WindowsUpdateLog and falls back to the legacy text log.
type LogCollector struct {
	TempDir    string
	WindowsDir string
	MaxBytes   int64
	Timeout    time.Duration
	log        *zap.Logger

	now func() time.Time
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewLogCollector(tempDir, windowsDir string, maxBytes int64, timeout time.Duration, log *zap.Logger) *LogCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogCollector{
		TempDir:    tempDir,
		WindowsDir: windowsDir,
		MaxBytes:   maxBytes,
		Timeout:    timeout,
		log:        log,
		now:        time.Now,
		run:        runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Collect returns a summary and excerpt of the Windows Update log.
func (c *LogCollector) Collect(ctx context.Context) (model.UpdateLog, error) {
	tempDir := c.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	tmpFile := filepath.Join(tempDir, fmt.Sprintf("wininvestigator-wu-%d.log", c.now().Unix()))

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := c.run(runCtx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf(`Get-WindowsUpdateLog -LogPath '%s'`, strings.ReplaceAll(tmpFile, "'", "''")))
	if err == nil {
		data, truncated, rerr := readLimited(tmpFile, c.MaxBytes)
		_ = os.Remove(tmpFile)
		if rerr == nil {
			return summarize("Get-WindowsUpdateLog", data, truncated), nil
		}
		c.log.Debug("rendered update log unreadable", zap.Error(rerr))
	} else {
		if ctx.Err() != nil {
			return model.UpdateLog{}, ctx.Err()
		}
		c.log.Debug("Get-WindowsUpdateLog failed", zap.Error(err), zap.ByteString("output", bytes.TrimSpace(out)))
	}

	fallback := filepath.Join(c.WindowsDir, "WindowsUpdate.log")
	data, truncated, err := readLimited(fallback, c.MaxBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.UpdateLog{}, winerr.NotFound("Windows Update log", fallback)
		}
		return model.UpdateLog{}, winerr.Classify("ReadFile", "Windows Update log", fallback, fmt.Errorf("windows update log unavailable: %w", err))
	}
	return summarize(fallback, data, truncated), nil
}

// readLimited reads at most max bytes from the end of the file.
func readLimited(path string, max int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	if max <= 0 {
		max = defaultMaxBytes
	}
	truncated := false
	if fi, err := f.Stat(); err == nil && fi.Size() > max {
		if _, err := f.Seek(fi.Size()-max, io.SeekStart); err != nil {
			return nil, false, err
		}
		truncated = true
	}
	b, err := io.ReadAll(io.LimitReader(f, max))
	return b, truncated, err
}

// summarize keeps the first error lines and the final line for context.
func summarize(source string, content []byte, truncated bool) model.UpdateLog {
	lines := bytes.Split(content, []byte("\n"))
	if truncated && len(lines) > 1 {
		lines = lines[1:] // partial first line
	}
	var (
		excerpt []string
		errs    int
		last    string
		total   int
	)
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		total++
		last = string(line)
		if bytes.Contains(line, []byte("Error")) || bytes.Contains(line, []byte("0x")) {
			errs++
			if len(excerpt) < maxErrorLines {
				excerpt = append(excerpt, last)
			}
		}
	}
	if last != "" && (len(excerpt) == 0 || excerpt[len(excerpt)-1] != last) {
		excerpt = append(excerpt, last)
	}
	if excerpt == nil {
		excerpt = []string{}
	}

	summary := fmt.Sprintf("Windows Update log collected: %s, %d lines, %d error lines",
		humanize.Bytes(uint64(len(content))), total, errs)
	if truncated {
		summary += " (tail only)"
	}
	return model.UpdateLog{Source: source, Summary: summary, Excerpt: excerpt}
}
