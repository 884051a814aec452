// Package filelog discovers plain-text log files and reads them with
// tail, filter and line limits.
package filelog

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/pattern"
	"wininvestigator/internal/winerr"
)

// logGlob selects log files by extension; names are lower-cased before matching.
const logGlob = "*.{log,txt,evtx,etl}"

const msgFileNotFound = "File not found"

// Location is a directory (or single file) scanned by Discover.
type Location struct {
	Path     string
	Category string
}

// DefaultLocations returns the well-known Windows log locations resolved
// through getenv.
func DefaultLocations(getenv func(string) string) []Location {
	local := getenv("LOCALAPPDATA")
	win := WindowsDir(getenv)
	programData := getenv("ProgramData")
	if programData == "" {
		programData = `C:\ProgramData`
	}
	return []Location{
		{filepath.Join(local, "Temp"), "User Temp"},
		{os.TempDir(), "System Temp"},
		{filepath.Join(local, `Microsoft\Windows\INetCache`), "IE Cache"},
		{filepath.Join(local, "CrashDumps"), "Crash Dumps"},
		{filepath.Join(win, "Logs"), "Windows Logs"},
		{filepath.Join(win, "Panther"), "Windows Setup"},
		{filepath.Join(win, `SoftwareDistribution\ReportingEvents.log`), "Windows Update"},
		{filepath.Join(win, "debug"), "Windows Debug"},
		{filepath.Join(win, `System32\LogFiles`), "System LogFiles"},
		{filepath.Join(programData, `Microsoft\Windows\WER`), "Windows Error Reporting"},
		{filepath.Join(local, `Microsoft\CLR_v4.0`), "CLR Logs"},
	}
}

// WindowsDir returns %WINDIR%, defaulting to C:\Windows.
func WindowsDir(getenv func(string) string) string {
	if w := getenv("WINDIR"); w != "" {
		return w
	}
	return `C:\Windows`
}

type Service struct {
	locations  []Location
	windowsDir string
	log        *zap.Logger
}

// NewService scans locations. Entries of extra may be glob patterns and are
// reported under the "Custom" category.
func NewService(locations []Location, windowsDir string, extra []string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	all := append([]Location(nil), locations...)
	for _, e := range extra {
		matches, err := doublestar.FilepathGlob(e)
		if err != nil || len(matches) == 0 {
			all = append(all, Location{Path: e, Category: "Custom"})
			continue
		}
		for _, m := range matches {
			all = append(all, Location{Path: m, Category: "Custom"})
		}
	}
	return &Service{locations: all, windowsDir: windowsDir, log: log}
}

// Discover lists up to maxFiles log files, most recently modified first.
// With includeSystem false, locations under the Windows directory are skipped.
func (s *Service) Discover(ctx context.Context, includeSystem bool, maxFiles int) ([]model.LogFileInfo, error) {
	if maxFiles <= 0 {
		return nil, winerr.InvalidArgument("maxFiles", "Maximum files must be greater than 0")
	}
	out := make([]model.LogFileInfo, 0)
	for _, loc := range s.locations {
		if len(out) >= maxFiles {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !includeSystem && s.underWindows(loc.Path) {
			continue
		}
		st, err := os.Stat(loc.Path)
		if err != nil {
			continue
		}
		if !st.IsDir() {
			out = append(out, fileInfo(loc.Path, st, loc.Category))
			continue
		}
		entries, err := os.ReadDir(loc.Path)
		if err != nil {
			s.log.Debug("log location unreadable", zap.String("path", loc.Path), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if len(out) >= maxFiles {
				break
			}
			if e.IsDir() || !isLogName(e.Name()) {
				continue
			}
			st, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, fileInfo(filepath.Join(loc.Path, e.Name()), st, loc.Category))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (s *Service) underWindows(path string) bool {
	if s.windowsDir == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(filepath.Clean(path)), strings.ToLower(filepath.Clean(s.windowsDir)))
}

func isLogName(name string) bool {
	ok, err := doublestar.Match(logGlob, strings.ToLower(name))
	return err == nil && ok
}

func fileInfo(path string, st fs.FileInfo, category string) model.LogFileInfo {
	return model.LogFileInfo{
		Path:         path,
		Name:         st.Name(),
		SizeBytes:    st.Size(),
		LastModified: st.ModTime(),
		Category:     category,
	}
}

// ReadOptions controls ReadLog. Tail of zero reads the whole file.
type ReadOptions struct {
	Tail     int
	Pattern  string
	MaxLines int
}

// ReadLog returns lines of path: the last Tail lines, then those matching
// Pattern, then at most MaxLines of them. A missing file is reported in the
// result rather than as an error.
func (s *Service) ReadLog(ctx context.Context, path string, opts ReadOptions) (model.LogFileContent, error) {
	if strings.TrimSpace(path) == "" {
		return model.LogFileContent{}, winerr.InvalidArgument("path", "Path cannot be empty")
	}
	if opts.Tail < 0 {
		return model.LogFileContent{}, winerr.InvalidArgument("tailLines", "Tail lines must be greater than 0")
	}
	if opts.MaxLines <= 0 {
		return model.LogFileContent{}, winerr.InvalidArgument("maxLines", "Maximum lines must be greater than 0")
	}
	m, err := pattern.Optional("searchPattern", opts.Pattern)
	if err != nil {
		return model.LogFileContent{}, err
	}

	res := model.LogFileContent{Path: path, Lines: []string{}}
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			res.Error = msgFileNotFound
			return res, nil
		case errors.Is(err, fs.ErrPermission):
			return model.LogFileContent{}, winerr.AccessDenied(path, err)
		}
		return model.LogFileContent{}, winerr.Classify("CreateFile", "File", path, err)
	}
	defer f.Close()

	var tail *ring
	if opts.Tail > 0 {
		tail = newRing(opts.Tail)
	}
	err = eachLine(ctx, f, func(line string) {
		res.TotalLines++
		switch {
		case tail != nil:
			tail.push(line)
		case len(res.Lines) < opts.MaxLines && m.Match(line):
			res.Lines = append(res.Lines, line)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.LogFileContent{}, err
		}
		return model.LogFileContent{}, winerr.Classify("ReadFile", "File", path, err)
	}
	if tail != nil {
		for _, line := range tail.lines() {
			if len(res.Lines) >= opts.MaxLines {
				break
			}
			if m.Match(line) {
				res.Lines = append(res.Lines, line)
			}
		}
	}
	res.ReturnedLines = len(res.Lines)
	return res, nil
}

// eachLine calls fn for every line of r without the trailing newline or CR.
func eachLine(ctx context.Context, r io.Reader, fn func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ring keeps the last n lines pushed. The buffer grows with the lines
// actually read, so n may exceed the file length.
type ring struct {
	buf  []string
	size int
	next int
}

func newRing(n int) *ring { return &ring{size: n} }

func (r *ring) push(s string) {
	if len(r.buf) < r.size {
		r.buf = append(r.buf, s)
		return
	}
	r.buf[r.next] = s
	r.next = (r.next + 1) % r.size
}

func (r *ring) lines() []string {
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
