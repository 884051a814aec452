// Package updates reports installed hotfixes, reboot state and Windows Update
// client failures.
package updates

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/model"
	"wininvestigator/internal/registry"
	"wininvestigator/internal/winerr"
)

const (
	clientProvider = "Microsoft-Windows-WindowsUpdateClient"
	levelError     = 2
	defaultTitle   = "Windows Update Error"

	rebootRequiredKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`
	rebootPendingKey  = `SOFTWARE\Microsoft\Windows\CurrentVersion\Component Based Servicing\RebootPending`
	detectResultsKey  = `SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\Results\Detect`
)

var (
	errorCodeRe = regexp2.MustCompile(`0x[0-9A-Fa-f]+`, regexp2.None)
	kbRe        = regexp2.MustCompile(`KB\d+`, regexp2.IgnoreCase)
)

// Hotfix is one Win32_QuickFixEngineering row. InstalledOn is the raw
// provider string, which varies by OS release.
type Hotfix struct {
	HotFixID    string
	Description string
	Caption     string
	InstalledOn string
	InstalledBy string
}

// HotfixSource enumerates installed hotfixes.
type HotfixSource interface {
	Hotfixes(ctx context.Context) ([]Hotfix, error)
}

type Service struct {
	hotfixes HotfixSource
	hive     registry.Hive
	events   eventlog.Source
	wulog    *LogCollector
	log      *zap.Logger

	Location *time.Location
}

func NewService(hotfixes HotfixSource, hive registry.Hive, events eventlog.Source, wulog *LogCollector, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		hotfixes: hotfixes,
		hive:     hive,
		events:   events,
		wulog:    wulog,
		log:      log,
		Location: time.Local,
	}
}

// Status summarizes update state. Installed hotfixes are required; the
// reboot flags, detection time and last failure are best effort.
func (s *Service) Status(ctx context.Context) (model.WindowsUpdateStatus, error) {
	var st model.WindowsUpdateStatus
	fixes, err := s.hotfixes.Hotfixes(ctx)
	if err != nil {
		return st, err
	}
	st.InstalledUpdatesCount = len(fixes)
	for _, h := range fixes {
		if t := ParseInstalledOn(h.InstalledOn, s.Location); t != nil {
			if st.LastInstallTime == nil || t.After(*st.LastInstallTime) {
				st.LastInstallTime = t
			}
		}
	}

	st.IsRebootRequired = s.RebootPending()
	pending := s.pending(st.IsRebootRequired)
	st.PendingUpdatesCount = len(pending)
	st.LastCheckTime = s.lastCheck()

	failures, err := s.Failures(ctx, 1)
	if err != nil {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.log.Warn("update failures unavailable", zap.Error(err))
	} else if len(failures) > 0 {
		f := failures[0]
		st.LastError = f.ErrorCode
		if st.LastError == "" {
			st.LastError = f.Title
		}
	}
	return st, nil
}

// History returns installed hotfixes, newest first.
func (s *Service) History(ctx context.Context, maxResults int) ([]model.WindowsUpdateInfo, error) {
	if maxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "must be greater than 0")
	}
	fixes, err := s.hotfixes.Hotfixes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.WindowsUpdateInfo, 0, len(fixes))
	for _, h := range fixes {
		out = append(out, s.updateInfo(h))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].InstalledOn, out[j].InstalledOn
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (s *Service) updateInfo(h Hotfix) model.WindowsUpdateInfo {
	id := strings.TrimSpace(h.HotFixID)
	info := model.WindowsUpdateInfo{
		UpdateID:    id,
		Title:       strings.TrimSpace(h.Description + " " + id),
		Description: h.Description,
		InstalledOn: ParseInstalledOn(h.InstalledOn, s.Location),
		KBArticleID: KBArticle(id),
		SupportURL:  h.Caption,
		Category:    h.Description,
		IsInstalled: true,
	}
	if info.InstalledOn != nil {
		info.Result = "Succeeded"
	}
	return info
}

// Pending reports updates waiting on a restart. Without access to the update
// agent the only observable pending work is a required reboot.
func (s *Service) Pending(context.Context) ([]model.WindowsUpdateInfo, error) {
	return s.pending(s.RebootPending()), nil
}

func (s *Service) pending(reboot bool) []model.WindowsUpdateInfo {
	out := []model.WindowsUpdateInfo{}
	if reboot {
		out = append(out, model.WindowsUpdateInfo{
			UpdateID:    "PendingReboot",
			Title:       "Pending Reboot",
			Description: "One or more updates are waiting for system restart to complete installation",
			IsInstalled: false,
			IsMandatory: true,
		})
	}
	return out
}

// RebootPending reports whether Windows Update or component servicing has
// flagged a required restart.
func (s *Service) RebootPending() bool {
	return s.keyExists(rebootRequiredKey) || s.keyExists(rebootPendingKey)
}

func (s *Service) keyExists(path string) bool {
	if s.hive == nil {
		return false
	}
	k, err := s.hive.Open(registry.LocalMachine, path)
	if err != nil {
		if !winerr.IsNotFound(err) {
			s.log.Debug("registry probe failed", zap.String("key", path), zap.Error(err))
		}
		return false
	}
	_ = k.Close()
	return true
}

// lastCheck reads the last successful detection time, recorded in UTC by
// older update agents.
func (s *Service) lastCheck() *time.Time {
	if s.hive == nil {
		return nil
	}
	k, err := s.hive.Open(registry.LocalMachine, detectResultsKey)
	if err != nil {
		return nil
	}
	defer k.Close()
	v, err := k.Value("LastSuccessTime")
	if err != nil {
		return nil
	}
	str, ok := v.Data.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(str))
	if err != nil {
		return nil
	}
	return &t
}

// Failures returns Windows Update client errors from the System log, newest
// first.
func (s *Service) Failures(ctx context.Context, maxResults int) ([]model.WindowsUpdateFailure, error) {
	if maxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "must be greater than 0")
	}
	xpath, err := eventlog.Criteria{Providers: []string{clientProvider}, Levels: []uint8{levelError}}.XPath()
	if err != nil {
		return nil, err
	}
	recs, err := s.events.Query(ctx, eventlog.Query{
		Channel: "System",
		XPath:   xpath,
		Reverse: true,
		Max:     maxResults,
		Format:  true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.WindowsUpdateFailure, 0, len(recs))
	for _, r := range recs {
		out = append(out, failure(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FailureTime.After(out[j].FailureTime) })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func failure(r eventlog.Record) model.WindowsUpdateFailure {
	f := model.WindowsUpdateFailure{
		UpdateID:         strconv.FormatUint(r.RecordID, 10),
		Title:            defaultTitle,
		FailureTime:      r.Time,
		ErrorDescription: r.Message,
	}
	if v, ok := r.Named("updateGuid"); ok && v != "" {
		f.UpdateID = strings.Trim(v, "{}")
	}
	if v, ok := r.Named("updateTitle"); ok && strings.TrimSpace(v) != "" {
		f.Title = strings.TrimSpace(v)
	}
	if v, ok := r.Named("errorCode"); ok && strings.TrimSpace(v) != "" {
		f.ErrorCode = strings.TrimSpace(v)
	} else if m, err := errorCodeRe.FindStringMatch(r.Message); err == nil && m != nil {
		f.ErrorCode = m.String()
	}
	return f
}

// KBArticle extracts the KB identifier from a hotfix id such as "KB5034441".
func KBArticle(hotfixID string) string {
	m, err := kbRe.FindStringMatch(hotfixID)
	if err != nil || m == nil {
		return ""
	}
	return strings.ToUpper(m.String())
}

var installedOnLayouts = []string{"1/2/2006", "2006-01-02", "01/02/2006 15:04:05", "1/2/2006 3:04:05 PM"}

// ParseInstalledOn decodes the Win32_QuickFixEngineering InstalledOn string.
// Depending on the release it is a short date, a CIM datetime or a hex
// FILETIME. Unparsable values yield nil.
func ParseInstalledOn(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range installedOnLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	if len(s) >= 14 && isDigits(s[:14]) {
		if t, err := time.ParseInLocation("20060102150405", s[:14], loc); err == nil {
			return &t
		}
	}
	if len(s) == 16 {
		if ft, err := strconv.ParseUint(s, 16, 64); err == nil && ft > filetimeEpochDelta {
			t := fileTime(ft)
			return &t
		}
	}
	return nil
}

const (
	filetimeEpochDelta = 116444736000000000 // 100ns ticks between 1601 and 1970
)

func fileTime(ticks uint64) time.Time {
	return time.Unix(0, int64(ticks-filetimeEpochDelta)*100).UTC()
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Log collects and summarizes the Windows Update log.
func (s *Service) Log(ctx context.Context) (model.UpdateLog, error) {
	if s.wulog == nil {
		return model.UpdateLog{}, winerr.PlatformAPI("Get-WindowsUpdateLog", winerr.ErrUnsupported)
	}
	return s.wulog.Collect(ctx)
}
