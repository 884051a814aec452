// Package reliability rebuilds the Reliability Monitor view from event logs:
// a merged failure timeline and a derived daily stability score.
package reliability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

const (
	applicationLog = "Application"
	systemLog      = "System"

	// DefaultWindow is the look-back used when no start time is given.
	DefaultWindow = 30 * 24 * time.Hour
	scoreMaxEvents = 1000
)

// subQuery is one of the four event sources merged into the timeline.
type subQuery struct {
	name    string
	channel string
	crit    eventlog.Criteria
	format  bool
	convert func(eventlog.Record) model.ReliabilityEvent
}

var subQueries = []subQuery{
	{
		name:    "crashes",
		channel: applicationLog,
		crit:    eventlog.Criteria{Providers: []string{"Application Error"}, EventIDs: []uint32{1000}},
		convert: crashEvent,
	},
	{
		name:    "hangs",
		channel: applicationLog,
		crit:    eventlog.Criteria{Providers: []string{"Application Hang"}, EventIDs: []uint32{1002}},
		convert: hangEvent,
	},
	{
		name:    "system",
		channel: systemLog,
		crit: eventlog.Criteria{Raw: []string{fmt.Sprintf("(%s or (%s and EventID=41))",
			eventlog.ProviderPredicate("Microsoft-Windows-WER-SystemErrorReporting"),
			eventlog.ProviderPredicate("Microsoft-Windows-Kernel-Power"))}},
		format:  true,
		convert: systemEvent,
	},
	{
		name:    "wer",
		channel: applicationLog,
		crit:    eventlog.Criteria{Providers: []string{"Windows Error Reporting"}},
		format:  true,
		convert: werEvent,
	},
}

// Service aggregates reliability events from an event log Source.
type Service struct {
	src eventlog.Source
	log *zap.Logger

	// Location decides which calendar day an event belongs to.
	Location *time.Location
	now      func() time.Time
}

func NewService(src eventlog.Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, log: log, Location: time.Local, now: time.Now}
}

// Events merges crashes, hangs, system failures and WER reports in
// [start, end] into one timeline, newest first. Each source contributes its
// newest maxResults/4 events in the window and a failing source contributes
// nothing. Missing bounds default to the last 30 days; a window that is empty
// only because of those defaults yields no events.
func (s *Service) Events(ctx context.Context, start, end *time.Time, maxResults int) ([]model.ReliabilityEvent, error) {
	if maxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "Maximum results must be greater than 0")
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, winerr.InvalidArgument("startTime", "Start time must be before end time")
	}
	from, to := s.window(start, end)
	if from.After(to) {
		return []model.ReliabilityEvent{}, nil
	}

	perSource := maxResults / 4
	slots := make([][]model.ReliabilityEvent, len(subQueries))
	var g errgroup.Group
	for i, q := range subQueries {
		g.Go(func() error {
			slots[i] = s.run(ctx, q, from, to, perSource)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make([]model.ReliabilityEvent, 0, perSource*len(subQueries))
	for _, slot := range slots {
		merged = append(merged, slot...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged, nil
}

// ApplicationCrashes returns crashes from the last 30 days.
func (s *Service) ApplicationCrashes(ctx context.Context, maxResults int) ([]model.ReliabilityEvent, error) {
	return s.single(ctx, subQueries[0], maxResults)
}

// ApplicationHangs returns hangs from the last 30 days.
func (s *Service) ApplicationHangs(ctx context.Context, maxResults int) ([]model.ReliabilityEvent, error) {
	return s.single(ctx, subQueries[1], maxResults)
}

// SystemFailures returns bugchecks and unexpected shutdowns from the last 30 days.
func (s *Service) SystemFailures(ctx context.Context, maxResults int) ([]model.ReliabilityEvent, error) {
	return s.single(ctx, subQueries[2], maxResults)
}

// Scores computes daily scores over the last days days.
func (s *Service) Scores(ctx context.Context, days int) ([]model.ReliabilityScore, error) {
	if days <= 0 {
		return nil, winerr.InvalidArgument("days", "Days must be greater than 0")
	}
	end := s.now()
	start := end.AddDate(0, 0, -days)
	events, err := s.Events(ctx, &start, &end, scoreMaxEvents)
	if err != nil {
		return nil, err
	}
	return DailyScores(events, s.Location), nil
}

func (s *Service) single(ctx context.Context, q subQuery, maxResults int) ([]model.ReliabilityEvent, error) {
	if maxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "Maximum results must be greater than 0")
	}
	from, to := s.window(nil, nil)
	return s.run(ctx, q, from, to, maxResults), nil
}

func (s *Service) window(start, end *time.Time) (from, to time.Time) {
	now := s.now()
	from, to = now.Add(-DefaultWindow), now
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return from, to
}

// run executes one sub-query newest-first. Failures are logged and yield no events.
func (s *Service) run(ctx context.Context, q subQuery, from, to time.Time, max int) []model.ReliabilityEvent {
	out := []model.ReliabilityEvent{}
	if max <= 0 {
		return out
	}
	crit := q.crit
	crit.Start, crit.End = &from, &to
	xpath, err := crit.XPath()
	if err != nil {
		s.log.Warn("reliability query not built", zap.String("source", q.name), zap.Error(err))
		return out
	}
	recs, err := s.src.Query(ctx, eventlog.Query{
		Channel: q.channel,
		XPath:   xpath,
		Reverse: true,
		Max:     max,
		Format:  q.format,
	})
	if err != nil {
		s.log.Warn("reliability source failed", zap.String("source", q.name), zap.Error(err))
		return out
	}
	for _, r := range recs {
		if len(out) >= max {
			break
		}
		out = append(out, q.convert(r))
	}
	return out
}

func crashEvent(r eventlog.Record) model.ReliabilityEvent {
	f := crashSchemaV1.extract(r)
	return model.ReliabilityEvent{
		Timestamp:      r.Time,
		EventType:      model.ApplicationCrash,
		Source:         deref(f.Source),
		Description:    ptr("Application crashed: " + orUnknown(f.Source)),
		FaultingModule: f.FaultingModule,
		ExceptionCode:  f.ExceptionCode,
		Version:        f.AppVersion,
	}
}

func hangEvent(r eventlog.Record) model.ReliabilityEvent {
	f := hangSchemaV1.extract(r)
	return model.ReliabilityEvent{
		Timestamp:   r.Time,
		EventType:   model.ApplicationHang,
		Source:      deref(f.Source),
		Description: ptr("Application stopped responding: " + orUnknown(f.Source)),
		Version:     f.AppVersion,
	}
}

func systemEvent(r eventlog.Record) model.ReliabilityEvent {
	return model.ReliabilityEvent{
		Timestamp:   r.Time,
		EventType:   model.WindowsFailure,
		Source:      r.Provider,
		Description: ptr(messageOr(r, "System failure occurred")),
	}
}

func werEvent(r eventlog.Record) model.ReliabilityEvent {
	return model.ReliabilityEvent{
		Timestamp:   r.Time,
		EventType:   model.MiscellaneousFailure,
		Source:      "Windows Error Reporting",
		Description: ptr(messageOr(r, "Error reported to WER")),
	}
}

func messageOr(r eventlog.Record, fallback string) string {
	if r.MessageErr != nil || r.Message == "" {
		return fallback
	}
	return r.Message
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orUnknown(p *string) string {
	if p == nil {
		return "Unknown"
	}
	return *p
}

func ptr(s string) *string { return &s }
