// Package eventlog queries Windows event log channels.
//
// Native access goes through a Source. On Windows the Source is backed by
// wevtapi.dll; elsewhere it reports the platform as unsupported. Query
// construction, level mapping and result shaping are platform-neutral.
package eventlog

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

const (
	msgUnformattable = "(Unable to format message)"
	msgEmpty         = "(No message available)"
)

// DataField is one <Data> element of an event's EventData section.
type DataField struct {
	Name  string
	Value string
}

// Record is a rendered event as returned by a Source.
type Record struct {
	RecordID   uint64
	Time       time.Time
	Level      uint8
	EventID    uint32
	Provider   string
	Message    string
	MessageErr error
	Data       []DataField
}

// Field returns the positional EventData value at i, or nil when the event
// carries fewer fields.
func (r Record) Field(i int) *string {
	if i < 0 || i >= len(r.Data) {
		return nil
	}
	v := r.Data[i].Value
	return &v
}

// Named returns the EventData value with the given Name attribute.
func (r Record) Named(name string) (string, bool) {
	for _, d := range r.Data {
		if strings.EqualFold(d.Name, name) {
			return d.Value, true
		}
	}
	return "", false
}

// Query selects events from one channel.
type Query struct {
	Channel string
	XPath   string
	Reverse bool
	Max     int
	// Format requests rendered messages; callers that only need EventData skip it.
	Format bool
}

// Source is the native event log engine.
type Source interface {
	Channels(ctx context.Context) ([]string, error)
	Query(ctx context.Context, q Query) ([]Record, error)
}

// Filter holds the caller-facing parameters of an event log query.
type Filter struct {
	LogName    string
	Level      string
	Source     string
	MaxResults int
	Reverse    bool
	Start      *time.Time
	End        *time.Time
}

// Service maps Source records to LogEvent values.
type Service struct {
	src Source
	log *zap.Logger
}

func NewService(src Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, log: log}
}

// Source exposes the underlying engine to other adapters.
func (s *Service) Source() Source { return s.src }

// ListLogs returns all channel names sorted case-insensitively.
func (s *Service) ListLogs(ctx context.Context) ([]string, error) {
	names, err := s.src.Channels(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

// Query returns events of f.LogName matching the filter.
func (s *Service) Query(ctx context.Context, f Filter) ([]model.LogEvent, error) {
	if strings.TrimSpace(f.LogName) == "" {
		return nil, winerr.InvalidArgument("logName", "Log name cannot be empty")
	}
	if f.MaxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "Maximum results must be greater than 0")
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return nil, winerr.InvalidArgument("startTime", "Start time must be before end time")
	}
	c := Criteria{Start: f.Start, End: f.End}
	if f.Level != "" {
		levels, ok := LevelValues(f.Level)
		if !ok {
			return nil, winerr.InvalidArgument("level", "Level must be one of Critical, Error, Warning, Information, Verbose")
		}
		c.Levels = levels
	}
	if f.Source != "" {
		c.Providers = []string{f.Source}
	}
	xpath, err := c.XPath()
	if err != nil {
		return nil, winerr.InvalidArgument("source", err.Error())
	}

	s.log.Debug("event log query", zap.String("log", f.LogName), zap.String("xpath", xpath))
	recs, err := s.src.Query(ctx, Query{
		Channel: f.LogName,
		XPath:   xpath,
		Reverse: f.Reverse,
		Max:     f.MaxResults,
		Format:  true,
	})
	if err != nil {
		return nil, err
	}
	return ToEvents(recs), nil
}

// ToEvents converts records, substituting placeholders for missing messages.
func ToEvents(recs []Record) []model.LogEvent {
	out := make([]model.LogEvent, 0, len(recs))
	for _, r := range recs {
		ev := model.LogEvent{
			Level:   LevelName(r.Level),
			Source:  r.Provider,
			EventID: r.EventID,
			Message: r.Message,
		}
		if !r.Time.IsZero() {
			t := r.Time
			ev.TimeCreated = &t
		}
		switch {
		case r.MessageErr != nil:
			ev.Message = msgUnformattable
		case strings.TrimSpace(r.Message) == "":
			ev.Message = msgEmpty
		}
		out = append(out, ev)
	}
	return out
}

// Summarize queries up to maxEvents recent events and reduces them to counts.
func (s *Service) Summarize(ctx context.Context, logName string, start, end *time.Time, maxEvents int) (model.LogSummary, error) {
	events, err := s.Query(ctx, Filter{
		LogName:    logName,
		MaxResults: maxEvents,
		Reverse:    true,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return model.LogSummary{}, err
	}
	return Summarize(logName, events, 10), nil
}

// LevelName maps a native level to its display name.
func LevelName(level uint8) string {
	switch level {
	case 1:
		return "Critical"
	case 2:
		return "Error"
	case 3:
		return "Warning"
	case 0, 4:
		return "Information"
	case 5:
		return "Verbose"
	default:
		return "Unknown"
	}
}

// LevelValues maps a display name to the native levels it covers.
func LevelValues(name string) ([]uint8, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical":
		return []uint8{1}, true
	case "error":
		return []uint8{2}, true
	case "warning":
		return []uint8{3}, true
	case "information", "info":
		return []uint8{4, 0}, true
	case "verbose":
		return []uint8{5}, true
	}
	return nil, false
}
