package reliability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

// routedSource answers queries by the provider named in the XPath.
type routedSource struct {
	mu      sync.Mutex
	byKey   map[string][]eventlog.Record
	fail    map[string]error
	queries []eventlog.Query
}

func newRoutedSource() *routedSource {
	return &routedSource{byKey: map[string][]eventlog.Record{}, fail: map[string]error{}}
}

func (f *routedSource) Channels(context.Context) ([]string, error) { return nil, nil }

func (f *routedSource) Query(_ context.Context, q eventlog.Query) ([]eventlog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	for key, err := range f.fail {
		if strings.Contains(q.XPath, key) {
			return nil, err
		}
	}
	for key, recs := range f.byKey {
		if strings.Contains(q.XPath, key) {
			if len(recs) > q.Max {
				recs = recs[:q.Max]
			}
			return recs, nil
		}
	}
	return nil, nil
}

func (f *routedSource) query(fragment string) (eventlog.Query, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if strings.Contains(q.XPath, fragment) {
			return q, true
		}
	}
	return eventlog.Query{}, false
}

const (
	crashKey = "'Application Error'"
	hangKey  = "'Application Hang'"
	sysKey   = "WER-SystemErrorReporting"
	werKey   = "'Windows Error Reporting'"
)

var base = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func data(values ...string) []eventlog.DataField {
	out := make([]eventlog.DataField, len(values))
	for i, v := range values {
		out[i] = eventlog.DataField{Value: v}
	}
	return out
}

func newTestService(src eventlog.Source) *Service {
	s := NewService(src, nil)
	s.Location = time.UTC
	s.now = func() time.Time { return base.Add(24 * time.Hour) }
	return s
}

func records(n int, start time.Time, step time.Duration) []eventlog.Record {
	out := make([]eventlog.Record, n)
	for i := range out {
		out[i] = eventlog.Record{Time: start.Add(-time.Duration(i) * step), Data: data("app.exe", "1.0")}
	}
	return out
}

func TestEventsMergesNewestFirstWithPerSourceCap(t *testing.T) {
	src := newRoutedSource()
	src.byKey[crashKey] = records(10, at(10), time.Hour)
	src.byKey[hangKey] = records(10, at(9), 30*time.Minute)
	src.byKey[sysKey] = []eventlog.Record{{Time: at(11), Provider: "Microsoft-Windows-Kernel-Power", Message: "rebooted"}}
	src.byKey[werKey] = records(1, at(-5), time.Hour)

	events, err := newTestService(src).Events(context.Background(), nil, nil, 12)
	require.NoError(t, err)

	// caps of 3+3+1+1
	require.Len(t, events, 8)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.After(events[i-1].Timestamp), "index %d out of order", i)
	}
	assert.Equal(t, model.WindowsFailure, events[0].EventType)
	assert.Equal(t, "rebooted", *events[0].Description)
	assert.Equal(t, model.MiscellaneousFailure, events[7].EventType)

	q, ok := src.query(crashKey)
	require.True(t, ok)
	assert.Equal(t, 3, q.Max)
	assert.True(t, q.Reverse)
	assert.Equal(t, "Application", q.Channel)
	assert.Contains(t, q.XPath, "EventID=1000")

	sys, ok := src.query(sysKey)
	require.True(t, ok)
	assert.Equal(t, "System", sys.Channel)
	assert.Contains(t, sys.XPath, "Provider[@Name='Microsoft-Windows-Kernel-Power'] and EventID=41")
	assert.True(t, sys.Format)
}

func TestEventsTruncatesToMaxResults(t *testing.T) {
	src := newRoutedSource()
	for _, key := range []string{crashKey, hangKey, sysKey, werKey} {
		src.byKey[key] = records(50, at(0), time.Minute)
	}
	for _, n := range []int{1, 4, 7, 50} {
		events, err := newTestService(src).Events(context.Background(), nil, nil, n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(events), n)
		assert.Len(t, events, (n/4)*4)
	}
}

func TestEventsToleratesFailingSource(t *testing.T) {
	src := newRoutedSource()
	src.byKey[crashKey] = records(2, at(0), time.Hour)
	src.fail[hangKey] = winerr.AccessDenied("Application", nil)
	src.fail[sysKey] = errors.New("boom")

	events, err := newTestService(src).Events(context.Background(), nil, nil, 40)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, model.ApplicationCrash, ev.EventType)
	}
}

func TestEventsValidation(t *testing.T) {
	svc := newTestService(newRoutedSource())
	_, err := svc.Events(context.Background(), nil, nil, 0)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))

	start, end := at(5), at(1)
	_, err = svc.Events(context.Background(), &start, &end, 10)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestEventsUsesWindow(t *testing.T) {
	src := newRoutedSource()
	start, end := at(-48), at(0)
	_, err := newTestService(src).Events(context.Background(), &start, &end, 8)
	require.NoError(t, err)

	q, ok := src.query(werKey)
	require.True(t, ok)
	assert.Contains(t, q.XPath, "@SystemTime>='2024-05-18T12:00:00.000Z'")
	assert.Contains(t, q.XPath, "@SystemTime<='2024-05-20T12:00:00.000Z'")
}

func TestEventsDefaultWindowIsThirtyDays(t *testing.T) {
	src := newRoutedSource()
	_, err := newTestService(src).Events(context.Background(), nil, nil, 8)
	require.NoError(t, err)

	q, ok := src.query(werKey)
	require.True(t, ok)
	assert.Contains(t, q.XPath, "@SystemTime>='2024-04-21T12:00:00.000Z'")
	assert.Contains(t, q.XPath, "@SystemTime<='2024-05-21T12:00:00.000Z'")
}

func TestEventsEndBeforeDefaultStartIsEmpty(t *testing.T) {
	src := newRoutedSource()
	end := at(-60 * 24)
	out, err := newTestService(src).Events(context.Background(), nil, &end, 20)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, src.queries)
}

func TestCrashFieldsArePositional(t *testing.T) {
	full := eventlog.Record{Time: at(0), Data: data("app.exe", "2.1", "ts", "ntdll.dll", "10.0", "ts", "c0000005", "0x1")}
	ev := crashEvent(full)
	assert.Equal(t, "app.exe", ev.Source)
	assert.Equal(t, "Application crashed: app.exe", *ev.Description)
	assert.Equal(t, "ntdll.dll", *ev.FaultingModule)
	assert.Equal(t, "c0000005", *ev.ExceptionCode)
	assert.Equal(t, "2.1", *ev.Version)
	assert.False(t, ev.IsSuccess)

	short := crashEvent(eventlog.Record{Time: at(0), Data: data("app.exe", "2.1")})
	assert.Nil(t, short.FaultingModule)
	assert.Nil(t, short.ExceptionCode)
	assert.Equal(t, "2.1", *short.Version)

	empty := crashEvent(eventlog.Record{Time: at(0)})
	assert.Equal(t, "", empty.Source)
	assert.Equal(t, "Application crashed: Unknown", *empty.Description)
	assert.Nil(t, empty.Version)
}

func TestHangAndFallbackDescriptions(t *testing.T) {
	h := hangEvent(eventlog.Record{Data: data("ui.exe")})
	assert.Equal(t, "Application stopped responding: ui.exe", *h.Description)
	assert.Nil(t, h.Version)

	s := systemEvent(eventlog.Record{Provider: "Microsoft-Windows-WER-SystemErrorReporting", MessageErr: errors.New("no metadata")})
	assert.Equal(t, "System failure occurred", *s.Description)
	assert.Equal(t, "Microsoft-Windows-WER-SystemErrorReporting", s.Source)

	w := werEvent(eventlog.Record{Provider: "Windows Error Reporting"})
	assert.Equal(t, "Error reported to WER", *w.Description)
	assert.Equal(t, "Windows Error Reporting", w.Source)
}

func TestSingleSourceGetters(t *testing.T) {
	src := newRoutedSource()
	src.byKey[hangKey] = records(30, at(0), time.Minute)
	svc := newTestService(src)

	hangs, err := svc.ApplicationHangs(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, hangs, 20)

	q, _ := src.query(hangKey)
	assert.Contains(t, q.XPath, "@SystemTime>='2024-04-21T12:00:00.000Z'")

	_, err = svc.SystemFailures(context.Background(), -1)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestScoresOneCrashOneHang(t *testing.T) {
	src := newRoutedSource()
	src.byKey[crashKey] = []eventlog.Record{{Time: at(1), Data: data("a.exe")}}
	src.byKey[hangKey] = []eventlog.Record{{Time: at(2), Data: data("b.exe")}}

	scores, err := newTestService(src).Scores(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 8.0, scores[0].Score)
	assert.Equal(t, 1, scores[0].ApplicationCrashes)
	assert.Equal(t, 1, scores[0].ApplicationHangs)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), scores[0].Date)

	q, _ := src.query(crashKey)
	assert.Equal(t, 250, q.Max)

	_, err = newTestService(src).Scores(context.Background(), 0)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}
