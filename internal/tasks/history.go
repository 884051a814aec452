package tasks

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

// OperationalChannel records task scheduler lifecycle events.
const OperationalChannel = "Microsoft-Windows-TaskScheduler/Operational"

// Operational event ids.
const (
	eventStarted       = 100
	eventStartFailed   = 101
	eventCompleted     = 102
	eventActionFailed  = 103
	eventActionResult  = 201
	historyScanPerRun  = 5
	historyScanCeiling = 2000
)

// run accumulates the events of one task instance.
type run struct {
	start, end time.Time
	started    bool
	code       int32
	hasCode    bool
	failed     bool
}

// History reconstructs the most recent runs of a task, newest first. It
// returns an empty list when the task does not exist. When the operational
// channel is unavailable only the task's last recorded run is reported.
func (s *Service) History(ctx context.Context, path string, maxResults int) ([]model.ScheduledTaskRun, error) {
	if strings.TrimSpace(path) == "" {
		return nil, winerr.InvalidArgument("taskPath", "Task path cannot be empty")
	}
	if maxResults <= 0 {
		return nil, winerr.InvalidArgument("maxResults", "must be greater than 0")
	}
	out := []model.ScheduledTaskRun{}
	t, err := s.sched.Task(ctx, path)
	if err != nil {
		if winerr.IsNotFound(err) {
			return out, nil
		}
		return nil, err
	}

	recs, err := s.operationalEvents(ctx, t.Path, maxResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("task history unavailable", zap.String("task", t.Path), zap.Error(err))
	}
	for _, r := range correlate(recs) {
		out = append(out, toRun(t, r))
	}

	if t.LastRunTime != nil && !covered(out, *t.LastRunTime) {
		out = append(out, model.ScheduledTaskRun{
			TaskName:          t.Name,
			TaskPath:          t.Path,
			StartTime:         *t.LastRunTime,
			ResultCode:        t.LastResult,
			ResultDescription: ResultDescription(t.LastResult),
			IsSuccess:         t.LastResult == 0,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (s *Service) operationalEvents(ctx context.Context, path string, maxResults int) ([]eventlog.Record, error) {
	if s.events == nil {
		return nil, nil
	}
	xpath, err := eventlog.Criteria{
		EventIDs: []uint32{eventStarted, eventStartFailed, eventCompleted, eventActionFailed, eventActionResult},
		Data:     []eventlog.DataMatch{{Name: "TaskName", Value: path}},
	}.XPath()
	if err != nil {
		return nil, winerr.InvalidArgument("taskPath", err.Error())
	}
	limit := maxResults * historyScanPerRun
	if limit > historyScanCeiling {
		limit = historyScanCeiling
	}
	return s.events.Query(ctx, eventlog.Query{
		Channel: OperationalChannel,
		XPath:   xpath,
		Reverse: true,
		Max:     limit,
	})
}

// correlate groups lifecycle events by task instance id. Events without an
// instance id each describe a run of their own.
func correlate(recs []eventlog.Record) []*run {
	var order []*run
	byInstance := make(map[string]*run)
	for _, rec := range recs {
		var r *run
		id, _ := rec.Named("InstanceId")
		id = strings.ToLower(strings.Trim(id, "{}"))
		if id != "" {
			r = byInstance[id]
		}
		if r == nil {
			r = &run{}
			order = append(order, r)
			if id != "" {
				byInstance[id] = r
			}
		}

		switch rec.EventID {
		case eventStarted:
			r.start, r.started = rec.Time, true
		case eventCompleted:
			r.end = rec.Time
		case eventActionResult:
			if r.end.IsZero() {
				r.end = rec.Time
			}
			if code, ok := resultCode(rec); ok {
				r.code, r.hasCode = code, true
			}
		case eventStartFailed, eventActionFailed:
			r.failed = true
			if code, ok := resultCode(rec); ok && (!r.hasCode || code != 0) {
				r.code, r.hasCode = code, true
			}
		}
		if !r.started && (r.start.IsZero() || rec.Time.Before(r.start)) {
			r.start = rec.Time
		}
	}
	return order
}

// resultCode parses the ResultCode data field, which the scheduler writes
// either as an unsigned decimal or in hex.
func resultCode(rec eventlog.Record) (int32, bool) {
	v, ok := rec.Named("ResultCode")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
	if err != nil {
		return 0, false
	}
	return int32(uint32(n)), true
}

func toRun(t Task, r *run) model.ScheduledTaskRun {
	out := model.ScheduledTaskRun{
		TaskName:   t.Name,
		TaskPath:   t.Path,
		StartTime:  r.start,
		ResultCode: r.code,
		IsSuccess:  !r.failed && r.code == 0,
	}
	if !r.end.IsZero() {
		end := r.end
		out.EndTime = &end
	}
	if r.hasCode || r.failed {
		out.ResultDescription = ResultDescription(r.code)
	}
	return out
}

// covered reports whether a reconstructed run started within a second of t.
// Scheduler run times have second precision while event times do not.
func covered(runs []model.ScheduledTaskRun, t time.Time) bool {
	for _, r := range runs {
		d := r.StartTime.Sub(t)
		if d < 0 {
			d = -d
		}
		if d < time.Second {
			return true
		}
	}
	return false
}
