// Package tasks reports Task Scheduler registrations and reconstructs their
// recent runs from the scheduler's operational event channel.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/model"
	"wininvestigator/internal/pattern"
	"wininvestigator/internal/winerr"
)

const (
	resultRunning = 0x00041301
	summaryLimit  = 3
)

// TASK_STATE values.
const (
	StateUnknown uint32 = iota
	StateDisabled
	StateQueued
	StateReady
	StateRunning
)

// Trigger is the subset of a task trigger used for summaries.
type Trigger struct {
	Type          int32
	StartBoundary string
	Enabled       bool
	UserID        string
	DaysInterval  int32
}

// Action is the subset of a task action used for summaries.
type Action struct {
	Type      int32
	Path      string
	Arguments string
}

// Task is one registered task as read from the scheduler.
type Task struct {
	Name        string
	Path        string
	Description string
	Author      string
	UserID      string
	State       uint32
	Enabled     bool
	Hidden      bool
	LastRunTime *time.Time
	NextRunTime *time.Time
	LastResult  int32
	Triggers    []Trigger
	Actions     []Action
}

// Scheduler enumerates registered tasks. Tasks walks every folder and
// includes hidden tasks. Task fails with NotFound for an unknown path.
type Scheduler interface {
	Tasks(ctx context.Context) ([]Task, error)
	Task(ctx context.Context, path string) (Task, error)
}

type Service struct {
	sched  Scheduler
	events eventlog.Source
	log    *zap.Logger
}

func NewService(sched Scheduler, events eventlog.Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sched: sched, events: events, log: log}
}

// List returns registered tasks ordered by path.
func (s *Service) List(ctx context.Context, includeHidden bool) ([]model.ScheduledTaskInfo, error) {
	all, err := s.sched.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(all, func(t Task) bool { return includeHidden || !t.Hidden }), nil
}

// Get returns the task at path, or nil when none is registered there.
func (s *Service) Get(ctx context.Context, path string) (*model.ScheduledTaskInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, winerr.InvalidArgument("taskPath", "Task path cannot be empty")
	}
	t, err := s.sched.Task(ctx, path)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	info := toInfo(t)
	return &info, nil
}

// Search matches expr against task name, path and description. Hidden tasks
// are searched too.
func (s *Service) Search(ctx context.Context, expr string) ([]model.ScheduledTaskInfo, error) {
	m, err := pattern.Compile("pattern", expr)
	if err != nil {
		return nil, err
	}
	all, err := s.sched.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(all, func(t Task) bool { return m.MatchAny(t.Name, t.Path, t.Description) }), nil
}

// Failed returns tasks that have run and whose last result is neither
// success nor "currently running".
func (s *Service) Failed(ctx context.Context) ([]model.ScheduledTaskInfo, error) {
	all, err := s.sched.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(all, func(t Task) bool {
		return t.LastRunTime != nil && t.LastResult != 0 && uint32(t.LastResult) != resultRunning
	}), nil
}

func toInfos(all []Task, keep func(Task) bool) []model.ScheduledTaskInfo {
	out := make([]model.ScheduledTaskInfo, 0, len(all))
	for _, t := range all {
		if keep(t) {
			out = append(out, toInfo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Path) < strings.ToLower(out[j].Path)
	})
	return out
}

func toInfo(t Task) model.ScheduledTaskInfo {
	result := t.LastResult
	return model.ScheduledTaskInfo{
		Name:                     t.Name,
		Path:                     t.Path,
		Description:              t.Description,
		State:                    StateName(t.State),
		LastRunTime:              t.LastRunTime,
		LastRunResult:            &result,
		LastRunResultDescription: ResultDescription(t.LastResult),
		NextRunTime:              t.NextRunTime,
		Author:                   t.Author,
		UserID:                   t.UserID,
		Triggers:                 TriggerSummary(t.Triggers),
		Actions:                  ActionSummary(t.Actions),
		IsEnabled:                t.Enabled,
		IsHidden:                 t.Hidden,
	}
}

// splitTaskPath separates a task path into its folder and task name.
func splitTaskPath(path string) (parent, name string) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, `\`) {
		path = `\` + path
	}
	i := strings.LastIndex(path, `\`)
	parent, name = path[:i], path[i+1:]
	if parent == "" {
		parent = `\`
	}
	return parent, name
}

func StateName(state uint32) string {
	switch state {
	case StateDisabled:
		return "Disabled"
	case StateQueued:
		return "Queued"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	}
	return "Unknown"
}

var resultDescriptions = map[uint32]string{
	0x00000000: "Success",
	0x00041300: "Task is ready to run at its next scheduled time",
	0x00041301: "Task is currently running",
	0x00041302: "Task is disabled",
	0x00041303: "Task has not yet run",
	0x00041304: "No more runs scheduled",
	0x00041305: "Triggered by event",
	0x00041306: "Task terminated by user",
	0x00041307: "No valid triggers",
	0x00041308: "Event triggers do not have set run times",
	0x8004130F: "Credentials became corrupted",
	0x8004131F: "Instance already running",
	0x80041326: "Task not started",
	0x80070005: "Access denied",
	0x800710E0: "Operator or administrator refused the request",
	0xC000013A: "Application terminated by Ctrl+C",
}

// ResultDescription explains a task result code.
func ResultDescription(code int32) string {
	if d, ok := resultDescriptions[uint32(code)]; ok {
		return d
	}
	return fmt.Sprintf("Error code: 0x%08X", uint32(code))
}

var triggerLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// TriggerSummary describes up to three triggers, joined by "; ".
func TriggerSummary(triggers []Trigger) string {
	parts := make([]string, 0, summaryLimit)
	for i, tr := range triggers {
		if i == summaryLimit {
			break
		}
		parts = append(parts, describeTrigger(tr))
	}
	return strings.Join(parts, "; ")
}

func describeTrigger(tr Trigger) string {
	at := startAt(tr.StartBoundary)
	var s string
	switch tr.Type {
	case 0:
		s = "On an event"
	case 1:
		s = "One time" + at
	case 2:
		if tr.DaysInterval > 1 {
			s = fmt.Sprintf("Every %d days%s", tr.DaysInterval, at)
		} else {
			s = "Daily" + at
		}
	case 3:
		s = "Weekly" + at
	case 4:
		s = "Monthly" + at
	case 5:
		s = "Monthly on a day of week" + at
	case 6:
		s = "When idle"
	case 7:
		s = "At task creation or modification"
	case 8:
		s = "At system startup"
	case 9:
		if tr.UserID != "" {
			s = "At log on of " + tr.UserID
		} else {
			s = "At log on of any user"
		}
	case 11:
		s = "On session state change"
	default:
		s = fmt.Sprintf("Custom trigger (%d)", tr.Type)
	}
	if !tr.Enabled {
		s += " (disabled)"
	}
	return s
}

func startAt(boundary string) string {
	if boundary == "" {
		return ""
	}
	for _, layout := range triggerLayouts {
		if t, err := time.Parse(layout, boundary); err == nil {
			return " at " + t.Format("2006-01-02 15:04")
		}
	}
	return " at " + boundary
}

// ActionSummary describes up to three actions, joined by "; ".
func ActionSummary(actions []Action) string {
	parts := make([]string, 0, summaryLimit)
	for i, a := range actions {
		if i == summaryLimit {
			break
		}
		switch a.Type {
		case 0:
			parts = append(parts, strings.TrimSpace(a.Path+" "+a.Arguments))
		case 5:
			parts = append(parts, "Custom handler")
		case 6:
			parts = append(parts, "Send e-mail")
		case 7:
			parts = append(parts, "Display message")
		default:
			parts = append(parts, fmt.Sprintf("Action (%d)", a.Type))
		}
	}
	return strings.Join(parts, "; ")
}
