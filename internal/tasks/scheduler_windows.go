//go:build windows

package tasks

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"go.uber.org/zap"

	"wininvestigator/internal/winerr"
)

const (
	taskEnumHidden = 1
	sFalse         = 0x00000001
)

type comScheduler struct {
	log *zap.Logger
}

// NewScheduler returns a Scheduler backed by the Schedule.Service COM object.
func NewScheduler(log *zap.Logger) Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &comScheduler{log: log}
}

// withService runs fn on a locked OS thread with a connected ITaskService.
func (c *comScheduler) withService(fn func(svc *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oe, ok := err.(*ole.OleError)
		if !ok || oe.Code() != sFalse {
			return winerr.PlatformAPI("CoInitializeEx", err)
		}
	}
	defer ole.CoUninitialize()

	unk, err := oleutil.CreateObject("Schedule.Service")
	if err != nil {
		return comErr("CoCreateInstance(Schedule.Service)", err)
	}
	defer unk.Release()
	svc, err := unk.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return comErr("QueryInterface(ITaskService)", err)
	}
	defer svc.Release()

	if _, err := oleutil.CallMethod(svc, "Connect"); err != nil {
		return comErr("ITaskService.Connect", err)
	}
	return fn(svc)
}

func (c *comScheduler) Tasks(ctx context.Context) ([]Task, error) {
	var out []Task
	err := c.withService(func(svc *ole.IDispatch) error {
		root, err := dispatchOf(oleutil.CallMethod(svc, "GetFolder", `\`))
		if err != nil {
			return comErr("ITaskService.GetFolder", err)
		}
		defer root.Release()
		return c.walk(ctx, root, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk collects the tasks of folder and its subfolders. Unreadable subfolders
// are skipped.
func (c *comScheduler) walk(ctx context.Context, folder *ole.IDispatch, out *[]Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tasks, err := dispatchOf(oleutil.CallMethod(folder, "GetTasks", taskEnumHidden))
	if err != nil {
		return comErr("ITaskFolder.GetTasks", err)
	}
	err = oleutil.ForEach(tasks, func(v *ole.VARIANT) error {
		t := v.ToIDispatch()
		if t == nil {
			return nil
		}
		task, err := readTask(t)
		if err != nil {
			c.log.Debug("skipping unreadable task", zap.Error(err))
			return nil
		}
		*out = append(*out, task)
		return nil
	})
	tasks.Release()
	if err != nil {
		return comErr("IRegisteredTaskCollection", err)
	}

	subs, err := dispatchOf(oleutil.CallMethod(folder, "GetFolders", 0))
	if err != nil {
		c.log.Debug("subfolders unavailable", zap.Error(err))
		return nil
	}
	defer subs.Release()
	return oleutil.ForEach(subs, func(v *ole.VARIANT) error {
		sub := v.ToIDispatch()
		if sub == nil {
			return nil
		}
		if err := c.walk(ctx, sub, out); err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.log.Debug("skipping unreadable folder", zap.Error(err))
		}
		return nil
	})
}

// Task looks the task up within its parent folder so that a missing folder
// or name is reported as NotFound without decoding COM exception codes.
func (c *comScheduler) Task(ctx context.Context, path string) (Task, error) {
	parent, name := splitTaskPath(path)
	var (
		found Task
		ok    bool
	)
	err := c.withService(func(svc *ole.IDispatch) error {
		folder, err := dispatchOf(oleutil.CallMethod(svc, "GetFolder", parent))
		if err != nil {
			return winerr.NotFound("Scheduled task", path)
		}
		defer folder.Release()
		tasks, err := dispatchOf(oleutil.CallMethod(folder, "GetTasks", taskEnumHidden))
		if err != nil {
			return comErr("ITaskFolder.GetTasks", err)
		}
		defer tasks.Release()
		return oleutil.ForEach(tasks, func(v *ole.VARIANT) error {
			if ok {
				return nil
			}
			t := v.ToIDispatch()
			if t == nil || !strings.EqualFold(stringProp(t, "Name"), name) {
				return nil
			}
			task, err := readTask(t)
			if err != nil {
				return err
			}
			found, ok = task, true
			return nil
		})
	})
	if err != nil {
		return Task{}, err
	}
	if !ok {
		return Task{}, winerr.NotFound("Scheduled task", path)
	}
	return found, ctx.Err()
}

func readTask(t *ole.IDispatch) (Task, error) {
	task := Task{
		Name:       stringProp(t, "Name"),
		Path:       stringProp(t, "Path"),
		State:      uint32(intProp(t, "State")),
		Enabled:    boolProp(t, "Enabled"),
		LastResult: int32(intProp(t, "LastTaskResult")),
	}
	if task.Path == "" {
		return Task{}, fmt.Errorf("IRegisteredTask.Path: empty")
	}
	task.LastRunTime = dateProp(t, "LastRunTime")
	task.NextRunTime = dateProp(t, "NextRunTime")

	def, err := dispatchOf(oleutil.GetProperty(t, "Definition"))
	if err != nil {
		// registered but unreadable for the current principal
		return task, nil
	}
	defer def.Release()

	if reg, err := dispatchOf(oleutil.GetProperty(def, "RegistrationInfo")); err == nil {
		task.Description = stringProp(reg, "Description")
		task.Author = stringProp(reg, "Author")
		reg.Release()
	}
	if p, err := dispatchOf(oleutil.GetProperty(def, "Principal")); err == nil {
		task.UserID = stringProp(p, "UserId")
		p.Release()
	}
	if st, err := dispatchOf(oleutil.GetProperty(def, "Settings")); err == nil {
		task.Hidden = boolProp(st, "Hidden")
		st.Release()
	}
	if trs, err := dispatchOf(oleutil.GetProperty(def, "Triggers")); err == nil {
		_ = oleutil.ForEach(trs, func(v *ole.VARIANT) error {
			tr := v.ToIDispatch()
			if tr == nil {
				return nil
			}
			trig := Trigger{
				Type:          int32(intProp(tr, "Type")),
				StartBoundary: stringProp(tr, "StartBoundary"),
				Enabled:       boolProp(tr, "Enabled"),
			}
			switch trig.Type {
			case 2:
				trig.DaysInterval = int32(intProp(tr, "DaysInterval"))
			case 9:
				trig.UserID = stringProp(tr, "UserId")
			}
			task.Triggers = append(task.Triggers, trig)
			return nil
		})
		trs.Release()
	}
	if acts, err := dispatchOf(oleutil.GetProperty(def, "Actions")); err == nil {
		_ = oleutil.ForEach(acts, func(v *ole.VARIANT) error {
			a := v.ToIDispatch()
			if a == nil {
				return nil
			}
			act := Action{Type: int32(intProp(a, "Type"))}
			if act.Type == 0 {
				act.Path = stringProp(a, "Path")
				act.Arguments = stringProp(a, "Arguments")
			}
			task.Actions = append(task.Actions, act)
			return nil
		})
		acts.Release()
	}
	return task, nil
}

func dispatchOf(v *ole.VARIANT, err error) (*ole.IDispatch, error) {
	if err != nil {
		return nil, err
	}
	d := v.ToIDispatch()
	if d == nil {
		return nil, fmt.Errorf("expected an object, got VT %d", v.VT)
	}
	return d, nil
}

func property(d *ole.IDispatch, name string) interface{} {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return nil
	}
	defer v.Clear()
	return v.Value()
}

func stringProp(d *ole.IDispatch, name string) string {
	s, _ := property(d, name).(string)
	return s
}

func boolProp(d *ole.IDispatch, name string) bool {
	b, _ := property(d, name).(bool)
	return b
}

func intProp(d *ole.IDispatch, name string) int64 {
	switch n := property(d, name).(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

// dateProp reads a DATE property. The scheduler reports never as a date in
// 1899, which maps to nil.
func dateProp(d *ole.IDispatch, name string) *time.Time {
	t, ok := property(d, name).(time.Time)
	if !ok || t.Year() <= 1899 {
		return nil
	}
	return &t
}

func comErr(api string, err error) error {
	if oe, ok := err.(*ole.OleError); ok {
		return winerr.Classify(api, "Scheduled task", "", winerr.Status(uint32(oe.Code())))
	}
	return winerr.PlatformAPI(api, err)
}
