package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/winerr"
)

func rec(id uint32, d time.Duration, fields ...string) eventlog.Record {
	r := eventlog.Record{EventID: id, Time: base.Add(d)}
	for i := 0; i+1 < len(fields); i += 2 {
		r.Data = append(r.Data, eventlog.DataField{Name: fields[i], Value: fields[i+1]})
	}
	return r
}

func TestHistoryCorrelatesInstances(t *testing.T) {
	events := &fakeEvents{records: []eventlog.Record{
		// newest first, as read from the channel
		rec(102, 3*time.Hour+5*time.Second, "TaskName", `\Backup`, "InstanceId", "{B}"),
		rec(201, 3*time.Hour+4*time.Second, "TaskName", `\Backup`, "InstanceId", "{B}", "ResultCode", "2147942402"),
		rec(100, 3*time.Hour, "TaskName", `\Backup`, "InstanceId", "{B}"),
		rec(101, 2*time.Hour, "TaskName", `\Backup`, "ResultCode", "0x80070005"),
		rec(102, time.Minute, "TaskName", `\Backup`, "InstanceId", "{a}"),
		rec(201, 50*time.Second, "TaskName", `\Backup`, "InstanceId", "{A}", "ResultCode", "0"),
		rec(100, 0, "TaskName", `\Backup`, "InstanceId", "{A}"),
	}}
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, events, nil)

	runs, err := svc.History(context.Background(), `\Backup`, 20)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, base.Add(3*time.Hour), runs[0].StartTime)
	require.NotNil(t, runs[0].EndTime)
	assert.Equal(t, base.Add(3*time.Hour+5*time.Second), *runs[0].EndTime)
	assert.Equal(t, int32(-2147024894), runs[0].ResultCode)
	assert.False(t, runs[0].IsSuccess)
	assert.Equal(t, "Error code: 0x80070002", runs[0].ResultDescription)

	assert.Equal(t, base.Add(2*time.Hour), runs[1].StartTime)
	assert.False(t, runs[1].IsSuccess)
	assert.Equal(t, "Access denied", runs[1].ResultDescription)

	// the instance whose start matches LastRunTime covers the last run
	assert.Equal(t, base, runs[2].StartTime)
	assert.True(t, runs[2].IsSuccess)
	assert.Equal(t, "Backup", runs[2].TaskName)

	require.Len(t, events.queries, 1)
	q := events.queries[0]
	assert.Equal(t, OperationalChannel, q.Channel)
	assert.True(t, q.Reverse)
	assert.Equal(t, 100, q.Max)
	assert.Contains(t, q.XPath, "EventID=201")
	assert.Contains(t, q.XPath, `*[EventData[Data[@Name='TaskName']='\Backup']]`)
}

func TestHistoryAddsUncoveredLastRun(t *testing.T) {
	events := &fakeEvents{records: []eventlog.Record{
		rec(100, -time.Hour, "TaskName", `\Backup`, "InstanceId", "{old}"),
	}}
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, events, nil)

	runs, err := svc.History(context.Background(), `\Backup`, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, base, runs[0].StartTime)
	assert.Equal(t, int32(1), runs[0].ResultCode)
	assert.False(t, runs[0].IsSuccess)
	assert.Nil(t, runs[0].EndTime)
}

func TestHistoryFallsBackWhenChannelUnavailable(t *testing.T) {
	events := &fakeEvents{err: winerr.NotFound("Event log", OperationalChannel)}
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, events, nil)

	runs, err := svc.History(context.Background(), `\Reports\Report`, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].IsSuccess)
	assert.Equal(t, "Success", runs[0].ResultDescription)
}

func TestHistoryUnknownTask(t *testing.T) {
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, &fakeEvents{}, nil)
	runs, err := svc.History(context.Background(), `\Missing`, 5)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestHistoryNeverRun(t *testing.T) {
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, &fakeEvents{}, nil)
	runs, err := svc.History(context.Background(), `\audit`, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistoryValidation(t *testing.T) {
	svc := NewService(&fakeScheduler{tasks: sampleTasks()}, &fakeEvents{}, nil)
	_, err := svc.History(context.Background(), `\Backup`, 0)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
	_, err = svc.History(context.Background(), "", 5)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestHistorySchedulerFailure(t *testing.T) {
	boom := winerr.PlatformAPI("ITaskService.Connect", errors.New("boom"))
	svc := NewService(&fakeScheduler{err: boom}, &fakeEvents{}, nil)
	_, err := svc.History(context.Background(), `\Backup`, 5)
	assert.Equal(t, winerr.KindPlatformAPI, winerr.KindOf(err))
}

func TestResultCodeParsing(t *testing.T) {
	code, ok := resultCode(rec(201, 0, "ResultCode", "0x1"))
	assert.True(t, ok)
	assert.Equal(t, int32(1), code)

	_, ok = resultCode(rec(201, 0, "ResultCode", "n/a"))
	assert.False(t, ok)
	_, ok = resultCode(rec(201, 0))
	assert.False(t, ok)
}
