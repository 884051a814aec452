package process

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

type fakeSource struct {
	procs []model.ProcessInfo
	err   error
}

func (f fakeSource) List(context.Context) ([]model.ProcessInfo, error) {
	return append([]model.ProcessInfo(nil), f.procs...), f.err
}

func (f fakeSource) Get(_ context.Context, pid int32) (model.ProcessInfo, error) {
	for _, p := range f.procs {
		if p.ProcessID == pid {
			return p, nil
		}
	}
	return model.ProcessInfo{}, winerr.NotFound("Process", fmt.Sprint(pid))
}

func sampleTable() fakeSource {
	return fakeSource{procs: []model.ProcessInfo{
		{ProcessID: 400, Name: "svchost", CommandLine: `C:\Windows\system32\svchost.exe -k netsvcs`, ThreadCount: 20, WorkingSetBytes: 30 << 20, CPUPercent: 0.5},
		{ProcessID: 12, Name: "Explorer", ThreadCount: 60, WorkingSetBytes: 120 << 20, CPUPercent: 3},
		{ProcessID: 300, Name: "svchost", CommandLine: `C:\Windows\system32\svchost.exe -k LocalService`, ThreadCount: 8, WorkingSetBytes: 10 << 20},
		{ProcessID: 77, Name: "chrome", CommandLine: `"chrome.exe" --type=renderer`, ThreadCount: 15, WorkingSetBytes: 200 << 20, CPUPercent: 12.5},
	}}
}

func TestListOrdersByNameThenPID(t *testing.T) {
	list, err := NewService(sampleTable(), nil).List(context.Background())
	require.NoError(t, err)
	var got []string
	for _, p := range list {
		got = append(got, fmt.Sprintf("%s/%d", p.Name, p.ProcessID))
	}
	assert.Equal(t, []string{"chrome/77", "Explorer/12", "svchost/300", "svchost/400"}, got)
}

func TestGet(t *testing.T) {
	svc := NewService(sampleTable(), nil)
	p, err := svc.Get(context.Background(), 77)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "chrome", p.Name)

	gone, err := svc.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = svc.Get(context.Background(), 0)
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestSearchMatchesCommandLine(t *testing.T) {
	svc := NewService(sampleTable(), nil)
	found, err := svc.Search(context.Background(), "localservice|renderer")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int32(77), found[0].ProcessID)
	assert.Equal(t, int32(300), found[1].ProcessID)

	byName, err := svc.Search(context.Background(), "^EXPLORER$")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	_, err = svc.Search(context.Background(), "[")
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestSummary(t *testing.T) {
	sum, err := NewService(sampleTable(), nil).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalProcesses)
	assert.Equal(t, int64(103), sum.TotalThreads)
	assert.Equal(t, uint64(360<<20), sum.TotalWorkingSetBytes)
	require.Len(t, sum.TopCPUProcesses, 4)
	assert.Equal(t, "chrome", sum.TopCPUProcesses[0].Name)
	assert.Equal(t, "Explorer", sum.TopCPUProcesses[1].Name)
	assert.Equal(t, "chrome", sum.TopMemoryProcesses[0].Name)
	assert.Equal(t, int32(300), sum.TopMemoryProcesses[3].ProcessID)
}

func TestSummaryCapsTopLists(t *testing.T) {
	var src fakeSource
	for i := 1; i <= 25; i++ {
		src.procs = append(src.procs, model.ProcessInfo{ProcessID: int32(i), Name: fmt.Sprintf("p%02d", i), CPUPercent: float64(i), WorkingSetBytes: uint64(i)})
	}
	sum, err := NewService(src, nil).Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.TopCPUProcesses, 10)
	require.Len(t, sum.TopMemoryProcesses, 10)
	assert.Equal(t, int32(25), sum.TopCPUProcesses[0].ProcessID)
	assert.Equal(t, int32(16), sum.TopMemoryProcesses[9].ProcessID)
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, "notepad", trimExe("notepad.EXE"))
	assert.Equal(t, "bash", trimExe("bash"))
	assert.Equal(t, "High", PriorityName(0x80))
	assert.Equal(t, "", PriorityName(3))
}
