package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/winerr"
)

type fakeSource struct {
	entries []Entry
	err     error
}

func (f fakeSource) List(context.Context) ([]Entry, error) { return f.entries, f.err }

func (f fakeSource) Get(_ context.Context, name string) (Entry, error) {
	if f.err != nil {
		return Entry{}, f.err
	}
	for _, e := range f.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, winerr.NotFound("Service", name)
}

var sample = fakeSource{entries: []Entry{
	{Name: "wuauserv", DisplayName: "Windows Update", State: 4, StartType: 3},
	{Name: "Spooler", DisplayName: "Print Spooler", State: 4, StartType: 2, BinaryPath: `C:\Windows\System32\spoolsv.exe`, Account: "LocalSystem"},
	{Name: "BITS", DisplayName: "Background Intelligent Transfer Service", State: 1, StartType: 4},
}}

func TestListSortsByName(t *testing.T) {
	list, err := NewService(sample, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "BITS", list[0].Name)
	assert.Equal(t, "Stopped", list[0].Status)
	assert.Equal(t, "Disabled", list[0].StartType)
	assert.Equal(t, "Spooler", list[1].Name)
	assert.Equal(t, "Automatic", list[1].StartType)
	assert.Equal(t, "LocalSystem", list[1].ServiceAccount)
	assert.Equal(t, "wuauserv", list[2].Name)
}

func TestGet(t *testing.T) {
	svc := NewService(sample, nil)
	info, err := svc.Get(context.Background(), "Spooler")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Running", info.Status)

	missing, err := svc.Get(context.Background(), "NoSuchService")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.Get(context.Background(), "")
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestGetPropagatesAccessDenied(t *testing.T) {
	svc := NewService(fakeSource{err: winerr.AccessDenied("SCM", nil)}, nil)
	_, err := svc.Get(context.Background(), "Spooler")
	assert.Equal(t, winerr.KindAccessDenied, winerr.KindOf(err))
}

func TestSearchMatchesNameOrDisplayName(t *testing.T) {
	svc := NewService(sample, nil)
	found, err := svc.Search(context.Background(), "print|^wua")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Spooler", found[0].Name)
	assert.Equal(t, "wuauserv", found[1].Name)

	_, err = svc.Search(context.Background(), "(unclosed")
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "PausePending", StateName(6))
	assert.Equal(t, "Unknown (9)", StateName(9))
	assert.Equal(t, "Boot", StartTypeName(0))
	assert.Equal(t, "Manual", StartTypeName(3))
}
