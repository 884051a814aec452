package printing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

type fakeSource struct {
	printers []model.PrinterInfo
	jobs     []model.PrintJobInfo
	asked    []string
}

func (f *fakeSource) Printers(context.Context) ([]model.PrinterInfo, error) {
	return append([]model.PrinterInfo(nil), f.printers...), nil
}

func (f *fakeSource) Jobs(_ context.Context, printer string) ([]model.PrintJobInfo, error) {
	f.asked = append(f.asked, printer)
	var out []model.PrintJobInfo
	for _, j := range f.jobs {
		if printer == "" || j.PrinterName == printer {
			out = append(out, j)
		}
	}
	return out, nil
}

func newFake() *fakeSource {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &fakeSource{
		printers: []model.PrinterInfo{
			{Name: "Microsoft Print to PDF", Status: "Idle"},
			{Name: "HP LaserJet", Status: "Printing", IsDefault: true},
		},
		jobs: []model.PrintJobInfo{
			{JobID: 1, PrinterName: "HP LaserJet", SubmittedTime: t0},
			{JobID: 2, PrinterName: "HP LaserJet", SubmittedTime: t0.Add(time.Hour)},
			{JobID: 3, PrinterName: "Microsoft Print to PDF", SubmittedTime: t0.Add(30 * time.Minute)},
		},
	}
}

func TestPrintersSortedAndLookup(t *testing.T) {
	svc := NewService(newFake(), nil)
	list, err := svc.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HP LaserJet", list[0].Name)

	p, err := svc.Printer(context.Background(), "hp laserjet")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsDefault)

	missing, err := svc.Printer(context.Background(), "Fax")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobsNewestFirst(t *testing.T) {
	f := newFake()
	svc := NewService(f, nil)

	jobs, err := svc.Jobs(context.Background(), "HP LaserJet")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, uint32(2), jobs[0].JobID)

	all, err := svc.AllJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint32{2, 3, 1}, []uint32{all[0].JobID, all[1].JobID, all[2].JobID})
	assert.Equal(t, []string{"HP LaserJet", ""}, f.asked)

	_, err = svc.Jobs(context.Background(), " ")
	assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err))
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "Stopped Printing", StatusName(6))
	assert.Equal(t, "Offline", StatusName(7))
	assert.Equal(t, "Status 9", StatusName(9))
}

func TestJobsQuery(t *testing.T) {
	assert.Equal(t, "SELECT "+jobColumns+" FROM Win32_PrintJob", jobsQuery(""))
	assert.Equal(t,
		`SELECT `+jobColumns+` FROM Win32_PrintJob WHERE Name LIKE '\\\\srv\\Bob\'s[_]Printer, %'`,
		jobsQuery(`\\srv\Bob's_Printer`))
}

func TestJobPrinter(t *testing.T) {
	assert.Equal(t, "HP LaserJet", jobPrinter("HP LaserJet, 12"))
	assert.Equal(t, "Acme, Inc. Printer", jobPrinter("Acme, Inc. Printer, 3"))
	assert.Equal(t, "bare", jobPrinter("bare"))
}
