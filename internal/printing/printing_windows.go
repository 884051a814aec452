//go:build windows

package printing

import (
	"context"
	"strings"
	"time"

	"github.com/yusufpapurcu/wmi"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

type win32Printer struct {
	Name          string
	DriverName    string
	PortName      string
	PrinterStatus uint16
	Default       bool
	Shared        bool
	Location      *string
	Comment       *string
}

type win32PrintJob struct {
	Name          string
	JobId         uint32
	Document      *string
	JobStatus     *string
	Owner         *string
	Size          uint32
	TotalPages    uint32
	TimeSubmitted time.Time
}

type wmiSource struct{}

func NewSource() Source { return wmiSource{} }

func (wmiSource) Printers(context.Context) ([]model.PrinterInfo, error) {
	var rows []win32Printer
	q := "SELECT Name, DriverName, PortName, PrinterStatus, Default, Shared, Location, Comment FROM Win32_Printer"
	if err := wmi.Query(q, &rows); err != nil {
		return nil, winerr.Classify("WMI Win32_Printer", "Printer", "", err)
	}
	out := make([]model.PrinterInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.PrinterInfo{
			Name:       r.Name,
			DriverName: r.DriverName,
			PortName:   r.PortName,
			Status:     StatusName(r.PrinterStatus),
			IsDefault:  r.Default,
			IsShared:   r.Shared,
			Location:   str(r.Location),
			Comment:    str(r.Comment),
		})
	}
	return out, nil
}

func (wmiSource) Jobs(_ context.Context, printerName string) ([]model.PrintJobInfo, error) {
	var rows []win32PrintJob
	if err := wmi.Query(jobsQuery(printerName), &rows); err != nil {
		return nil, winerr.Classify("WMI Win32_PrintJob", "Printer", printerName, err)
	}
	out := make([]model.PrintJobInfo, 0, len(rows))
	for _, r := range rows {
		printer := jobPrinter(r.Name)
		if printerName != "" && !strings.EqualFold(printer, printerName) {
			continue
		}
		status := str(r.JobStatus)
		if status == "" {
			status = "Unknown"
		}
		out = append(out, model.PrintJobInfo{
			JobID:         r.JobId,
			PrinterName:   printer,
			DocumentName:  str(r.Document),
			Status:        status,
			UserName:      str(r.Owner),
			SizeBytes:     uint64(r.Size),
			Pages:         r.TotalPages,
			SubmittedTime: r.TimeSubmitted,
		})
	}
	return out, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
