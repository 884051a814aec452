// Package printing reports printers and print queues.
package printing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

// Source queries the spooler. An empty printer name in Jobs selects every queue.
type Source interface {
	Printers(ctx context.Context) ([]model.PrinterInfo, error)
	Jobs(ctx context.Context, printerName string) ([]model.PrintJobInfo, error)
}

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

// Printers returns installed printers ordered by name.
func (s *Service) Printers(ctx context.Context) ([]model.PrinterInfo, error) {
	list, err := s.src.Printers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Printer returns the printer with the given name, matched case-insensitively.
func (s *Service) Printer(ctx context.Context, name string) (*model.PrinterInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, winerr.InvalidArgument("printerName", "Printer name cannot be empty")
	}
	list, err := s.Printers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			return &list[i], nil
		}
	}
	return nil, nil
}

// Jobs returns the queue of one printer, newest submission first.
func (s *Service) Jobs(ctx context.Context, printerName string) ([]model.PrintJobInfo, error) {
	if strings.TrimSpace(printerName) == "" {
		return nil, winerr.InvalidArgument("printerName", "Printer name cannot be empty")
	}
	return s.jobs(ctx, printerName)
}

// AllJobs returns every queued job, newest submission first.
func (s *Service) AllJobs(ctx context.Context) ([]model.PrintJobInfo, error) {
	return s.jobs(ctx, "")
}

func (s *Service) jobs(ctx context.Context, printerName string) ([]model.PrintJobInfo, error) {
	jobs, err := s.src.Jobs(ctx, printerName)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].SubmittedTime.After(jobs[j].SubmittedTime) })
	return jobs, nil
}

// StatusName maps Win32_Printer.PrinterStatus.
func StatusName(status uint16) string {
	switch status {
	case 1:
		return "Other"
	case 2:
		return "Unknown"
	case 3:
		return "Idle"
	case 4:
		return "Printing"
	case 5:
		return "Warmup"
	case 6:
		return "Stopped Printing"
	case 7:
		return "Offline"
	}
	return fmt.Sprintf("Status %d", status)
}

const jobColumns = "Name, JobId, Document, JobStatus, Owner, Size, TotalPages, TimeSubmitted"

// jobsQuery builds the Win32_PrintJob query. Job names have the form
// "<printer>, <id>".
func jobsQuery(printerName string) string {
	q := "SELECT " + jobColumns + " FROM Win32_PrintJob"
	if printerName == "" {
		return q
	}
	return q + " WHERE Name LIKE '" + likeLiteral(printerName) + ", %'"
}

var wqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// likeLiteral escapes s for use inside a quoted WQL LIKE pattern.
func likeLiteral(s string) string {
	s = wqlEscaper.Replace(s)
	return strings.NewReplacer("[", "[[]", "%", "[%]", "_", "[_]").Replace(s)
}

// jobPrinter extracts the printer from a Win32_PrintJob name.
func jobPrinter(jobName string) string {
	if i := strings.LastIndex(jobName, ","); i >= 0 {
		return strings.TrimSpace(jobName[:i])
	}
	return jobName
}
