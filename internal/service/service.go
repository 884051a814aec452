// Package service reports Win32 services registered with the Service Control Manager.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/pattern"
	"wininvestigator/internal/winerr"
)

// Entry is the raw configuration and status of one service.
type Entry struct {
	Name        string
	DisplayName string
	State       uint32
	StartType   uint32
	Description string
	BinaryPath  string
	Account     string
}

// Source enumerates services. Get fails with a NotFound error for unknown names.
type Source interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, name string) (Entry, error)
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

// List returns every service ordered by name.
func (s *Service) List(ctx context.Context) ([]model.ServiceInfo, error) {
	entries, err := s.src.List(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(entries, nil), nil
}

// Get returns the named service, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, name string) (*model.ServiceInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, winerr.InvalidArgument("serviceName", "Service name cannot be empty")
	}
	e, err := s.src.Get(ctx, name)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	info := toInfo(e)
	return &info, nil
}

// Search returns services whose name or display name matches expr.
func (s *Service) Search(ctx context.Context, expr string) ([]model.ServiceInfo, error) {
	m, err := pattern.Compile("pattern", expr)
	if err != nil {
		return nil, err
	}
	entries, err := s.src.List(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(entries, func(e Entry) bool { return m.MatchAny(e.Name, e.DisplayName) }), nil
}

func toInfos(entries []Entry, keep func(Entry) bool) []model.ServiceInfo {
	out := make([]model.ServiceInfo, 0, len(entries))
	for _, e := range entries {
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, toInfo(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toInfo(e Entry) model.ServiceInfo {
	return model.ServiceInfo{
		Name:           e.Name,
		DisplayName:    e.DisplayName,
		Status:         StateName(e.State),
		StartType:      StartTypeName(e.StartType),
		Description:    e.Description,
		PathName:       e.BinaryPath,
		ServiceAccount: e.Account,
	}
}

// StateName maps SERVICE_* current state values.
func StateName(state uint32) string {
	switch state {
	case 1:
		return "Stopped"
	case 2:
		return "StartPending"
	case 3:
		return "StopPending"
	case 4:
		return "Running"
	case 5:
		return "ContinuePending"
	case 6:
		return "PausePending"
	case 7:
		return "Paused"
	}
	return fmt.Sprintf("Unknown (%d)", state)
}

// StartTypeName maps SERVICE_*_START values.
func StartTypeName(start uint32) string {
	switch start {
	case 0:
		return "Boot"
	case 1:
		return "System"
	case 2:
		return "Automatic"
	case 3:
		return "Manual"
	case 4:
		return "Disabled"
	}
	return fmt.Sprintf("Unknown (%d)", start)
}
