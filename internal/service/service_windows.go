//go:build windows

package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/mgr"

	"wininvestigator/internal/winerr"
)

// scmSource queries the SCM with connect and enumerate rights only, so it
// works without elevation. mgr.Connect would ask for SC_MANAGER_ALL_ACCESS.
type scmSource struct {
	log *zap.Logger
}

func NewSource(log *zap.Logger) Source {
	if log == nil {
		log = zap.NewNop()
	}
	return scmSource{log: log}
}

func connect() (*mgr.Mgr, error) {
	h, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT|windows.SC_MANAGER_ENUMERATE_SERVICE)
	if err != nil {
		return nil, winerr.Classify("OpenSCManager", "Service manager", "", err)
	}
	return &mgr.Mgr{Handle: h}, nil
}

func (s scmSource) List(ctx context.Context) ([]Entry, error) {
	m, err := connect()
	if err != nil {
		return nil, err
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, winerr.Classify("EnumServicesStatusEx", "Service", "", err)
	}
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := describe(m, name)
		if err != nil {
			// services can disappear or deny query access mid-enumeration
			s.log.Debug("service skipped", zap.String("service", name), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s scmSource) Get(_ context.Context, name string) (Entry, error) {
	m, err := connect()
	if err != nil {
		return Entry{}, err
	}
	defer m.Disconnect()
	return describe(m, name)
}

func describe(m *mgr.Mgr, name string) (Entry, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return Entry{}, winerr.InvalidArgument("serviceName", err.Error())
	}
	h, err := windows.OpenService(m.Handle, p, windows.SERVICE_QUERY_CONFIG|windows.SERVICE_QUERY_STATUS)
	if err != nil {
		return Entry{}, winerr.Classify("OpenService", "Service", name, err)
	}
	sv := &mgr.Service{Name: name, Handle: h}
	defer sv.Close()

	cfg, err := sv.Config()
	if err != nil {
		return Entry{}, winerr.Classify("QueryServiceConfig", "Service", name, err)
	}
	st, err := sv.Query()
	if err != nil {
		return Entry{}, winerr.Classify("QueryServiceStatusEx", "Service", name, err)
	}
	return Entry{
		Name:        name,
		DisplayName: cfg.DisplayName,
		State:       uint32(st.State),
		StartType:   cfg.StartType,
		Description: cfg.Description,
		BinaryPath:  cfg.BinaryPathName,
		Account:     cfg.ServiceStartName,
	}, nil
}
