// Package network runs connectivity checks and lists network adapters.
package network

import (
	"context"
	"errors"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

const msgTimedOut = "Connection timed out"

type Service struct {
	log *zap.Logger

	dial       func(ctx context.Context, network, addr string) (net.Conn, error)
	lookup     func(ctx context.Context, host string) ([]net.IPAddr, error)
	interfaces func(ctx context.Context) (gnet.InterfaceStatList, error)
}

func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	var d net.Dialer
	return &Service{
		log:        log,
		dial:       d.DialContext,
		lookup:     net.DefaultResolver.LookupIPAddr,
		interfaces: gnet.InterfacesWithContext,
	}
}

// TestConnection attempts a TCP connect to host:port within timeout.
// Connect failures are reported in the result, not as errors.
func (s *Service) TestConnection(ctx context.Context, host string, port int, timeout time.Duration) (model.ConnectivityResult, error) {
	if strings.TrimSpace(host) == "" {
		return model.ConnectivityResult{}, winerr.InvalidArgument("host", "Host cannot be empty")
	}
	if port < 1 || port > 65535 {
		return model.ConnectivityResult{}, winerr.InvalidArgument("port", "Port must be between 1 and 65535")
	}
	if timeout <= 0 {
		return model.ConnectivityResult{}, winerr.InvalidArgument("timeoutMs", "Timeout must be greater than 0")
	}

	res := model.ConnectivityResult{Host: host, Port: port}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := s.dial(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if isTimeout(err) || errors.Is(dctx.Err(), context.DeadlineExceeded) {
			res.Error = msgTimedOut
		} else {
			res.Error = err.Error()
		}
		s.log.Debug("tcp connect failed", zap.String("host", host), zap.Int("port", port), zap.Error(err))
		return res, nil
	}
	res.LatencyMs = time.Since(start).Milliseconds()
	res.TCPConnected = true
	_ = conn.Close()
	return res, nil
}

// ResolveDNS resolves hostName to its addresses. Resolution failures are
// reported in the result.
func (s *Service) ResolveDNS(ctx context.Context, hostName string) (model.DNSResult, error) {
	if strings.TrimSpace(hostName) == "" {
		return model.DNSResult{}, winerr.InvalidArgument("hostName", "Host name cannot be empty")
	}
	res := model.DNSResult{HostName: hostName, IPAddresses: []string{}}
	addrs, err := s.lookup(ctx, hostName)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	for _, a := range addrs {
		res.IPAddresses = append(res.IPAddresses, a.String())
	}
	return res, nil
}

// Adapters lists network interfaces ordered by name.
func (s *Service) Adapters(ctx context.Context) ([]model.NetworkAdapterInfo, error) {
	ifaces, err := s.interfaces(ctx)
	if err != nil {
		return nil, winerr.Classify("GetAdaptersAddresses", "Network adapter", "", err)
	}
	out := make([]model.NetworkAdapterInfo, 0, len(ifaces))
	for _, ifc := range ifaces {
		info := model.NetworkAdapterInfo{
			Name:        ifc.Name,
			Description: describe(ifc),
			Status:      "Down",
			IPAddresses: []string{},
			MACAddress:  compactMAC(ifc.HardwareAddr),
		}
		for _, f := range ifc.Flags {
			if f == "up" {
				info.Status = "Up"
			}
		}
		for _, a := range ifc.Addrs {
			ip := a.Addr
			if i := strings.IndexByte(ip, '/'); i >= 0 {
				ip = ip[:i]
			}
			bare, _, _ := strings.Cut(ip, "%")
			if net.ParseIP(bare) != nil {
				info.IPAddresses = append(info.IPAddresses, ip)
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func describe(ifc gnet.InterfaceStat) string {
	if len(ifc.Flags) == 0 {
		return ifc.Name
	}
	return ifc.Name + " (" + strings.Join(ifc.Flags, ", ") + ")"
}

// compactMAC renders 00:15:5d:01:23:45 as 00155D012345.
func compactMAC(hw string) string {
	r := strings.NewReplacer(":", "", "-", "")
	return strings.ToUpper(r.Replace(hw))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
