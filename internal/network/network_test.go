package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/winerr"
)

func TestConnectionToLocalListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	res, err := NewService(nil).TestConnection(context.Background(), "127.0.0.1", port, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, res.TCPConnected)
	assert.Empty(t, res.Error)
	assert.Equal(t, port, res.Port)
}

func TestConnectionTimeout(t *testing.T) {
	svc := NewService(nil)
	svc.dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	res, err := svc.TestConnection(context.Background(), "10.255.255.1", 443, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, res.TCPConnected)
	assert.Equal(t, "Connection timed out", res.Error)
}

func TestConnectionRefusedIsReported(t *testing.T) {
	svc := NewService(nil)
	svc.dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connect: connection refused")
	}
	res, err := svc.TestConnection(context.Background(), "localhost", 1, time.Second)
	require.NoError(t, err)
	assert.False(t, res.TCPConnected)
	assert.Equal(t, "connect: connection refused", res.Error)
}

func TestConnectionValidation(t *testing.T) {
	svc := NewService(nil)
	for _, tc := range []struct {
		host    string
		port    int
		timeout time.Duration
	}{
		{"", 80, time.Second},
		{"example.com", 0, time.Second},
		{"example.com", 70000, time.Second},
		{"example.com", 80, 0},
	} {
		_, err := svc.TestConnection(context.Background(), tc.host, tc.port, tc.timeout)
		assert.Equal(t, winerr.KindInvalidArgument, winerr.KindOf(err), "%+v", tc)
	}
}

func TestResolveDNS(t *testing.T) {
	svc := NewService(nil)
	svc.lookup = func(_ context.Context, host string) ([]net.IPAddr, error) {
		if host == "missing.invalid" {
			return nil, errors.New("no such host")
		}
		return []net.IPAddr{{IP: net.ParseIP("10.0.0.5")}, {IP: net.ParseIP("fe80::1")}}, nil
	}

	res, err := svc.ResolveDNS(context.Background(), "intranet")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "fe80::1"}, res.IPAddresses)

	bad, err := svc.ResolveDNS(context.Background(), "missing.invalid")
	require.NoError(t, err)
	assert.Equal(t, "no such host", bad.Error)
	assert.Empty(t, bad.IPAddresses)
}

func TestAdapters(t *testing.T) {
	svc := NewService(nil)
	svc.interfaces = func(context.Context) (gnet.InterfaceStatList, error) {
		return gnet.InterfaceStatList{
			{Name: "Wi-Fi", HardwareAddr: "a4:c3:f0:12:34:56", Flags: []string{"up", "broadcast"},
				Addrs: gnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}, {Addr: "fe80::1c2d/64"}}},
			{Name: "Ethernet", HardwareAddr: "00-15-5D-01-23-45", Flags: []string{"broadcast"}},
		}, nil
	}
	list, err := svc.Adapters(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Ethernet", list[0].Name)
	assert.Equal(t, "Down", list[0].Status)
	assert.Equal(t, "00155D012345", list[0].MACAddress)
	assert.Empty(t, list[0].IPAddresses)

	assert.Equal(t, "Up", list[1].Status)
	assert.Equal(t, "A4C3F0123456", list[1].MACAddress)
	assert.Equal(t, []string{"192.168.1.20", "fe80::1c2d"}, list[1].IPAddresses)
}
