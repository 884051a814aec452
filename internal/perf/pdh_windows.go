//go:build windows

package perf

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"wininvestigator/internal/winerr"
)

const (
	pdhFmtDouble         = 0x00000200
	pdhFmtNoCap100       = 0x00008000
	pdhMoreData          = 0x800007D2
	pdhCStatusValidData  = 0x00000000
	pdhCStatusNewData    = 0x00000001
	perfDetailWizard     = 400
	threadsCounterPath   = `\System\Threads`
	handleCountTotalPath = `\Process(_Total)\Handle Count`
)

var (
	modPdh                          = windows.NewLazySystemDLL("pdh.dll")
	procPdhOpenQueryW               = modPdh.NewProc("PdhOpenQueryW")
	procPdhAddCounterW              = modPdh.NewProc("PdhAddCounterW")
	procPdhAddEnglishCounterW       = modPdh.NewProc("PdhAddEnglishCounterW")
	procPdhCollectQueryData         = modPdh.NewProc("PdhCollectQueryData")
	procPdhGetFormattedCounterValue = modPdh.NewProc("PdhGetFormattedCounterValue")
	procPdhCloseQuery               = modPdh.NewProc("PdhCloseQuery")
	procPdhEnumObjectsW             = modPdh.NewProc("PdhEnumObjectsW")
	procPdhEnumObjectItemsW         = modPdh.NewProc("PdhEnumObjectItemsW")
)

// pdhFmtCounterValue mirrors PDH_FMT_COUNTERVALUE with the double arm of the union.
type pdhFmtCounterValue struct {
	CStatus     uint32
	_           uint32
	DoubleValue float64
}

type pdhSource struct{}

// NewCounterSource returns the PDH-backed counter engine.
func NewCounterSource() CounterSource { return pdhSource{} }

func pdhErr(api, target string, status uintptr) error {
	return winerr.Classify(api, "Performance counter", target, winerr.Status(uint32(status)))
}

func (pdhSource) Objects(context.Context) ([]string, error) {
	if err := modPdh.Load(); err != nil {
		return nil, winerr.PlatformAPI("LoadLibrary(pdh.dll)", err)
	}
	var size uint32
	r, _, _ := procPdhEnumObjectsW.Call(0, 0, 0, uintptr(unsafe.Pointer(&size)), perfDetailWizard, 1)
	if uint32(r) != pdhMoreData && r != 0 {
		return nil, pdhErr("PdhEnumObjects", "", r)
	}
	if size == 0 {
		return []string{}, nil
	}
	buf := make([]uint16, size)
	r, _, _ = procPdhEnumObjectsW.Call(0, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)), perfDetailWizard, 0)
	if r != 0 {
		return nil, pdhErr("PdhEnumObjects", "", r)
	}
	return splitMultiSZ(buf), nil
}

func (pdhSource) Items(_ context.Context, object string) ([]string, []string, error) {
	if err := modPdh.Load(); err != nil {
		return nil, nil, winerr.PlatformAPI("LoadLibrary(pdh.dll)", err)
	}
	obj, err := windows.UTF16PtrFromString(object)
	if err != nil {
		return nil, nil, winerr.InvalidArgument("categoryName", err.Error())
	}
	var ctrLen, instLen uint32
	r, _, _ := procPdhEnumObjectItemsW.Call(0, 0, uintptr(unsafe.Pointer(obj)),
		0, uintptr(unsafe.Pointer(&ctrLen)), 0, uintptr(unsafe.Pointer(&instLen)), perfDetailWizard, 0)
	if uint32(r) != pdhMoreData && r != 0 {
		return nil, nil, pdhErr("PdhEnumObjectItems", object, r)
	}
	ctrBuf := make([]uint16, ctrLen+1)
	instBuf := make([]uint16, instLen+1)
	r, _, _ = procPdhEnumObjectItemsW.Call(0, 0, uintptr(unsafe.Pointer(obj)),
		uintptr(unsafe.Pointer(&ctrBuf[0])), uintptr(unsafe.Pointer(&ctrLen)),
		uintptr(unsafe.Pointer(&instBuf[0])), uintptr(unsafe.Pointer(&instLen)), perfDetailWizard, 0)
	if r != 0 {
		return nil, nil, pdhErr("PdhEnumObjectItems", object, r)
	}
	return splitMultiSZ(ctrBuf), splitMultiSZ(instBuf), nil
}

func (pdhSource) Read(ctx context.Context, paths []string, interval time.Duration) ([]Reading, error) {
	return readCounters(ctx, procPdhAddCounterW, paths, interval)
}

// readCounters opens one query for all paths and samples it twice.
func readCounters(ctx context.Context, add *windows.LazyProc, paths []string, interval time.Duration) ([]Reading, error) {
	if err := modPdh.Load(); err != nil {
		return nil, winerr.PlatformAPI("LoadLibrary(pdh.dll)", err)
	}
	var query windows.Handle
	if r, _, _ := procPdhOpenQueryW.Call(0, 0, uintptr(unsafe.Pointer(&query))); r != 0 {
		return nil, pdhErr("PdhOpenQuery", "", r)
	}
	defer procPdhCloseQuery.Call(uintptr(query))

	out := make([]Reading, len(paths))
	handles := make([]windows.Handle, len(paths))
	added := 0
	for i, p := range paths {
		out[i].Path = p
		wp, err := windows.UTF16PtrFromString(p)
		if err != nil {
			out[i].Err = winerr.InvalidArgument("counterName", err.Error())
			continue
		}
		if r, _, _ := add.Call(uintptr(query), uintptr(unsafe.Pointer(wp)), 0, uintptr(unsafe.Pointer(&handles[i]))); r != 0 {
			out[i].Err = pdhErr("PdhAddCounter", p, r)
			continue
		}
		added++
	}
	if added == 0 {
		if len(paths) == 1 {
			return nil, out[0].Err
		}
		return out, nil
	}

	if r, _, _ := procPdhCollectQueryData.Call(uintptr(query)); r != 0 {
		return nil, pdhErr("PdhCollectQueryData", "", r)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(interval):
	}
	if r, _, _ := procPdhCollectQueryData.Call(uintptr(query)); r != 0 {
		return nil, pdhErr("PdhCollectQueryData", "", r)
	}

	for i := range paths {
		if out[i].Err != nil {
			continue
		}
		var v pdhFmtCounterValue
		r, _, _ := procPdhGetFormattedCounterValue.Call(uintptr(handles[i]), pdhFmtDouble|pdhFmtNoCap100, 0, uintptr(unsafe.Pointer(&v)))
		if r != 0 {
			out[i].Err = pdhErr("PdhGetFormattedCounterValue", paths[i], r)
			continue
		}
		if v.CStatus != pdhCStatusValidData && v.CStatus != pdhCStatusNewData {
			out[i].Err = pdhErr("PdhGetFormattedCounterValue", paths[i], uintptr(v.CStatus))
			continue
		}
		out[i].Value = v.DoubleValue
	}
	return out, nil
}

// objectTotals reads system thread and handle totals through English counter
// names so it works on localized systems.
func objectTotals(counters CounterSource, interval time.Duration) func(context.Context) (int64, int64, error) {
	if _, ok := counters.(pdhSource); !ok {
		return processTotals
	}
	return func(ctx context.Context) (int64, int64, error) {
		readings, err := readCounters(ctx, procPdhAddEnglishCounterW, []string{threadsCounterPath, handleCountTotalPath}, interval)
		if err != nil {
			return 0, 0, err
		}
		for _, r := range readings {
			if r.Err != nil {
				return 0, 0, fmt.Errorf("%s: %w", r.Path, r.Err)
			}
		}
		return int64(readings[0].Value), int64(readings[1].Value), nil
	}
}

// splitMultiSZ splits a double-NUL terminated UTF-16 string list.
func splitMultiSZ(buf []uint16) []string {
	var out []string
	start := 0
	for i, c := range buf {
		if c != 0 {
			continue
		}
		if i == start {
			break
		}
		out = append(out, windows.UTF16ToString(buf[start:i]))
		start = i + 1
	}
	if out == nil {
		out = []string{}
	}
	return out
}
