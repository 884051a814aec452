//go:build windows

package eventlog

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"wininvestigator/internal/winerr"
)

const (
	evtQueryChannelPath              = 0x1
	evtQueryReverseDirection         = 0x200
	evtQueryTolerateQueryErrs        = 0x1000
	evtRenderEventXML                = 1
	evtFormatMessageEvent            = 1
	evtNextBatchSize          uint32 = 16
	evtNextTimeoutMs                 = 2000
)

var (
	modWevtapi                   = windows.NewLazySystemDLL("wevtapi.dll")
	procEvtQuery                 = modWevtapi.NewProc("EvtQuery")
	procEvtNext                  = modWevtapi.NewProc("EvtNext")
	procEvtRender                = modWevtapi.NewProc("EvtRender")
	procEvtClose                 = modWevtapi.NewProc("EvtClose")
	procEvtOpenPublisherMetadata = modWevtapi.NewProc("EvtOpenPublisherMetadata")
	procEvtFormatMessage         = modWevtapi.NewProc("EvtFormatMessage")
	procEvtOpenChannelEnum       = modWevtapi.NewProc("EvtOpenChannelEnum")
	procEvtNextChannelPath       = modWevtapi.NewProc("EvtNextChannelPath")
)

type eventXML struct {
	System struct {
		Provider struct {
			Name string `xml:"Name,attr"`
		} `xml:"Provider"`
		EventID       uint32 `xml:"EventID"`
		Level         uint8  `xml:"Level"`
		EventRecordID uint64 `xml:"EventRecordID"`
		TimeCreated   struct {
			SystemTime string `xml:"SystemTime,attr"`
		} `xml:"TimeCreated"`
	} `xml:"System"`
	EventData struct {
		Data []struct {
			Name  string `xml:"Name,attr"`
			Value string `xml:",chardata"`
		} `xml:"Data"`
	} `xml:"EventData"`
}

// publisherCache keeps publisher metadata handles open for the duration of one query.
type publisherCache struct {
	mu      sync.Mutex
	handles map[string]windows.Handle
	failed  map[string]error
}

func (c *publisherCache) get(provider string) (windows.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles == nil {
		c.handles = make(map[string]windows.Handle)
		c.failed = make(map[string]error)
	}
	if h, ok := c.handles[provider]; ok {
		return h, nil
	}
	if err, ok := c.failed[provider]; ok {
		return 0, err
	}
	ptr, err := windows.UTF16PtrFromString(provider)
	if err != nil {
		return 0, fmt.Errorf("publisher UTF16: %w", err)
	}
	r, _, callErr := procEvtOpenPublisherMetadata.Call(
		0, // local session
		uintptr(unsafe.Pointer(ptr)),
		0, // log file path
		0, // locale
		0, // flags
	)
	if r == 0 {
		err := fmt.Errorf("EvtOpenPublisherMetadata: %w", callErr)
		c.failed[provider] = err
		return 0, err
	}
	h := windows.Handle(r)
	c.handles[provider] = h
	return h, nil
}

func (c *publisherCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, h := range c.handles {
		evtCloseHandle(h)
		delete(c.handles, k)
	}
}

// WevtSource reads events through wevtapi.dll.
type WevtSource struct{}

func NewSource() Source { return WevtSource{} }

func (WevtSource) Channels(ctx context.Context) ([]string, error) {
	if err := modWevtapi.Load(); err != nil {
		return nil, winerr.PlatformAPI("wevtapi", err)
	}
	r, _, callErr := procEvtOpenChannelEnum.Call(0, 0)
	if r == 0 {
		return nil, winerr.Classify("EvtOpenChannelEnum", "Event log", "", callErr)
	}
	hEnum := windows.Handle(r)
	defer evtCloseHandle(hEnum)

	var names []string
	buf := make([]uint16, 512)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var used uint32
		r, _, callErr := procEvtNextChannelPath.Call(
			uintptr(hEnum),
			uintptr(len(buf)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&used)),
		)
		if r == 0 {
			if errors.Is(callErr, windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			if errors.Is(callErr, windows.ERROR_INSUFFICIENT_BUFFER) {
				buf = make([]uint16, used)
				continue
			}
			return nil, winerr.Classify("EvtNextChannelPath", "Event log", "", callErr)
		}
		names = append(names, windows.UTF16ToString(buf[:used]))
	}
	return names, nil
}

func (WevtSource) Query(ctx context.Context, q Query) ([]Record, error) {
	if q.Max <= 0 {
		return nil, nil
	}
	if err := modWevtapi.Load(); err != nil {
		return nil, winerr.PlatformAPI("wevtapi", err)
	}
	queryPtr, err := windows.UTF16PtrFromString(q.XPath)
	if err != nil {
		return nil, fmt.Errorf("query UTF16: %w", err)
	}
	pathPtr, err := windows.UTF16PtrFromString(q.Channel)
	if err != nil {
		return nil, fmt.Errorf("path UTF16: %w", err)
	}

	flags := uintptr(evtQueryChannelPath | evtQueryTolerateQueryErrs)
	if q.Reverse {
		flags |= evtQueryReverseDirection
	}
	hQuery, err := evtQuery(pathPtr, queryPtr, flags)
	if err != nil {
		return nil, winerr.Classify("EvtQuery", "Event log", q.Channel, err)
	}
	defer evtCloseHandle(hQuery)

	var (
		results = make([]Record, 0, min(q.Max, 256))
		cache   publisherCache
	)
	defer cache.close()

	for len(results) < q.Max {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		handles, err := evtNextBatch(hQuery, evtNextBatchSize)
		if err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			return nil, winerr.Classify("EvtNext", "Event log", q.Channel, err)
		}
		for i, hEvt := range handles {
			if len(results) >= q.Max {
				for _, rest := range handles[i:] {
					evtCloseHandle(rest)
				}
				break
			}
			rec, err := parseEvent(hEvt, &cache, q.Format)
			evtCloseHandle(hEvt)
			if err != nil {
				// a single unreadable record does not fail the query
				continue
			}
			results = append(results, rec)
		}
	}
	return results, nil
}

func evtQuery(path, query *uint16, flags uintptr) (windows.Handle, error) {
	r, _, err := procEvtQuery.Call(
		0,
		uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(query)),
		flags,
	)
	if r == 0 {
		return 0, fmt.Errorf("EvtQuery: %w", err)
	}
	return windows.Handle(r), nil
}

func evtNextBatch(hQuery windows.Handle, batch uint32) ([]windows.Handle, error) {
	handles := make([]windows.Handle, batch)
	var returned uint32
	r, _, err := procEvtNext.Call(
		uintptr(hQuery),
		uintptr(batch),
		uintptr(unsafe.Pointer(&handles[0])),
		evtNextTimeoutMs,
		0,
		uintptr(unsafe.Pointer(&returned)),
	)
	if r == 0 {
		if errors.Is(err, windows.ERROR_NO_MORE_ITEMS) {
			return nil, windows.ERROR_NO_MORE_ITEMS
		}
		return nil, fmt.Errorf("EvtNext: %w", err)
	}
	return handles[:returned], nil
}

func parseEvent(hEvt windows.Handle, cache *publisherCache, format bool) (Record, error) {
	xmlText, err := renderEventXML(hEvt)
	if err != nil {
		return Record{}, err
	}
	var parsed eventXML
	if err := xml.Unmarshal([]byte(xmlText), &parsed); err != nil {
		return Record{}, fmt.Errorf("parse XML: %w", err)
	}

	rec := Record{
		RecordID: parsed.System.EventRecordID,
		Level:    parsed.System.Level,
		EventID:  parsed.System.EventID,
		Provider: parsed.System.Provider.Name,
	}
	if ts, err := time.Parse(time.RFC3339Nano, parsed.System.TimeCreated.SystemTime); err == nil {
		rec.Time = ts.UTC()
	}
	for _, d := range parsed.EventData.Data {
		rec.Data = append(rec.Data, DataField{Name: d.Name, Value: strings.TrimSpace(d.Value)})
	}

	if format {
		meta, err := cache.get(rec.Provider)
		if err != nil {
			rec.MessageErr = err
			return rec, nil
		}
		rec.Message, rec.MessageErr = formatMessage(meta, hEvt)
	}
	return rec, nil
}

func renderEventXML(hEvt windows.Handle) (string, error) {
	var bufferUsed uint32
	var propCount uint32

	r, _, err := procEvtRender.Call(
		0,
		uintptr(hEvt),
		evtRenderEventXML,
		0,
		0,
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propCount)),
	)
	if r == 0 && !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
		return "", fmt.Errorf("EvtRender(size): %w", err)
	}

	// bufferUsed is in bytes
	buffer := make([]uint16, bufferUsed/2+1)
	r, _, err = procEvtRender.Call(
		0,
		uintptr(hEvt),
		evtRenderEventXML,
		uintptr(len(buffer)*2),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propCount)),
	)
	if r == 0 {
		return "", fmt.Errorf("EvtRender: %w", err)
	}

	return windows.UTF16ToString(buffer), nil
}

func formatMessage(meta windows.Handle, hEvt windows.Handle) (string, error) {
	var used uint32
	r, _, err := procEvtFormatMessage.Call(
		uintptr(meta),
		uintptr(hEvt),
		0,
		0,
		0,
		evtFormatMessageEvent,
		0,
		0,
		uintptr(unsafe.Pointer(&used)),
	)
	if r == 0 && !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
		return "", fmt.Errorf("EvtFormatMessage(size): %w", err)
	}
	if used == 0 {
		return "", nil
	}

	buf := make([]uint16, used)
	r, _, err = procEvtFormatMessage.Call(
		uintptr(meta),
		uintptr(hEvt),
		0,
		0,
		0,
		evtFormatMessageEvent,
		uintptr(used),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&used)),
	)
	if r == 0 {
		return "", fmt.Errorf("EvtFormatMessage: %w", err)
	}
	return strings.TrimSpace(windows.UTF16ToString(buf)), nil
}

func evtCloseHandle(h windows.Handle) {
	if h == 0 {
		return
	}
	procEvtClose.Call(uintptr(h))
}
