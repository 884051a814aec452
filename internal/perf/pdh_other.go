//go:build !windows

package perf

import (
	"context"
	"time"

	"wininvestigator/internal/winerr"
)

type unsupportedCounters struct{}

func NewCounterSource() CounterSource { return unsupportedCounters{} }

func (unsupportedCounters) Objects(context.Context) ([]string, error) {
	return nil, winerr.PlatformAPI("PdhEnumObjects", winerr.ErrUnsupported)
}

func (unsupportedCounters) Items(context.Context, string) ([]string, []string, error) {
	return nil, nil, winerr.PlatformAPI("PdhEnumObjectItems", winerr.ErrUnsupported)
}

func (unsupportedCounters) Read(context.Context, []string, time.Duration) ([]Reading, error) {
	return nil, winerr.PlatformAPI("PdhOpenQuery", winerr.ErrUnsupported)
}

func objectTotals(CounterSource, time.Duration) func(context.Context) (int64, int64, error) {
	return processTotals
}
