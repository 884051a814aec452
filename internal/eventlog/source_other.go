//go:build !windows

package eventlog

import (
	"context"

	"wininvestigator/internal/winerr"
)

type unsupportedSource struct{}

func NewSource() Source { return unsupportedSource{} }

func (unsupportedSource) Channels(context.Context) ([]string, error) {
	return nil, winerr.PlatformAPI("EvtOpenChannelEnum", winerr.ErrUnsupported)
}

func (unsupportedSource) Query(context.Context, Query) ([]Record, error) {
	return nil, winerr.PlatformAPI("EvtQuery", winerr.ErrUnsupported)
}
