//go:build !windows

package service

import (
	"context"

	"go.uber.org/zap"

	"wininvestigator/internal/winerr"
)

type unsupportedSource struct{}

func NewSource(*zap.Logger) Source { return unsupportedSource{} }

func (unsupportedSource) List(context.Context) ([]Entry, error) {
	return nil, winerr.PlatformAPI("OpenSCManager", winerr.ErrUnsupported)
}

func (unsupportedSource) Get(context.Context, string) (Entry, error) {
	return Entry{}, winerr.PlatformAPI("OpenSCManager", winerr.ErrUnsupported)
}
