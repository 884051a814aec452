//go:build !windows

package updates

import (
	"context"

	"wininvestigator/internal/winerr"
)

type unsupportedHotfixes struct{}

func NewHotfixSource() HotfixSource { return unsupportedHotfixes{} }

func (unsupportedHotfixes) Hotfixes(context.Context) ([]Hotfix, error) {
	return nil, winerr.PlatformAPI("WMI Win32_QuickFixEngineering", winerr.ErrUnsupported)
}
