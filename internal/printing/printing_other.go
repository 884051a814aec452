//go:build !windows

package printing

import (
	"context"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

type unsupportedSource struct{}

func NewSource() Source { return unsupportedSource{} }

func (unsupportedSource) Printers(context.Context) ([]model.PrinterInfo, error) {
	return nil, winerr.PlatformAPI("WMI Win32_Printer", winerr.ErrUnsupported)
}

func (unsupportedSource) Jobs(context.Context, string) ([]model.PrintJobInfo, error) {
	return nil, winerr.PlatformAPI("WMI Win32_PrintJob", winerr.ErrUnsupported)
}
