//go:build windows

package updates

import (
	"context"

	"github.com/yusufpapurcu/wmi"

	"wininvestigator/internal/winerr"
)

type win32QuickFixEngineering struct {
	HotFixID    string
	Description *string
	Caption     *string
	InstalledOn *string
	InstalledBy *string
}

type qfeSource struct{}

// NewHotfixSource returns a HotfixSource backed by Win32_QuickFixEngineering.
func NewHotfixSource() HotfixSource { return qfeSource{} }

func (qfeSource) Hotfixes(ctx context.Context) ([]Hotfix, error) {
	var rows []win32QuickFixEngineering
	q := "SELECT HotFixID, Description, Caption, InstalledOn, InstalledBy FROM Win32_QuickFixEngineering"
	if err := wmi.Query(q, &rows); err != nil {
		return nil, winerr.Classify("WMI Win32_QuickFixEngineering", "Hotfix", "", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Hotfix, 0, len(rows))
	for _, r := range rows {
		out = append(out, Hotfix{
			HotFixID:    r.HotFixID,
			Description: deref(r.Description),
			Caption:     deref(r.Caption),
			InstalledOn: deref(r.InstalledOn),
			InstalledBy: deref(r.InstalledBy),
		})
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
