//go:build !windows

package registry

import "wininvestigator/internal/winerr"

type unsupportedHive struct{}

func NewHive() Hive { return unsupportedHive{} }

func (unsupportedHive) Open(Root, string) (Key, error) {
	return nil, winerr.PlatformAPI("RegOpenKeyEx", winerr.ErrUnsupported)
}
