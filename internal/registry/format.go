package registry

import (
	"fmt"
	"strings"
)

// Display renders v the way it is shown to callers.
func Display(v Value) string {
	switch d := v.Data.(type) {
	case nil:
		return ""
	case string:
		return d
	case []string:
		return strings.Join(d, "; ")
	case []byte:
		return hexBytes(d)
	case uint32:
		return fmt.Sprintf("%d (0x%X)", d, d)
	case uint64:
		return fmt.Sprintf("%d (0x%X)", d, d)
	}
	return fmt.Sprint(v.Data)
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}
