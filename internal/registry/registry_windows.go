//go:build windows

package registry

import (
	"errors"

	"golang.org/x/sys/windows/registry"

	"wininvestigator/internal/winerr"
)

const keyAccess = registry.QUERY_VALUE | registry.ENUMERATE_SUB_KEYS

type nativeHive struct{}

// NewHive returns the live registry.
func NewHive() Hive { return nativeHive{} }

func predefined(root Root) (registry.Key, bool) {
	switch root {
	case LocalMachine:
		return registry.LOCAL_MACHINE, true
	case CurrentUser:
		return registry.CURRENT_USER, true
	case ClassesRoot:
		return registry.CLASSES_ROOT, true
	case Users:
		return registry.USERS, true
	case CurrentConfig:
		return registry.CURRENT_CONFIG, true
	}
	return 0, false
}

func (nativeHive) Open(root Root, path string) (Key, error) {
	rk, ok := predefined(root)
	if !ok {
		return nil, winerr.NotFound("Registry key", root.String())
	}
	k, err := registry.OpenKey(rk, path, keyAccess)
	if err != nil {
		return nil, winerr.Classify("RegOpenKeyEx", "Registry key", joinPath(root.String(), path), err)
	}
	return nativeKey{k: k, path: joinPath(root.String(), path)}, nil
}

type nativeKey struct {
	k    registry.Key
	path string
}

func (n nativeKey) SubKeyNames() ([]string, error) {
	names, err := n.k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, winerr.Classify("RegEnumKeyEx", "Registry key", n.path, err)
	}
	return names, nil
}

func (n nativeKey) ValueNames() ([]string, error) {
	names, err := n.k.ReadValueNames(-1)
	if err != nil {
		return nil, winerr.Classify("RegEnumValue", "Registry value", n.path, err)
	}
	return names, nil
}

func (n nativeKey) Value(name string) (Value, error) {
	size, typ, err := n.k.GetValue(name, nil)
	if err != nil && !errors.Is(err, registry.ErrShortBuffer) {
		return Value{}, winerr.Classify("RegQueryValueEx", "Registry value", n.path+`\`+name, err)
	}

	var v Value
	switch typ {
	case registry.SZ:
		s, _, err := n.k.GetStringValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		v = Value{Kind: KindString, Data: s}
	case registry.EXPAND_SZ:
		s, _, err := n.k.GetStringValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		if expanded, err := registry.ExpandString(s); err == nil {
			s = expanded
		}
		v = Value{Kind: KindExpandString, Data: s}
	case registry.DWORD:
		u, _, err := n.k.GetIntegerValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		v = Value{Kind: KindDWord, Data: uint32(u)}
	case registry.QWORD:
		u, _, err := n.k.GetIntegerValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		v = Value{Kind: KindQWord, Data: u}
	case registry.MULTI_SZ:
		ss, _, err := n.k.GetStringsValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		v = Value{Kind: KindMultiString, Data: ss}
	case registry.BINARY:
		b, _, err := n.k.GetBinaryValue(name)
		if err != nil {
			return Value{}, n.classify(name, err)
		}
		v = Value{Kind: KindBinary, Data: b}
	default:
		buf := make([]byte, size)
		if size > 0 {
			if _, _, err := n.k.GetValue(name, buf); err != nil {
				return Value{}, n.classify(name, err)
			}
		}
		v = Value{Kind: KindUnknown, Data: buf}
	}
	return v, nil
}

func (n nativeKey) classify(name string, err error) error {
	return winerr.Classify("RegQueryValueEx", "Registry value", n.path+`\`+name, err)
}

func (n nativeKey) Close() error { return n.k.Close() }
