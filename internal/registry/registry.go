// Package registry reads registry keys and values and searches key trees.
package registry

import (
	"strings"
)

// Root identifies a predefined registry hive.
type Root int

const (
	LocalMachine Root = iota + 1
	CurrentUser
	ClassesRoot
	Users
	CurrentConfig
)

var rootAliases = map[string]Root{
	"HKLM":                LocalMachine,
	"HKEY_LOCAL_MACHINE":  LocalMachine,
	"HKCU":                CurrentUser,
	"HKEY_CURRENT_USER":   CurrentUser,
	"HKCR":                ClassesRoot,
	"HKEY_CLASSES_ROOT":   ClassesRoot,
	"HKU":                 Users,
	"HKEY_USERS":          Users,
	"HKCC":                CurrentConfig,
	"HKEY_CURRENT_CONFIG": CurrentConfig,
}

func (r Root) String() string {
	switch r {
	case LocalMachine:
		return "HKEY_LOCAL_MACHINE"
	case CurrentUser:
		return "HKEY_CURRENT_USER"
	case ClassesRoot:
		return "HKEY_CLASSES_ROOT"
	case Users:
		return "HKEY_USERS"
	case CurrentConfig:
		return "HKEY_CURRENT_CONFIG"
	}
	return "UNKNOWN"
}

// ParsePath splits `<ROOT>\<subpath>` into its hive and hive-relative path.
// The root is matched case-insensitively against the alias table.
func ParsePath(path string) (Root, string, bool) {
	path = strings.TrimSpace(path)
	head, rest, _ := strings.Cut(path, `\`)
	root, ok := rootAliases[strings.ToUpper(strings.TrimSpace(head))]
	if !ok {
		return 0, "", false
	}
	return root, strings.Trim(rest, `\`), true
}

// Kind is the stored type of a registry value.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindExpandString
	KindBinary
	KindDWord
	KindQWord
	KindMultiString
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindExpandString:
		return "ExpandString"
	case KindBinary:
		return "Binary"
	case KindDWord:
		return "DWord"
	case KindQWord:
		return "QWord"
	case KindMultiString:
		return "MultiString"
	}
	return "Unknown"
}

// Value is a typed registry value. Data holds string, []string, []byte,
// uint32 or uint64 depending on Kind.
type Value struct {
	Kind Kind
	Data any
}

// Key is an open registry key. Callers must Close it.
type Key interface {
	SubKeyNames() ([]string, error)
	ValueNames() ([]string, error)
	Value(name string) (Value, error)
	Close() error
}

// Hive opens keys by hive-relative path.
type Hive interface {
	Open(root Root, path string) (Key, error)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + `\` + name
}

func depth(subPath string) int {
	return strings.Count(subPath, `\`)
}
