package registry

import (
	"strings"

	"wininvestigator/internal/winerr"
)

// memKey is a node of an in-memory registry used by tests.
type memKey struct {
	children []*memNode
	values   []memValue
	denied   bool
}

type memNode struct {
	name string
	key  *memKey
}

type memValue struct {
	name string
	v    Value
}

func newMemKey() *memKey { return &memKey{} }

// add creates (or returns) the child at a backslash-separated relative path.
func (k *memKey) add(path string) *memKey {
	cur := k
	for _, part := range strings.Split(path, `\`) {
		var next *memKey
		for _, c := range cur.children {
			if strings.EqualFold(c.name, part) {
				next = c.key
				break
			}
		}
		if next == nil {
			next = newMemKey()
			cur.children = append(cur.children, &memNode{name: part, key: next})
		}
		cur = next
	}
	return cur
}

func (k *memKey) set(name string, v Value) *memKey {
	k.values = append(k.values, memValue{name: name, v: v})
	return k
}

type memHive struct {
	roots map[Root]*memKey
	opens []string
}

func newMemHive() *memHive {
	return &memHive{roots: map[Root]*memKey{}}
}

func (h *memHive) root(r Root) *memKey {
	k, ok := h.roots[r]
	if !ok {
		k = newMemKey()
		h.roots[r] = k
	}
	return k
}

func (h *memHive) Open(root Root, path string) (Key, error) {
	h.opens = append(h.opens, path)
	cur, ok := h.roots[root]
	if !ok {
		return nil, winerr.NotFound("Registry key", root.String())
	}
	if path != "" {
		for _, part := range strings.Split(path, `\`) {
			var next *memKey
			for _, c := range cur.children {
				if strings.EqualFold(c.name, part) {
					next = c.key
					break
				}
			}
			if next == nil {
				return nil, winerr.NotFound("Registry key", path)
			}
			cur = next
		}
	}
	if cur.denied {
		return nil, winerr.AccessDenied(path, nil)
	}
	return memHandle{k: cur}, nil
}

type memHandle struct{ k *memKey }

func (m memHandle) SubKeyNames() ([]string, error) {
	out := make([]string, 0, len(m.k.children))
	for _, c := range m.k.children {
		out = append(out, c.name)
	}
	return out, nil
}

func (m memHandle) ValueNames() ([]string, error) {
	out := make([]string, 0, len(m.k.values))
	for _, v := range m.k.values {
		out = append(out, v.name)
	}
	return out, nil
}

func (m memHandle) Value(name string) (Value, error) {
	for _, v := range m.k.values {
		if strings.EqualFold(v.name, name) {
			return v.v, nil
		}
	}
	return Value{}, winerr.NotFound("Registry value", name)
}

func (memHandle) Close() error { return nil }
