package registry

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/pattern"
	"wininvestigator/internal/winerr"
)

// MaxSearchDepth bounds recursion by the number of separators in the
// hive-relative path of a visited key.
const MaxSearchDepth = 10

type Service struct {
	hive Hive
	log  *zap.Logger
}

func NewService(hive Hive, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{hive: hive, log: log}
}

// GetKey returns the subkeys and values of path, or nil when the root is
// unknown or the key does not exist.
func (s *Service) GetKey(ctx context.Context, path string) (*model.RegistryKeyInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, winerr.InvalidArgument("path", "Registry path cannot be empty")
	}
	root, sub, ok := ParsePath(path)
	if !ok {
		return nil, nil
	}
	key, err := s.hive.Open(root, sub)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer key.Close()

	subKeys, err := key.SubKeyNames()
	if err != nil {
		return nil, err
	}
	names, err := key.ValueNames()
	if err != nil {
		return nil, err
	}
	sortFold(subKeys)
	sortFold(names)

	info := &model.RegistryKeyInfo{Path: path, SubKeyNames: append([]string{}, subKeys...), Values: []model.RegistryValueInfo{}}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := key.Value(name)
		if err != nil {
			s.log.Debug("registry value unreadable", zap.String("key", path), zap.String("value", name), zap.Error(err))
			continue
		}
		info.Values = append(info.Values, valueInfo(name, "", v))
	}
	return info, nil
}

// GetValue returns a single value; an empty name selects the default value.
func (s *Service) GetValue(_ context.Context, path, valueName string) (*model.RegistryValueInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, winerr.InvalidArgument("path", "Registry path cannot be empty")
	}
	root, sub, ok := ParsePath(path)
	if !ok {
		return nil, nil
	}
	key, err := s.hive.Open(root, sub)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer key.Close()

	v, err := key.Value(valueName)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	info := valueInfo(valueName, "", v)
	return &info, nil
}

// SearchKeys walks basePath depth-first and returns full paths of subkeys
// whose names match expr. Inaccessible keys are skipped.
func (s *Service) SearchKeys(ctx context.Context, basePath, expr string, maxResults int) ([]string, error) {
	w, base, err := s.newWalker(ctx, basePath, expr, maxResults)
	if err != nil || w == nil {
		return []string{}, err
	}
	defer base.Close()
	w.visit(base, w.baseSub, w.baseFull)
	return w.keys, w.err
}

// SearchValues walks basePath depth-first and returns values whose name or
// display value matches expr.
func (s *Service) SearchValues(ctx context.Context, basePath, expr string, maxResults int) ([]model.RegistryValueInfo, error) {
	w, base, err := s.newWalker(ctx, basePath, expr, maxResults)
	if err != nil || w == nil {
		return []model.RegistryValueInfo{}, err
	}
	defer base.Close()
	w.values = []model.RegistryValueInfo{}
	w.matchValues = true
	w.visit(base, w.baseSub, w.baseFull)
	return w.values, w.err
}

func (s *Service) newWalker(ctx context.Context, basePath, expr string, maxResults int) (*walker, Key, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, nil, winerr.InvalidArgument("basePath", "Base path cannot be empty")
	}
	if maxResults <= 0 {
		return nil, nil, winerr.InvalidArgument("maxResults", "Maximum results must be greater than 0")
	}
	m, err := pattern.Compile("pattern", expr)
	if err != nil {
		return nil, nil, err
	}
	root, sub, ok := ParsePath(basePath)
	if !ok {
		return nil, nil, nil
	}
	base, err := s.hive.Open(root, sub)
	if err != nil {
		// an unresolvable base path yields no results
		s.log.Debug("registry search base unavailable", zap.String("path", basePath), zap.Error(err))
		return nil, nil, nil
	}
	return &walker{
		ctx:      ctx,
		hive:     s.hive,
		root:     root,
		m:        m,
		max:      maxResults,
		keys:     []string{},
		baseSub:  sub,
		baseFull: strings.TrimRight(strings.TrimSpace(basePath), `\`),
	}, base, nil
}

type walker struct {
	ctx         context.Context
	hive        Hive
	root        Root
	m           *pattern.Matcher
	max         int
	matchValues bool
	baseSub     string
	baseFull    string

	keys   []string
	values []model.RegistryValueInfo
	err    error
}

func (w *walker) count() int {
	if w.matchValues {
		return len(w.values)
	}
	return len(w.keys)
}

func (w *walker) done() bool {
	if w.err != nil {
		return true
	}
	if err := w.ctx.Err(); err != nil {
		w.err = err
		return true
	}
	return w.count() >= w.max
}

func (w *walker) visit(key Key, subPath, fullPath string) {
	if w.matchValues {
		w.scanValues(key, fullPath)
	}
	if w.done() {
		return
	}
	names, err := key.SubKeyNames()
	if err != nil {
		return
	}
	for _, name := range names {
		if w.done() {
			return
		}
		childSub := joinPath(subPath, name)
		childFull := fullPath + `\` + name
		child, err := w.hive.Open(w.root, childSub)
		if err != nil {
			continue
		}
		if !w.matchValues && w.m.Match(name) {
			w.keys = append(w.keys, childFull)
		}
		if depth(childSub) < MaxSearchDepth {
			w.visit(child, childSub, childFull)
		}
		child.Close()
	}
}

func (w *walker) scanValues(key Key, fullPath string) {
	names, err := key.ValueNames()
	if err != nil {
		return
	}
	for _, name := range names {
		if w.done() {
			return
		}
		v, err := key.Value(name)
		if err != nil {
			continue
		}
		display := Display(v)
		if w.m.Match(name) || w.m.Match(display) {
			w.values = append(w.values, valueInfo(fullPath+`\`+name, fullPath, v))
		}
	}
}

func valueInfo(name, keyPath string, v Value) model.RegistryValueInfo {
	return model.RegistryValueInfo{
		Name:         name,
		KeyPath:      keyPath,
		Type:         v.Kind.String(),
		Value:        v.Data,
		DisplayValue: Display(v),
	}
}

func sortFold(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
}
