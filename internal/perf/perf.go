// Package perf samples system-wide performance data and reads named
// performance counters.
package perf

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wininvestigator/internal/model"
	"wininvestigator/internal/winerr"
)

const maxListedInstances = 10

// Reading is the sampled value of one counter path. Err is set when that
// counter could not be read.
type Reading struct {
	Path  string
	Value float64
	Err   error
}

// CounterSource is the native counter engine. Items fails with NotFound for
// an unknown object. Read samples every path twice, interval apart, so rate
// counters produce meaningful values.
type CounterSource interface {
	Objects(ctx context.Context) ([]string, error)
	Items(ctx context.Context, object string) (counters, instances []string, err error)
	Read(ctx context.Context, paths []string, interval time.Duration) ([]Reading, error)
}

// CounterPath renders \Object(Instance)\Counter, omitting an empty instance.
func CounterPath(object, instance, counter string) string {
	if instance == "" {
		return `\` + object + `\` + counter
	}
	return `\` + object + `(` + instance + `)\` + counter
}

type Service struct {
	counters CounterSource
	sampler  *Sampler
	interval time.Duration
	log      *zap.Logger
}

func NewService(counters CounterSource, sampler *Sampler, interval time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{counters: counters, sampler: sampler, interval: interval, log: log}
}

// Snapshot returns a point-in-time view of CPU, memory, disk, network and
// object counts.
func (s *Service) Snapshot(ctx context.Context) (model.PerformanceSnapshot, error) {
	return s.sampler.Snapshot(ctx)
}

// Categories lists counter objects with their counters and first instances.
// Objects whose details cannot be read are listed without them.
func (s *Service) Categories(ctx context.Context) ([]model.PerformanceCategory, error) {
	objects, err := s.counters.Objects(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(objects)
	out := make([]model.PerformanceCategory, 0, len(objects))
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cat := model.PerformanceCategory{Name: obj, Counters: []string{}, Instances: []string{}}
		counters, instances, err := s.counters.Items(ctx, obj)
		if err != nil {
			s.log.Debug("counter object unreadable", zap.String("object", obj), zap.Error(err))
			out = append(out, cat)
			continue
		}
		sort.Strings(counters)
		sort.Strings(instances)
		if len(instances) > maxListedInstances {
			instances = instances[:maxListedInstances]
		}
		cat.Counters = dedupe(counters)
		cat.Instances = instances
		out = append(out, cat)
	}
	return out, nil
}

// Counter samples one counter. It returns nil when the object, counter or
// instance does not exist.
func (s *Service) Counter(ctx context.Context, category, counter, instance string) (*model.PerformanceCounterValue, error) {
	if strings.TrimSpace(category) == "" {
		return nil, winerr.InvalidArgument("categoryName", "Category name cannot be empty")
	}
	if strings.TrimSpace(counter) == "" {
		return nil, winerr.InvalidArgument("counterName", "Counter name cannot be empty")
	}
	path := CounterPath(category, instance, counter)
	readings, err := s.counters.Read(ctx, []string{path}, s.interval)
	if err != nil {
		if winerr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	r := readings[0]
	if r.Err != nil {
		if winerr.IsNotFound(r.Err) {
			return nil, nil
		}
		return nil, r.Err
	}
	return &model.PerformanceCounterValue{
		CategoryName: category,
		CounterName:  counter,
		InstanceName: instance,
		Value:        r.Value,
		Unit:         unitOf(counter),
	}, nil
}

// CategoryCounters samples every counter of a category. A multi-instance
// category without an explicit instance uses its first instance. Counters
// that cannot be read are omitted.
func (s *Service) CategoryCounters(ctx context.Context, category, instance string) ([]model.PerformanceCounterValue, error) {
	if strings.TrimSpace(category) == "" {
		return nil, winerr.InvalidArgument("categoryName", "Category name cannot be empty")
	}
	out := []model.PerformanceCounterValue{}
	counters, instances, err := s.counters.Items(ctx, category)
	if err != nil {
		if winerr.IsNotFound(err) {
			return out, nil
		}
		return nil, err
	}
	if instance == "" && len(instances) > 0 {
		sorted := append([]string(nil), instances...)
		sort.Strings(sorted)
		instance = sorted[0]
	}
	counters = dedupe(counters)
	if len(counters) == 0 {
		return out, nil
	}
	paths := make([]string, len(counters))
	for i, c := range counters {
		paths[i] = CounterPath(category, instance, c)
	}
	readings, err := s.counters.Read(ctx, paths, s.interval)
	if err != nil {
		return nil, err
	}
	for i, r := range readings {
		if r.Err != nil || i >= len(counters) {
			continue
		}
		out = append(out, model.PerformanceCounterValue{
			CategoryName: category,
			CounterName:  counters[i],
			InstanceName: instance,
			Value:        r.Value,
			Unit:         unitOf(counters[i]),
		})
	}
	return out, nil
}

// unitOf infers a display unit from common counter naming conventions.
func unitOf(counter string) string {
	lc := strings.ToLower(counter)
	switch {
	case strings.HasPrefix(lc, "%"):
		return "%"
	case strings.HasSuffix(lc, "bytes/sec"):
		return "bytes/sec"
	case strings.HasSuffix(lc, "/sec"):
		return "per second"
	case strings.Contains(lc, "bytes"):
		return "bytes"
	}
	return ""
}

func dedupe(sorted []string) []string {
	out := make([]string, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, s := range sorted {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
