package eventlog

import (
	"context"
)

type fakeSource struct {
	channels []string
	records  []Record
	err      error
	queries  []Query
}

func (f *fakeSource) Channels(context.Context) ([]string, error) {
	return append([]string(nil), f.channels...), f.err
}

func (f *fakeSource) Query(_ context.Context, q Query) ([]Record, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	out := f.records
	if len(out) > q.Max {
		out = out[:q.Max]
	}
	return out, nil
}
