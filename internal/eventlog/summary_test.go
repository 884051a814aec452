package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wininvestigator/internal/model"
)

func TestSummarizeCountsAndTopIDs(t *testing.T) {
	var events []model.LogEvent
	add := func(n int, id uint32, level, src string) {
		for i := 0; i < n; i++ {
			events = append(events, model.LogEvent{EventID: id, Level: level, Source: src})
		}
	}
	add(4, 7036, "Information", "Service Control Manager")
	add(3, 10016, "Warning", "DistributedCOM")
	add(3, 1000, "Error", "Application Error")
	add(1, 41, "Critical", "Microsoft-Windows-Kernel-Power")
	add(1, 6008, "Error", "EventLog")
	add(1, 6005, "Information", "EventLog")
	add(1, 7, "Error", "")

	sum := Summarize("System", events, 2)

	assert.Equal(t, "System", sum.LogName)
	assert.Equal(t, 14, sum.TotalEvents)
	assert.Equal(t, map[string]int{"Information": 5, "Warning": 3, "Error": 5, "Critical": 1}, sum.LevelCounts)
	assert.Equal(t, []model.TopEventID{
		{ID: 7036, Count: 4},
		{ID: 1000, Count: 3},
		{ID: 10016, Count: 3},
		{ID: 7, Count: 1},
		{ID: 41, Count: 1},
	}, sum.TopEventIDs)
	assert.Len(t, sum.TopSources, 5)
	assert.Equal(t, model.TopSource{Name: "Service Control Manager", Count: 4}, sum.TopSources[0])
	assert.Equal(t, model.TopSource{Name: "Application Error", Count: 3}, sum.TopSources[1])
	assert.Len(t, sum.Recent, 2)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize("Application", nil, 10)
	assert.Zero(t, sum.TotalEvents)
	assert.Empty(t, sum.TopEventIDs)
	assert.Empty(t, sum.Recent)
}
