package eventlog

import (
	"sort"

	"wininvestigator/internal/model"
)

const topN = 5

// Summarize builds level counts, top event IDs and top providers from events,
// which are expected newest first.
func Summarize(logName string, events []model.LogEvent, maxRecent int) model.LogSummary {
	levelCounts := map[string]int{}
	idCounts := map[uint32]int{}
	srcCounts := map[string]int{}

	for _, ev := range events {
		levelCounts[ev.Level]++
		idCounts[ev.EventID]++
		if ev.Source != "" {
			srcCounts[ev.Source]++
		}
	}

	recent := make([]model.LogEvent, 0, maxRecent)
	if len(events) > maxRecent {
		recent = append(recent, events[:maxRecent]...)
	} else {
		recent = append(recent, events...)
	}

	topIDs := make([]model.TopEventID, 0, len(idCounts))
	for id, c := range idCounts {
		topIDs = append(topIDs, model.TopEventID{ID: id, Count: c})
	}
	sort.Slice(topIDs, func(i, j int) bool {
		if topIDs[i].Count == topIDs[j].Count {
			return topIDs[i].ID < topIDs[j].ID
		}
		return topIDs[i].Count > topIDs[j].Count
	})
	if len(topIDs) > topN {
		topIDs = topIDs[:topN]
	}

	topSources := make([]model.TopSource, 0, len(srcCounts))
	for name, c := range srcCounts {
		topSources = append(topSources, model.TopSource{Name: name, Count: c})
	}
	sort.Slice(topSources, func(i, j int) bool {
		if topSources[i].Count == topSources[j].Count {
			return topSources[i].Name < topSources[j].Name
		}
		return topSources[i].Count > topSources[j].Count
	})
	if len(topSources) > topN {
		topSources = topSources[:topN]
	}

	return model.LogSummary{
		LogName:     logName,
		TotalEvents: len(events),
		LevelCounts: levelCounts,
		TopEventIDs: topIDs,
		TopSources:  topSources,
		Recent:      recent,
	}
}
