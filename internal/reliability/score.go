package reliability

import (
	"math"
	"sort"
	"time"

	"wininvestigator/internal/model"
)

const maxScore = 10

// Score is the daily stability index for the given per-category counts.
// Windows failures weigh twice as much as the other categories.
func Score(crashes, hangs, windowsFailures, misc int) float64 {
	return math.Max(0, float64(maxScore-(crashes+hangs+2*windowsFailures+misc)))
}

// DailyScores groups events by calendar day in loc. Only days with at least
// one event are returned, newest day first.
func DailyScores(events []model.ReliabilityEvent, loc *time.Location) []model.ReliabilityScore {
	if loc == nil {
		loc = time.Local
	}
	byDay := map[time.Time]*model.ReliabilityScore{}
	for _, ev := range events {
		t := ev.Timestamp.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		s, ok := byDay[day]
		if !ok {
			s = &model.ReliabilityScore{Date: day}
			byDay[day] = s
		}
		switch ev.EventType {
		case model.ApplicationCrash:
			s.ApplicationCrashes++
		case model.ApplicationHang:
			s.ApplicationHangs++
		case model.WindowsFailure:
			s.WindowsFailures++
		case model.MiscellaneousFailure:
			s.MiscellaneousFailures++
		}
	}

	out := make([]model.ReliabilityScore, 0, len(byDay))
	for _, s := range byDay {
		s.Score = Score(s.ApplicationCrashes, s.ApplicationHangs, s.WindowsFailures, s.MiscellaneousFailures)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
