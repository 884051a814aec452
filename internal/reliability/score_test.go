package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wininvestigator/internal/model"
)

func TestScoreFormula(t *testing.T) {
	tests := []struct {
		c, h, w, m int
		want       float64
	}{
		{0, 0, 0, 0, 10},
		{1, 1, 0, 0, 8},
		{0, 0, 1, 0, 8},
		{2, 1, 2, 1, 2},
		{0, 0, 5, 1, 0},
		{20, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(tt.c, tt.h, tt.w, tt.m), "%+v", tt)
	}
}

func TestDailyScoresGroupsByLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ev := func(ts time.Time, typ model.ReliabilityEventType) model.ReliabilityEvent {
		return model.ReliabilityEvent{Timestamp: ts, EventType: typ}
	}
	events := []model.ReliabilityEvent{
		// 2024-05-01 20:00 UTC is 2024-05-02 in loc
		ev(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC), model.WindowsFailure),
		ev(time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC), model.ApplicationCrash),
		ev(time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC), model.MiscellaneousFailure),
		ev(time.Date(2024, 4, 25, 2, 0, 0, 0, time.UTC), model.ApplicationHang),
	}

	scores := DailyScores(events, loc)
	require.Len(t, scores, 3)

	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, loc), scores[0].Date)
	assert.Equal(t, 1, scores[0].WindowsFailures)
	assert.Equal(t, 1, scores[0].ApplicationCrashes)
	assert.Equal(t, 7.0, scores[0].Score)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), scores[1].Date)
	assert.Equal(t, 9.0, scores[1].Score)

	// no rows for the quiet days in between
	assert.Equal(t, time.Date(2024, 4, 25, 0, 0, 0, 0, loc), scores[2].Date)
	assert.Equal(t, 1, scores[2].ApplicationHangs)
}

func TestDailyScoresEmpty(t *testing.T) {
	assert.Empty(t, DailyScores(nil, time.UTC))
}
