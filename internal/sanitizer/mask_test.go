package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wininvestigator/internal/model"
)

func TestMaskString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"connect to 10.0.0.12 failed", "connect to *** failed"},
		{"user=alice logged on", "user=*** logged on"},
		{"Host=build-01 unreachable", "Host=*** unreachable"},
		{"nothing sensitive here", "nothing sensitive here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskString(tt.in), tt.in)
	}
}

func TestMaskEventsAndLines(t *testing.T) {
	events := []model.LogEvent{{Message: "peer 192.168.1.5 reset"}}
	MaskEvents(events)
	assert.Equal(t, "peer *** reset", events[0].Message)

	lines := []string{"ok", "from 172.16.0.1"}
	masked := MaskLines(lines)
	assert.Equal(t, []string{"ok", "from ***"}, masked)
	assert.Equal(t, "from 172.16.0.1", lines[1], "input is not modified")
}

func TestMaskReliability(t *testing.T) {
	desc := "Error reported by user=bob"
	events := []model.ReliabilityEvent{{Description: &desc}, {}}
	MaskReliability(events)
	assert.Equal(t, "Error reported by user=***", *events[0].Description)
	assert.Equal(t, "Error reported by user=bob", desc)
	assert.Nil(t, events[1].Description)
}
