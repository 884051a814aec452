package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, "Application", channelName(""))
	assert.Equal(t, "System", channelName(" SYSTEM "))
	assert.Equal(t, "Setup", channelName("setup"))
	assert.Equal(t, "Microsoft-Windows-TaskScheduler/Operational", channelName("Microsoft-Windows-TaskScheduler/Operational"))
}
