package winerr

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"access denied", syscall.Errno(5), KindAccessDenied},
		{"file not found", syscall.Errno(2), KindNotFound},
		{"channel not found", fmt.Errorf("EvtQuery: %w", syscall.Errno(15007)), KindNotFound},
		{"service missing", syscall.Errno(1060), KindNotFound},
		{"pdh no object", Status(0xC0000BB8), KindNotFound},
		{"other errno", syscall.Errno(87), KindPlatformAPI},
		{"plain error", errors.New("boom"), KindPlatformAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("EvtQuery", "Event log", "Application", tt.err)
			assert.Equal(t, tt.want, KindOf(got))
		})
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := InvalidArgument("maxResults", "must be greater than 0")
	got := Classify("X", "Y", "Z", fmt.Errorf("wrapped: %w", orig))
	assert.Equal(t, KindInvalidArgument, KindOf(got))
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify("X", "Y", "Z", nil))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Invalid parameter 'pattern': Invalid regex: x",
		InvalidArgument("pattern", "Invalid regex: x").Error())
	assert.Equal(t, "Event log 'Foo' not found", NotFound("Event log", "Foo").Error())
	assert.Equal(t, "Access denied to 'C:\\x'", AccessDenied(`C:\x`, nil).Error())

	pe := PlatformAPI("EvtQuery", syscall.Errno(87))
	require.True(t, pe.HasCode)
	assert.Equal(t, uint32(87), pe.Code)
	assert.Equal(t, "EvtQuery failed with error code 0x00000057", pe.Error())

	unsupported := PlatformAPI("Registry", ErrUnsupported)
	assert.False(t, unsupported.HasCode)
	assert.ErrorIs(t, unsupported, ErrUnsupported)
	assert.Equal(t, "Registry failed: not supported on this platform", unsupported.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.False(t, IsNotFound(errors.New("x")))
	assert.True(t, IsNotFound(NotFound("Service", "Spooler")))
}
