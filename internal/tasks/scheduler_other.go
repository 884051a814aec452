//go:build !windows

package tasks

import (
	"context"

	"go.uber.org/zap"

	"wininvestigator/internal/winerr"
)

type unsupportedScheduler struct{}

func NewScheduler(*zap.Logger) Scheduler { return unsupportedScheduler{} }

func (unsupportedScheduler) Tasks(context.Context) ([]Task, error) {
	return nil, winerr.PlatformAPI("ITaskService.Connect", winerr.ErrUnsupported)
}

func (unsupportedScheduler) Task(context.Context, string) (Task, error) {
	return Task{}, winerr.PlatformAPI("ITaskService.Connect", winerr.ErrUnsupported)
}
