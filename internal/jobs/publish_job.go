package job

import (
	"context"

	"postpilot/internal/service"
)

// PublishJob is the in-process trigger: when no external cron hits the
// HTTP endpoint, robfig/cron invokes Run on an interval instead. Both
// paths go through the same scheduler service and the same conditional
// update, so they can safely coexist.
type PublishJob struct {
	s service.SchedulerService
}

func NewPublishJob(s service.SchedulerService) *PublishJob {
	return &PublishJob{s: s}
}

func (j *PublishJob) Run() {
	j.s.ExecuteScheduledPublishing(context.Background())
}
