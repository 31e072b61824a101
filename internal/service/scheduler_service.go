package service

import (
	"context"
	"fmt"
	"time"

	"postpilot/internal/logging"
	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
	"postpilot/pkg/utils"
)

// SchedulerService is the outermost entry point for a publish run. It must
// always return a result: collaborator failures (metrics sink, monitor,
// logger) are swallowed and reported on stderr, and a panic anywhere below
// is converted into an error-classified result. The execution id doubles
// as the log correlation id for the run and is cleared on every exit path.
type SchedulerService interface {
	ExecuteScheduledPublishing(ctx context.Context) *transfer.SchedulerResult
}

type schedulerService struct {
	publisher PublisherService
	execs     repository.ExecutionRepository
	monitor   MonitorService
	log       *logging.Logger
}

func NewSchedulerService(
	publisher PublisherService,
	execs repository.ExecutionRepository,
	monitor MonitorService,
	log *logging.Logger) SchedulerService {
	return &schedulerService{
		publisher: publisher,
		execs:     execs,
		monitor:   monitor,
		log:       log,
	}
}

func (s *schedulerService) ExecuteScheduledPublishing(ctx context.Context) (result *transfer.SchedulerResult) {
	executionID := utils.GenerateExecutionID()
	startedAt := time.Now().UTC()

	s.bestEffort("set correlation id", func() {
		s.log.SetCorrelationID(executionID)
	})
	defer s.bestEffort("clear correlation id", func() {
		s.log.ClearCorrelationID()
	})

	defer func() {
		if r := recover(); r != nil {
			result = s.recoverResult(ctx, executionID, startedAt, r)
		}
	}()

	s.bestEffort("log start", func() {
		s.log.Info("scheduler execution started",
			logging.Time("started_at", startedAt))
	})

	// Deliberately not wrapped: a panic here is handled by the recover
	// above, an error result is handled below.
	pub := s.publisher.PublishScheduledPosts(ctx, startedAt)

	completedAt := time.Now().UTC()
	processed := pub.PublishedCount + pub.SkippedCount

	s.bestEffort("log processing", func() {
		s.log.Info("scheduler execution processed posts",
			logging.Int("posts_processed", processed),
			logging.Int("posts_published", pub.PublishedCount))
	})

	exec := &models.SchedulerExecution{
		ExecutionID:    executionID,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		PostsProcessed: processed,
		PostsPublished: pub.PublishedCount,
		ErrorCount:     len(pub.Errors),
		DurationMs:     completedAt.Sub(startedAt).Milliseconds(),
		Status:         models.ExecutionStatusCompleted,
	}
	if !pub.Success {
		exec.Status = models.ExecutionStatusError
	}

	s.bestEffort("persist metrics", func() {
		if err := s.execs.Create(ctx, exec); err != nil {
			logging.Fallback("scheduler: metrics persistence failed: %v", err)
		}
	})

	s.bestEffort("performance checks", func() {
		for _, alert := range s.monitor.CheckThresholds(exec) {
			s.log.Warn("performance alert", logging.String("alert", alert))
		}
	})

	s.bestEffort("log completion", func() {
		fields := []logging.Field{
			logging.Bool("success", pub.Success),
			logging.Int("posts_published", pub.PublishedCount),
			logging.Int("error_count", len(pub.Errors)),
			logging.Duration("duration", completedAt.Sub(startedAt)),
		}
		if len(pub.Errors) > 0 {
			s.log.Warn("scheduler execution completed with errors", fields...)
		} else {
			s.log.Info("scheduler execution completed", fields...)
		}
	})

	return &transfer.SchedulerResult{
		ExecutionID:    executionID,
		Success:        pub.Success,
		PostsProcessed: processed,
		PostsPublished: pub.PublishedCount,
		DurationMs:     exec.DurationMs,
		Errors:         pub.Errors,
	}
}

// recoverResult handles the thrown-exception path: zeroed counts, error
// metrics persisted best-effort, and a result that still reaches the caller.
func (s *schedulerService) recoverResult(ctx context.Context, executionID string, startedAt time.Time, cause any) *transfer.SchedulerResult {
	completedAt := time.Now().UTC()
	msg := panicMessage(cause)

	s.bestEffort("log panic", func() {
		s.log.Error("scheduler execution panicked",
			logging.String("panic", msg),
			logging.Duration("duration", completedAt.Sub(startedAt)))
	})

	s.bestEffort("persist error metrics", func() {
		err := s.execs.Create(ctx, &models.SchedulerExecution{
			ExecutionID: executionID,
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			ErrorCount:  1,
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
			Status:      models.ExecutionStatusError,
		})
		if err != nil {
			logging.Fallback("scheduler: error metrics persistence failed: %v", err)
		}
	})

	return &transfer.SchedulerResult{
		ExecutionID: executionID,
		Success:     false,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		Errors:      []string{msg},
	}
}

func panicMessage(cause any) string {
	if err, ok := cause.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", cause)
}

// bestEffort runs a side-effecting collaborator call and guarantees it
// cannot abort the run. Failures surface on stderr only.
func (s *schedulerService) bestEffort(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Fallback("scheduler: %s failed: %v", name, r)
		}
	}()
	fn()
}
