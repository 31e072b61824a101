package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"postpilot/internal/logging"
	"postpilot/internal/models"
	"postpilot/internal/transfer"
)

type mockPublisher struct {
	fn func(ctx context.Context, now time.Time) *transfer.PublishResult
}

func (m *mockPublisher) PublishScheduledPosts(ctx context.Context, now time.Time) *transfer.PublishResult {
	return m.fn(ctx, now)
}

type mockExecRepo struct {
	createFn func(ctx context.Context, exec *models.SchedulerExecution) error
	created  []*models.SchedulerExecution
}

func (m *mockExecRepo) Create(ctx context.Context, exec *models.SchedulerExecution) error {
	m.created = append(m.created, exec)
	if m.createFn != nil {
		return m.createFn(ctx, exec)
	}
	return nil
}

func (m *mockExecRepo) GetByID(_ context.Context, _ string) (*models.SchedulerExecution, error) {
	return nil, nil
}

func (m *mockExecRepo) ListRecent(_ context.Context, _ int) ([]*models.SchedulerExecution, error) {
	return nil, nil
}

func (m *mockExecRepo) ListByDateRange(_ context.Context, _, _ time.Time) ([]*models.SchedulerExecution, error) {
	return nil, nil
}

type mockMonitor struct {
	fn func(exec *models.SchedulerExecution) []string
}

func (m *mockMonitor) CheckThresholds(exec *models.SchedulerExecution) []string {
	if m.fn != nil {
		return m.fn(exec)
	}
	return nil
}

func okPublisher(published int) *mockPublisher {
	return &mockPublisher{fn: func(_ context.Context, _ time.Time) *transfer.PublishResult {
		ids := make([]int64, published)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		return &transfer.PublishResult{Success: true, PublishedCount: published, PostIDs: ids, Errors: []string{}}
	}}
}

func TestExecute_SuccessPath(t *testing.T) {
	execs := &mockExecRepo{}
	logger := logging.Nop()
	svc := NewSchedulerService(okPublisher(3), execs, &mockMonitor{}, logger)

	result := svc.ExecuteScheduledPublishing(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.PostsPublished != 3 || result.PostsProcessed != 3 {
		t.Fatalf("expected 3/3, got %+v", result)
	}
	if result.ExecutionID == "" {
		t.Fatal("expected a fresh execution id")
	}

	if len(execs.created) != 1 {
		t.Fatalf("expected one metrics record, got %d", len(execs.created))
	}
	exec := execs.created[0]
	if exec.ExecutionID != result.ExecutionID {
		t.Fatal("metrics record must carry the execution id")
	}
	if exec.PostsPublished > exec.PostsProcessed {
		t.Fatalf("invariant violated: published %d > processed %d", exec.PostsPublished, exec.PostsProcessed)
	}
	if exec.Status != models.ExecutionStatusCompleted {
		t.Fatalf("expected completed status, got %q", exec.Status)
	}

	if logger.CorrelationID() != "" {
		t.Fatal("correlation id must be cleared after the run")
	}
}

func TestExecute_PublisherReportsErrors(t *testing.T) {
	pub := &mockPublisher{fn: func(_ context.Context, _ time.Time) *transfer.PublishResult {
		return &transfer.PublishResult{
			Success: false,
			Errors:  []string{"failed to fetch due posts: database unreachable"},
		}
	}}
	execs := &mockExecRepo{}
	svc := NewSchedulerService(pub, execs, &mockMonitor{}, logging.Nop())

	result := svc.ExecuteScheduledPublishing(context.Background())
	if result.Success {
		t.Fatal("expected unsuccessful result")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected publisher errors to surface, got %v", result.Errors)
	}
	if execs.created[0].Status != models.ExecutionStatusError {
		t.Fatalf("expected error-classified metrics, got %q", execs.created[0].Status)
	}
}

func TestExecute_PublisherPanics(t *testing.T) {
	pub := &mockPublisher{fn: func(_ context.Context, _ time.Time) *transfer.PublishResult {
		panic(errors.New("nil pointer dereference"))
	}}
	execs := &mockExecRepo{}
	logger := logging.Nop()
	svc := NewSchedulerService(pub, execs, &mockMonitor{}, logger)

	result := svc.ExecuteScheduledPublishing(context.Background())
	if result == nil {
		t.Fatal("a panic must still yield a result")
	}
	if result.Success {
		t.Fatal("expected error result")
	}
	if result.PostsProcessed != 0 || result.PostsPublished != 0 {
		t.Fatalf("expected zeroed counts, got %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "nil pointer") {
		t.Fatalf("expected the panic message, got %v", result.Errors)
	}

	if len(execs.created) != 1 || execs.created[0].Status != models.ExecutionStatusError {
		t.Fatal("expected best-effort error metrics")
	}
	if logger.CorrelationID() != "" {
		t.Fatal("correlation id must be cleared on the panic path")
	}
}

func TestExecute_MetricsSinkFailureIsSwallowed(t *testing.T) {
	execs := &mockExecRepo{createFn: func(_ context.Context, _ *models.SchedulerExecution) error {
		return errors.New("metrics store down")
	}}
	logger := logging.Nop()
	svc := NewSchedulerService(okPublisher(2), execs, &mockMonitor{}, logger)

	result := svc.ExecuteScheduledPublishing(context.Background())
	if !result.Success || result.PostsPublished != 2 {
		t.Fatalf("metrics failure must not affect the run, got %+v", result)
	}
	if logger.CorrelationID() != "" {
		t.Fatal("correlation id must be cleared")
	}
}

func TestExecute_MonitorPanicIsSwallowed(t *testing.T) {
	monitor := &mockMonitor{fn: func(_ *models.SchedulerExecution) []string {
		panic("threshold config corrupted")
	}}
	svc := NewSchedulerService(okPublisher(1), &mockExecRepo{}, monitor, logging.Nop())

	result := svc.ExecuteScheduledPublishing(context.Background())
	if !result.Success || result.PostsPublished != 1 {
		t.Fatalf("monitor failure must not affect the run, got %+v", result)
	}
}

func TestExecute_PassesUTCToPublisher(t *testing.T) {
	var got time.Time
	pub := &mockPublisher{fn: func(_ context.Context, now time.Time) *transfer.PublishResult {
		got = now
		return &transfer.PublishResult{Success: true, PostIDs: []int64{}, Errors: []string{}}
	}}
	svc := NewSchedulerService(pub, &mockExecRepo{}, &mockMonitor{}, logging.Nop())

	svc.ExecuteScheduledPublishing(context.Background())
	if got.Location() != time.UTC {
		t.Fatalf("publisher received %s time, want UTC", got.Location())
	}
	if !strings.HasSuffix(got.Format(time.RFC3339), "Z") {
		t.Fatalf("expected Z-suffixed timestamp, got %s", got.Format(time.RFC3339))
	}
}

func TestExecute_CorrelationIDActiveDuringRun(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info")

	var duringRun string
	pub := &mockPublisher{fn: func(_ context.Context, _ time.Time) *transfer.PublishResult {
		duringRun = logger.CorrelationID()
		return &transfer.PublishResult{Success: true, PostIDs: []int64{}, Errors: []string{}}
	}}
	svc := NewSchedulerService(pub, &mockExecRepo{}, &mockMonitor{}, logger)

	result := svc.ExecuteScheduledPublishing(context.Background())
	if duringRun == "" || duringRun != result.ExecutionID {
		t.Fatalf("correlation id during run %q, execution id %q", duringRun, result.ExecutionID)
	}
	if !strings.Contains(buf.String(), result.ExecutionID) {
		t.Fatal("log lines must carry the execution id")
	}
	if logger.CorrelationID() != "" {
		t.Fatal("correlation id must be cleared after the run")
	}
}

func TestSkippedPostsCountAsProcessed(t *testing.T) {
	pub := &mockPublisher{fn: func(_ context.Context, _ time.Time) *transfer.PublishResult {
		return &transfer.PublishResult{
			Success:        true,
			PublishedCount: 2,
			SkippedCount:   1,
			PostIDs:        []int64{1, 3},
			Errors:         []string{"1 posts skipped due to concurrent modification"},
		}
	}}
	svc := NewSchedulerService(pub, &mockExecRepo{}, &mockMonitor{}, logging.Nop())

	result := svc.ExecuteScheduledPublishing(context.Background())
	if result.PostsProcessed != 3 || result.PostsPublished != 2 {
		t.Fatalf("expected processed=3 published=2, got %+v", result)
	}
}
