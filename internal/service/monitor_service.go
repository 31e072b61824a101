package service

import (
	"fmt"
	"time"

	"postpilot/internal/models"
)

// MonitorService checks finished scheduler executions against performance
// thresholds. Alerts are advisory strings; the scheduler logs them
// best-effort and never lets a check failure touch the run itself.
type MonitorService interface {
	CheckThresholds(exec *models.SchedulerExecution) []string
}

type MonitorConfig struct {
	SlowRunThreshold time.Duration
	ErrorCountAlert  int
	LargeRunAlert    int
}

type monitorService struct {
	cfg MonitorConfig
}

func NewMonitorService(cfg MonitorConfig) MonitorService {
	if cfg.SlowRunThreshold <= 0 {
		cfg.SlowRunThreshold = 30 * time.Second
	}
	if cfg.ErrorCountAlert <= 0 {
		cfg.ErrorCountAlert = 5
	}
	if cfg.LargeRunAlert <= 0 {
		cfg.LargeRunAlert = 500
	}
	return &monitorService{cfg: cfg}
}

func (m *monitorService) CheckThresholds(exec *models.SchedulerExecution) []string {
	var alerts []string

	if d := time.Duration(exec.DurationMs) * time.Millisecond; d > m.cfg.SlowRunThreshold {
		alerts = append(alerts, fmt.Sprintf("slow run: took %s (threshold %s)", d, m.cfg.SlowRunThreshold))
	}
	if exec.ErrorCount >= m.cfg.ErrorCountAlert {
		alerts = append(alerts, fmt.Sprintf("error-heavy run: %d errors", exec.ErrorCount))
	}
	if exec.PostsProcessed >= m.cfg.LargeRunAlert {
		alerts = append(alerts, fmt.Sprintf("large run: %d posts processed", exec.PostsProcessed))
	}
	if exec.Status == models.ExecutionStatusError {
		alerts = append(alerts, "run finished in error status")
	}

	return alerts
}
