package workers

import (
	"context"
	"time"

	"figures/internal/activity"
	"figures/internal/models"
	"figures/internal/tasks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkerTask represents a named operation to be executed during a worker run.
type WorkerTask struct {
	Name string
	Fn   func(ctx context.Context) (int, error)
}

func executeTasks(ctx context.Context, tasks []WorkerTask) []int {
	counts := make([]int, len(tasks))

	for i, task := range tasks {
		count, taskErr := task.Fn(ctx)
		if taskErr != nil {
			zap.L().Error("Worker task failed",
				zap.String("task", task.Name),
				zap.Error(taskErr))
		}
		counts[i] = count
	}

	return counts
}

// StartPeriodicWorker runs an immediate cycle, then repeats on interval.
func StartPeriodicWorker(ctx context.Context, workerName string, interval time.Duration, tasks []WorkerTask) {
	zap.L().Info("Starting worker",
		zap.String("worker", workerName),
		zap.Duration("interval", interval))

	runWorkerCycle(ctx, workerName, tasks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Worker shutting down", zap.String("worker", workerName))
			return
		case <-ticker.C:
			runWorkerCycle(ctx, workerName, tasks)
		}
	}
}

// runWorkerCycle executes a single worker cycle, logging timing and per-task counts.
func runWorkerCycle(ctx context.Context, workerName string, tasks []WorkerTask) {
	startTime := time.Now()
	zap.L().Info("Starting worker cycle", zap.String("worker", workerName))

	counts := executeTasks(ctx, tasks)

	fields := []zap.Field{zap.String("worker", workerName)}
	for i, task := range tasks {
		fields = append(fields, zap.Int(task.Name, counts[i]))
	}
	fields = append(fields, zap.Duration("duration", time.Since(startTime)))

	zap.L().Info("Worker cycle complete", fields...)
}

// RunTracker records pipeline runs in the worker run table and the activity index.
type RunTracker struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (t *RunTracker) StartRun(ctx context.Context, workerName string, date *models.Date) (*models.WorkerRun, error) {
	run := &models.WorkerRun{
		WorkerName: workerName,
		Status:     models.WorkerRunStatusRunning,
		DateFor:    date,
	}
	if err := t.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	t.logActivity(run, activity.PipelineRunStarted)
	return run, nil
}

func (t *RunTracker) CompleteRun(ctx context.Context, run *models.WorkerRun, summary tasks.Summary) {
	t.endRun(ctx, run, models.WorkerRunStatusCompleted, summary)
	t.logActivity(run, activity.PipelineRunDone)
}

func (t *RunTracker) FailRun(ctx context.Context, run *models.WorkerRun, summary tasks.Summary) {
	t.endRun(ctx, run, models.WorkerRunStatusFailed, summary)
	t.logActivity(run, activity.PipelineRunFailed)
}

// Track wraps fn in a worker run. The run fails when fn returns an error.
func (t *RunTracker) Track(
	ctx context.Context,
	workerName string,
	date *models.Date,
	fn func(ctx context.Context) (tasks.Summary, error),
) (tasks.Summary, error) {
	run, err := t.StartRun(ctx, workerName, date)
	if err != nil {
		zap.L().Error("Failed to start worker run tracking", zap.String("worker", workerName), zap.Error(err))
	}

	summary, runErr := fn(ctx)

	if run != nil {
		if runErr != nil {
			t.FailRun(ctx, run, summary)
		} else {
			t.CompleteRun(ctx, run, summary)
		}
	}
	return summary, runErr
}

func (t *RunTracker) endRun(ctx context.Context, run *models.WorkerRun, status models.WorkerRunStatus, summary tasks.Summary) {
	now := time.Now().UTC()
	run.Status = status
	run.Processed = summary.Processed
	run.Failed = summary.Failed
	run.EndedAt = &now

	// The batch context may be cancelled already; the run row must still close.
	err := t.DB.WithContext(context.WithoutCancel(ctx)).Model(run).Updates(map[string]any{
		"status":    run.Status,
		"processed": run.Processed,
		"failed":    run.Failed,
		"ended_at":  run.EndedAt,
	}).Error
	if err != nil {
		zap.L().Error("Failed to update worker run",
			zap.String("run_id", run.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (t *RunTracker) logActivity(run *models.WorkerRun, message string) {
	if t.ActivityLogger == nil {
		return
	}
	fields := map[string]string{
		"action":      message,
		"object_type": activity.ObjectWorkerRun,
		"worker_name": run.WorkerName,
	}
	if run.DateFor != nil {
		fields["date_for"] = run.DateFor.String()
	}
	err := t.ActivityLogger.Send(models.Activity{
		Message: message,
		Object:  run,
		Filter:  activity.NewLogFilter(fields),
	})
	if err != nil {
		zap.L().Error("Failed to log worker run activity", zap.String("worker", run.WorkerName), zap.Error(err))
	}
}
