package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"figures/internal/models"
	"figures/internal/notifier"
	"figures/internal/sites"
	"figures/internal/tasks"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const (
	DailySchedulerName  = "daily_scheduler"
	maxNotifiedFailures = 20
)

// DailySchedulerWorker populates the metrics of the previous day once a day
// and optionally exports them as reports.
type DailySchedulerWorker struct {
	Tasks           tasks.Tasks
	Tracker         *RunTracker
	Exporter        *ReportExportWorker
	Notifier        notifier.INotifier
	NotifyOnFailure string
	ScheduleAt      string
	ForceUpdate     bool
}

func (w *DailySchedulerWorker) Start(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(1).Day().At(w.ScheduleAt).Do(func() {
		w.RunOnce(ctx, models.Today().AddDays(-1))
	})
	if err != nil {
		zap.L().Error("Failed to schedule daily metrics", zap.String("schedule_at", w.ScheduleAt), zap.Error(err))
		return
	}

	scheduler.StartAsync()
	zap.L().Info("Daily scheduler started", zap.String("schedule_at", w.ScheduleAt))

	<-ctx.Done()

	scheduler.Stop()
	zap.L().Info("Daily scheduler stopped")
}

// RunOnce populates every site for date, then exports the reports when an
// exporter is configured.
func (w *DailySchedulerWorker) RunOnce(ctx context.Context, date models.Date) error {
	summary, err := w.Tracker.Track(ctx, DailySchedulerName, &date, func(ctx context.Context) (tasks.Summary, error) {
		return w.Tasks.PopulateDailyMetrics(ctx, date, w.ForceUpdate)
	})
	if err != nil {
		zap.L().Error("Daily metrics run failed",
			zap.Stringer("date_for", date),
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
			zap.Error(err))
		w.notifyFailure(date, summary, err)
		if sites.IsIntegrityError(err) || errors.Is(err, context.Canceled) {
			return err
		}
	}

	if w.Exporter != nil {
		if _, exportErr := w.Exporter.ExportDate(ctx, date); exportErr != nil {
			zap.L().Error("Report export failed", zap.Stringer("date_for", date), zap.Error(exportErr))
			err = errors.Join(err, exportErr)
		}
	}
	return err
}

func (w *DailySchedulerWorker) notifyFailure(date models.Date, summary tasks.Summary, runErr error) {
	if w.Notifier == nil || w.NotifyOnFailure == "" {
		return
	}

	data := notifier.PipelineFailureData{
		WorkerName: DailySchedulerName,
		DateFor:    date.String(),
		Processed:  summary.Processed,
		Failures:   failureMessages(runErr),
	}
	subject := fmt.Sprintf("Figures pipeline failed for %s", date)
	if err := w.Notifier.NotifyFromTemplate(w.NotifyOnFailure, subject, notifier.TemplatePipelineFailure, data); err != nil {
		zap.L().Error("Failed to send pipeline failure notification", zap.Error(err))
	}
}

// failureMessages flattens a joined batch error into one line per failure.
func failureMessages(err error) []string {
	messages := flattenErrors(err)
	if len(messages) > maxNotifiedFailures {
		rest := len(messages) - maxNotifiedFailures
		messages = append(messages[:maxNotifiedFailures], fmt.Sprintf("and %d more", rest))
	}
	return messages
}

func flattenErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	var messages []string
	for _, inner := range joined.Unwrap() {
		messages = append(messages, flattenErrors(inner)...)
	}
	return messages
}
