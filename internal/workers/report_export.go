package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"figures/internal/activity"
	"figures/internal/models"
	"figures/internal/notifier"
	"figures/internal/reports"
	"figures/internal/sites"
	"figures/internal/storage"
	"figures/internal/tasks"

	"go.uber.org/zap"
)

const (
	ReportExportName     = "report_export"
	ReportExportInterval = time.Hour
	// ReportBackfillDays is how many past days the export worker keeps complete.
	ReportBackfillDays = 7
)

// ReportExportWorker uploads the daily metrics of every site as CSV reports.
type ReportExportWorker struct {
	Sites          sites.Scope
	Exporter       reports.Exporter
	Tracker        *RunTracker
	ActivityLogger activity.IActivityLogger
	Notifier       notifier.INotifier
	NotifyTo       string
	RunInterval    time.Duration
}

func (w *ReportExportWorker) Start(ctx context.Context) {
	interval := w.RunInterval
	if interval <= 0 {
		interval = ReportExportInterval
	}
	StartPeriodicWorker(ctx, ReportExportName, interval, []WorkerTask{
		{Name: "missing_reports", Fn: w.exportMissing},
	})
}

// exportMissing exports the days of the backfill window whose site report is
// not in storage yet. Today is skipped, its metrics are not final.
func (w *ReportExportWorker) exportMissing(ctx context.Context) (int, error) {
	allSites, err := w.Sites.AllSites(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sites: %w", err)
	}

	exported := 0
	var failures []error
	today := models.Today()
	for days := 1; days <= ReportBackfillDays; days++ {
		date := today.AddDays(-days)
		for _, site := range allSites {
			if err = ctx.Err(); err != nil {
				return exported, err
			}

			key := reports.ObjectPath(site.ID, reports.Name(date, reports.SiteDailyMetricsReport))
			if _, statErr := w.Exporter.Storage.StatObject(ctx, key); statErr == nil {
				continue
			} else if !errors.Is(statErr, storage.ErrObjectNotFound) {
				failures = append(failures, statErr)
				continue
			}

			if !w.hasMetrics(ctx, site, date) {
				continue
			}
			if _, err = w.exportSite(ctx, site, date); err != nil {
				failures = append(failures, err)
				continue
			}
			exported++
		}
	}
	return exported, errors.Join(failures...)
}

func (w *ReportExportWorker) hasMetrics(ctx context.Context, site models.Site, date models.Date) bool {
	var count int64
	err := w.Exporter.DB.WithContext(ctx).
		Model(&models.SiteDailyMetrics{}).
		Where("site_id = ? AND date_for = ?", site.ID, date).
		Count(&count).Error
	if err != nil {
		zap.L().Warn("Failed to check site metrics", zap.Uint("site_id", site.ID), zap.Error(err))
		return false
	}
	return count > 0
}

// ExportDate exports the reports of every site for date as one tracked run.
func (w *ReportExportWorker) ExportDate(ctx context.Context, date models.Date) ([]string, error) {
	var written []string
	_, err := w.Tracker.Track(ctx, ReportExportName, &date, func(ctx context.Context) (tasks.Summary, error) {
		var summary tasks.Summary
		allSites, err := w.Sites.AllSites(ctx)
		if err != nil {
			return summary, fmt.Errorf("list sites: %w", err)
		}

		var failures []error
		for _, site := range allSites {
			summary.Processed++
			names, exportErr := w.exportSite(ctx, site, date)
			if exportErr != nil {
				summary.Failed++
				failures = append(failures, exportErr)
				continue
			}
			for _, name := range names {
				written = append(written, reports.ObjectPath(site.ID, name))
			}
		}
		return summary, errors.Join(failures...)
	})

	if len(written) > 0 {
		w.notifyExported(date, written)
	}
	return written, err
}

func (w *ReportExportWorker) exportSite(ctx context.Context, site models.Site, date models.Date) ([]string, error) {
	names, err := w.Exporter.Export(ctx, site, date)
	if err != nil {
		return names, fmt.Errorf("site %d: %w", site.ID, err)
	}

	for _, name := range names {
		w.logExport(site, date, name)
	}
	zap.L().Info("Exported reports",
		zap.Uint("site_id", site.ID),
		zap.Stringer("date_for", date),
		zap.Strings("reports", names))
	return names, nil
}

func (w *ReportExportWorker) logExport(site models.Site, date models.Date, name string) {
	if w.ActivityLogger == nil {
		return
	}
	err := w.ActivityLogger.Send(models.Activity{
		Message: activity.ReportExported,
		Object:  models.ReportObject{Name: name},
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.ReportExported,
			"object_type": activity.ObjectReport,
			"site_id":     strconv.FormatUint(uint64(site.ID), 10),
			"date_for":    date.String(),
		}),
	})
	if err != nil {
		zap.L().Error("Failed to log report export activity", zap.Error(err))
	}
}

func (w *ReportExportWorker) notifyExported(date models.Date, objects []string) {
	if w.Notifier == nil || w.NotifyTo == "" {
		return
	}
	data := notifier.ReportExportedData{DateFor: date.String(), Objects: objects}
	subject := fmt.Sprintf("Figures reports exported for %s", date)
	if err := w.Notifier.NotifyFromTemplate(w.NotifyTo, subject, notifier.TemplateReportExported, data); err != nil {
		zap.L().Error("Failed to send report notification", zap.Error(err))
	}
}
