// Package tasks runs the metrics pipeline over courses and sites. It is
// shared by the daily scheduler, the populate consumer and the CLI.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"figures/internal/models"
	"figures/internal/pipeline"
	"figures/internal/sites"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUnlinkedCourse is returned for a course no site owns.
var ErrUnlinkedCourse = errors.New("course is not linked to a site")

// Summary counts the units a batch touched.
type Summary struct {
	Processed int
	Failed    int
}

func (s *Summary) add(other Summary) {
	s.Processed += other.Processed
	s.Failed += other.Failed
}

type Tasks struct {
	DB       *gorm.DB
	Sites    sites.Scope
	Pipeline pipeline.Pipeline
}

func New(db *gorm.DB, scope sites.Scope) Tasks {
	return Tasks{DB: db, Sites: scope, Pipeline: pipeline.New(db, scope)}
}

func orToday(date models.Date) models.Date {
	if date.IsZero() {
		return models.Today()
	}
	return date
}

// PopulateSingleCDM loads the course metrics of one course into its site.
func (t Tasks) PopulateSingleCDM(ctx context.Context, courseID string, date models.Date, force bool) (models.CourseDailyMetrics, error) {
	date = orToday(date)
	site, err := t.Sites.SiteForCourse(ctx, courseID)
	if err != nil {
		return models.CourseDailyMetrics{}, err
	}
	if site == nil {
		return models.CourseDailyMetrics{}, fmt.Errorf("%s: %w", courseID, ErrUnlinkedCourse)
	}
	return t.populateCDM(ctx, *site, courseID, date, force)
}

func (t Tasks) populateCDM(ctx context.Context, site models.Site, courseID string, date models.Date, force bool) (models.CourseDailyMetrics, error) {
	row, created, err := t.Pipeline.LoadCourseDailyMetrics(ctx, site, courseID, date, force)
	if err != nil {
		return row, err
	}
	zap.L().Debug("Course metrics loaded",
		zap.Uint("site_id", site.ID),
		zap.String("course_id", courseID),
		zap.Stringer("date_for", date),
		zap.Bool("created", created),
	)
	return row, nil
}

// checkOwnership fails with an IntegrityError when a multisite course is
// mapped to more than one organization or site.
func (t Tasks) checkOwnership(ctx context.Context, courseID string) error {
	if t.Sites.Mode != models.SiteModeMultisite {
		return nil
	}
	_, err := t.Sites.SiteForCourse(ctx, courseID)
	return err
}

// PopulateSiteDailyMetrics loads the site row for date from the course
// metrics already stored. Site rows are always overwritten.
func (t Tasks) PopulateSiteDailyMetrics(ctx context.Context, siteID uint, date models.Date) (models.SiteDailyMetrics, error) {
	date = orToday(date)
	var site models.Site
	if err := t.DB.WithContext(ctx).First(&site, siteID).Error; err != nil {
		return models.SiteDailyMetrics{}, fmt.Errorf("site %d: %w", siteID, err)
	}

	row, created, err := t.Pipeline.LoadSiteDailyMetrics(ctx, site, date)
	if err != nil {
		return row, err
	}
	zap.L().Debug("Site metrics loaded",
		zap.Uint("site_id", siteID),
		zap.Stringer("date_for", date),
		zap.Bool("created", created),
	)
	return row, nil
}

// PopulateSite loads the metrics of every course of the site under that
// site, then the site row. Failures are recorded and skipped; an integrity violation stops the run.
func (t Tasks) PopulateSite(ctx context.Context, site models.Site, date models.Date, force bool) (Summary, error) {
	date = orToday(date)
	var summary Summary
	var failures []error

	courseIDs, err := t.Sites.CourseKeysForSite(ctx, site)
	if err != nil {
		return summary, fmt.Errorf("courses of site %d: %w", site.ID, err)
	}

	for _, courseID := range courseIDs {
		if err = ctx.Err(); err != nil {
			return summary, err
		}

		summary.Processed++
		err = t.checkOwnership(ctx, courseID)
		if err == nil {
			_, err = t.populateCDM(ctx, site, courseID, date, force)
		}
		if err != nil {
			if sites.IsIntegrityError(err) {
				return summary, err
			}
			summary.Failed++
			pipeline.LogError(ctx, t.DB, pipeline.ErrorRecord{
				Type:     pipeline.ErrorType(err, models.PipelineErrorCourse),
				SiteID:   &site.ID,
				CourseID: &courseID,
				Data:     map[string]any{"date_for": date.String()},
			}, err)
			failures = append(failures, fmt.Errorf("course %s: %w", courseID, err))
		}
	}

	summary.Processed++
	if _, err = t.PopulateSiteDailyMetrics(ctx, site.ID, date); err != nil {
		summary.Failed++
		pipeline.LogError(ctx, t.DB, pipeline.ErrorRecord{
			Type:   pipeline.ErrorType(err, models.PipelineErrorSite),
			SiteID: &site.ID,
			Data:   map[string]any{"date_for": date.String()},
		}, err)
		failures = append(failures, fmt.Errorf("site %d: %w", site.ID, err))
	}

	return summary, errors.Join(failures...)
}

// PopulateDailyMetrics runs PopulateSite for every site. The returned error
// joins every failure of the batch.
func (t Tasks) PopulateDailyMetrics(ctx context.Context, date models.Date, force bool) (Summary, error) {
	date = orToday(date)
	var summary Summary
	var failures []error

	allSites, err := t.Sites.AllSites(ctx)
	if err != nil {
		return summary, fmt.Errorf("list sites: %w", err)
	}

	zap.L().Info("Populating daily metrics",
		zap.Stringer("date_for", date),
		zap.Int("sites", len(allSites)),
		zap.Bool("force_update", force),
	)

	for _, site := range allSites {
		siteSummary, siteErr := t.PopulateSite(ctx, site, date, force)
		summary.add(siteSummary)
		if siteErr != nil {
			if sites.IsIntegrityError(siteErr) || errors.Is(siteErr, context.Canceled) {
				return summary, siteErr
			}
			failures = append(failures, siteErr)
		}
	}

	zap.L().Info("Daily metrics populated",
		zap.Stringer("date_for", date),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary, errors.Join(failures...)
}

// Run executes a populate task message.
func (t Tasks) Run(ctx context.Context, task models.PopulateTask) (Summary, error) {
	var date models.Date
	if task.DateFor != nil {
		date = *task.DateFor
	}

	switch task.Scope {
	case models.PopulateScopeCourse:
		_, err := t.PopulateSingleCDM(ctx, task.CourseID, date, task.ForceUpdate)
		if err != nil {
			return Summary{Processed: 1, Failed: 1}, err
		}
		return Summary{Processed: 1}, nil
	case models.PopulateScopeSite:
		var site models.Site
		if err := t.DB.WithContext(ctx).First(&site, task.SiteID).Error; err != nil {
			return Summary{}, fmt.Errorf("site %d: %w", task.SiteID, err)
		}
		return t.PopulateSite(ctx, site, date, task.ForceUpdate)
	case models.PopulateScopeAll:
		return t.PopulateDailyMetrics(ctx, date, task.ForceUpdate)
	default:
		return Summary{}, fmt.Errorf("unknown populate scope %q", task.Scope)
	}
}
