package main

import (
	"fmt"

	"figures/internal/models"
	"figures/internal/sites"
	"figures/internal/tasks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type populateFlags struct {
	date   string
	siteID uint
	course string
	force  bool
}

func newPopulateCmd() *cobra.Command {
	var flags populateFlags
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Collect daily metrics for a course, a site or every site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := flags.task()
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}

			summary, err := tasks.New(db, sites.NewScope(db, loaded.App)).Run(cmd.Context(), task)
			zap.L().Info("Populate finished",
				zap.String("scope", string(task.Scope)),
				zap.Int("processed", summary.Processed),
				zap.Int("failed", summary.Failed))
			return err
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "Date to collect, YYYY-MM-DD (defaults to today)")
	cmd.Flags().UintVar(&flags.siteID, "site", 0, "Restrict collection to one site")
	cmd.Flags().StringVar(&flags.course, "course", "", "Restrict collection to one course")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite existing course daily metrics")
	cmd.MarkFlagsMutuallyExclusive("site", "course")
	return cmd
}

func (f populateFlags) task() (models.PopulateTask, error) {
	task := models.PopulateTask{Scope: models.PopulateScopeAll, ForceUpdate: f.force}
	if f.date != "" {
		date, err := models.ParseDate(f.date)
		if err != nil {
			return task, fmt.Errorf("invalid --date %q: %w", f.date, err)
		}
		task.DateFor = &date
	}

	switch {
	case f.course != "":
		task.Scope = models.PopulateScopeCourse
		task.CourseID = f.course
	case f.siteID != 0:
		task.Scope = models.PopulateScopeSite
		task.SiteID = f.siteID
	}
	return task, nil
}
