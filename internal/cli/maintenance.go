package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// NewMaintenanceCmd создаёт группу команд обслуживания расписаний и результатов.
func NewMaintenanceCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Housekeeping for schedules and stored results",
	}

	cmd.AddCommand(
		newEmptySchedulesCmd(depsFn, outputFn),
		newCleanupResultsCmd(depsFn, outputFn),
	)

	return cmd
}

func newEmptySchedulesCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "empty-schedules",
		Short: "Clear schedules that are past their end date",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := depsFn()
			out := outputFn()
			ctx := cmd.Context()

			queries, err := deps.Queries()
			if err != nil {
				return err
			}

			expired, err := queries.ListPastScheduled(ctx, time.Now())
			if err != nil {
				return err
			}
			if len(expired) == 0 {
				out.Success("Deleted 0 schedules")
				return nil
			}

			ids := make([]int64, 0, len(expired))
			for _, q := range expired {
				ids = append(ids, q.ID)
			}
			if err := queries.ClearSchedules(ctx, ids); err != nil {
				return err
			}

			out.Success("Deleted %d schedules", len(ids))
			return nil
		},
	}
}

func newCleanupResultsCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	var (
		maxAgeDays int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "cleanup-results",
		Short: "Delete a batch of unused query results",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := depsFn()
			out := outputFn()
			ctx := cmd.Context()

			results, err := deps.Results()
			if err != nil {
				return err
			}

			maxAge := time.Duration(maxAgeDays) * 24 * time.Hour
			total, err := results.CountUnused(ctx, maxAge)
			if err != nil {
				return err
			}
			deleted, err := results.DeleteUnused(ctx, maxAge, limit)
			if err != nil {
				return err
			}

			out.Success("Deleted %d of %d unused query results", deleted, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 7, "Delete results not referenced for this many days")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of results to delete in one batch")

	return cmd
}
