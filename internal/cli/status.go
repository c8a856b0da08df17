package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/Freshboard/internal/domain"
)

// NewStatusCmd создаёт команду просмотра сводки последнего прохода.
func NewStatusCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	var maxAgeDays int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last refresh pass summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := depsFn()
			out := outputFn()
			ctx := cmd.Context()

			store, err := deps.Status()
			if err != nil {
				return err
			}
			fields, err := store.ReadAll(ctx)
			if err != nil {
				return err
			}
			record, err := domain.StatusRecordFromFields(fields)
			if err != nil {
				return err
			}

			results, err := deps.Results()
			if err != nil {
				return err
			}
			unused, err := results.CountUnused(ctx, time.Duration(maxAgeDays)*24*time.Hour)
			if err != nil {
				return err
			}

			completedAt := "never"
			if !record.CompletedAt.IsZero() {
				completedAt = record.CompletedAt.Format(time.RFC3339)
			}

			out.PrintKV([][2]string{
				{"Last refresh", completedAt},
				{"Dispatched queries", strconv.Itoa(record.DispatchedCount)},
				{"Query IDs", fmt.Sprintf("%v", record.DispatchedQueryIDs)},
				{"Unused results", strconv.FormatInt(unused, 10)},
			}, map[string]any{
				"last_refresh_at":  record.CompletedAt,
				"dispatched_count": record.DispatchedCount,
				"dispatched_ids":   record.DispatchedQueryIDs,
				"unused_results":   unused,
			})
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 7, "Age threshold for counting unused results")

	return cmd
}
