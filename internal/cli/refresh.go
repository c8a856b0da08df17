package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRefreshCmd создаёт группу команд ручного запуска проходов обновления.
func NewRefreshCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run a refresh pass once",
	}

	cmd.AddCommand(
		newRefreshQueriesCmd(depsFn, outputFn),
		newRefreshSchemasCmd(depsFn, outputFn),
	)

	return cmd
}

func newRefreshQueriesCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "Dispatch all outdated queries for execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := depsFn().Pass(refreshQueriesDisabled())
			if err != nil {
				return err
			}
			if err := pass.RefreshQueries(cmd.Context()); err != nil {
				return err
			}
			outputFn().Success("Query refresh pass completed")
			return nil
		},
	}
}

func newRefreshSchemasCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "Dispatch schema refresh jobs for eligible data sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := depsFn().Pass(refreshQueriesDisabled())
			if err != nil {
				return err
			}
			if err := pass.RefreshSchemas(cmd.Context()); err != nil {
				return err
			}
			outputFn().Success("Schema refresh pass completed")
			return nil
		},
	}
}

// refreshQueriesDisabled читает фиче-флаг отключения автообновления запросов.
func refreshQueriesDisabled() bool {
	v, err := strconv.ParseBool(os.Getenv("FEATURE_DISABLE_REFRESH_QUERIES"))
	if err != nil {
		return false
	}
	return v
}
