package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewBlacklistCmd создаёт группу команд управления чёрным списком источников.
func NewBlacklistCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage data sources excluded from schema refresh",
	}

	cmd.AddCommand(
		newBlacklistListCmd(depsFn, outputFn),
		newBlacklistAddCmd(depsFn, outputFn),
		newBlacklistRemoveCmd(depsFn, outputFn),
	)

	return cmd
}

func newBlacklistListCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List blacklisted data source IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := depsFn()
			out := outputFn()

			blacklist, err := deps.Blacklist()
			if err != nil {
				return err
			}
			members, err := blacklist.Members(cmd.Context())
			if err != nil {
				return err
			}

			ids := make([]int64, 0, len(members))
			for id := range members {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{strconv.FormatInt(id, 10)})
			}

			out.Print([]string{"DATA SOURCE ID"}, rows, ids)
			return nil
		},
	}
}

func newBlacklistAddCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "add <data-source-id>",
		Short: "Exclude a data source from schema refresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid data source id %q: %w", args[0], err)
			}

			blacklist, err := depsFn().Blacklist()
			if err != nil {
				return err
			}
			if err := blacklist.Add(cmd.Context(), id); err != nil {
				return err
			}

			outputFn().Success("Data source %d blacklisted", id)
			return nil
		},
	}
}

func newBlacklistRemoveCmd(depsFn func() *Deps, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <data-source-id>",
		Short: "Return a data source to the schema refresh rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid data source id %q: %w", args[0], err)
			}

			blacklist, err := depsFn().Blacklist()
			if err != nil {
				return err
			}
			if err := blacklist.Remove(cmd.Context(), id); err != nil {
				return err
			}

			outputFn().Success("Data source %d removed from blacklist", id)
			return nil
		},
	}
}
