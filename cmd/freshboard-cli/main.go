// Freshboard CLI — инструмент командной строки для ручных проходов
// обновления и обслуживания данных.
//
// Использование:
//
//	freshboard [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	status       Сводка последнего прохода
//	refresh      Ручной запуск прохода (queries, schemas)
//	maintenance  Обслуживание расписаний и результатов
//	blacklist    Чёрный список источников для обновления схем
//
// Подключения настраиваются через DB_URL, REDIS_URL и AMQP_URL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkravets/Freshboard/internal/cli"
	"github.com/mkravets/Freshboard/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Логи — в stderr: stdout остаётся чистым для таблиц и JSON
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: telemetry.LogLevel(),
	}))

	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "freshboard",
		Short:         "Freshboard CLI — refresh scheduling operations tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	var deps *cli.Deps
	depsFn := func() *cli.Deps {
		if deps == nil {
			deps = cli.NewDeps(ctx, logger)
		}
		return deps
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewStatusCmd(depsFn, outputFn),
		cli.NewRefreshCmd(depsFn, outputFn),
		cli.NewMaintenanceCmd(depsFn, outputFn),
		cli.NewBlacklistCmd(depsFn, outputFn),
	)

	err := rootCmd.ExecuteContext(ctx)
	if deps != nil {
		deps.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
