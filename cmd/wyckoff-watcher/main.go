package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wyckoff_watcher/internal/config"
	"wyckoff_watcher/internal/logger"
	"wyckoff_watcher/internal/models"
	"wyckoff_watcher/internal/runlog"
	"wyckoff_watcher/internal/runner"
	"wyckoff_watcher/internal/storage"
)

const LogFile = "watcher.log"
const VersionFile = "version.latest"

func main() {
	root := &cobra.Command{
		Use:   "wyckoff-watcher",
		Short: "A-share watchlist sync and Wyckoff analysis, one invocation per cron tick",
		// Silence cobra's own error echo; errors are logged where they happen.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Execute one invocation, letting the schedule decide the mode",
			RunE: func(cmd *cobra.Command, args []string) error {
				return invoke("")
			},
		},
		&cobra.Command{
			Use:   "full",
			Short: "Force a full run regardless of the wall clock",
			RunE: func(cmd *cobra.Command, args []string) error {
				return invoke(models.ModeFull)
			},
		},
		&cobra.Command{
			Use:   "sync",
			Short: "Sync chat commands only, no analysis or dispatch",
			RunE: func(cmd *cobra.Command, args []string) error {
				return invoke(models.ModeSyncOnly)
			},
		},
		listCmd(),
		historyCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
}

// invoke is the shared entry: config, logging, signal-aware context, then
// exactly one runner execution.
func invoke(forced models.RunMode) error {
	cfg := config.Load()
	cfg.Version = readVersion()

	logger.Setup(LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Wyckoff Watcher %s starting", cfg.Version)
	return runner.Execute(ctx, cfg, forced)
}

// listCmd prints the stored watchlist without touching Telegram. Useful on
// the host the cron job runs on.
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the stored watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			state, err := storage.LoadState(cfg.StateFile)
			if err != nil {
				return err
			}

			if len(state.Entries) == 0 {
				color.Yellow("watchlist is empty")
				return nil
			}
			bold := color.New(color.Bold)
			for i, e := range state.Entries {
				bold.Printf("%2d. %s", i+1, e.Symbol)
				fmt.Printf("  added %s\n", e.AddedAt.In(config.CstLoc).Format("2006-01-02 15:04"))
			}
			if !state.LastFullRun.IsZero() {
				color.Cyan("last full run: %s", state.LastFullRun.In(config.CstLoc).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			j, err := runlog.Open(cfg.RunLogFile)
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.Recent(limit)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				line := fmt.Sprintf("%s  %-9s  %-10s  %s",
					rec.StartedAt.In(config.CstLoc).Format("2006-01-02 15:04"),
					rec.Mode, rec.Outcome, rec.RunID)
				if rec.Outcome == "ok" {
					color.Green(line)
				} else {
					color.Red(line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return string(version)
}
