package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpuslab/quantang-cli/internal/config"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry the volumes recorded in the failure ledger",
	Long:  "Re-attempts every volume in the failure ledger with doubled pacing. Volumes that succeed are pruned from the ledger, so the command is idempotent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCrawler(ctx, conservativePacing(cfg.Pacing))
		if err != nil {
			return err
		}
		defer env.Close()

		volumes := env.Ledger.Volumes()
		if len(volumes) == 0 {
			fmt.Fprintln(os.Stderr, "No failed volumes to retry.")
			return nil
		}

		stats, err := env.Orchestrator.Run(ctx, "retry", volumes)
		if err != nil {
			return err
		}

		zap.L().Info("retry finished",
			zap.Int("attempted", len(volumes)),
			zap.Int("succeeded", stats.Succeeded),
			zap.Int("skipped", stats.Skipped),
			zap.Int("still_failing", stats.Exhausted()),
		)
		return nil
	},
}

// conservativePacing doubles delays for the retry pass. Ledger volumes
// already failed a full budget once, so the second pass trades speed for
// a lower chance of tripping the same defenses again.
func conservativePacing(p config.PacingConfig) config.PacingConfig {
	p.BaseDelayMs *= 2
	p.MaxDelayMs *= 2
	p.CooldownMinMs *= 2
	p.CooldownMaxMs *= 2
	p.BackoffMs *= 2
	return p
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
