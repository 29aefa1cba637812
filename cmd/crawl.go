package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	crawlStart int
	crawlEnd   int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a range of volumes",
	Long:  "Crawls the configured volume range, skipping volumes whose artifact already exists, so an interrupted run can be resumed by re-running the same command.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		start, end := crawlStart, crawlEnd
		if start == 0 {
			start = cfg.Crawl.StartVolume
		}
		if end == 0 {
			end = cfg.Crawl.EndVolume
		}
		if start < 1 || end < start {
			return eris.Errorf("invalid volume range %d..%d", start, end)
		}

		env, err := initCrawler(ctx, cfg.Pacing)
		if err != nil {
			return err
		}
		defer env.Close()

		volumes := make([]int, 0, end-start+1)
		for v := start; v <= end; v++ {
			volumes = append(volumes, v)
		}

		stats, err := env.Orchestrator.Run(ctx, "crawl", volumes)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		zap.L().Info("crawl finished",
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("succeeded", stats.Succeeded),
			zap.Int("skipped", stats.Skipped),
			zap.Int("exhausted", stats.Exhausted()),
		)
		return nil
	},
}

func init() {
	crawlCmd.Flags().IntVar(&crawlStart, "start", 0, "first volume (defaults to config)")
	crawlCmd.Flags().IntVar(&crawlEnd, "end", 0, "last volume (defaults to config)")
	rootCmd.AddCommand(crawlCmd)
}
