package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/corpuslab/quantang-cli/internal/store"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent crawl and retry runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

func formatRuns(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tRANGE\tOK\tSKIP\tFAIL\tSTARTED\tFINISHED")
	for _, r := range runs {
		ok, skip, fail := "-", "-", "-"
		if r.Stats != nil {
			ok = fmt.Sprint(r.Stats.Succeeded)
			skip = fmt.Sprint(r.Stats.Skipped)
			fail = fmt.Sprint(r.Stats.Exhausted())
		}
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID[:min(len(r.ID), 8)], r.Kind, r.StartVolume, r.EndVolume,
			ok, skip, fail,
			r.StartedAt.Format("2006-01-02 15:04:05"), finished,
		)
	}
	_ = tw.Flush()
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "max runs to show")
	rootCmd.AddCommand(statusCmd)
}
