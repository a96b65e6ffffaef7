package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ellier/internal/ledger"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		path   string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent recording sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, err := opts.loader().Load()
				if err != nil {
					return err
				}
				path = cfg.Ledger.Path
			}
			out := cmd.OutOrStdout()

			if verify {
				results, err := ledger.Verify(path)
				if err != nil {
					return err
				}
				for _, r := range results {
					_, _ = fmt.Fprintln(out, r)
				}
				if len(results) != 1 || results[0] != "ok" {
					return fmt.Errorf("ledger %s failed the integrity check", path)
				}
				return nil
			}

			store, err := ledger.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(out, entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of sessions to list")
	cmd.Flags().StringVar(&path, "ledger", "", "ledger database, overrides ledger.path")
	cmd.Flags().BoolVar(&verify, "verify", false, "run an integrity check on the ledger instead of listing")
	return cmd
}

func printHistory(w io.Writer, entries []ledger.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no sessions recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tDURATION\tOUTCOME\tCHAPTERS\tCHANNEL\tDIRECTORY")
	for _, e := range entries {
		outcome := string(e.Outcome)
		if e.FinalizeError != "" {
			outcome += " (finalize failed)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.StartedAt.Format(time.RFC3339),
			e.Duration.Round(time.Second),
			outcome,
			e.Chapters,
			e.ChannelName,
			e.OutputDir,
		)
	}
	return tw.Flush()
}
