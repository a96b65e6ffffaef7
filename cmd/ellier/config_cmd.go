package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration without recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loader().Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "configuration valid\n")
			_, _ = fmt.Fprintf(out, "  output_dir: %s\n", cfg.OutputDir)
			_, _ = fmt.Fprintf(out, "  timezone:   %s\n", cfg.Timezone)
			_, _ = fmt.Fprintf(out, "  ledger:     %s\n", cfg.Ledger.Path)
			for i, ch := range cfg.Channels {
				_, _ = fmt.Fprintf(out, "  channel[%d]: %s %s\n", i, ch.ID, ch.Name)
			}
			return nil
		},
	})
	return cmd
}
