package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/ellier/internal/config"
	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/version"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFiles   []string
}

func (o *rootOptions) loader() *config.Loader {
	return config.NewLoader(o.configPath, version.Version, o.envFiles...)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rec := &recordOptions{index: -1}

	root := &cobra.Command{
		Use:           "ellier",
		Short:         "Record a CHZZK channel with chapter markers",
		Long:          "Watches one CHZZK channel, records every broadcast and writes a chapter per title or category change.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, opts, rec)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files loaded before environment overrides")
	rec.bind(root)

	root.AddCommand(
		newRecordCmd(opts),
		newBrokerCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// configureLogging swaps the bootstrap logger for the configured one.
func configureLogging(cfg config.AppConfig) {
	xglog.Reconfigure(xglog.Config{
		Level:    cfg.Log.Level,
		Service:  "ellier",
		Version:  cfg.Version,
		Location: cfg.Location(),
	})
}
