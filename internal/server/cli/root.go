// Package cli defines the bmd-server command tree.
package cli

import (
	"io"

	"github.com/dmitrijs2005/bmd/internal/buildinfo"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
}

// NewRootCommand creates the root command for the server binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "bmd-server",
		Short:         "BMD - Biodiversity Meets Data portal",
		Long:          "Web portal and REST API for submitting species distribution modelling workflows.",
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", "", ".env file to load")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWorkflowsCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags(), o.ConfigFile, o.EnvFile)
}

func newLogger(w io.Writer, cfg *config.Config) logging.Logger {
	return logging.New(w, cfg.Log.Level)
}
