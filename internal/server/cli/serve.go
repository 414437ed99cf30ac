package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/bmd/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web portal, REST API and health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := server.NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			app.Run(ctx, cancel)
			return nil
		},
	}
}
