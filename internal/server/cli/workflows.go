package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/server"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/spf13/cobra"
)

// WorkflowsOptions holds flags for the workflows command.
type WorkflowsOptions struct {
	*RootOptions
	Status string
	JSON   bool
}

// NewWorkflowsCommand creates the operator listing of workflows by status.
func NewWorkflowsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WorkflowsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List workflows of all users in a given status",
		Long: `List workflows across all users, newest first, with the owner's contact details.

Examples:
  bmd-server workflows --status running
  bmd-server workflows --status failed --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, m, err := server.OpenDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ws, err := services.NewWorkflowService(db, m, nil, nil, newLogger(cmd.ErrOrStderr(), cfg))
			if err != nil {
				return err
			}

			list, err := ws.ListByStatus(ctx, opts.Status)
			if err != nil {
				return err
			}

			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return writeWorkflowTable(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", common.StatusRunning, "workflow status (submitted, running, completed, failed)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")

	return cmd
}

func writeWorkflowTable(w io.Writer, list []models.WorkflowWithOwner) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIES\tOWNER\tCREATED")
	for _, wf := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s <%s>\t%s\n",
			wf.ID, wf.Name, wf.SpeciesName, wf.UserName, wf.UserEmail, wf.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
