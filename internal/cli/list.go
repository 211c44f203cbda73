package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/upload"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored event counts per partition",
		Long: `List the stored territory partitions with their event counts and the
stored milestones by id and title. Records are not validated.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	sess, err := openSession(cmd.Context(), opts, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	inv, err := upload.New(sess.gateway, upload.WithLogger(logger)).ListExisting(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}

	return emit(formatter, inv, func(w io.Writer) {
		if !inv.TerritoryExists {
			fmt.Fprintln(w, "No territory events stored")
		} else {
			fmt.Fprintf(w, "Territory events (%d territories):\n", len(inv.Territories))
			for _, pc := range inv.Territories {
				fmt.Fprintf(w, "  - %s: %d events\n", pc.Partition, pc.Events)
			}
		}
		if !inv.MilestoneExists {
			fmt.Fprintln(w, "No milestone events stored")
			return
		}
		fmt.Fprintf(w, "Milestone events (%d events):\n", len(inv.Milestones))
		for _, m := range inv.Milestones {
			fmt.Fprintf(w, "  - %s: %s\n", m.ID, m.Title)
		}
	}, nil)
}
