package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/upload"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that both event documents exist with the expected shape",
		Long: `Re-read territory_events and milestone_events and check that the
territory document is a non-empty mapping of lists and the milestone
document holds a milestones list.

A failed check exits 1 and changes nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	sess, err := openSession(cmd.Context(), opts, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	v, err := upload.New(sess.gateway, upload.WithLogger(logger)).VerifyUpload(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}

	var problem *ExitError
	if verr := v.Err(); verr != nil {
		problem = WrapExitError(ExitFailure, ErrCodeVerification, verr)
	}
	return emit(formatter, v, func(w io.Writer) {
		if !v.OK {
			fmt.Fprintln(w, "✗ Verification failed")
			for _, p := range v.Problems {
				fmt.Fprintf(w, "  %s\n", p)
			}
			return
		}
		fmt.Fprintf(w, "✓ Found %d territory events across %d territories\n", v.TerritoryEvents, v.Territories)
		fmt.Fprintf(w, "✓ Found %d milestone events\n", v.MilestoneEvents)
	}, problem)
}
