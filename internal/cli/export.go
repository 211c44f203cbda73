package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/report"
	"github.com/roach88/eventdocs/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string

	// Now overrides the generation time (for testing).
	Now func() time.Time
}

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Output   string `json:"output,omitempty"`
	Events   int    `json:"events"`
	Markdown string `json:"markdown,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return newExportCommand(&ExportOptions{RootOptions: rootOpts})
}

func newExportCommand(opts *ExportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the stored catalog as markdown tables",
		Long: `Render every stored event as markdown: one table per territory and a
milestone table. Writes to --output, or to stdout when omitted.

Example:
  eventdocs export --output events-export.md`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	sess, err := openSession(ctx, opts.RootOptions, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	events, err := sess.repository(opts.RootOptions).GetAllEvents(ctx)
	if err != nil {
		return fail(formatter, err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	x := report.Export{Generated: now(), Events: events}
	for name, at := range map[string]*time.Time{
		store.TerritoryDocument: &x.TerritoryUpdated,
		store.MilestoneDocument: &x.MilestoneUpdated,
	} {
		snap, err := sess.gateway.ReadDocument(ctx, name)
		if err != nil {
			return fail(formatter, err)
		}
		*at = snap.UpdatedAt
	}

	var buf bytes.Buffer
	if err := report.WriteMarkdown(&buf, x); err != nil {
		return fail(formatter, err)
	}

	if opts.Output == "" {
		return emit(formatter, ExportResult{Events: len(events), Markdown: buf.String()}, func(w io.Writer) {
			w.Write(buf.Bytes())
		}, nil)
	}

	if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
		return fail(formatter, errs.Wrap(errs.KindWrite, "write "+opts.Output, err))
	}
	return emit(formatter, ExportResult{Output: opts.Output, Events: len(events)}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Exported %d events to %s\n", len(events), opts.Output)
	}, nil)
}
