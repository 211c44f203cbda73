package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/eventdocs/internal/store"
	"github.com/roach88/eventdocs/internal/upload"
)

// UploadOptions holds flags for the upload command.
type UploadOptions struct {
	*RootOptions
	Territory  string
	Milestones string
	DryRun     bool
	Force      bool
	Yes        bool
}

// UploadResult is the payload of the upload command.
type UploadResult struct {
	DryRun       bool                 `json:"dryRun"`
	Territory    *upload.Outcome      `json:"territory"`
	Milestones   *upload.Outcome      `json:"milestones"`
	Verification *upload.Verification `json:"verification,omitempty"`
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Replace both event documents from collection files",
		Long: `Replace the territory_events and milestone_events documents with the
contents of two collection files (JSON, or YAML for .yaml/.yml).

Every event is validated before anything is written; one invalid event
rejects its whole collection. When a document already has content the
command asks before overwriting it, unless --force or --yes is given.
Without a terminal to ask on, the overwrite is declined.

A successful upload is followed by a verification read of both documents.

Example:
  eventdocs upload --dry-run
  eventdocs upload --territory events/territory.json --milestones events/milestones.yaml --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Territory, "territory", "", "territory collection file (default from EVENTDOCS_TERRITORY_FILE)")
	cmd.Flags().StringVar(&opts.Milestones, "milestones", "", "milestone collection file (default from EVENTDOCS_MILESTONE_FILE)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate and summarize without writing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite existing documents without asking")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "answer yes to overwrite prompts")

	return cmd
}

func runUpload(opts *UploadOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	territoryPath := firstNonEmpty(opts.Territory, opts.TerritoryFile)
	milestonePath := firstNonEmpty(opts.Milestones, opts.MilestoneFile)
	formatter.VerboseLog("Territory collection: %s", territoryPath)
	formatter.VerboseLog("Milestone collection: %s", milestonePath)

	// Load both collections before touching the store.
	territory, err := upload.LoadCollection(upload.FileSource{Path: territoryPath})
	if err != nil {
		return fail(formatter, err)
	}
	milestoneDoc, err := upload.LoadCollection(upload.FileSource{Path: milestonePath})
	if err != nil {
		return fail(formatter, err)
	}
	milestones, err := upload.MilestoneList(milestoneDoc)
	if err != nil {
		return fail(formatter, err)
	}

	// A dry run never reads or writes, so it needs no session.
	var docs upload.DocumentStore = store.NewGateway()
	if !opts.DryRun {
		sess, err := openSession(ctx, opts.RootOptions, logger)
		if err != nil {
			return fail(formatter, err)
		}
		defer sess.Close()
		docs = sess.gateway
	}
	u := upload.New(docs, upload.WithLogger(logger), upload.WithDryRun(opts.DryRun))
	p := newPrompter(cmd, opts.Yes)

	// An invalid collection does not stop the other one.
	result := &UploadResult{DryRun: opts.DryRun}
	rejected := &upload.Report{}
	result.Territory, err = p.upload(func(force bool) (*upload.Outcome, error) {
		return u.UploadTerritoryEvents(ctx, territory, force)
	}, opts.Force)
	if err := reject(rejected, err); err != nil {
		return fail(formatter, err)
	}
	result.Milestones, err = p.upload(func(force bool) (*upload.Outcome, error) {
		return u.UploadMilestoneEvents(ctx, milestones, force)
	}, opts.Force)
	if err := reject(rejected, err); err != nil {
		return fail(formatter, err)
	}

	var problem *ExitError
	declined := errors.Join(result.Territory.Err(), result.Milestones.Err())
	switch {
	case !rejected.Valid():
		problem = WrapExitError(ExitFailure, ErrCodeValidation, errors.Join(rejected.Err(), declined))
	case declined != nil:
		problem = WrapExitError(ExitFailure, ErrCodeAborted, declined)
	case !opts.DryRun:
		result.Verification, err = u.VerifyUpload(ctx)
		if err != nil {
			return fail(formatter, err)
		}
		if verr := result.Verification.Err(); verr != nil {
			problem = WrapExitError(ExitFailure, ErrCodeVerification, verr)
		}
	}

	return emit(formatter, result, func(w io.Writer) {
		writeOutcome(w, store.TerritoryDocument, result.Territory)
		writeOutcome(w, store.MilestoneDocument, result.Milestones)
		if v := result.Verification; v != nil && v.OK {
			fmt.Fprintf(w, "✓ Verified: %d territories, %d territory events, %d milestone events\n",
				v.Territories, v.TerritoryEvents, v.MilestoneEvents)
		}
		if result.DryRun {
			fmt.Fprintln(w, "Dry run: nothing was written. Run without --dry-run to upload.")
		}
	}, problem)
}

// reject folds a collection validation failure into report and returns
// any other error.
func reject(report *upload.Report, err error) error {
	var cerr *upload.CollectionError
	if errors.As(err, &cerr) {
		report.Merge(cerr.Report)
		return nil
	}
	return err
}

func writeOutcome(w io.Writer, document string, o *upload.Outcome) {
	if o == nil {
		fmt.Fprintf(w, "✗ %s: invalid collection, nothing uploaded\n", document)
		return
	}
	parts := make([]string, len(o.Partitions))
	for i, pc := range o.Partitions {
		parts[i] = fmt.Sprintf("%s: %d", pc.Partition, pc.Events)
	}
	counts := strings.Join(parts, ", ")
	switch o.Status {
	case upload.StatusUploaded:
		fmt.Fprintf(w, "✓ %s: uploaded %d events (%s)\n", o.Document, o.Total, counts)
	case upload.StatusDryRun:
		fmt.Fprintf(w, "%s: would upload %d events (%s)\n", o.Document, o.Total, counts)
	case upload.StatusAborted:
		fmt.Fprintf(w, "✗ %s: overwrite declined, %d events not uploaded\n", o.Document, o.Total)
	default:
		fmt.Fprintf(w, "%s: %s\n", o.Document, o.Status)
	}
}

// prompter asks the operator to confirm overwrites.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	yes         bool
	interactive bool
}

func newPrompter(cmd *cobra.Command, yes bool) *prompter {
	in := cmd.InOrStdin()
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &prompter{in: bufio.NewReader(in), out: cmd.ErrOrStderr(), yes: yes, interactive: interactive}
}

// upload runs do, and when the outcome needs confirmation asks for it:
// yes re-runs do with force, no declines.
func (p *prompter) upload(do func(force bool) (*upload.Outcome, error), force bool) (*upload.Outcome, error) {
	out, err := do(force)
	if err != nil || out.Status != upload.StatusConfirmationRequired {
		return out, err
	}
	ok, err := p.confirm(out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return upload.Decline(out), nil
	}
	return do(true)
}

func (p *prompter) confirm(out *upload.Outcome) (bool, error) {
	if p.yes {
		return true, nil
	}
	if !p.interactive {
		fmt.Fprintf(p.out, "%s already has content; use --force to overwrite it\n", out.Document)
		return false, nil
	}
	fmt.Fprintf(p.out, "%s already has content. Overwrite it with %d events? (y/N): ", out.Document, out.Total)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
