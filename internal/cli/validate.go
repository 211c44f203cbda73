package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/upload"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Territory  string
	Milestones string
	Strict     bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Strict bool           `json:"strict"`
	Report *upload.Report `json:"report"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate collection files without uploading",
		Long: `Validate the territory and milestone collection files with the same
rules upload applies, and report every failure. Nothing is written and
no store connection is made.

--strict also checks event types, categories and territory names
against the known values.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Territory, "territory", "", "territory collection file (default from EVENTDOCS_TERRITORY_FILE)")
	cmd.Flags().StringVar(&opts.Milestones, "milestones", "", "milestone collection file (default from EVENTDOCS_MILESTONE_FILE)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "also check enumerated values")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	check := upload.Checker(event.Validate)
	if opts.Strict {
		check = event.ValidateStrict
	}

	territoryPath := firstNonEmpty(opts.Territory, opts.TerritoryFile)
	milestonePath := firstNonEmpty(opts.Milestones, opts.MilestoneFile)

	report := &upload.Report{}
	if territoryPath != "" {
		formatter.VerboseLog("Validating territory collection: %s", territoryPath)
		doc, err := upload.LoadCollection(upload.FileSource{Path: territoryPath})
		if err != nil {
			return fail(formatter, err)
		}
		parts, err := upload.TerritoryPartitions(doc)
		if err != nil {
			return fail(formatter, err)
		}
		report.Merge(upload.ValidateTerritories(parts, check))
	}
	if milestonePath != "" {
		formatter.VerboseLog("Validating milestone collection: %s", milestonePath)
		doc, err := upload.LoadCollection(upload.FileSource{Path: milestonePath})
		if err != nil {
			return fail(formatter, err)
		}
		items, err := upload.MilestoneList(doc)
		if err != nil {
			return fail(formatter, err)
		}
		report.Merge(upload.ValidateCollection(items, event.Milestone, check))
	}

	result := ValidationResult{Valid: report.Valid(), Strict: opts.Strict, Report: report}

	var problem *ExitError
	if err := report.Err(); err != nil {
		// Validation failures = exit code 1
		problem = WrapExitError(ExitFailure, ErrCodeValidation,
			fmt.Errorf("validation failed with %d invalid event(s)", len(report.Failures)))
	}
	return emit(formatter, result, func(w io.Writer) {
		if report.Valid() {
			fmt.Fprintf(w, "✓ All %d events valid\n", report.Checked)
			return
		}
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, f := range report.Failures {
			if f.Index < 0 {
				fmt.Fprintf(w, "%s\n", f.Partition)
			} else if f.ID != "" {
				fmt.Fprintf(w, "%s[%d] %s\n", f.Partition, f.Index, f.ID)
			} else {
				fmt.Fprintf(w, "%s[%d]\n", f.Partition, f.Index)
			}
			for _, v := range f.Violations {
				fmt.Fprintf(w, "  %s: %s\n", v.Field, v.Message)
			}
			fmt.Fprintln(w)
		}
	}, problem)
}
