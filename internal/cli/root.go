package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Credentials string

	// Settings without a global flag, taken from the environment.
	TerritoryFile string
	MilestoneFile string
	LogLevel      string
	StampMetadata bool
	Author        string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eventdocs CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eventdocs",
		Short: "eventdocs - game event catalog tool",
		Long: `Maintain the territory and milestone event catalog.

Events live in two documents, territory_events and milestone_events.
Bulk commands replace them from JSON or YAML collections; the events
command group edits single events.

Settings are read from EVENTDOCS_* environment variables and a .env
file; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, ErrCodeConfig, err)
			}
			opts.apply(cfg, cmd)

			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Credentials, "credentials", "credentials.yaml", "path to the store credentials file")

	// Add subcommands
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

// apply fills options from cfg. Flags set on the command line win.
func (o *RootOptions) apply(cfg config.Config, cmd *cobra.Command) {
	if !cmd.Flags().Changed("format") {
		o.Format = cfg.Format
	}
	if !cmd.Flags().Changed("credentials") {
		o.Credentials = cfg.Credentials
	}
	o.TerritoryFile = cfg.TerritoryFile
	o.MilestoneFile = cfg.MilestoneFile
	o.LogLevel = cfg.LogLevel
	o.StampMetadata = cfg.StampMetadata
	o.Author = cfg.Author
}

// newLogger returns a text logger on w. --verbose forces debug level.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.LogLevel != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(strings.TrimSpace(o.LogLevel))); err == nil {
			level = parsed
		}
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFormatter returns the formatter for cmd's writers.
func (o *RootOptions) newFormatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Log:     cmd.ErrOrStderr(),
		Verbose: o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
