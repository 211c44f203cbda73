package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdocs/internal/event"
)

// EventsOptions holds flags for the events command group.
type EventsOptions struct {
	*RootOptions
	Partition string
	ID        string

	Title            string
	Description      string
	Type             string
	Category         string
	PopulationChange float64
	Probability      float64
	Threshold        int64

	// IDs generates ids for added events without --id.
	// If nil, defaults to UUIDv7Generator.
	IDs event.IDGenerator
}

// EventResult is the payload of add and update.
type EventResult struct {
	Partition event.Partition `json:"partition"`
	Event     event.Event     `json:"event"`
}

// DeleteResult is the payload of delete.
type DeleteResult struct {
	Partition event.Partition `json:"partition"`
	ID        string          `json:"id"`
	Removed   int             `json:"removed"`
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, add, update and delete single events",
		Long: `Edit individual events. Each change is one read-modify-write of the
document that holds the partition; a document changed by someone else in
the meantime is reported as a conflict and nothing is written.

The partition is a territory name (rural, urban, ...) or "milestone".`,
	}

	cmd.AddCommand(newEventsListCommand(opts))
	cmd.AddCommand(newEventsAddCommand(opts))
	cmd.AddCommand(newEventsUpdateCommand(opts))
	cmd.AddCommand(newEventsDeleteCommand(opts))

	return cmd
}

func newEventsListCommand(opts *EventsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List all stored events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Partition, "partition", "p", "", "only list this partition")
	return cmd
}

func newEventsAddCommand(opts *EventsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event to a partition",
		Long: `Add an event to a partition. Without --id a time-ordered UUID is used.

Example:
  eventdocs events add -p rural --title Flood --description "The river rises." \
    --type disaster --category disaster --population-change -5 --probability 0.3
  eventdocs events add -p milestone --title "First Town" --description "..." \
    --type milestone --category milestone --probability 1 --threshold 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsAdd(opts, cmd)
		},
	}
	addEventFlags(cmd, opts)
	return cmd
}

func newEventsUpdateCommand(opts *EventsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace an event in a partition",
		Long: `Replace the event with --id in the partition with the given fields.
The event keeps its position; if no event has that id it is added.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsUpdate(opts, cmd)
		},
	}
	addEventFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newEventsDeleteCommand(opts *EventsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an event from a partition",
		Long: `Delete every event with --id from the partition. Deleting an id that
is not there succeeds and changes nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsDelete(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Partition, "partition", "p", "", "partition holding the event (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "event id (required)")
	_ = cmd.MarkFlagRequired("partition")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func addEventFlags(cmd *cobra.Command, opts *EventsOptions) {
	cmd.Flags().StringVarP(&opts.Partition, "partition", "p", "", "territory name or \"milestone\" (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "event id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "immigration|emigration|disaster|milestone (required)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "opportunity|disaster|conflict|epidemic|milestone (required)")
	cmd.Flags().Float64Var(&opts.PopulationChange, "population-change", 0, "population change, -100 to 100")
	cmd.Flags().Float64Var(&opts.Probability, "probability", 0, "probability, 0 to 1")
	cmd.Flags().Int64Var(&opts.Threshold, "threshold", 0, "population threshold (milestone events only)")
	for _, name := range []string{"partition", "title", "description", "type", "category"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// eventFromFlags builds the event described by the flags of cmd.
func eventFromFlags(opts *EventsOptions, cmd *cobra.Command) event.Event {
	e := event.Event{
		ID:               opts.ID,
		Title:            opts.Title,
		Description:      opts.Description,
		Type:             event.Type(opts.Type),
		PopulationChange: opts.PopulationChange,
		Probability:      opts.Probability,
		Category:         event.Category(opts.Category),
	}
	if cmd.Flags().Changed("threshold") {
		e.Threshold = event.Int64(opts.Threshold)
	}
	return e
}

func runEventsList(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	sess, err := openSession(cmd.Context(), opts.RootOptions, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	all, err := sess.repository(opts.RootOptions).GetAllEvents(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}
	events := make([]event.Event, 0, len(all))
	for _, e := range all {
		if opts.Partition == "" || e.TerritoryType == opts.Partition {
			events = append(events, e)
		}
	}

	return emit(formatter, events, func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events")
			return
		}
		for _, e := range events {
			line := fmt.Sprintf("%-14s %-24s %s", e.TerritoryType, e.ID, e.Title)
			if e.Threshold != nil {
				line += fmt.Sprintf(" (threshold %d)", *e.Threshold)
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "%d events\n", len(events))
	}, nil)
}

func runEventsAdd(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	e := eventFromFlags(opts, cmd)
	if e.ID == "" {
		ids := opts.IDs
		if ids == nil {
			ids = event.UUIDv7Generator{}
		}
		e.ID = ids.Generate()
		formatter.VerboseLog("Generated id %s", e.ID)
	}
	p := event.Partition(opts.Partition)

	sess, err := openSession(cmd.Context(), opts.RootOptions, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	if err := sess.repository(opts.RootOptions).AddEvent(cmd.Context(), e, p); err != nil {
		return fail(formatter, err)
	}

	return emit(formatter, EventResult{Partition: p, Event: e}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Added %s/%s\n", p, e.ID)
	}, nil)
}

func runEventsUpdate(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	e := eventFromFlags(opts, cmd)
	p := event.Partition(opts.Partition)

	sess, err := openSession(cmd.Context(), opts.RootOptions, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	if err := sess.repository(opts.RootOptions).UpdateEvent(cmd.Context(), e, p); err != nil {
		return fail(formatter, err)
	}

	return emit(formatter, EventResult{Partition: p, Event: e}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Updated %s/%s\n", p, e.ID)
	}, nil)
}

func runEventsDelete(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())
	p := event.Partition(opts.Partition)

	sess, err := openSession(cmd.Context(), opts.RootOptions, logger)
	if err != nil {
		return fail(formatter, err)
	}
	defer sess.Close()

	removed, err := sess.repository(opts.RootOptions).DeleteEvent(cmd.Context(), opts.ID, p)
	if err != nil {
		return fail(formatter, err)
	}

	return emit(formatter, DeleteResult{Partition: p, ID: opts.ID, Removed: removed}, func(w io.Writer) {
		if removed == 0 {
			fmt.Fprintf(w, "Nothing to delete: no event %s in %s\n", opts.ID, p)
			return
		}
		fmt.Fprintf(w, "✓ Deleted %s/%s\n", p, opts.ID)
	}, nil)
}
