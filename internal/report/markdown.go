// Package report renders the stored catalog for people.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/eventdocs/internal/event"
)

// Export is the input of WriteMarkdown.
type Export struct {
	Generated time.Time

	// Events in catalog order, as returned by the repository.
	Events []event.Event

	// Last write of each document. Used for the "added" column of events
	// without a createdAt stamp; zero prints a placeholder.
	TerritoryUpdated time.Time
	MilestoneUpdated time.Time
}

const none = "-"

// WriteMarkdown renders x as a markdown document: one table per
// territory, in catalog order, then the milestone table.
func WriteMarkdown(w io.Writer, x Export) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Events Export\n\n> Generated: %s\n\n", x.Generated.UTC().Format(time.RFC3339))

	var (
		order      []string
		territory  = map[string][]event.Event{}
		milestones []event.Event
	)
	for _, e := range x.Events {
		p := e.Partition()
		if p.IsMilestone() {
			milestones = append(milestones, e)
			continue
		}
		if _, ok := territory[string(p)]; !ok {
			order = append(order, string(p))
		}
		territory[string(p)] = append(territory[string(p)], e)
	}

	bw.WriteString("## Territory Events\n\n")
	if len(order) == 0 {
		bw.WriteString("_No territory events found._\n\n")
	}
	for _, name := range order {
		fmt.Fprintf(bw, "### %s\n\n", name)
		bw.WriteString("| id | title | type | pop Δ | prob | added | createdBy | description |\n")
		bw.WriteString("|----|-------|------|-------|------|-------|-----------|-------------|\n")
		for _, e := range territory[name] {
			row(bw, cell(e.ID), cell(e.Title), string(e.Type), delta(e.PopulationChange),
				num(e.Probability), added(e, x.TerritoryUpdated), createdBy(e), cell(e.Description))
		}
		bw.WriteString("\n")
	}

	bw.WriteString("## Milestone Events\n\n")
	if len(milestones) == 0 {
		bw.WriteString("_No milestone events found._\n")
		return bw.Flush()
	}
	bw.WriteString("| id | title | threshold | type | pop Δ | prob | added | createdBy | description |\n")
	bw.WriteString("|----|-------|-----------|------|-------|------|-------|-----------|-------------|\n")
	for _, e := range milestones {
		threshold := none
		if e.Threshold != nil {
			threshold = strconv.FormatInt(*e.Threshold, 10)
		}
		row(bw, cell(e.ID), cell(e.Title), threshold, string(e.Type), delta(e.PopulationChange),
			num(e.Probability), added(e, x.MilestoneUpdated), createdBy(e), cell(e.Description))
	}
	return bw.Flush()
}

func row(w *bufio.Writer, cells ...string) {
	w.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

// cell escapes pipes and flattens newlines so text stays in its column.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func delta(v float64) string {
	if v > 0 {
		return "+" + num(v)
	}
	return num(v)
}

func added(e event.Event, docUpdated time.Time) string {
	switch {
	case e.CreatedAt > 0:
		return time.UnixMilli(e.CreatedAt).UTC().Format(time.DateOnly)
	case !docUpdated.IsZero():
		return docUpdated.UTC().Format(time.DateOnly)
	}
	return none
}

func createdBy(e event.Event) string {
	if e.CreatedBy == "" {
		return none
	}
	return cell(e.CreatedBy)
}
