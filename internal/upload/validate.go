package upload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
)

// Checker validates one raw record. event.Validate and
// event.ValidateStrict both fit.
type Checker func(event.Record, event.Partition) event.Result

// Failure is one rejected record of a collection.
type Failure struct {
	Partition  event.Partition   `json:"partition"`
	Index      int               `json:"index"`
	ID         string            `json:"id,omitempty"`
	Violations []event.Violation `json:"violations"`
}

// Report aggregates validation over a whole collection.
type Report struct {
	Checked  int       `json:"checked"`
	Failures []Failure `json:"failures,omitempty"`
}

// Valid reports whether every record passed.
func (r *Report) Valid() bool {
	return len(r.Failures) == 0
}

// Err returns a *CollectionError when any record failed.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &CollectionError{Report: r}
}

// Merge appends other's results to r.
func (r *Report) Merge(other *Report) {
	r.Checked += other.Checked
	r.Failures = append(r.Failures, other.Failures...)
}

// CollectionError rejects a collection. It carries every failure, not
// just the first.
type CollectionError struct {
	Report *Report
}

func (e *CollectionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d events invalid", len(e.Report.Failures), e.Report.Checked)
	for _, f := range e.Report.Failures {
		fmt.Fprintf(&b, "; %s[%d]", f.Partition, f.Index)
		if f.ID != "" {
			fmt.Fprintf(&b, " %q", f.ID)
		}
		parts := make([]string, len(f.Violations))
		for i, v := range f.Violations {
			parts[i] = v.String()
		}
		fmt.Fprintf(&b, ": %s", strings.Join(parts, ", "))
	}
	return b.String()
}

// Kind reports errs.KindValidation.
func (e *CollectionError) Kind() errs.Kind {
	return errs.KindValidation
}

// ValidateCollection checks every record of partition p with check
// (event.Validate when nil) and aggregates the failures.
func ValidateCollection(records []json.RawMessage, p event.Partition, check Checker) *Report {
	if check == nil {
		check = event.Validate
	}
	report := &Report{Checked: len(records)}
	for i, raw := range records {
		rec, err := event.DecodeRecord(raw)
		if err != nil {
			report.Failures = append(report.Failures, Failure{
				Partition: p,
				Index:     i,
				Violations: []event.Violation{{
					Field:   "record",
					Code:    event.CodeInvalidType,
					Message: "expected a JSON object",
				}},
			})
			continue
		}
		res := check(rec, p)
		if !res.Valid() {
			report.Failures = append(report.Failures, Failure{
				Partition:  p,
				Index:      i,
				ID:         rec.ID(),
				Violations: res.Violations,
			})
		}
	}
	return report
}

// ValidateTerritories validates every partition of a territory
// collection. A partition named like the milestone group is rejected as
// a whole.
func ValidateTerritories(parts []Partition, check Checker) *Report {
	report := &Report{}
	for _, part := range parts {
		if part.Name == "" || part.Name.IsMilestone() {
			report.Checked += len(part.Items)
			report.Failures = append(report.Failures, Failure{
				Partition: part.Name,
				Index:     -1,
				Violations: []event.Violation{{
					Field:   "territoryType",
					Code:    event.CodeInvalidValue,
					Message: fmt.Sprintf("%q is not a territory", part.Name),
				}},
			})
			continue
		}
		report.Merge(ValidateCollection(part.Items, part.Name, check))
	}
	return report
}
