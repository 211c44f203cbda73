package event

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/eventdocs/internal/errs"
)

// Violation codes.
const (
	CodeMissingField    = "missing_field"
	CodeInvalidType     = "invalid_type"
	CodeOutOfRange      = "out_of_range"
	CodeUnexpectedField = "unexpected_field"
	CodeInvalidValue    = "invalid_value"
)

// RequiredFields are the fields every event must carry.
var RequiredFields = []string{"id", "title", "description", "type", "populationChange", "probability", "category"}

// Violation is a single broken rule.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Result lists every rule a record violates. Zero violations means valid.
type Result struct {
	ID         string      `json:"id,omitempty"`
	Partition  Partition   `json:"partition"`
	Violations []Violation `json:"violations,omitempty"`
}

// Valid reports whether no rule was violated.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Has reports whether a violation names field.
func (r Result) Has(field string) bool {
	for _, v := range r.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Err returns a *ValidationError for an invalid result, nil otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{ID: r.ID, Partition: r.Partition, Violations: r.Violations}
}

func (r *Result) add(field, code, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// ValidationError reports every violation of a rejected record.
type ValidationError struct {
	ID         string
	Partition  Partition
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	id := e.ID
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("invalid event %q in %s: %s", id, e.Partition, strings.Join(parts, "; "))
}

// Kind classifies the error for errs.KindOf.
func (e *ValidationError) Kind() errs.Kind {
	return errs.KindValidation
}

// Validate checks rec against the structural rules for partition p.
// It is pure and reports every violation, not just the first.
func Validate(rec Record, p Partition) Result {
	res := Result{ID: rec.ID(), Partition: p}

	for _, field := range RequiredFields {
		if !present(rec, field) {
			res.add(field, CodeMissingField, "missing required field")
		}
	}
	if present(rec, "id") {
		if id, ok := rec["id"].(string); !ok {
			res.add("id", CodeInvalidType, "must be a string")
		} else if strings.TrimSpace(id) == "" {
			res.add("id", CodeInvalidValue, "must not be empty")
		}
	}
	for _, field := range textFields {
		if present(rec, field) {
			if _, ok := rec[field].(string); !ok {
				res.add(field, CodeInvalidType, "must be a string")
			}
		}
	}

	if present(rec, "populationChange") {
		v, ok := number(rec["populationChange"])
		switch {
		case !ok:
			res.add("populationChange", CodeInvalidType, "must be a number")
		case v < -100 || v > 100:
			res.add("populationChange", CodeOutOfRange, "must be between -100 and 100, got %v", v)
		}
	}

	if present(rec, "probability") {
		v, ok := number(rec["probability"])
		switch {
		case !ok:
			res.add("probability", CodeInvalidType, "must be a number")
		case v < 0 || v > 1:
			res.add("probability", CodeOutOfRange, "must be between 0 and 1, got %v", v)
		}
	}

	hasThreshold := present(rec, "threshold")
	switch {
	case p.IsMilestone() && !hasThreshold:
		res.add("threshold", CodeMissingField, "required for milestone events")
	case !p.IsMilestone() && hasThreshold:
		res.add("threshold", CodeUnexpectedField, "only milestone events carry a threshold")
	case hasThreshold:
		v, ok := integer(rec["threshold"])
		switch {
		case !ok:
			res.add("threshold", CodeInvalidType, "must be an integer")
		case v < 0:
			res.add("threshold", CodeOutOfRange, "must not be negative, got %v", v)
		}
	}

	for _, field := range []string{"createdAt", "updatedAt"} {
		if present(rec, field) {
			if _, ok := integer(rec[field]); !ok {
				res.add(field, CodeInvalidType, "must be an integer")
			}
		}
	}
	for _, field := range []string{"createdBy", "territoryType"} {
		if present(rec, field) {
			if _, ok := rec[field].(string); !ok {
				res.add(field, CodeInvalidType, "must be a string")
			}
		}
	}

	return res
}

// textFields are the required fields that hold strings.
var textFields = []string{"title", "description", "type", "category"}

// integer accepts whole numbers that fit in an int64. A JSON literal must
// be written without fraction or exponent, since the stored record is
// decoded into an int64 as is.
func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// present reports whether field exists with a non-null value.
func present(rec Record, field string) bool {
	v, ok := rec[field]
	return ok && v != nil
}

// number converts the numeric representations produced by JSON and YAML
// decoding (or Go literals) to float64.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
