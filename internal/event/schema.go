package event

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaVal = schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fmt.Errorf("compile event schema: %w", err)
		}
	})
	return schemaCtx, schemaVal, schemaErr
}

// ValidateStrict applies Validate and then checks enum membership of
// type, category and the partition name against the CUE schema.
//
// Structural violations already reported by Validate are not repeated.
func ValidateStrict(rec Record, p Partition) Result {
	res := Validate(rec, p)

	if !p.Known() {
		res.add("territoryType", CodeInvalidValue, "unknown partition %q", p)
	}

	ctx, schema, err := loadSchema()
	if err != nil {
		res.add("event", CodeInvalidValue, "%v", err)
		return res
	}

	def := "#TerritoryEvent"
	if p.IsMilestone() {
		def = "#MilestoneEvent"
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		res.add("event", CodeInvalidType, "%v", err)
		return res
	}
	data := ctx.CompileBytes(raw, cue.Filename(rec.ID()+".json"))
	if err := data.Err(); err != nil {
		res.add("event", CodeInvalidType, "%v", err)
		return res
	}

	unified := schema.LookupPath(cue.ParsePath(def)).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			field := "event"
			if path := e.Path(); len(path) > 0 {
				field = path[len(path)-1]
			}
			if res.Has(field) {
				continue
			}
			format, args := e.Msg()
			res.add(field, CodeInvalidValue, format, args...)
		}
	}

	return res
}
