// Package event defines the catalog's event record and its validation rules.
//
// An event belongs to exactly one partition. The milestone partition lives
// in the milestone document and requires a threshold; every other
// partition is a territory type key in the territory document and must not
// carry one.
//
// Two forms exist:
//   - Event: the typed record used by the repository and the CLI
//   - Record: the raw decoded form used by validation, where fields may be
//     missing or mistyped
//
// Validate is pure and reports every violated rule. ValidateStrict adds
// enum checks from the embedded CUE schema (schema.cue).
package event
