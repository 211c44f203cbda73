// Package catalog is the event repository: a flat view of events over the
// grouped territory and milestone documents.
//
// Every mutation is a single read-modify-write of one document. The write
// carries the version read in the same call, so a document changed by
// someone else in between is reported as a conflict instead of being
// silently overwritten. Nothing is retried.
package catalog
