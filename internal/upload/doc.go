// Package upload replaces the catalog documents with whole collections
// loaded from an external source.
//
// A collection is validated in full before anything is written, and an
// invalid record rejects the collection. Overwriting a document that
// already has content needs force; without it the uploader returns a
// confirmation-required outcome and leaves the asking to the caller.
package upload
