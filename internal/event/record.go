package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an event in its raw document form. Fields may be missing or
// carry the wrong type; Validate reports both.
type Record map[string]any

// ID returns the record's id, or "" when absent or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// DecodeRecord parses a raw JSON object into a Record.
// Numbers are kept as json.Number so integers survive untouched.
func DecodeRecord(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode record: not an object")
	}
	return rec, nil
}

// ToRecord converts a typed event to its raw form.
func ToRecord(e Event) (Record, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return DecodeRecord(raw)
}

// RecordID extracts the id of a raw stored record without decoding the
// whole event.
func RecordID(raw json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	id, _ := probe.ID.(string)
	return id
}

// Encode renders e in the stored form: territoryType is dropped because
// the partition key already carries it.
func Encode(e Event) (json.RawMessage, error) {
	e.TerritoryType = ""
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", e.ID, err)
	}
	return raw, nil
}

// Decode parses a stored record and tags it with partition p.
func Decode(raw json.RawMessage, p Partition) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("decode event in %s: %w", p, err)
	}
	e.TerritoryType = string(p)
	return e, nil
}
