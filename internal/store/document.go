package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Field is one top-level key of a document with its raw JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Document is a JSON object whose top-level key order is preserved.
//
// Values are kept as raw JSON: the gateway never interprets them, and
// records loaded from an external source are written back verbatim.
type Document struct {
	fields []Field
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// ParseDocument parses a JSON object, keeping its key order.
// Duplicate keys keep the position of the first occurrence and the value
// of the last.
func ParseDocument(raw []byte) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("parse document: invalid JSON")
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return nil, fmt.Errorf("parse document: expected a JSON object, got %s", describe(res))
	}

	doc := NewDocument()
	res.ForEach(func(key, value gjson.Result) bool {
		doc.Set(key.String(), json.RawMessage(value.Raw))
		return true
	})
	return doc, nil
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return len(d.fields)
}

// Keys returns the top-level keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the top-level fields in document order.
func (d *Document) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Get returns the raw value stored under key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	for _, f := range d.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (d *Document) Set(key string, value json.RawMessage) {
	for i, f := range d.fields {
		if f.Key == key {
			d.fields[i].Value = value
			return
		}
	}
	d.fields = append(d.fields, Field{Key: key, Value: value})
}

// Delete removes key if present.
func (d *Document) Delete(key string) {
	for i, f := range d.fields {
		if f.Key == key {
			d.fields = append(d.fields[:i], d.fields[i+1:]...)
			return
		}
	}
}

// List returns the elements of the array stored under key.
// A missing key yields an empty list; a non-array value is an error.
func (d *Document) List(key string) ([]json.RawMessage, error) {
	raw, ok := d.Get(key)
	if !ok {
		return []json.RawMessage{}, nil
	}
	return ParseList(raw)
}

// SetList stores items as a JSON array under key.
func (d *Document) SetList(key string, items []json.RawMessage) {
	d.Set(key, encodeList(items))
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := &Document{fields: make([]Field, len(d.fields))}
	for i, f := range d.fields {
		out.fields[i] = Field{Key: f.Key, Value: append(json.RawMessage(nil), f.Value...)}
	}
	return out
}

// MarshalJSON renders the document with keys in order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(f.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses data with ParseDocument.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	d.fields = parsed.fields
	return nil
}

// ParseList splits a raw JSON array into its raw elements.
func ParseList(raw json.RawMessage) ([]json.RawMessage, error) {
	res := gjson.ParseBytes(raw)
	if !res.IsArray() {
		return nil, fmt.Errorf("expected a JSON array, got %s", describe(res))
	}
	items := []json.RawMessage{}
	res.ForEach(func(_, value gjson.Result) bool {
		items = append(items, json.RawMessage(value.Raw))
		return true
	})
	return items, nil
}

func encodeList(items []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func describe(res gjson.Result) string {
	switch {
	case res.IsObject():
		return "object"
	case res.IsArray():
		return "array"
	}
	switch res.Type {
	case gjson.Null:
		return "null"
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	default:
		return "nothing"
	}
}
