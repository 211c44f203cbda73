package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// Source provides a raw event collection.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a collection from a file. Files ending in .yaml or
// .yml are read as YAML, anything else as JSON.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open() (io.ReadCloser, error) { return os.Open(s.Path) }

// BytesSource serves a collection held in memory. Label doubles as the
// name, so a ".yaml" suffix selects YAML.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// LoadCollection reads src and returns the collection verbatim, with key
// order intact. An absent source is a not-found error; input that is not
// a single object is a parse error.
func LoadCollection(src Source) (*store.Document, error) {
	op := "load " + src.Name()

	rc, err := src.Open()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.KindNotFound, op, err)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindRead, op, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errs.Wrap(errs.KindRead, op, err)
	}

	if isYAML(src.Name()) {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, op, err)
		}
	}

	doc, err := store.ParseDocument(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, op, err)
	}
	return doc, nil
}

// MilestoneList extracts the milestones list from a milestone collection.
// A collection without the key yields an empty list.
func MilestoneList(doc *store.Document) ([]json.RawMessage, error) {
	items, err := doc.List(store.MilestonesKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, "read milestones", err)
	}
	return items, nil
}

// Partition is one territory list of a collection.
type Partition struct {
	Name  event.Partition
	Items []json.RawMessage
}

// TerritoryPartitions splits a territory collection into its lists, in
// key order. Every value must be an array.
func TerritoryPartitions(doc *store.Document) ([]Partition, error) {
	parts := make([]Partition, 0, doc.Len())
	for _, f := range doc.Fields() {
		items, err := store.ParseList(f.Value)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, "read territory "+f.Key, err)
		}
		parts = append(parts, Partition{Name: event.Partition(f.Key), Items: items})
	}
	return parts, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON converts a YAML document to JSON, keeping mapping order.
func yamlToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("empty document")
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, &root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])

	case yaml.AliasNode:
		return writeNode(buf, n.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(out)
		return nil
	}
	return fmt.Errorf("line %d: unsupported YAML node", n.Line)
}
