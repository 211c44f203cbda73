package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultCollection groups the two event documents.
const DefaultCollection = "events"

// Credentials locate the backing database. They are supplied externally
// and assumed valid; the gateway only checks that they can be used.
type Credentials struct {
	// Database is the SQLite file path. Relative paths are resolved
	// against the credentials file's directory. ":memory:" is accepted.
	Database string `yaml:"database"`

	// Collection names the document group. Defaults to "events".
	Collection string `yaml:"collection,omitempty"`

	// Create allows a missing database file to be created. When false,
	// connecting to a missing database fails.
	Create bool `yaml:"create,omitempty"`
}

// LoadCredentials reads a YAML credentials file.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	if creds.Database == "" {
		return Credentials{}, fmt.Errorf("parse credentials %s: database is required", path)
	}

	if creds.Database != ":memory:" && !filepath.IsAbs(creds.Database) {
		creds.Database = filepath.Join(filepath.Dir(path), creds.Database)
	}
	return creds, nil
}

// WriteCredentials stores creds as YAML at path.
func WriteCredentials(path string, creds Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (c Credentials) collection() string {
	if c.Collection == "" {
		return DefaultCollection
	}
	return c.Collection
}
