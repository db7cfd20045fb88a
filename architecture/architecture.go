// Package architecture loads the license -> architecture classification table
// used by the technology mix view.
//
// Two file formats are read:
//
//	JSON: {"CSR 1KV APPX 2500M": {"architecture_1": "Routing"}, ...}
//	      or the flat form {"CSR 1KV APPX 2500M": "Routing", ...}
//	YAML: architectures:
//	        - license: CSR 1KV APPX 2500M
//	          architecture: Routing
package architecture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/license-engine/license"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when an architecture file cannot be read as a
// classification table.
var ErrInvalidTable = errors.New("invalid architecture table")

// PrimaryKey is the key holding the category in the nested JSON form.
const PrimaryKey = "architecture_1"

// Entry is one license classification.
type Entry struct {
	License      string `json:"license" yaml:"license"`
	Architecture string `json:"architecture" yaml:"architecture"`
}

type yamlFile struct {
	Architectures []Entry `yaml:"architectures"`
}

// LoadJSON reads a table in either JSON form.
func LoadJSON(r io.Reader) (license.MapTable, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	table := make(license.MapTable, len(raw))
	for name, value := range raw {
		category, err := jsonCategory(value)
		if err != nil {
			return nil, fmt.Errorf("%w: license %q: %v", ErrInvalidTable, name, err)
		}
		table[name] = category
	}
	return table, nil
}

func jsonCategory(value json.RawMessage) (string, error) {
	var flat string
	if err := json.Unmarshal(value, &flat); err == nil {
		return flat, nil
	}
	var nested map[string]string
	if err := json.Unmarshal(value, &nested); err != nil {
		return "", errors.New("expected a string or an object of strings")
	}
	category, ok := nested[PrimaryKey]
	if !ok {
		return "", fmt.Errorf("missing %q", PrimaryKey)
	}
	return category, nil
}

// LoadYAML reads a table in the YAML form.
func LoadYAML(r io.Reader) (license.MapTable, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return FromEntries(f.Architectures)
}

// FromEntries builds a table from a list of entries. A license listed twice
// keeps its last architecture.
func FromEntries(entries []Entry) (license.MapTable, error) {
	table := make(license.MapTable, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.License) == "" {
			return nil, fmt.Errorf("%w: entry %d has no license", ErrInvalidTable, i)
		}
		table[e.License] = e.Architecture
	}
	return table, nil
}

// LoadFile reads path as YAML (.yaml, .yml) or JSON (anything else).
func LoadFile(path string) (license.MapTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return LoadJSON(f)
	}
}
