// Package seed provisions a booted kernel from a manifest of directories and
// files. File content comes inline or from a registered source type.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type EntryType string

const (
	DirEntry  EntryType = "dir"
	FileEntry EntryType = "file"
)

// Entry is one node to provision. Content and Source are only read for
// file entries; Source wins when both are set.
//
// Source fields depend on its "type" value:
//
// Ex. For type="http" (see [HTTPSource]):
//
//	{"type": "http", "url": "https://example.com/motd", "headers": {"Accept": "text/plain"}}
//
// Ex. For type="hostfile" (see [HostFileSource]):
//
//	{"type": "hostfile", "path": "/etc/hostname"}
type Entry struct {
	Type    EntryType       `json:"type"`
	Path    string          `json:"path"`
	Content *string         `json:"content,omitempty"`
	Source  json.RawMessage `json:"source,omitempty"`
}

type Manifest struct {
	Entries []Entry `json:"entries"`
}

// ParseManifest decodes a manifest. YAML documents are converted to JSON
// first so source configs reach providers in one encoding.
func ParseManifest(data []byte, isYAML bool) (*Manifest, error) {
	if isYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("convert yaml manifest: %w", err)
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFile reads a manifest, choosing YAML or JSON by extension
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseManifest(data, true)
	case ".json":
		return ParseManifest(data, false)
	default:
		return nil, fmt.Errorf("unknown manifest file extension %q", ext)
	}
}

// Validate checks entry types and paths without touching a kernel
func (m *Manifest) Validate() error {
	for i, e := range m.Entries {
		if strings.Trim(e.Path, "/") == "" {
			return fmt.Errorf("entry %d: empty path", i)
		}
		switch e.Type {
		case DirEntry, FileEntry:
		default:
			return fmt.Errorf("entry %d (%s): unknown type %q", i, e.Path, e.Type)
		}
	}
	return nil
}
