// Package manifest reads and writes vcstool repository manifests (.repos
// files): a YAML mapping from repository name to {type, url, version}.
package manifest

import (
	"fmt"
	"os"
	"sort"

	yaml "gopkg.in/yaml.v3"
)

// Repo is one manifest entry.
type Repo struct {
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Version string `yaml:"version,omitempty"`
}

// Manifest is the full .repos document. Consumed, never mutated after load.
type Manifest struct {
	Repositories map[string]Repo `yaml:"repositories"`
}

// Parse decodes a .repos document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse repos manifest: %w", err)
	}
	if m.Repositories == nil {
		return nil, fmt.Errorf("parse repos manifest: missing repositories key")
	}
	return &m, nil
}

// Encode renders the manifest back to YAML.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode repos manifest: %w", err)
	}
	return data, nil
}

// WriteFile writes the manifest to path with mode 0644.
func (m *Manifest) WriteFile(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write repos manifest: %w", err)
	}
	return nil
}

// Names returns the repository names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Repositories))
	for name := range m.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForTarget builds a synthetic single-entry manifest pinning repoName to ref.
// It is fed back through the same import path as the aggregate manifest so
// the tree always reflects the code under test, not an upstream snapshot.
func ForTarget(repoName, cloneURL, ref string) *Manifest {
	return &Manifest{
		Repositories: map[string]Repo{
			repoName: {Type: "git", URL: cloneURL, Version: ref},
		},
	}
}
