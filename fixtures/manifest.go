package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Manifest declares the test cases and skip-list of one fixture category.
type Manifest struct {
	Category string `yaml:"category" json:"category"`
	// Mode is the default for tests that do not name one.
	Mode   Mode           `yaml:"mode,omitempty" json:"mode,omitempty"`
	Strict bool           `yaml:"strict,omitempty" json:"strict,omitempty"`
	Tests  []ManifestTest `yaml:"tests" json:"tests"`
	Skip   []ManifestSkip `yaml:"skip,omitempty" json:"skip,omitempty"`
	// Path is the file the manifest was read from.
	Path string `yaml:"-" json:"-"`
}

type ManifestTest struct {
	Title   string `yaml:"title" json:"title"`
	Fixture string `yaml:"fixture" json:"fixture"`
	Mode    Mode   `yaml:"mode,omitempty" json:"mode,omitempty"`
}

type ManifestSkip struct {
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
	Fixture string `yaml:"fixture" json:"fixture"`
	Reason  string `yaml:"reason" json:"reason"`
}

// LoadManifest reads a YAML manifest, or a markdown manifest when the file ends in .md.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		m, err = parseMarkdownManifest(string(data))
	default:
		m = &Manifest{}
		err = yaml.Unmarshal(data, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.Path = path
	if m.Category == "" {
		return nil, fmt.Errorf("manifest %s: category is required", path)
	}
	return m, nil
}

// Registry registers every test and skip entry of the manifest under root.
func (m *Manifest) Registry(root string) (*Registry, error) {
	reg := NewRegistry(root, m.Category)
	reg.Strict = m.Strict

	for _, test := range m.Tests {
		mode := test.Mode
		if mode == "" {
			mode = m.Mode
		}
		mode, err := ParseMode(string(mode))
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.Path, test.Fixture, err)
		}
		if err := reg.Register(test.Title, test.Fixture, mode); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
	}
	for _, skip := range m.Skip {
		if err := reg.AddSkip(SkipEntry{Name: skip.Fixture, Title: skip.Title, Reason: skip.Reason}); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
	}
	return reg, nil
}
