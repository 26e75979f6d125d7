package fixtures

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flanksource/commons/logger"
)

// SkipEntry is a fixture deliberately left without a test case.
type SkipEntry struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// Registry binds the fixture directories of one category to test cases.
// It is safe for concurrent use while it is being populated.
type Registry struct {
	mu       sync.RWMutex
	root     string
	category string
	// Strict turns unregistered fixture directories into a Build error.
	Strict bool
	cases  []TestCase
	index  map[string]int
	skips  map[string]SkipEntry
}

// NewRegistry creates a registry for <root>/<category>.
func NewRegistry(root, category string) *Registry {
	return &Registry{
		root:     root,
		category: strings.Trim(path.Clean(filepath.ToSlash(category)), "/"),
		index:    make(map[string]int),
		skips:    make(map[string]SkipEntry),
	}
}

func (r *Registry) Root() string     { return r.root }
func (r *Registry) Category() string { return r.category }

// qualify prefixes a fixture directory name with the category.
func (r *Registry) qualify(name string) string {
	name = strings.Trim(filepath.ToSlash(name), "/")
	if r.category == "" || r.category == "." || strings.HasPrefix(name, r.category+"/") {
		return name
	}
	return r.category + "/" + name
}

// Register adds one test case for the fixture directory name.
func (r *Registry) Register(title, name string, mode Mode) error {
	if _, err := mode.Spec(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("fixture name is required for %q", title)
	}
	qualified := r.qualify(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[qualified]; exists {
		return fmt.Errorf("fixture '%s' already registered", qualified)
	}
	if skip, skipped := r.skips[qualified]; skipped {
		return fmt.Errorf("fixture '%s' is skipped: %s", qualified, skip.Reason)
	}
	r.index[qualified] = len(r.cases)
	r.cases = append(r.cases, TestCase{Title: title, Name: qualified, Mode: mode})
	return nil
}

// Skip records a fixture that is excluded on purpose.
func (r *Registry) Skip(name, reason string) error {
	return r.AddSkip(SkipEntry{Name: name, Reason: reason})
}

func (r *Registry) AddSkip(entry SkipEntry) error {
	if strings.TrimSpace(entry.Reason) == "" {
		return fmt.Errorf("skipped fixture '%s' needs a reason", entry.Name)
	}
	entry.Name = r.qualify(entry.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[entry.Name]; exists {
		return fmt.Errorf("fixture '%s' is registered and cannot be skipped", entry.Name)
	}
	if _, exists := r.skips[entry.Name]; exists {
		return fmt.Errorf("fixture '%s' already skipped", entry.Name)
	}
	r.skips[entry.Name] = entry
	return nil
}

// Skipped returns the skip-list ordered by fixture name.
func (r *Registry) Skipped() []SkipEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]SkipEntry, 0, len(r.skips))
	for _, entry := range r.skips {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// SkipReason reports why a fixture is skipped.
func (r *Registry) SkipReason(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.skips[r.qualify(name)]
	return entry.Reason, ok
}

// Cases returns the registered test cases in registration order.
func (r *Registry) Cases() []TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TestCase(nil), r.cases...)
}

// Discover lists the fixture directories of the category, qualified and sorted.
func (r *Registry) Discover() ([]string, error) {
	fsys := os.DirFS(r.root)
	pattern := "*"
	if r.category != "" && r.category != "." {
		pattern = r.category + "/*"
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures in %s: %w", path.Join(r.root, r.category), err)
	}

	var dirs []string
	for _, match := range matches {
		info, err := fs.Stat(fsys, match)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, match)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Build validates the registrations and returns one test case per registered
// fixture. Fixtures missing their input/output pair fail the build; directories
// that are neither registered nor skipped are logged, or fail the build when Strict.
func (r *Registry) Build() ([]TestCase, error) {
	dirs, err := r.Discover()
	if err != nil {
		return nil, err
	}
	loader := NewLoader(r.root)
	cases := r.Cases()

	var errs []error
	for _, tc := range cases {
		in, out := tc.Paths()
		for _, p := range []string{in, out} {
			if !loader.Exists(p) {
				errs = append(errs, fmt.Errorf("%s: missing %s", tc.Name, p))
			}
		}
	}

	r.mu.RLock()
	for _, dir := range dirs {
		_, registered := r.index[dir]
		_, skipped := r.skips[dir]
		if registered || skipped {
			continue
		}
		if r.Strict {
			errs = append(errs, fmt.Errorf("%s: fixture directory is neither registered nor skipped", dir))
		} else {
			logger.Warnf("fixture %s is neither registered nor skipped", dir)
		}
	}
	r.mu.RUnlock()

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid fixtures in %s: %w", path.Join(r.root, r.category), errors.Join(errs...))
	}
	return cases, nil
}
