package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/flanksource/formatcheck/formatter"
	"github.com/stretchr/testify/require"
)

const testdataRoot = "testdata/fixtures"

var styleTag = regexp.MustCompile(`<style([^>]*)>`)

// tidyEngine is a stand-in formatter: it normalises the attribute spacing of
// <style> tags, strips trailing whitespace and ends the file with one newline.
type tidyEngine struct {
	mu       sync.Mutex
	requests []formatter.Options
}

func (e *tidyEngine) Format(_ context.Context, content string, opts formatter.Options) (string, error) {
	e.mu.Lock()
	e.requests = append(e.requests, opts)
	e.mu.Unlock()
	return tidy(content), nil
}

func (e *tidyEngine) Requests() []formatter.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]formatter.Options(nil), e.requests...)
}

func tidy(content string) string {
	content = styleTag.ReplaceAllStringFunc(content, func(tag string) string {
		attrs := strings.Fields(styleTag.FindStringSubmatch(tag)[1])
		if len(attrs) == 0 {
			return "<style>"
		}
		return "<style " + strings.Join(attrs, " ") + ">"
	})
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

func newTidyFactory(root string) (*Factory, *tidyEngine) {
	engine := &tidyEngine{}
	adapter := formatter.NewAdapter(engine, "./dist/index.js")
	return NewFactory(NewLoader(root), adapter), engine
}

// writeFixture creates <root>/<name>/ with the given files.
func writeFixture(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(dir, 0755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	}
}
