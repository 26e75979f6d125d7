package formatter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Syntax selects the parser family used to format a piece of content.
type Syntax string

const (
	// Template is markup/template content with embedded <style> and <script> blocks.
	Template Syntax = "template"
	// Markdown is markdown content, including embedded template code blocks.
	Markdown Syntax = "markdown"
)

// Extension returns the fixture file extension used for the syntax.
func (s Syntax) Extension() string {
	switch s {
	case Markdown:
		return "md"
	default:
		return "astro"
	}
}

// DefaultParser is the engine parser name used when no override is configured.
func (s Syntax) DefaultParser() string {
	switch s {
	case Markdown:
		return "markdown"
	default:
		return "astro"
	}
}

func (s Syntax) String() string {
	return string(s)
}

// ParseSyntax accepts a syntax name or one of its file extensions.
func ParseSyntax(value string) (Syntax, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "template", "astro", "":
		return Template, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("unknown syntax %q", value)
}

// Options is the opaque key-value mapping passed to a formatting engine.
type Options map[string]any

// Merge returns a new mapping with every layer applied over o, later layers winning.
func (o Options) Merge(layers ...Options) Options {
	return lo.Assign(append([]Options{o}, layers...)...)
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := lo.Keys(o)
	sort.Strings(keys)
	return keys
}

// String renders the mapping as k=v pairs in key order.
func (o Options) String() string {
	pairs := make([]string, 0, len(o))
	for _, k := range o.Keys() {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, o[k]))
	}
	return strings.Join(pairs, " ")
}

// Engine is the formatter under test: it re-prints content according to the
// request options (which always include "parser").
type Engine interface {
	Format(ctx context.Context, content string, opts Options) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, content string, opts Options) (string, error)

func (f EngineFunc) Format(ctx context.Context, content string, opts Options) (string, error) {
	return f(ctx, content, opts)
}
