package fixtures

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdownManifest reads a manifest written as YAML front-matter followed by
// a table with the columns Title, Fixture and optionally Mode and Skip. A row
// with a Skip value is a skip-list entry, the value being its reason.
func parseMarkdownManifest(content string) (*Manifest, error) {
	frontMatter, body := splitFrontMatter(content)

	m := &Manifest{}
	if frontMatter != "" {
		if err := yaml.Unmarshal([]byte(frontMatter), m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML front-matter: %w", err)
		}
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(body)
	doc := md.Parser().Parse(text.NewReader(source))

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		table, ok := n.(*extast.Table)
		if !ok {
			return ast.WalkContinue, nil
		}
		if err := parseManifestTable(table, source, m); err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func splitFrontMatter(content string) (string, string) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return rest[:end], body
}

func parseManifestTable(table *extast.Table, source []byte, m *Manifest) error {
	var headers []string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				headers = append(headers, strings.ToLower(strings.TrimSpace(extractNodeText(cell, source))))
			}
		case *extast.TableRow:
			values := map[string]string{}
			i := 0
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				if i < len(headers) {
					values[headers[i]] = strings.TrimSpace(extractNodeText(cell, source))
				}
				i++
			}
			if err := addManifestRow(values, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func addManifestRow(values map[string]string, m *Manifest) error {
	fixture := strings.Trim(values["fixture"], "`")
	if fixture == "" {
		return fmt.Errorf("table row %q has no fixture", values["title"])
	}
	if reason := values["skip"]; reason != "" && reason != "-" {
		m.Skip = append(m.Skip, ManifestSkip{Title: values["title"], Fixture: fixture, Reason: reason})
		return nil
	}
	mode := values["mode"]
	if mode == "-" {
		mode = ""
	}
	m.Tests = append(m.Tests, ManifestTest{
		Title:   values["title"],
		Fixture: fixture,
		Mode:    Mode(mode),
	})
	return nil
}

// extractNodeText returns the source text of a node, keeping inline HTML
// such as a literal <style> in a title.
func extractNodeText(node ast.Node, source []byte) string {
	var buf strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.RawHTML:
			for i := 0; i < t.Segments.Len(); i++ {
				seg := t.Segments.At(i)
				buf.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
