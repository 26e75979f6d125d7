// Package fixtures checks a code formatter against golden fixture files.
//
// A fixture is a directory holding an unformatted input, the expected output and
// optional engine options:
//
//	fixtures/styles/style-tag-attributes/input.astro
//	fixtures/styles/style-tag-attributes/output.astro
//	fixtures/styles/style-tag-attributes/options.json
//
// Every test case runs the same pipeline: load the pair, check that input and
// output differ (or are identical in unaltered mode), format the input and
// compare it with the output, then format the result again and require it to be
// unchanged.
//
// # Modes
//
//   - standard: template fixtures (.astro) that formatting must change
//   - unaltered: already formatted template fixtures, re-formatted with engine defaults
//   - markdown: markdown fixtures (.md)
//
// # Registries and manifests
//
// A Registry binds the directories of one category to test cases and keeps a
// skip-list of fixtures excluded on purpose. Build fails when a registered
// fixture is missing its files and reports directories nobody registered.
//
// Registries are usually declared in a manifest, either YAML:
//
//	category: styles
//	tests:
//	  - title: Can format an Astro file with attributes in the <style> tag
//	    fixture: style-tag-attributes
//	skip:
//	  - fixture: with-indented-sass
//	    reason: indentation-sensitive syntax is only whitespace-cleaned
//
// or markdown with YAML front-matter and a table:
//
//	---
//	category: styles
//	---
//
//	| Title | Fixture | Mode | Skip |
//	|-------|---------|------|------|
//	| Can format an Astro file with attributes in the <style> tag | style-tag-attributes | standard | |
//	| Indented sass | with-indented-sass | | indentation-sensitive syntax is only whitespace-cleaned |
//
// # Running
//
// From go test:
//
//	func TestStyles(t *testing.T) {
//		m, _ := fixtures.LoadManifest("testdata/styles.yaml")
//		reg, _ := m.Registry("testdata/fixtures")
//		fixtures.RunSuite(t, fixtures.NewFactory(nil, adapter), reg)
//	}
//
// or with the formatcheck CLI, which runs every case as a clicky task and
// prints a result tree.
package fixtures
