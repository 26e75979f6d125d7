package fixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/flanksource/clicky/task"
	"github.com/flanksource/formatcheck/formatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCaseFullTitle(t *testing.T) {
	f := NewFactory(nil, nil)

	assert.Equal(t,
		"Can format an Astro file with attributes in the <style> tag:\n\n - input: fixtures/styles/style-tag-attributes/input.astro\n - output: fixtures/styles/style-tag-attributes/output.astro",
		f.Standard("Can format an Astro file with attributes in the <style> tag", "styles/style-tag-attributes").FullTitle())
	assert.Equal(t,
		"Keeps formatted files:\n\n - input: fixtures/basic/already-formatted/input.astro\n - output: fixtures/basic/already-formatted/output.astro",
		f.Unaltered("Keeps formatted files", "basic/already-formatted").FullTitle())
	assert.Equal(t,
		"Formats embedded code:\n\n- input: fixtures/markdown/embedded-astro/input.md\n- output: fixtures/markdown/embedded-astro/output.md",
		f.Markdown("Formats embedded code", "markdown/embedded-astro").FullTitle())
}

func TestParseMode(t *testing.T) {
	for input, expected := range map[string]Mode{
		"":          ModeStandard,
		"standard":  ModeStandard,
		"Unaltered": ModeUnaltered,
		"markdown":  ModeMarkdown,
	} {
		mode, err := ParseMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, mode, input)
	}
	_, err := ParseMode("sass")
	assert.Error(t, err)
}

func TestFactoryRunPasses(t *testing.T) {
	factory, _ := newTidyFactory(testdataRoot)

	for _, tc := range []TestCase{
		factory.Standard("attributes", "styles/style-tag-attributes"),
		factory.Standard("scss", "styles/single-style-element-with-scss-lang"),
		factory.Standard("sass", "styles/single-style-element-with-sass-lang"),
		factory.Unaltered("already formatted", "basic/already-formatted"),
		factory.Markdown("embedded", "markdown/embedded-astro"),
	} {
		t.Run(tc.Name, func(t *testing.T) {
			result := factory.Run(context.Background(), tc)
			assert.Equal(t, task.StatusPASS, result.Status, result.Error)
			assert.Equal(t, StageDone, result.Stage)
			assert.True(t, result.IsOK())
		})
	}
}

func TestFactoryRunIdempotenceOptions(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "basic/unaltered", map[string]string{
		"input.astro":  "<p>ok</p>\n",
		"output.astro": "<p>ok</p>\n",
		"options.json": `{"printWidth": 120}`,
	})
	writeFixture(t, root, "basic/standard", map[string]string{
		"input.astro":  "<p>ok</p>   \n",
		"output.astro": "<p>ok</p>\n",
		"options.json": `{"printWidth": 120}`,
	})

	tests := []struct {
		name       string
		tc         TestCase
		policies   map[Mode]IdempotencePolicy
		secondPass bool
	}{
		{"unaltered drops fixture options", TestCase{Name: "basic/unaltered", Mode: ModeUnaltered}, nil, false},
		{"standard keeps fixture options", TestCase{Name: "basic/standard", Mode: ModeStandard}, nil, true},
		{"policy override", TestCase{Name: "basic/unaltered", Mode: ModeUnaltered}, map[Mode]IdempotencePolicy{ModeUnaltered: KeepFixtureOptions}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, engine := newTidyFactory(root)
			factory.Policies = tt.policies

			result := factory.Run(context.Background(), tt.tc)
			require.True(t, result.IsOK(), result.Error)

			requests := engine.Requests()
			require.Len(t, requests, 2)
			assert.Equal(t, float64(120), requests[0]["printWidth"])
			assert.Equal(t, "astro", requests[1]["parser"])
			assert.Equal(t, []string{"./dist/index.js"}, requests[1]["plugins"])
			_, has := requests[1]["printWidth"]
			assert.Equal(t, tt.secondPass, has)
		})
	}
}

func TestFactoryRunFailures(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "bad/unchanged", map[string]string{"input.astro": "<p/>\n", "output.astro": "<p/>\n"})
	writeFixture(t, root, "bad/changed", map[string]string{"input.astro": "<p/>  \n", "output.astro": "<p/>\n"})
	writeFixture(t, root, "bad/wrong-output", map[string]string{"input.astro": "<p/>  \n", "output.astro": "<p />\n"})
	writeFixture(t, root, "bad/no-output", map[string]string{"input.astro": "<p/>\n"})
	writeFixture(t, root, "bad/grows", map[string]string{"input.astro": "<p/>\n", "output.astro": "<p/>\n\n"})

	tidied := formatter.EngineFunc(func(_ context.Context, content string, _ formatter.Options) (string, error) {
		return tidy(content), nil
	})
	growing := formatter.EngineFunc(func(_ context.Context, content string, _ formatter.Options) (string, error) {
		return content + "\n", nil
	})
	failing := formatter.EngineFunc(func(context.Context, string, formatter.Options) (string, error) {
		return "", errors.New("Unexpected token (1:3)")
	})
	panicking := formatter.EngineFunc(func(context.Context, string, formatter.Options) (string, error) {
		panic("Unexpected closing tag")
	})

	tests := []struct {
		name     string
		engine   formatter.Engine
		tc       TestCase
		status   task.Status
		stage    Stage
		contains string
	}{
		{"standard pre-check", tidied, TestCase{Name: "bad/unchanged", Mode: ModeStandard}, task.StatusFAIL, StagePreCheck, "Unformatted file and formatted file are the same"},
		{"unaltered pre-check", tidied, TestCase{Name: "bad/changed", Mode: ModeUnaltered}, task.StatusFAIL, StagePreCheck, "Unformatted file and formatted file are not the same"},
		{"incorrect formatting", tidied, TestCase{Name: "bad/wrong-output", Mode: ModeStandard}, task.StatusFAIL, StageCompare, "Incorrect formatting"},
		{"not idempotent", growing, TestCase{Name: "bad/grows", Mode: ModeStandard}, task.StatusFAIL, StageIdempotence, "Formatting is not idempotent"},
		{"missing output", tidied, TestCase{Name: "bad/no-output", Mode: ModeStandard}, task.StatusERR, StageLoad, "bad/no-output/output.astro"},
		{"engine error", failing, TestCase{Name: "bad/changed", Mode: ModeStandard}, task.StatusERR, StageFormat, "Unexpected token (1:3)"},
		{"engine panic", panicking, TestCase{Name: "bad/changed", Mode: ModeStandard}, task.StatusERR, StageFormat, "template formatting failed: Unexpected closing tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactory(NewLoader(root), formatter.NewAdapter(tt.engine))
			result := factory.Run(context.Background(), tt.tc)

			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.stage, result.Stage)
			assert.Contains(t, result.Error, tt.contains)
			assert.Contains(t, result.Error, tt.tc.Name)
			assert.Error(t, result.Err)
		})
	}
}

func TestFactoryRunIncorrectFormattingDiff(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "bad/wrong-output", map[string]string{"input.astro": "<p/>  \n", "output.astro": "<p />\n"})

	factory, _ := newTidyFactory(root)
	result := factory.Run(context.Background(), factory.Standard("wrong", "bad/wrong-output"))

	assert.Equal(t, "<p />\n", result.Expected)
	assert.Equal(t, "<p/>\n", result.Actual)
	assert.Equal(t, "-<p />\n+<p/>\n", result.Diff)
	assert.Contains(t, result.Error, "input: bad/wrong-output/input.astro, output: bad/wrong-output/output.astro")
}
