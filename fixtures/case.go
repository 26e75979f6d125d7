package fixtures

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/formatcheck/formatter"
)

// Mode selects the assertions a test case applies to its fixture.
type Mode string

const (
	// ModeStandard expects formatting to turn the input into the golden output.
	ModeStandard Mode = "standard"
	// ModeUnaltered expects an already formatted input to come back unchanged.
	ModeUnaltered Mode = "unaltered"
	// ModeMarkdown is ModeStandard over a markdown fixture pair.
	ModeMarkdown Mode = "markdown"
)

// IdempotencePolicy selects the options used for the second formatting pass.
type IdempotencePolicy string

const (
	// KeepFixtureOptions re-formats with the fixture's options.json.
	KeepFixtureOptions IdempotencePolicy = "fixture-options"
	// EngineDefaults re-formats with engine defaults only.
	EngineDefaults IdempotencePolicy = "engine-defaults"
)

// ModeSpec describes how a mode loads and checks a fixture.
type ModeSpec struct {
	Syntax    formatter.Syntax
	Extension string
	// ExpectUnchanged inverts the pre-check: input and output must be identical.
	ExpectUnchanged bool
	Idempotence     IdempotencePolicy
}

var modes = map[Mode]ModeSpec{
	ModeStandard: {
		Syntax:      formatter.Template,
		Extension:   formatter.Template.Extension(),
		Idempotence: KeepFixtureOptions,
	},
	ModeUnaltered: {
		Syntax:          formatter.Template,
		Extension:       formatter.Template.Extension(),
		ExpectUnchanged: true,
		Idempotence:     EngineDefaults,
	},
	ModeMarkdown: {
		Syntax:      formatter.Markdown,
		Extension:   formatter.Markdown.Extension(),
		Idempotence: KeepFixtureOptions,
	},
}

func (m Mode) Spec() (ModeSpec, error) {
	spec, ok := modes[m]
	if !ok {
		return ModeSpec{}, fmt.Errorf("unknown mode %q", m)
	}
	return spec, nil
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode accepts a mode name; an empty value is ModeStandard.
func ParseMode(value string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(value)))
	if m == "" {
		return ModeStandard, nil
	}
	if _, err := m.Spec(); err != nil {
		return "", err
	}
	return m, nil
}

// TestCase binds a fixture to a mode and a human readable title.
type TestCase struct {
	Title string `json:"title"`
	// Name is the fixture path relative to the fixture root, e.g. styles/with-sass.
	Name string `json:"name"`
	Mode Mode   `json:"mode"`
}

// Paths returns the input and output paths relative to the fixture root.
func (tc TestCase) Paths() (string, string) {
	spec, _ := tc.Mode.Spec()
	return PairPaths(tc.Name, spec.Extension)
}

// FullTitle embeds the fixture files in the title so failures point at them.
func (tc TestCase) FullTitle() string {
	in, out := tc.Paths()
	bullet := " - "
	if tc.Mode == ModeMarkdown {
		bullet = "- "
	}
	return fmt.Sprintf("%s:\n\n%sinput: fixtures/%s\n%soutput: fixtures/%s", tc.Title, bullet, in, bullet, out)
}

func (tc TestCase) String() string {
	return fmt.Sprintf("%s [%s]", tc.Name, tc.Mode)
}

func (tc TestCase) describe(msg string) string {
	in, out := tc.Paths()
	return fmt.Sprintf("%s: %s (input: %s, output: %s)", tc.Name, msg, in, out)
}

// Factory creates and runs test cases against one adapter.
type Factory struct {
	Loader  *Loader
	Adapter *formatter.Adapter
	// Policies overrides the idempotence policy of a mode.
	Policies map[Mode]IdempotencePolicy
}

func NewFactory(loader *Loader, adapter *formatter.Adapter) *Factory {
	return &Factory{Loader: loader, Adapter: adapter}
}

func (f *Factory) New(mode Mode, title, name string) TestCase {
	return TestCase{Title: title, Name: name, Mode: mode}
}

func (f *Factory) Standard(title, name string) TestCase {
	return f.New(ModeStandard, title, name)
}

func (f *Factory) Unaltered(title, name string) TestCase {
	return f.New(ModeUnaltered, title, name)
}

func (f *Factory) Markdown(title, name string) TestCase {
	return f.New(ModeMarkdown, title, name)
}

func (f *Factory) policy(mode Mode, spec ModeSpec) IdempotencePolicy {
	if p, ok := f.Policies[mode]; ok && p != "" {
		return p
	}
	return spec.Idempotence
}

// Run loads, formats and checks one test case. Every failure ends the case:
// assertion failures are reported as FAIL, load and engine errors as ERR.
func (f *Factory) Run(ctx context.Context, tc TestCase) FixtureResult {
	start := time.Now()
	in, out := tc.Paths()
	result := FixtureResult{
		Name:       tc.Name,
		Title:      tc.Title,
		Mode:       tc.Mode,
		Stage:      StageLoad,
		InputPath:  in,
		OutputPath: out,
		Start:      &start,
	}

	spec, err := tc.Mode.Spec()
	if err != nil {
		return result.Errorf(err, "%s", tc.Name)
	}
	fixture, err := f.Loader.Load(tc.Name, tc.Mode)
	if err != nil {
		return result.Errorf(err, "%s", tc.Name)
	}
	result.Options = fixture.Options

	result.Stage = StagePreCheck
	if spec.ExpectUnchanged {
		err = AssertEqual(fixture.Input, fixture.Output, tc.describe("Unformatted file and formatted file are not the same"))
	} else {
		err = AssertNotEqual(fixture.Input, fixture.Output, tc.describe("Unformatted file and formatted file are the same"))
	}
	if err != nil {
		return result.Fail(err)
	}

	result.Stage = StageFormat
	formatted, err := f.Adapter.Format(ctx, fixture.Input, spec.Syntax, fixture.Options)
	if err != nil {
		return result.Errorf(err, "%s: failed to format %s", tc.Name, in)
	}

	result.Stage = StageCompare
	if err := AssertEqual(formatted, fixture.Output, tc.describe("Incorrect formatting")); err != nil {
		return result.Fail(err)
	}

	result.Stage = StageIdempotence
	opts := fixture.Options
	policy := f.policy(tc.Mode, spec)
	if policy == EngineDefaults {
		opts = nil
	}
	logger.V(4).Infof("%s: idempotence pass with %s", tc.Name, policy)
	if _, err := CheckIdempotent(ctx, f.Adapter, formatted, spec.Syntax, opts, tc.describe("Formatting is not idempotent")); err != nil {
		if _, ok := err.(*AssertionError); ok {
			return result.Fail(err)
		}
		return result.Errorf(err, "%s: failed to re-format %s", tc.Name, out)
	}
	return result.Pass()
}
