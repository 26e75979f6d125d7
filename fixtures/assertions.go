package fixtures

import (
	"strings"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// AssertionError is a failed comparison between two texts.
type AssertionError struct {
	// Message names the fixture and the files being compared.
	Message  string
	Expected string
	Actual   string
	// Diff is a line diff from Expected to Actual, empty for inequality checks.
	Diff string
}

func (e *AssertionError) Error() string {
	if e.Diff == "" {
		return e.Message
	}
	return e.Message + "\n" + e.Diff
}

func (e AssertionError) Pretty() api.Text {
	t := clicky.Text(e.Message, "text-red-600")
	if e.Diff != "" {
		t = t.NewLine().Add(prettyDiff(e.Diff))
	}
	return t
}

// AssertEqual fails when actual differs from expected.
func AssertEqual(actual, expected, message string) error {
	if actual == expected {
		return nil
	}
	return &AssertionError{
		Message:  message,
		Expected: expected,
		Actual:   actual,
		Diff:     LineDiff(expected, actual),
	}
}

// AssertNotEqual fails when a and b are identical.
func AssertNotEqual(a, b, message string) error {
	if a != b {
		return nil
	}
	return &AssertionError{
		Message:  message,
		Expected: b,
		Actual:   a,
	}
}

// LineDiff renders a line based diff, "-" lines from expected and "+" lines
// from actual. Trailing whitespace is made visible with "·".
func LineDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, diff := range diffs {
		prefix := " "
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(diff.Text) {
			sb.WriteString(prefix)
			if prefix != " " {
				line = showTrailingSpace(line)
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func showTrailingSpace(line string) string {
	trimmed := strings.TrimRight(line, " \t")
	if trimmed == line {
		return line
	}
	return trimmed + strings.Repeat("·", len(line)-len(trimmed))
}

func prettyDiff(diff string) api.Text {
	t := clicky.Text("")
	for _, line := range splitLines(diff) {
		switch {
		case strings.HasPrefix(line, "-"):
			t = t.Append("-", "text-red-700").Append(line[1:], "text-red-500").NewLine()
		case strings.HasPrefix(line, "+"):
			t = t.Append("+", "text-green-700").Append(line[1:], "text-green-500").NewLine()
		default:
			t = t.Append(line, "text-gray-300").NewLine()
		}
	}
	return t
}
