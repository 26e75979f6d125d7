package fixtures

import (
	"context"

	"github.com/flanksource/formatcheck/formatter"
)

// CheckIdempotent formats already formatted text again and asserts that nothing
// changes. It returns the second pass, an engine error unchanged, or an
// *AssertionError carrying message.
func CheckIdempotent(ctx context.Context, adapter *formatter.Adapter, formatted string, syntax formatter.Syntax, opts formatter.Options, message string) (string, error) {
	twice, err := adapter.Format(ctx, formatted, syntax, opts)
	if err != nil {
		return "", err
	}
	return twice, AssertEqual(twice, formatted, message)
}
