package fixtures

import (
	"testing"
)

// RunSuite builds the registry and runs each test case as a parallel subtest
// named after its fixture. Skipped fixtures are reported through t.Skip.
func RunSuite(t *testing.T, factory *Factory, reg *Registry) {
	t.Helper()

	cases, err := reg.Build()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if factory.Loader == nil {
		f := *factory
		f.Loader = NewLoader(reg.Root())
		factory = &f
	}

	for _, skip := range reg.Skipped() {
		t.Run(skip.Name, func(t *testing.T) {
			t.Skip(skip.Reason)
		})
	}
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			result := factory.Run(t.Context(), tc)
			if !result.IsOK() {
				t.Fatalf("%s\n\n[%s] %s", tc.FullTitle(), result.Stage, result.Err)
			}
		})
	}
}
