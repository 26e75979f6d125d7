package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/flanksource/formatcheck/fixtures"
	"github.com/flanksource/formatcheck/formatter"
	"github.com/spf13/cobra"
)

var (
	runRoot    string
	runConfig  string
	runFilter  string
	runStrict  bool
	runTimeout time.Duration
	runNoBuild bool
)

var runCmd = &cobra.Command{
	Use:   "run [manifests...]",
	Short: "Format every fixture declared in the manifests and compare it with its golden output",
	Long: `Runs the fixtures declared in YAML or markdown manifests against the
formatter configured in .formatcheck.yaml.

EXAMPLES:
  # Run every manifest under test/, fixtures are read from test/fixtures/
  formatcheck run 'test/**/*.yaml'

  # Run a single fixture
  formatcheck run test/styles.md --filter 'styles/style-tag-attributes'`,
	Args:         cobra.MinimumNArgs(1),
	RunE:         runFixtures,
	SilenceUsage: true,
}

func runFixtures(cmd *cobra.Command, args []string) error {
	wd, err := getWorkingDir()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := formatter.FindConfig(runConfig, wd)
	if err != nil {
		return err
	}
	factory, engine, err := fixtures.NewFactoryFromConfig(cfg, runRoot)
	if err != nil {
		return fmt.Errorf("failed to create formatter: %w", err)
	}
	defer func() { _ = engine.Close() }()

	build := cfg.Build
	if runNoBuild {
		build = ""
	}
	buildDir := cfg.Dir()
	if buildDir == "" {
		buildDir = wd
	}

	runner, err := fixtures.NewRunner(fixtures.RunnerOptions{
		Manifests: absPaths(wd, args),
		Root:      absPath(wd, runRoot),
		Filter:    runFilter,
		WorkDir:   buildDir,
		Build:     build,
		Timeout:   runTimeout,
		Strict:    runStrict,
		Factory:   factory,
	})
	if err != nil {
		return fmt.Errorf("failed to create fixture runner: %w", err)
	}

	_, err = runner.Run()
	return err
}

func absPath(wd, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(wd, p)
}

func absPaths(wd string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = absPath(wd, p)
	}
	return out
}

func init() {
	runCmd.Flags().StringVar(&runRoot, "root", "", "Fixture root (default: <manifest dir>/fixtures if present, else the manifest dir)")
	runCmd.Flags().StringVar(&runConfig, "config", "", "Formatter config (default: "+formatter.DefaultConfigFile+" in the working directory)")
	runCmd.Flags().StringVar(&runFilter, "filter", "", "Only run fixtures whose name matches this glob")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Fail when a fixture directory is neither registered nor skipped")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", fixtures.DefaultTaskTimeout, "Timeout per test case")
	runCmd.Flags().BoolVar(&runNoBuild, "no-build", false, "Skip the build command from the config")
	rootCmd.AddCommand(runCmd)
}
