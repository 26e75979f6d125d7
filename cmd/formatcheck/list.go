package main

import (
	"fmt"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/formatcheck/fixtures"
)

type ListOptions struct {
	Root   string   `json:"root" flag:"root" help:"Fixture root (default: <manifest dir>/fixtures if present, else the manifest dir)"`
	Filter string   `json:"filter" flag:"filter" help:"Only list fixtures whose name matches this glob"`
	Strict bool     `json:"strict" flag:"strict" help:"Fail when a fixture directory is neither registered nor skipped"`
	Args   []string `json:"-" args:"true"`
}

func (o ListOptions) GetName() string { return "list" }

func (o ListOptions) Help() api.Text {
	return clicky.Text(`Lists the test cases and skipped fixtures declared in manifests
without running the formatter. Registries are validated as for a run.

EXAMPLES:
  formatcheck list test/styles.yaml
  formatcheck list 'test/*.md' --strict`)
}

func runList(opts ListOptions) (any, error) {
	if len(opts.Args) == 0 {
		return nil, fmt.Errorf("at least one manifest is required")
	}
	wd, err := getWorkingDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	runner, err := fixtures.NewRunner(fixtures.RunnerOptions{
		Manifests: absPaths(wd, opts.Args),
		Root:      absPath(wd, opts.Root),
		Filter:    opts.Filter,
		Strict:    opts.Strict,
	})
	if err != nil {
		return nil, err
	}
	tree, err := runner.Load()
	if err != nil {
		return nil, err
	}
	return tree.Children, nil
}

func init() {
	clicky.AddCommand(rootCmd, ListOptions{}, runList)
}
