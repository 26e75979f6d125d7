package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/task"
	flanksourceContext "github.com/flanksource/commons/context"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/formatcheck/formatter"
	"github.com/flanksource/gomplate/v3"
	"github.com/samber/lo"
)

// DefaultTaskTimeout bounds a single test case when no timeout is configured.
const DefaultTaskTimeout = 2 * time.Minute

// RunnerOptions configures the fixture runner
type RunnerOptions struct {
	Manifests []string // Manifest paths/patterns (YAML or markdown)
	Root      string   // Fixture root, defaults to <manifest dir>/fixtures or the manifest dir
	Filter    string   // Filter test cases by fixture name (glob)
	WorkDir   string   // Working directory for the build command
	Build     string   // Command run once before the test cases
	Timeout   time.Duration
	Strict    bool
	// Factory runs the test cases; its Loader root is replaced per manifest.
	Factory *Factory
}

// Runner runs manifest driven test cases as clicky typed tasks.
type Runner struct {
	options RunnerOptions
	tree    *FixtureNode
	cases   int
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if len(opts.Manifests) == 0 {
		return nil, fmt.Errorf("at least one manifest is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTaskTimeout
	}
	if opts.WorkDir == "" {
		opts.WorkDir, _ = os.Getwd()
	}
	return &Runner{
		options: opts,
		tree: &FixtureNode{
			Name: "Fixtures",
			Type: CategoryNode,
		},
	}, nil
}

// Load parses the manifests, builds their registries and returns the resulting tree
// without running anything. Skipped fixtures are included with a SKIP result.
func (r *Runner) Load() (*FixtureNode, error) {
	for _, pattern := range r.options.Manifests {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			logger.Warnf("No manifests matched pattern: %s", pattern)
			continue
		}
		for _, path := range matches {
			node, err := r.loadManifest(path)
			if err != nil {
				return nil, err
			}
			r.tree.AddChild(node)
		}
	}
	r.tree.PruneEmpty()
	logger.Infof("Loaded %d test cases from %d manifests", r.cases, len(r.tree.Children))
	return r.tree, nil
}

// defaultRoot is <manifest dir>/fixtures when that directory exists, else the
// manifest's own directory.
func defaultRoot(manifest string) string {
	dir := filepath.Dir(manifest)
	if info, err := os.Stat(filepath.Join(dir, "fixtures")); err == nil && info.IsDir() {
		return filepath.Join(dir, "fixtures")
	}
	return dir
}

func (r *Runner) loadManifest(path string) (*FixtureNode, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	root := r.options.Root
	if root == "" {
		root = defaultRoot(path)
	}
	reg, err := m.Registry(root)
	if err != nil {
		return nil, err
	}
	reg.Strict = reg.Strict || r.options.Strict

	cases, err := reg.Build()
	if err != nil {
		return nil, err
	}

	var factory *Factory
	if r.options.Factory != nil {
		f := *r.options.Factory
		f.Loader = NewLoader(root)
		factory = &f
	}

	category := &FixtureNode{Name: m.Category, Type: CategoryNode}
	for _, tc := range cases {
		if !r.matches(tc.Name) {
			continue
		}
		tc := tc
		category.AddChild(&FixtureNode{Name: tc.Name, Type: TestNode, Case: &tc, factory: factory})
		r.cases++
	}
	for _, skip := range reg.Skipped() {
		if !r.matches(skip.Name) {
			continue
		}
		result := FixtureResult{Name: skip.Name, Title: skip.Title}.Skip(skip.Reason)
		category.AddChild(&FixtureNode{Name: skip.Name, Type: TestNode, Results: &result})
	}
	return category, nil
}

func (r *Runner) matches(name string) bool {
	if r.options.Filter == "" {
		return true
	}
	match, err := doublestar.Match(r.options.Filter, name)
	if err != nil {
		logger.Warnf("Invalid filter pattern '%s': %v", r.options.Filter, err)
		return false
	}
	return match
}

// Run loads the manifests, runs every test case and prints the result tree.
// It returns an error when any case failed.
func (r *Runner) Run() (*FixtureNode, error) {
	if r.options.Factory == nil || r.options.Factory.Adapter == nil {
		return nil, fmt.Errorf("a factory with a formatter adapter is required")
	}
	if _, err := r.Load(); err != nil {
		return nil, fmt.Errorf("failed to load manifests: %w", err)
	}
	if r.cases == 0 {
		return r.tree, fmt.Errorf("no test cases found")
	}

	if err := r.execute(); err != nil {
		return r.tree, fmt.Errorf("failed to execute test cases: %w", err)
	}
	clicky.WaitForGlobalCompletion()

	for _, child := range r.tree.Children {
		fmt.Println(clicky.MustFormat(*child))
	}

	if stats := r.tree.GetStats(); stats.HasFailures() {
		return r.tree, fmt.Errorf("%d of %d test cases failed", stats.Failed+stats.Error, stats.Total)
	}
	return r.tree, nil
}

func (r *Runner) execute() error {
	var buildTask *clicky.Task
	if r.options.Build != "" {
		buildTypedTask := clicky.StartTask[bool](
			fmt.Sprintf("Build: %s", r.options.Build),
			func(ctx flanksourceContext.Context, t *task.Task) (bool, error) {
				err := r.build(ctx)
				return err == nil, err
			},
			clicky.WithTaskTimeout(5*time.Minute),
		)
		buildTask = buildTypedTask.Task
	}

	group := task.StartGroup[FixtureResult]("Formatting fixtures")
	nodes := make(map[task.TypedTask[FixtureResult]]*FixtureNode)
	r.tree.Walk(func(node *FixtureNode) {
		tc := *node.Case
		factory := node.factory
		typedTask := group.Add(tc.Name, func(ctx flanksourceContext.Context, t *task.Task) (FixtureResult, error) {
			return factory.Run(ctx, tc), nil
		}, clicky.WithDependencies(buildTask), clicky.WithTaskTimeout(r.options.Timeout))
		nodes[typedTask] = node
	})

	if result := group.WaitFor(); result.Error != nil {
		logger.Warnf("Some test cases failed: %v", result.Error)
	}

	results, err := group.GetResults()
	if err != nil {
		return fmt.Errorf("failed to get results: %w", err)
	}
	for typedTask, result := range results {
		node, ok := nodes[typedTask]
		if !ok {
			logger.Warnf("No tree node found for task: %s", typedTask.Name())
			continue
		}
		result := result
		node.Results = &result
	}

	r.tree.UpdateStats()
	r.tree.Stats = lo.ToPtr(r.tree.GetStats())
	return nil
}

// build runs the build command through a shell, templated with gomplate.
func (r *Runner) build(ctx flanksourceContext.Context) error {
	cmd, err := gomplate.RunTemplate(map[string]any{
		"PWD":     r.options.WorkDir,
		"WorkDir": r.options.WorkDir,
	}, gomplate.Template{Template: r.options.Build})
	if err != nil {
		return fmt.Errorf("failed to template build command: %w", err)
	}
	ctx.Logger.V(4).Infof("Build command: %s", cmd)

	result := clicky.Exec("sh", "-c", cmd).WithCwd(r.options.WorkDir).Run().Result()
	if result.Error != nil || result.ExitCode != 0 {
		return fmt.Errorf("build command failed (exit %d): %v\n%s%s", result.ExitCode, result.Error, result.Stdout, result.Stderr)
	}
	ctx.Logger.V(5).Infof("Build output: %s", result.Stdout)
	return nil
}

// NewFactoryFromConfig builds a factory over the formatter described by a config file.
// The returned engine must be closed by the caller.
func NewFactoryFromConfig(cfg formatter.Config, root string) (*Factory, *formatter.ExecEngine, error) {
	adapter, engine, err := cfg.Adapter()
	if err != nil {
		return nil, nil, err
	}
	return NewFactory(NewLoader(root), adapter), engine, nil
}
