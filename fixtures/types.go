package fixtures

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/clicky/task"
	"github.com/flanksource/formatcheck/formatter"
)

// Stage is the last pipeline step a test case reached.
type Stage string

const (
	StageLoad        Stage = "load"
	StagePreCheck    Stage = "pre-check"
	StageFormat      Stage = "format"
	StageCompare     Stage = "compare"
	StageIdempotence Stage = "idempotence"
	StageDone        Stage = "done"
)

// FixtureResult represents the outcome of running a single test case.
type FixtureResult struct {
	Name     string        `json:"name" pretty:"label=Fixture,style=text-blue-600"`
	Title    string        `json:"title,omitempty"`
	Mode     Mode          `json:"mode,omitempty"`
	Stage    Stage         `json:"stage,omitempty"`
	Status   task.Status   `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty" pretty:"label=Duration,style=text-yellow-600,omitempty"`

	Error string `json:"error,omitempty" pretty:"label=Error,style=text-red-600,omitempty"`
	Err   error  `json:"-"`

	InputPath  string            `json:"input,omitempty"`
	OutputPath string            `json:"output,omitempty"`
	Options    formatter.Options `json:"options,omitempty"`
	Expected   string            `json:"expected,omitempty"`
	Actual     string            `json:"actual,omitempty"`
	Diff       string            `json:"diff,omitempty"`
	Start      *time.Time        `json:"start,omitempty"`
}

func (f FixtureResult) stop() FixtureResult {
	if f.Start != nil {
		f.Duration = time.Since(*f.Start)
	}
	return f
}

// Fail records an assertion failure.
func (f FixtureResult) Fail(err error) FixtureResult {
	f = f.stop()
	f.Status = task.StatusFAIL
	f.Err = err
	f.Error = err.Error()
	if ae, ok := err.(*AssertionError); ok {
		f.Error = ae.Message
		f.Expected = ae.Expected
		f.Actual = ae.Actual
		f.Diff = ae.Diff
	}
	return f
}

// Errorf records a load or engine failure.
func (f FixtureResult) Errorf(err error, format string, args ...interface{}) FixtureResult {
	f = f.stop()
	f.Status = task.StatusERR
	f.Err = err
	f.Error = fmt.Sprintf(format, args...) + ": " + err.Error()
	return f
}

func (f FixtureResult) Pass() FixtureResult {
	f = f.stop()
	f.Stage = StageDone
	f.Status = task.StatusPASS
	return f
}

func (f FixtureResult) Skip(reason string) FixtureResult {
	f.Status = task.StatusSKIP
	f.Error = reason
	return f
}

func (f FixtureResult) IsOK() bool {
	return f.Status == task.StatusPASS || f.Status == task.StatusSuccess
}

func (f FixtureResult) IsSkipped() bool {
	return f.Status == task.StatusSKIP
}

func (f FixtureResult) String() string {
	return fmt.Sprintf("%s - %s", f.Name, f.Status.String())
}

func (f FixtureResult) Pretty() api.Text {
	t := f.Status.Pretty().Append(" ").Append(f.Name, "italic text-orange-500")
	if f.Duration > 0 {
		t = t.Append(fmt.Sprintf(" (%s)", f.Duration.Round(time.Millisecond)), "text-gray-500")
	}
	if f.Error == "" {
		return t
	}
	if f.IsSkipped() {
		return t.Space().Append(f.Error, "text-yellow-600")
	}
	t = t.Space().Append(fmt.Sprintf("[%s]", f.Stage), "text-gray-500").Space().Append(f.Error, "text-red-600")
	if f.InputPath != "" {
		t = t.NewLine().Append("  input:  ", "text-muted").Append(f.InputPath, "text-blue-500")
		t = t.NewLine().Append("  output: ", "text-muted").Append(f.OutputPath, "text-blue-500")
	}
	if f.Diff != "" {
		t = t.NewLine().Add(prettyDiff(f.Diff))
	}
	return t
}

// Stats provides summary statistics for a fixture run.
type Stats struct {
	Total   int `json:"total,omitempty"`
	Passed  int `json:"passed,omitempty"`
	Failed  int `json:"failed,omitempty"`
	Skipped int `json:"skipped,omitempty"`
	Error   int `json:"error,omitempty"`
}

func (s Stats) Merge(o Stats) Stats {
	return Stats{
		Total:   s.Total + o.Total,
		Passed:  s.Passed + o.Passed,
		Failed:  s.Failed + o.Failed,
		Skipped: s.Skipped + o.Skipped,
		Error:   s.Error + o.Error,
	}
}

func (s Stats) Add(result *FixtureResult) Stats {
	if result == nil {
		return s
	}
	s.Total++
	switch result.Status {
	case task.StatusFAIL, task.StatusFailed:
		s.Failed++
	case task.StatusPASS, task.StatusSuccess:
		s.Passed++
	case task.StatusSKIP:
		s.Skipped++
	case task.StatusERR, task.StatusCancelled:
		s.Error++
	}
	return s
}

func (s Stats) IsOK() bool {
	return s.Failed == 0 && s.Error == 0
}

func (s Stats) HasFailures() bool {
	return s.Failed > 0 || s.Error > 0
}

func (s Stats) Health() task.Health {
	if s.HasFailures() {
		return task.HealthError
	}
	if s.Total == 0 || s.Skipped > 0 {
		return task.HealthWarning
	}
	return task.HealthOK
}

// Pretty prints passed in green, failed in red and skipped in yellow.
func (s Stats) Pretty() api.Text {
	t := api.Text{}
	if s.Passed > 0 {
		t = t.Append(strconv.Itoa(s.Passed), "text-green-500")
	}
	if s.Failed > 0 {
		if !t.IsEmpty() {
			t = t.Append("/", "text-gray-500")
		}
		t = t.Append(strconv.Itoa(s.Failed), "text-red-500")
	}
	if s.Skipped > 0 {
		t = t.Append(fmt.Sprintf(" %d skipped", s.Skipped), "text-yellow-500")
	}
	if s.Error > 0 {
		t = t.Append(fmt.Sprintf(" %d errors", s.Error), "text-red-500")
	}
	return t
}

func (s Stats) String() string {
	if s.Total == 0 {
		return "-"
	}
	str := fmt.Sprintf("%d/%d", s.Passed, s.Failed+s.Passed)
	if s.Skipped > 0 {
		str += fmt.Sprintf(" %d skipped", s.Skipped)
	}
	if s.Error > 0 {
		str += fmt.Sprintf(" %d error", s.Error)
	}
	return str
}

// NodeType distinguishes category nodes from individual test cases.
type NodeType int

const (
	CategoryNode NodeType = iota
	TestNode
)

func (nt NodeType) String() string {
	switch nt {
	case CategoryNode:
		return "category"
	case TestNode:
		return "test"
	default:
		return "unknown"
	}
}

// FixtureNode is a node of the result tree: categories containing test cases.
type FixtureNode struct {
	Name     string         `json:"name"`
	Type     NodeType       `json:"type"`
	Children []*FixtureNode `json:"children,omitempty"`
	Parent   *FixtureNode   `json:"-"`
	Case     *TestCase      `json:"case,omitempty"`
	Results  *FixtureResult `json:"results,omitempty"`
	Stats    *Stats         `json:"stats,omitempty"`

	factory *Factory
}

func (fn *FixtureNode) AddChild(child *FixtureNode) {
	child.Parent = fn
	fn.Children = append(fn.Children, child)
}

// Walk calls visitor for every node holding a test case.
func (fn *FixtureNode) Walk(visitor func(f *FixtureNode)) {
	if fn.Case != nil {
		visitor(fn)
	}
	for _, child := range fn.Children {
		child.Walk(visitor)
	}
}

func (fn *FixtureNode) GetStats() Stats {
	s := Stats{}.Add(fn.Results)
	for _, child := range fn.Children {
		s = s.Merge(child.GetStats())
	}
	return s
}

// UpdateStats recalculates Stats for this node and every category below it.
func (fn *FixtureNode) UpdateStats() {
	for _, child := range fn.Children {
		if child.Type == CategoryNode {
			child.UpdateStats()
		}
	}
	stats := fn.GetStats()
	fn.Stats = &stats
}

// PruneEmpty removes categories without test cases.
func (fn *FixtureNode) PruneEmpty() {
	if fn == nil || fn.Children == nil {
		return
	}
	filtered := make([]*FixtureNode, 0, len(fn.Children))
	for _, child := range fn.Children {
		child.PruneEmpty()
		if child.Type == TestNode || child.hasTests() {
			filtered = append(filtered, child)
		}
	}
	fn.Children = filtered
}

func (fn *FixtureNode) hasTests() bool {
	found := false
	fn.Walk(func(*FixtureNode) { found = true })
	if found {
		return true
	}
	for _, child := range fn.Children {
		if child.Results != nil {
			return true
		}
	}
	return false
}

func (fn FixtureNode) Pretty() api.Text {
	if fn.Results != nil {
		return fn.Results.Pretty()
	}
	t := clicky.Text(fn.Name, "text-blue-600 font-bold")
	if fn.Stats != nil && fn.Stats.Total > 0 {
		t = t.Append(" (").Add(fn.Stats.Pretty()).Append(")")
	}
	return t
}

// Tree returns a TreeNode representation of this node.
func (fn *FixtureNode) Tree() api.TreeNode {
	return &fixtureTreeNode{fixture: fn}
}

func (fn FixtureNode) GetChildren() []api.TreeNode {
	nodes := make([]api.TreeNode, len(fn.Children))
	for i, child := range fn.Children {
		nodes[i] = child.Tree()
	}
	return nodes
}

type fixtureTreeNode struct {
	fixture *FixtureNode
}

func (ftn fixtureTreeNode) Pretty() api.Text {
	node := ftn.fixture
	if node.Results != nil {
		return node.Results.Pretty()
	}

	content := node.Name
	if node.Type == CategoryNode {
		content = "📁 " + content
		if node.Stats != nil && node.Stats.Total > 0 {
			content = fmt.Sprintf("%s (%d/%d passed)", content, node.Stats.Passed, node.Stats.Total)
		}
	} else {
		content = "📄 " + content
	}

	style := "text-blue-500"
	if node.Stats != nil {
		style = node.Stats.Health().Style()
	}
	return api.Text{Content: content, Style: style}
}

func (ftn fixtureTreeNode) GetChildren() []api.TreeNode {
	if len(ftn.fixture.Children) == 0 {
		return nil
	}
	return ftn.fixture.GetChildren()
}
