package fixtures

import (
	"errors"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/task"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FixtureResult", func() {
	DescribeTable("records the outcome of a test case",
		func(result FixtureResult, status task.Status, contains []string) {
			Expect(result.Status).To(Equal(status))

			output, err := clicky.Format(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(output).NotTo(BeEmpty())

			pretty := result.Pretty().ANSI()
			for _, s := range contains {
				Expect(pretty).To(ContainSubstring(s))
			}
		},
		Entry("passing test case",
			FixtureResult{Name: "styles/a", Duration: 1200 * time.Millisecond}.Pass(),
			task.StatusPASS,
			[]string{"styles/a"}),

		Entry("assertion failure with diff",
			FixtureResult{Name: "styles/b", Stage: StageCompare, InputPath: "styles/b/input.astro", OutputPath: "styles/b/output.astro"}.
				Fail(AssertEqual("a\n", "b\n", "styles/b: Incorrect formatting")),
			task.StatusFAIL,
			[]string{"styles/b", "Incorrect formatting", "compare", "styles/b/input.astro"}),

		Entry("engine error",
			FixtureResult{Name: "styles/c", Stage: StageFormat}.Errorf(errors.New("Unexpected token"), "styles/c: failed to format"),
			task.StatusERR,
			[]string{"styles/c: failed to format: Unexpected token"}),

		Entry("skipped fixture",
			FixtureResult{Name: "styles/with-sass"}.Skip("indentation-sensitive"),
			task.StatusSKIP,
			[]string{"styles/with-sass", "indentation-sensitive"}),
	)

	It("keeps assertion details", func() {
		result := FixtureResult{Name: "x"}.Fail(AssertEqual("a\n", "b\n", "Incorrect formatting"))
		Expect(result.Error).To(Equal("Incorrect formatting"))
		Expect(result.Expected).To(Equal("b\n"))
		Expect(result.Actual).To(Equal("a\n"))
		Expect(result.Diff).To(Equal("-b\n+a\n"))

		var ae *AssertionError
		Expect(errors.As(result.Err, &ae)).To(BeTrue())
	})
})

var _ = Describe("Stats", func() {
	DescribeTable("should detect failures correctly",
		func(stats Stats, failures bool, health task.Health) {
			Expect(stats.HasFailures()).To(Equal(failures))
			Expect(stats.IsOK()).To(Equal(!failures))
			Expect(stats.Health()).To(Equal(health))
		},
		Entry("no failures", Stats{Total: 3, Passed: 3}, false, task.HealthOK),
		Entry("has failures", Stats{Total: 3, Passed: 2, Failed: 1}, true, task.HealthError),
		Entry("has errors", Stats{Total: 1, Error: 1}, true, task.HealthError),
		Entry("skipped only", Stats{Total: 1, Skipped: 1}, false, task.HealthWarning),
		Entry("empty", Stats{}, false, task.HealthWarning),
	)

	It("counts results by status", func() {
		var s Stats
		for _, status := range []task.Status{task.StatusPASS, task.StatusFAIL, task.StatusERR, task.StatusSKIP, task.StatusPASS} {
			s = s.Add(&FixtureResult{Status: status})
		}
		Expect(s).To(Equal(Stats{Total: 5, Passed: 2, Failed: 1, Error: 1, Skipped: 1}))
		Expect(s.String()).To(Equal("2/3 1 skipped 1 error"))
	})
})

var _ = Describe("FixtureNode", func() {
	It("aggregates stats and prunes empty categories", func() {
		root := &FixtureNode{Name: "Fixtures", Type: CategoryNode}
		styles := &FixtureNode{Name: "styles", Type: CategoryNode}
		empty := &FixtureNode{Name: "empty", Type: CategoryNode}
		root.AddChild(styles)
		root.AddChild(empty)

		passed := FixtureResult{Name: "styles/a"}.Pass()
		failed := FixtureResult{Name: "styles/b"}.Fail(errors.New("boom"))
		styles.AddChild(&FixtureNode{Name: "styles/a", Type: TestNode, Case: &TestCase{Name: "styles/a"}, Results: &passed})
		styles.AddChild(&FixtureNode{Name: "styles/b", Type: TestNode, Case: &TestCase{Name: "styles/b"}, Results: &failed})

		root.PruneEmpty()
		Expect(root.Children).To(HaveLen(1))
		Expect(styles.Parent).To(BeIdenticalTo(root))

		root.UpdateStats()
		Expect(*styles.Stats).To(Equal(Stats{Total: 2, Passed: 1, Failed: 1}))
		Expect(root.Stats.Health()).To(Equal(task.HealthError))

		var visited []string
		root.Walk(func(n *FixtureNode) { visited = append(visited, n.Name) })
		Expect(visited).To(Equal([]string{"styles/a", "styles/b"}))

		output, err := clicky.Format(*styles)
		Expect(err).NotTo(HaveOccurred())
		Expect(output).To(ContainSubstring("styles"))
	})
})
