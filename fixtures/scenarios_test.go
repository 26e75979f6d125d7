package fixtures

import (
	"context"

	"github.com/flanksource/clicky/task"
	"github.com/flanksource/formatcheck/formatter"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Styles fixtures", func() {
	var (
		factory *Factory
		engine  *tidyEngine
	)

	BeforeEach(func() {
		factory, engine = newTidyFactory(testdataRoot)
	})

	DescribeTable("format to the golden output and stay stable",
		func(name string, expectedOptions formatter.Options) {
			result := factory.Run(context.Background(), factory.Standard(name, "styles/"+name))
			Expect(result.Status).To(Equal(task.StatusPASS), result.Error)
			Expect(result.Options).To(Equal(expectedOptions))

			requests := engine.Requests()
			Expect(requests).To(HaveLen(2))
			for _, req := range requests {
				Expect(req).To(HaveKeyWithValue("parser", "astro"))
				Expect(req).To(HaveKeyWithValue("plugins", []string{"./dist/index.js"}))
				for key, value := range expectedOptions {
					Expect(req).To(HaveKeyWithValue(key, value))
				}
			}
		},
		Entry("attributes in the <style> tag, without options", "style-tag-attributes", formatter.Options{}),
		Entry("single scss style element, malformed options", "single-style-element-with-scss-lang", formatter.Options{}),
		Entry("single sass style element", "single-style-element-with-sass-lang", formatter.Options{
			"printWidth":          float64(100),
			"astroAllowShorthand": true,
		}),
	)

	It("passes engine defaults only when a fixture has no options", func() {
		factory.Adapter.Defaults = formatter.Options{"printWidth": 80}
		result := factory.Run(context.Background(), factory.Standard("attributes", "styles/style-tag-attributes"))
		Expect(result.IsOK()).To(BeTrue(), result.Error)

		Expect(engine.Requests()[0]).To(Equal(formatter.Options{
			"parser":     "astro",
			"plugins":    []string{"./dist/index.js"},
			"printWidth": 80,
		}))
	})

	It("fails the skipped indented sass fixture", func() {
		result := factory.Run(context.Background(), factory.Standard("indented", "styles/with-indented-sass"))
		Expect(result.Status).To(Equal(task.StatusFAIL))
		Expect(result.Stage).To(Equal(StageCompare))
		Expect(result.Diff).To(ContainSubstring("-    color: red"))
	})
})
