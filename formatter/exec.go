package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/shutdown"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/gomplate/v3"
)

const DefaultTimeout = 30 * time.Second

// OutputMode controls where ExecEngine reads the formatted result from.
type OutputMode string

const (
	// OutputFile reads the scratch input file back after the command rewrote it in place.
	OutputFile OutputMode = "file"
	// OutputStdout uses the command's stdout.
	OutputStdout OutputMode = "stdout"
)

// ExecEngine formats content by running an external formatter process.
//
// Each call writes the content to a scratch file and the request options to a
// JSON config file, then renders Args as gomplate templates with:
//
//	{{.file}}     scratch file holding the content
//	{{.config}}   JSON config holding the merged options (parser, plugins, ...)
//	{{.parser}}   parser name
//	{{.plugins}}  comma separated plugin list
//	{{.workDir}}  WorkDir
type ExecEngine struct {
	Command string
	Args    []string
	WorkDir string
	Output  OutputMode
	Timeout time.Duration

	once       sync.Once
	scratch    string
	scratchErr error
}

var _ Engine = (*ExecEngine)(nil)

func NewExecEngine(command string, args ...string) *ExecEngine {
	return &ExecEngine{
		Command: command,
		Args:    args,
		Output:  OutputFile,
	}
}

func (e *ExecEngine) scratchDir() (string, error) {
	e.once.Do(func() {
		e.scratch, e.scratchErr = os.MkdirTemp("", "formatcheck-*")
		if e.scratchErr != nil {
			return
		}
		dir := e.scratch
		shutdown.AddHookWithPriority("remove "+dir, shutdown.PriorityWorkers, func() {
			_ = os.RemoveAll(dir)
		})
	})
	return e.scratch, e.scratchErr
}

// Close removes the scratch directory.
func (e *ExecEngine) Close() error {
	if e.scratch == "" {
		return nil
	}
	return os.RemoveAll(e.scratch)
}

func (e *ExecEngine) timeout(ctx context.Context) time.Duration {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (e *ExecEngine) Format(ctx context.Context, content string, opts Options) (string, error) {
	if e.Command == "" {
		return "", fmt.Errorf("no formatter command configured")
	}
	dir, err := e.scratchDir()
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}

	parser, _ := opts["parser"].(string)
	src, err := writeScratch(dir, "input-*"+extensionForParser(parser), []byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to write formatter input: %w", err)
	}
	defer func() { _ = os.Remove(src) }()

	config, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("failed to encode formatter options: %w", err)
	}
	configPath, err := writeScratch(dir, "options-*.json", config)
	if err != nil {
		return "", fmt.Errorf("failed to write formatter options: %w", err)
	}
	defer func() { _ = os.Remove(configPath) }()

	args, err := e.renderArgs(map[string]any{
		"file":    src,
		"config":  configPath,
		"parser":  parser,
		"plugins": strings.Join(pluginList(opts["plugins"]), ","),
		"workDir": e.WorkDir,
	})
	if err != nil {
		return "", err
	}

	timeout := e.timeout(ctx)
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}
	logger.V(4).Infof("exec: %s %s", e.Command, strings.Join(args, " "))

	proc := clicky.Exec(e.Command, args...).WithTimeout(timeout)
	if e.WorkDir != "" {
		proc = proc.WithCwd(e.WorkDir)
	}
	result := proc.Run().Result()

	if result.ExitCode != 0 {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("%s exited with code %d", e.Command, result.ExitCode)
		}
		return "", Classify(msg)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%s failed: %w", e.Command, result.Error)
	}

	if e.Output == OutputStdout {
		return result.Stdout, nil
	}
	formatted, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("failed to read formatted output: %w", err)
	}
	return string(formatted), nil
}

func (e *ExecEngine) renderArgs(data map[string]any) ([]string, error) {
	args := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if !strings.Contains(arg, "{{") {
			args = append(args, arg)
			continue
		}
		rendered, err := gomplate.RunTemplate(data, gomplate.Template{Template: arg})
		if err != nil {
			return nil, fmt.Errorf("failed to template argument %q: %w", arg, err)
		}
		args = append(args, rendered)
	}
	return args, nil
}

func writeScratch(dir, pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}

func extensionForParser(parser string) string {
	switch parser {
	case "", "astro":
		return ".astro"
	case "markdown", "mdx":
		return ".md"
	default:
		return "." + parser
	}
}

func pluginList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, p := range t {
			out = append(out, fmt.Sprint(p))
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}
