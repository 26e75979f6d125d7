package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultConfigFile is looked up in the working directory when no config is given.
const DefaultConfigFile = ".formatcheck.yaml"

// Config describes how to reach the formatting engine under test.
type Config struct {
	// Command is the formatter executable.
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	// Args are gomplate templates, see ExecEngine.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	// Output is "file" (command rewrites {{.file}}) or "stdout".
	Output OutputMode `yaml:"output,omitempty" json:"output,omitempty"`
	// Plugins is the plugin set pointing at the formatter implementation under test.
	// Relative paths are resolved against the config file directory.
	Plugins []string `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	// Parsers overrides the parser name per syntax (template, markdown).
	Parsers map[string]string `yaml:"parsers,omitempty" json:"parsers,omitempty"`
	// Defaults are engine options applied beneath fixture options.
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Timeout  string         `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	WorkDir  string         `yaml:"workDir,omitempty" json:"workDir,omitempty"`
	// Build is a shell command run once before any fixture, e.g. to compile the plugin.
	Build string `yaml:"build,omitempty" json:"build,omitempty"`

	dir string
}

// DefaultConfig runs prettier through npx, rewriting the scratch file in place.
func DefaultConfig() Config {
	return Config{
		Command: "npx",
		Args:    []string{"prettier", "--no-editorconfig", "--config", "{{.config}}", "--write", "{{.file}}"},
		Output:  OutputFile,
	}
}

// LoadConfig reads a YAML config; unset fields keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return cfg, err
	}
	cfg.dir = filepath.Dir(abs)
	return cfg, cfg.Validate()
}

// FindConfig loads path, or DefaultConfigFile from dir when path is empty.
// A missing default file yields DefaultConfig.
func FindConfig(path, dir string) (Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	candidate := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(candidate); err != nil {
		cfg := DefaultConfig()
		cfg.dir = dir
		return cfg, nil
	}
	return LoadConfig(candidate)
}

// Dir is the directory the config was loaded from.
func (c Config) Dir() string {
	return c.dir
}

func (c Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("config: command is required")
	}
	switch c.Output {
	case "", OutputFile, OutputStdout:
	default:
		return fmt.Errorf("config: output must be %q or %q, got %q", OutputFile, OutputStdout, c.Output)
	}
	if _, err := c.timeout(); err != nil {
		return err
	}
	for name := range c.Parsers {
		if _, err := ParseSyntax(name); err != nil {
			return fmt.Errorf("config: parsers: %w", err)
		}
	}
	return nil
}

func (c Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	// bare package names (e.g. "prettier-plugin-astro") are left to the engine
	if !strings.HasPrefix(p, ".") {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Engine builds the ExecEngine described by the config.
func (c Config) Engine() (*ExecEngine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := c.timeout()
	engine := NewExecEngine(c.Command, c.Args...)
	engine.Timeout = timeout
	if c.Output != "" {
		engine.Output = c.Output
	}
	if c.WorkDir != "" {
		engine.WorkDir = c.WorkDir
		if !filepath.IsAbs(engine.WorkDir) && c.dir != "" {
			engine.WorkDir = filepath.Join(c.dir, engine.WorkDir)
		}
	}
	return engine, nil
}

// Adapter builds an Adapter over an ExecEngine. The caller owns the engine and
// should Close it once done.
func (c Config) Adapter() (*Adapter, *ExecEngine, error) {
	engine, err := c.Engine()
	if err != nil {
		return nil, nil, err
	}
	plugins := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		plugins = append(plugins, c.resolve(p))
	}
	adapter := NewAdapter(engine, plugins...)
	adapter.Defaults = Options(c.Defaults)
	if len(c.Parsers) > 0 {
		adapter.Parsers = make(map[Syntax]string, len(c.Parsers))
		for name, parser := range c.Parsers {
			syntax, _ := ParseSyntax(name)
			adapter.Parsers[syntax] = parser
		}
	}
	return adapter, engine, nil
}
