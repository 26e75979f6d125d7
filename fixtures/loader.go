package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/formatcheck/formatter"
	"golang.org/x/sync/errgroup"
)

const (
	inputFile   = "input"
	outputFile  = "output"
	optionsFile = "options.json"
)

// Fixture is one loaded input / golden output pair with its engine options.
type Fixture struct {
	Name       string
	Mode       Mode
	InputPath  string
	OutputPath string
	Input      string
	Output     string
	Options    formatter.Options
}

// FixtureIOError is returned when a required fixture file cannot be read.
// It always ends the test case.
type FixtureIOError struct {
	Path string
	Err  error
}

func (e *FixtureIOError) Error() string {
	return fmt.Sprintf("failed to read fixture %s: %v", e.Path, e.Err)
}

func (e *FixtureIOError) Unwrap() error { return e.Err }

func (e *FixtureIOError) ErrorKind() formatter.Kind { return formatter.Fatal }

// Loader reads fixtures from a tree laid out as <root>/<category>/<name>/{input,output}.<ext>.
// Nothing is cached: every call goes back to disk.
type Loader struct {
	Root string
}

func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// PairPaths returns the slash separated input and output paths of a fixture,
// relative to the fixture root.
func PairPaths(name, ext string) (string, string) {
	return path.Join(name, inputFile+"."+ext), path.Join(name, outputFile+"."+ext)
}

func (l *Loader) resolve(rel string) (string, error) {
	return securejoin.SecureJoin(l.Root, rel)
}

// Exists reports whether rel names a regular file under the root.
func (l *Loader) Exists(rel string) bool {
	p, err := l.resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// LoadText reads a file relative to the root with CRLF line endings normalised to LF.
func (l *Loader) LoadText(rel string) (string, error) {
	p, err := l.resolve(rel)
	if err != nil {
		return "", &FixtureIOError{Path: rel, Err: err}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", &FixtureIOError{Path: rel, Err: err}
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// LoadPair reads the input and golden output of a fixture for a file extension.
func (l *Loader) LoadPair(name, ext string) (string, string, error) {
	inPath, outPath := PairPaths(name, ext)

	var input, output string
	var g errgroup.Group
	g.Go(func() (err error) {
		input, err = l.LoadText(inPath)
		return err
	})
	g.Go(func() (err error) {
		output, err = l.LoadText(outPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return input, output, nil
}

// OptionsError reports an options file that could not be used. It is always
// recoverable: the fixture falls back to the default options.
type OptionsError struct {
	Path string
	Err  error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *OptionsError) Unwrap() error { return e.Err }

func (e *OptionsError) ErrorKind() formatter.Kind { return formatter.Recoverable }

// ParseOptions parses <name>/options.json as a JSON object. A missing file is
// not an error. An unreadable or malformed file returns an empty mapping
// together with a formatter.Recoverable error.
func (l *Loader) ParseOptions(name string) (formatter.Options, error) {
	rel := path.Join(name, optionsFile)
	if !l.Exists(rel) {
		return formatter.Options{}, nil
	}
	content, err := l.LoadText(rel)
	if err != nil {
		return formatter.Options{}, &OptionsError{Path: rel, Err: err}
	}
	var opts formatter.Options
	if err := json.Unmarshal([]byte(content), &opts); err != nil {
		return formatter.Options{}, &OptionsError{Path: rel, Err: err}
	}
	if opts == nil {
		return formatter.Options{}, &OptionsError{Path: rel, Err: errors.New("not a JSON object")}
	}
	return opts, nil
}

// LoadOptions is ParseOptions with the fallback applied: a malformed file
// yields an empty mapping and is never an error.
func (l *Loader) LoadOptions(name string) formatter.Options {
	opts, err := l.ParseOptions(name)
	if formatter.IsRecoverable(err) {
		logger.V(3).Infof("using default options: %v", err)
	}
	return opts
}

// Load reads everything a test case in the given mode needs.
func (l *Loader) Load(name string, mode Mode) (*Fixture, error) {
	spec, err := mode.Spec()
	if err != nil {
		return nil, err
	}
	input, output, err := l.LoadPair(name, spec.Extension)
	if err != nil {
		return nil, err
	}
	inPath, outPath := PairPaths(name, spec.Extension)
	return &Fixture{
		Name:       name,
		Mode:       mode,
		InputPath:  inPath,
		OutputPath: outPath,
		Input:      input,
		Output:     output,
		Options:    l.LoadOptions(name),
	}, nil
}
