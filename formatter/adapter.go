package formatter

import (
	"context"

	"github.com/flanksource/commons/logger"
)

// Adapter invokes an Engine with the parser for a syntax and the plugin under
// test, merging fixture options over the engine defaults.
type Adapter struct {
	Engine Engine
	// Plugins point the engine at the formatter implementation under test.
	Plugins []string
	// Parsers overrides Syntax.DefaultParser per syntax.
	Parsers map[Syntax]string
	// Defaults are applied beneath every request.
	Defaults Options
}

func NewAdapter(engine Engine, plugins ...string) *Adapter {
	return &Adapter{
		Engine:  engine,
		Plugins: plugins,
	}
}

// Parser returns the engine parser name used for syntax.
func (a *Adapter) Parser(syntax Syntax) string {
	if p, ok := a.Parsers[syntax]; ok && p != "" {
		return p
	}
	return syntax.DefaultParser()
}

// Request builds the engine options: defaults, then parser and plugins, then
// opts. Fixture options may therefore override the parser.
func (a *Adapter) Request(syntax Syntax, opts Options) Options {
	base := Options{"parser": a.Parser(syntax)}
	if len(a.Plugins) > 0 {
		base["plugins"] = append([]string(nil), a.Plugins...)
	}
	return a.Defaults.Merge(base, opts)
}

// Format formats content with the parser selected by syntax.
//
// A Go error from the engine (returned or panicked) is passed through unchanged.
// A string is wrapped into a fatal *Error and any other panic value becomes an
// unclassified fatal *Error. Format never substitutes an empty result for a failure.
func (a *Adapter) Format(ctx context.Context, content string, syntax Syntax, opts Options) (out string, err error) {
	if a.Engine == nil {
		return "", &Error{Kind: Fatal, Syntax: syntax, Message: "no formatting engine configured"}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := a.Request(syntax, opts)
	logger.V(4).Infof("format %s (%d bytes) %s", syntax, len(content), req.String())

	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = withSyntax(Classify(r), syntax)
			logger.V(3).Infof("engine panicked while formatting %s: %v", syntax, err)
		}
	}()

	out, err = a.Engine.Format(ctx, content, req)
	if err != nil {
		return "", withSyntax(err, syntax)
	}
	return out, nil
}
