package formatter

import (
	"errors"
	"fmt"
)

// Kind tags an error as fatal for the current test case or recoverable.
type Kind int

const (
	// Fatal failures end the test case.
	Fatal Kind = iota
	// Recoverable failures are replaced by a default and logged.
	Recoverable
)

func (k Kind) String() string {
	switch k {
	case Recoverable:
		return "recoverable"
	default:
		return "fatal"
	}
}

// Classified is implemented by errors that carry an explicit Kind.
type Classified interface {
	ErrorKind() Kind
}

// Error is the consistent shape of an engine failure that did not arrive as a Go error.
type Error struct {
	Kind    Kind
	Syntax  Syntax
	Message string
	// Unclassified is set when the engine raised something that was neither an
	// error nor a string.
	Unclassified bool
	Value        any
}

func (e *Error) Error() string {
	if e.Syntax != "" {
		return fmt.Sprintf("%s formatting failed: %s", e.Syntax, e.Message)
	}
	return "formatting failed: " + e.Message
}

func (e *Error) ErrorKind() Kind {
	return e.Kind
}

// KindOf reports the kind of err. Errors without a classification are fatal.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return Fatal
}

// IsRecoverable is shorthand for KindOf(err) == Recoverable.
func IsRecoverable(err error) bool {
	return err != nil && KindOf(err) == Recoverable
}

// Classify turns a value raised by an engine into an error:
// errors are returned unchanged, strings are wrapped into *Error, and anything
// else becomes an unclassified fatal *Error.
func Classify(v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case error:
		return t
	case string:
		return &Error{Kind: Fatal, Message: t}
	default:
		return &Error{
			Kind:         Fatal,
			Message:      fmt.Sprintf("engine raised %T: %v", v, v),
			Unclassified: true,
			Value:        v,
		}
	}
}

// withSyntax returns a copy of a bare *Error tagged with syntax. Anything else,
// including an *Error wrapped by the engine, is returned as is.
func withSyntax(err error, syntax Syntax) error {
	fe, ok := err.(*Error)
	if !ok || fe.Syntax != "" {
		return err
	}
	tagged := *fe
	tagged.Syntax = syntax
	return &tagged
}
