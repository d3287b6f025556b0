// Package exprerr defines the failures reported while compiling and
// evaluating expressions.
package exprerr

import (
	"errors"
	"fmt"

	"blockexpr/pkg/token"
)

// Kind tells at which stage an expression failed.
type Kind uint8

const (
	KindParse Kind = iota + 1
	KindValidation
	KindEvaluation
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindValidation:
		return "validation error"
	case KindEvaluation:
		return "evaluation error"
	default:
		return "error"
	}
}

var (
	// ErrRunaway marks evaluations stopped because they ran too long.
	ErrRunaway = errors.New("runaway expression")

	ErrIterationLimit = fmt.Errorf("%w: loop iteration limit", ErrRunaway)
	ErrTimeout        = fmt.Errorf("%w: calculation timed out", ErrRunaway)
)

// Error is a failure at a source position. Pos is the byte offset of the
// offending token, or -1 when no position applies.
type Error struct {
	Kind   Kind
	Pos    int
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Column, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, tok token.Token, err error, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Pos:    tok.Pos,
		Line:   tok.Line,
		Column: tok.Column,
		Msg:    fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func Parse(tok token.Token, format string, args ...any) *Error {
	return newError(KindParse, tok, nil, format, args...)
}

func Validation(tok token.Token, format string, args ...any) *Error {
	return newError(KindValidation, tok, nil, format, args...)
}

func Evaluation(tok token.Token, format string, args ...any) *Error {
	return newError(KindEvaluation, tok, nil, format, args...)
}

// EvaluationCause is Evaluation with an underlying error that errors.Is
// and errors.As can find.
func EvaluationCause(tok token.Token, cause error, format string, args ...any) *Error {
	return newError(KindEvaluation, tok, cause, format, args...)
}

// Wrap turns err into an error of the given kind located at tok. An err
// that already is an *Error keeps its own position and message.
func Wrap(kind Kind, tok token.Token, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == kind {
			return e
		}
		return &Error{Kind: kind, Pos: e.Pos, Line: e.Line, Column: e.Column, Msg: e.Msg, Err: e.Err}
	}
	return newError(kind, tok, err, "%s", err.Error())
}

// NoPosition is the token used for failures that are not tied to the source.
var NoPosition = token.Token{Pos: -1}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
