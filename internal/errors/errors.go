// Package errors defines the error taxonomy shared by the tokenizer, the
// parser and the element tree, plus caret-snippet rendering for diagnostics.
//
// Lexical, syntax, argument and unknown-name errors are ordinary error values
// that abort a parse. Invariant violations signal a bug in the engine itself
// and are raised with panic.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Code identifies the class of a parse error
type Code string

const (
	CodeInvalidChar  Code = "INVALID_CHAR"
	CodeEOF          Code = "UNEXPECTED_EOF"
	CodeSyntax       Code = "SYNTAX_ERROR"
	CodeMissingToken Code = "MISSING_TOKEN"
	CodeEnvironment  Code = "ENVIRONMENT_ERROR"
	CodeArgument     Code = "ARGUMENT_ERROR"
	CodeArgspec      Code = "ARGSPEC_ERROR"
	CodeUnknownName  Code = "UNKNOWN_NAME"
	CodeInvariant    Code = "INVARIANT_VIOLATION"
)

// Sentinels matched with errors.Is.
var (
	ErrLexical     = stderrors.New("lexical error")
	ErrSyntax      = stderrors.New("syntax error")
	ErrArgument    = stderrors.New("argument error")
	ErrUnknownName = stderrors.New("unknown name")
	ErrInvariant   = stderrors.New("structural invariant violated")
)

// Pos is a location in the source text. Line and Column are 1-based; Column
// counts runes. The zero Pos means the location is unknown.
type Pos struct {
	Offset int
	Line   int
	Column int
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "unknown position"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PosAt computes the position of a byte offset in source.
func PosAt(source string, offset int) Pos {
	if offset < 0 {
		offset = 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	head := source[:offset]
	line := strings.Count(head, "\n") + 1
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return Pos{Offset: offset, Line: line, Column: len([]rune(head[lineStart:])) + 1}
}

// Positioned is implemented by errors that know where they happened.
type Positioned interface {
	error
	Position() Pos
}

// LexicalError reports an invalid character or input that ended in the
// middle of an escape sequence or verbatim read.
type LexicalError struct {
	Code    Code
	Message string
	Pos     Pos
}

func (e *LexicalError) Error() string {
	return withPos(e.Pos, e.Message)
}

func (e *LexicalError) Unwrap() error { return ErrLexical }
func (e *LexicalError) Position() Pos { return e.Pos }
func (e *LexicalError) IsEOF() bool { return e.Code == CodeEOF }

// NewInvalidChar creates the error raised for characters of the invalid category.
func NewInvalidChar(r rune, pos Pos) *LexicalError {
	return &LexicalError{Code: CodeInvalidChar, Message: fmt.Sprintf("invalid character in input: %q", r), Pos: pos}
}

// NewEOF creates the error raised when the source ends while more data was expected.
func NewEOF(expected string, pos Pos) *LexicalError {
	return &LexicalError{Code: CodeEOF, Message: "input ended before " + expected, Pos: pos}
}

// SyntaxError reports a token or construct that does not fit at the current
// position. Expected and Got describe the mismatch when it is a missing token.
type SyntaxError struct {
	Code     Code
	Message  string
	Expected string
	Got      string
	Pos      Pos
	Cause    error
}

func (e *SyntaxError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("expected %s, got %s", e.Expected, e.Got)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return withPos(e.Pos, msg)
}

func (e *SyntaxError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrSyntax, e.Cause}
	}
	return []error{ErrSyntax}
}

func (e *SyntaxError) Position() Pos { return e.Pos }

// NewSyntax creates a generic syntax error.
func NewSyntax(msg string, pos Pos) *SyntaxError {
	return &SyntaxError{Code: CodeSyntax, Message: msg, Pos: pos}
}

// MissingToken creates the error for an expected token that was not found.
// An empty got means the input was exhausted.
func MissingToken(expected, got string, pos Pos) *SyntaxError {
	if got == "" {
		got = "end of input"
	} else {
		got = fmt.Sprintf("%q", got)
	}
	return &SyntaxError{Code: CodeMissingToken, Expected: expected, Got: got, Pos: pos}
}

// EnvironmentMismatch creates the error for an \end tag that closes the wrong environment.
func EnvironmentMismatch(open, end string, pos Pos) *SyntaxError {
	return &SyntaxError{
		Code:     CodeEnvironment,
		Message:  fmt.Sprintf(`\end{%s} does not match \begin{%s}`, end, open),
		Expected: `\end{` + open + `}`,
		Got:      `\end{` + end + `}`,
		Pos:      pos,
	}
}

// ArgumentError reports a required argument that is absent or cannot be
// read as its declared type.
type ArgumentError struct {
	Command string
	Arg     string
	Message string
	Pos     Pos
	Cause   error
}

func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf(`argument %q of \%s: %s`, e.Arg, e.Command, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return withPos(e.Pos, msg)
}

func (e *ArgumentError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrArgument, e.Cause}
	}
	return []error{ErrArgument}
}

func (e *ArgumentError) Position() Pos { return e.Pos }

// ArgspecError reports a malformed argument declaration string.
type ArgspecError struct {
	Decl    string
	Message string
}

func (e *ArgspecError) Error() string {
	return fmt.Sprintf("invalid argument declaration %q: %s", e.Decl, e.Message)
}

func (e *ArgspecError) Unwrap() error { return ErrArgument }

// UnknownNameError reports a macro or environment missing from the context.
type UnknownNameError struct {
	Kind string
	Name string
	Pos  Pos
}

func (e *UnknownNameError) Error() string {
	name := e.Name
	if e.Kind == "macro" {
		name = `\` + name
	}
	return withPos(e.Pos, fmt.Sprintf("%s not found: %s", e.Kind, name))
}

func (e *UnknownNameError) Unwrap() error { return ErrUnknownName }
func (e *UnknownNameError) Position() Pos { return e.Pos }

// InvariantError describes corrupted engine state. It is only ever used as
// a panic value.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "internal error: " + e.Message }
func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Invariant panics with an InvariantError.
func Invariant(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

// At returns err with its position filled in when it had none.
func At(err error, pos Pos) error {
	switch e := err.(type) {
	case *LexicalError:
		if !e.Pos.IsValid() {
			e.Pos = pos
		}
	case *SyntaxError:
		if !e.Pos.IsValid() {
			e.Pos = pos
		}
	case *ArgumentError:
		if !e.Pos.IsValid() {
			e.Pos = pos
		}
	case *UnknownNameError:
		if !e.Pos.IsValid() {
			e.Pos = pos
		}
	}
	return err
}

func withPos(pos Pos, msg string) string {
	if !pos.IsValid() {
		return msg
	}
	return pos.String() + ": " + msg
}

// IsIncomplete reports whether err was caused by the input ending early, as
// with an unclosed group or environment. Interactive readers use it to ask
// for another line instead of failing.
func IsIncomplete(err error) bool {
	var lex *LexicalError
	if stderrors.As(err, &lex) && lex.IsEOF() {
		return true
	}
	var syn *SyntaxError
	return stderrors.As(err, &syn) && syn.Code == CodeMissingToken && syn.Got == "end of input"
}
