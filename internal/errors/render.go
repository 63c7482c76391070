package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Render formats err for humans. Errors that carry a position get a header,
// one line of context on each side and a caret under the offending column:
//
//	SYNTAX ERROR in doc.tex at 2:3: expected "}", got end of input
//
//	   1 | \section{Intro}
//	   2 | {a
//	     |   ^
//
// Other errors are rendered with their plain message.
func Render(err error, name, source string) string {
	var p Positioned
	if !stderrors.As(err, &p) || !p.Position().IsValid() {
		return err.Error()
	}
	pos := p.Position()
	return snippet(source, header(err), name, pos.Line, pos.Column, message(err))
}

func header(err error) string {
	switch {
	case stderrors.Is(err, ErrLexical):
		return "LEXICAL ERROR"
	case stderrors.Is(err, ErrArgument):
		return "ARGUMENT ERROR"
	case stderrors.Is(err, ErrUnknownName):
		return "NAME ERROR"
	default:
		return "SYNTAX ERROR"
	}
}

// message strips the "line:col: " prefix that Error() adds.
func message(err error) string {
	msg := err.Error()
	var p Positioned
	if stderrors.As(err, &p) {
		msg = strings.TrimPrefix(msg, p.Position().String()+": ")
	}
	return msg
}

func snippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", caretPad(lineTxt, col))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}

// caretPad keeps tabs so the caret lines up under tab-indented source.
func caretPad(line string, col int) string {
	var b strings.Builder
	for i, r := range []rune(line) {
		if i >= col-1 {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	for n := len([]rune(line)); n < col-1; n++ {
		b.WriteByte(' ')
	}
	return b.String()
}
