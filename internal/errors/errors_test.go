package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosAt(t *testing.T) {
	src := "ab\ncdé\nf"
	tests := []struct {
		offset int
		want   Pos
	}{
		{0, Pos{Offset: 0, Line: 1, Column: 1}},
		{2, Pos{Offset: 2, Line: 1, Column: 3}},
		{3, Pos{Offset: 3, Line: 2, Column: 1}},
		{len("ab\ncdé"), Pos{Offset: len("ab\ncdé"), Line: 2, Column: 4}},
		{100, Pos{Offset: len(src), Line: 3, Column: 2}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.offset), func(t *testing.T) {
			assert.Equal(t, tt.want, PosAt(src, tt.offset))
		})
	}
}

func TestSentinels(t *testing.T) {
	pos := Pos{Line: 1, Column: 2}
	cause := stderrors.New("inner")

	assert.ErrorIs(t, NewInvalidChar('\x7f', pos), ErrLexical)
	assert.ErrorIs(t, NewEOF(`"}"`, pos), ErrLexical)
	assert.ErrorIs(t, MissingToken(`"}"`, "", pos), ErrSyntax)
	assert.ErrorIs(t, &SyntaxError{Message: "x", Cause: cause}, cause)
	assert.ErrorIs(t, &ArgumentError{Command: "foo", Arg: "a", Message: "missing"}, ErrArgument)
	assert.ErrorIs(t, &ArgspecError{Decl: "{a", Message: "unclosed"}, ErrArgument)
	assert.ErrorIs(t, &UnknownNameError{Kind: "macro", Name: "foo"}, ErrUnknownName)
	assert.ErrorIs(t, &InvariantError{Message: "bad index"}, ErrInvariant)
}

func TestMessages(t *testing.T) {
	pos := Pos{Line: 3, Column: 7}

	assert.Equal(t, `3:7: expected "}", got end of input`, MissingToken(`"}"`, "", pos).Error())
	assert.Equal(t, `3:7: expected "}", got "]"`, MissingToken(`"}"`, "]", pos).Error())
	assert.Equal(t, `3:7: \end{other} does not match \begin{quote}`, EnvironmentMismatch("quote", "other", pos).Error())
	assert.Equal(t, `macro not found: \foo`, (&UnknownNameError{Kind: "macro", Name: "foo"}).Error())
	assert.Equal(t, `environment not found: bar`, (&UnknownNameError{Kind: "environment", Name: "bar"}).Error())
	assert.Equal(t, `argument "names" of \usepackage: required argument is missing`,
		(&ArgumentError{Command: "usepackage", Arg: "names", Message: "required argument is missing"}).Error())
}

func TestInvariantPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*InvariantError)
		require.True(t, ok, "panic value should be *InvariantError, got %T", r)
		assert.Contains(t, err.Error(), "index 3 != 4")
	}()
	Invariant("index %d != %d", 3, 4)
}

func TestAtFillsMissingPosition(t *testing.T) {
	err := MissingToken(`"}"`, "", Pos{})
	At(err, Pos{Line: 2, Column: 1})
	assert.Equal(t, 2, err.Pos.Line)

	At(err, Pos{Line: 9, Column: 9})
	assert.Equal(t, 2, err.Pos.Line, "existing position must be kept")
}

func TestRender(t *testing.T) {
	src := "\\section{Intro}\n{a\nlast"
	err := MissingToken(`"}"`, "", Pos{Offset: 18, Line: 2, Column: 3})

	out := Render(err, "doc.tex", src)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, `SYNTAX ERROR in doc.tex at 2:3: expected "}", got end of input`, lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, `   1 | \section{Intro}`, lines[2])
	assert.Equal(t, "   2 | {a", lines[3])
	assert.Equal(t, "     |   ^", lines[4])
	assert.Equal(t, "   3 | last", lines[5])
}

func TestRenderHeaders(t *testing.T) {
	pos := Pos{Line: 1, Column: 1}
	assert.True(t, strings.HasPrefix(Render(NewInvalidChar('\x7f', pos), "", "x"), "LEXICAL ERROR at 1:1"))
	assert.True(t, strings.HasPrefix(Render(&ArgumentError{Command: "a", Arg: "b", Message: "c", Pos: pos}, "", "x"), "ARGUMENT ERROR"))
	assert.True(t, strings.HasPrefix(Render(&UnknownNameError{Kind: "macro", Name: "x", Pos: pos}, "", "x"), "NAME ERROR"))
}

func TestRenderWithoutPosition(t *testing.T) {
	err := stderrors.New("plain failure")
	assert.Equal(t, "plain failure", Render(err, "", "source"))

	wrapped := fmt.Errorf("parse doc.tex: %w", MissingToken(`"$"`, "", Pos{}))
	assert.Equal(t, wrapped.Error(), Render(wrapped, "", "source"))
}

func TestCaretPadKeepsTabs(t *testing.T) {
	assert.Equal(t, "\t  ", caretPad("\tab}", 4))
	assert.Equal(t, "     ", caretPad("ab", 6))
}

func TestIsIncomplete(t *testing.T) {
	pos := Pos{Offset: 3, Line: 1, Column: 4}
	assert.True(t, IsIncomplete(MissingToken(`"}"`, "", pos)))
	assert.True(t, IsIncomplete(NewEOF("verbatim delimiter", pos)))
	assert.True(t, IsIncomplete(fmt.Errorf("wrapped: %w", MissingToken(`\end{x}`, "", pos))))
	assert.True(t, IsIncomplete(&ArgumentError{Command: "textbf", Arg: "data", Cause: MissingToken("argument", "", pos)}))

	assert.False(t, IsIncomplete(MissingToken(`"}"`, "]", pos)))
	assert.False(t, IsIncomplete(NewInvalidChar('\x00', pos)))
	assert.False(t, IsIncomplete(stderrors.New("other")))
	assert.False(t, IsIncomplete(nil))
}
