package tokens

import (
	stderrors "errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/errors"
)

type lexeme struct {
	text string
	cat  Category
	kind Kind
}

func summarize(toks []Token) []lexeme {
	out := make([]lexeme, len(toks))
	for i, t := range toks {
		out[i] = lexeme{t.Text, t.Cat, t.Kind}
	}
	return out
}

func mustTokenize(t *testing.T, src string, opts ...Option) []Token {
	t.Helper()
	toks, err := Tokenize(src, opts...)
	require.NoError(t, err)
	return toks
}

func TestScannerStates(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []lexeme
	}{
		{
			name: "control word skips following space",
			src:  `hi \you joe`,
			want: []lexeme{
				{"h", Letter, Plain}, {"i", Letter, Plain}, {" ", Space, Plain},
				{`\you`, Escape, Plain}, {" ", Skipped, SkippedSpace},
				{"j", Letter, Plain}, {"o", Letter, Plain}, {"e", Letter, Plain},
			},
		},
		{
			name: "space runs collapse",
			src:  "a  b",
			want: []lexeme{{"a", Letter, Plain}, {" ", Space, Plain}, {" ", Skipped, SkippedSpace}, {"b", Letter, Plain}},
		},
		{
			name: "line end in the middle of a line",
			src:  "a\nb",
			want: []lexeme{{"a", Letter, Plain}, {" ", Space, ExtraSpace}, {"\n", Skipped, SkippedNewline}, {"b", Letter, Plain}},
		},
		{
			name: "empty line is a paragraph break",
			src:  "a\n\nb",
			want: []lexeme{
				{"a", Letter, Plain}, {" ", Space, ExtraSpace}, {"\n", Skipped, SkippedNewline},
				{`\par`, Escape, ParBreak}, {"b", Letter, Plain},
			},
		},
		{
			name: "line end after control word",
			src:  "\\foo\nbar",
			want: []lexeme{{`\foo`, Escape, Plain}, {"\n", Skipped, SkippedNewline}, {"b", Letter, Plain}, {"a", Letter, Plain}, {"r", Letter, Plain}},
		},
		{
			name: "control symbol keeps middle state",
			src:  `\, x`,
			want: []lexeme{{`\,`, Escape, Plain}, {" ", Space, Plain}, {"x", Letter, Plain}},
		},
		{
			name: "control space",
			src:  `\ x`,
			want: []lexeme{{`\ `, Escape, Plain}, {"x", Letter, Plain}},
		},
		{
			name: "parameters",
			src:  "#1##x#a",
			want: []lexeme{{"#1", Parameter, Plain}, {"##", Parameter, Plain}, {"x", Letter, Plain}, {"#", Other, Plain}, {"a", Letter, Plain}},
		},
		{
			name: "comment runs through the line end",
			src:  "a% c\n  b",
			want: []lexeme{
				{"a", Letter, Plain}, {"% c\n", Comment, Plain},
				{" ", Skipped, SkippedSpace}, {" ", Skipped, SkippedSpace}, {"b", Letter, Plain},
			},
		},
		{
			name: "special characters",
			src:  "{$&^_~}",
			want: []lexeme{
				{"{", BGroup, Plain}, {"$", MathShift, Plain}, {"&", Alignment, Plain}, {"^", Super, Plain},
				{"_", Sub, Plain}, {"~", Active, Plain}, {"}", EGroup, Plain},
			},
		},
		{
			name: "caret notation",
			src:  "^^5x",
			want: []lexeme{{"u", Letter, Plain}, {"x", Letter, Plain}},
		},
		{
			name: "tab in the middle of a line reads as a space",
			src:  "a\tb",
			want: []lexeme{{"a", Letter, Plain}, {" ", Space, Plain}, {"b", Letter, Plain}},
		},
		{
			name: "ignored character",
			src:  "a\x00b",
			want: []lexeme{{"a", Letter, Plain}, {"\x00", Ignored, Plain}, {"b", Letter, Plain}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(mustTokenize(t, tt.src)))
		})
	}
}

func TestRawTextIsPreserved(t *testing.T) {
	toks := mustTokenize(t, "^^5\tx\n\n")
	require.Len(t, toks, 6)
	assert.Equal(t, "^^5", toks[0].Raw)
	assert.Equal(t, "\t", toks[1].Raw)
	assert.Equal(t, "", toks[3].Raw, "extra space has no source text")
	assert.Equal(t, "\n", toks[5].Raw)
	assert.Equal(t, ParBreak, toks[5].Kind)
}

func TestMacroName(t *testing.T) {
	toks := mustTokenize(t, `\textbf\\\@x`)
	require.Len(t, toks, 3)
	assert.Equal(t, "textbf", toks[0].MacroName())
	assert.Equal(t, `\`, toks[1].MacroName())
	assert.Equal(t, "@x", toks[2].MacroName())
	assert.True(t, toks[0].IsMacro("textbf"))
	assert.Equal(t, "", New("a", Letter).MacroName())
}

func TestMakeAtOther(t *testing.T) {
	tbl := DefaultTable()
	tbl.Set('@', Other)
	toks := mustTokenize(t, `\a@b`, WithTable(tbl))
	assert.Equal(t, []lexeme{{`\a`, Escape, Plain}, {"@", Other, Plain}, {"b", Letter, Plain}}, summarize(toks))
	assert.Equal(t, Letter, DefaultTable().Lookup('@'), "default table must not be shared")
}

func TestVerbatimTable(t *testing.T) {
	toks := mustTokenize(t, `a\{`, WithTable(VerbatimTable()))
	assert.Equal(t, []lexeme{{"a", Letter, Plain}, {`\`, Other, Plain}, {"{", Other, Plain}}, summarize(toks))
}

func TestInvalidCharacter(t *testing.T) {
	tbl := DefaultTable()
	tbl.Set('\x7f', Invalid)
	tk := NewTokenizer("ab\n\x7f", WithTable(tbl))

	_, err := All(tk)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrLexical))

	var lex *errors.LexicalError
	require.True(t, stderrors.As(err, &lex))
	assert.Equal(t, errors.CodeInvalidChar, lex.Code)
	assert.Equal(t, 2, lex.Pos.Line)
	assert.Equal(t, 1, lex.Pos.Column)

	_, again := tk.Next()
	assert.Equal(t, err, again, "lexical errors are sticky")
}

func TestEscapeAtEndOfInput(t *testing.T) {
	_, err := Tokenize(`abc\`)
	var lex *errors.LexicalError
	require.True(t, stderrors.As(err, &lex))
	assert.True(t, lex.IsEOF())
}

func TestRoundTrip(t *testing.T) {
	sources := []string{
		"",
		`\documentclass[a4]{article}`,
		"Some \\TeX\tdocument.\n\n\n  Indented  \\par\n% comment\n$x^2_i$ & ~ #1 ##",
		"\\foo  \n  bar\r\n",
		"^^M^^5\\^^5",
	}
	for _, src := range sources {
		toks := mustTokenize(t, src)
		assert.Equal(t, src, Join(toks))
	}
}

func TestTokenizeIsIdempotent(t *testing.T) {
	alphabet := []rune("ab \t\n\\{}$&#^_~%@12,.")
	gen := func(r *rand.Rand, n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[r.Intn(len(alphabet))])
		}
		return sb.String()
	}

	cfg := &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(42))}
	property := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		src := gen(r, r.Intn(40))
		if strings.HasSuffix(src, `\`) {
			src += "x"
		}
		first, err := Tokenize(src)
		if err != nil {
			return false
		}
		second, err := Tokenize(Join(first))
		if err != nil {
			return false
		}
		return assert.ObjectsAreEqual(first, second)
	}
	if err := quick.Check(property, cfg); err != nil {
		t.Error(err)
	}
}

func TestPushback(t *testing.T) {
	tk := NewTokenizer("c")
	tk.Push(New("a", Letter), New("b", Letter))
	tk.Push(New("z", Letter))

	toks, err := All(tk)
	require.NoError(t, err)
	assert.Equal(t, "zabc", JoinText(toks))
}

func TestFromTokens(t *testing.T) {
	src := mustTokenize(t, `\emph{x}`)
	tk := FromTokens(src)
	toks, err := All(tk)
	require.NoError(t, err)
	assert.Equal(t, src, toks)

	_, err = tk.Next()
	assert.Equal(t, io.EOF, err)
}

func TestAllTokensPushesBack(t *testing.T) {
	tk := NewTokenizer("ab")
	first, err := AllTokens(tk)
	require.NoError(t, err)
	second, err := All(tk)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPos(t *testing.T) {
	tk := NewTokenizer("ab\ncd")
	for i := 0; i < 4; i++ {
		_, err := tk.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, errors.Pos{Offset: 3, Line: 2, Column: 1}, tk.Pos())

	c, err := tk.Next()
	require.NoError(t, err)
	tk.Push(c)
	assert.Equal(t, 2, tk.Line())
	assert.Equal(t, 1, tk.Column())
}

func TestReadVerbatim(t *testing.T) {
	t.Run("from source", func(t *testing.T) {
		tk := NewTokenizer(`\verbatim Foo \endverbatim`)
		_, err := ExpectMacro(tk, "verbatim")
		require.NoError(t, err)
		data, err := tk.ReadVerbatim(`\endverbatim`)
		require.NoError(t, err)
		assert.Equal(t, " Foo ", data)
		_, err = tk.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("pushed tokens unrelated to the stop string", func(t *testing.T) {
		tk := NewTokenizer("barend")
		tk.Push(mustTokenize(t, "foo")...)
		data, err := tk.ReadVerbatim("end")
		require.NoError(t, err)
		assert.Equal(t, "foobar", data)
	})

	t.Run("stop string straddles pushback and source", func(t *testing.T) {
		tk := NewTokenizer("dfoo")
		tk.Push(mustTokenize(t, "baren")...)
		data, err := tk.ReadVerbatim("end")
		require.NoError(t, err)
		assert.Equal(t, "bar", data)
		rest, err := All(tk)
		require.NoError(t, err)
		assert.Equal(t, "foo", Join(rest))
	})

	t.Run("stop string inside pushback", func(t *testing.T) {
		tk := NewTokenizer("tail")
		tk.Push(mustTokenize(t, "abENDxy")...)
		data, err := tk.ReadVerbatim("END")
		require.NoError(t, err)
		assert.Equal(t, "ab", data)
		rest, err := All(tk)
		require.NoError(t, err)
		assert.Equal(t, "xytail", Join(rest))
	})

	t.Run("peeked source tokens are re-read raw", func(t *testing.T) {
		tk := NewTokenizer(`\verb|a  b|c`)
		_, err := ExpectMacro(tk, "verb")
		require.NoError(t, err)
		_, err = ExpectText(tk, "|")
		require.NoError(t, err)
		_, err = Peek(tk)
		require.NoError(t, err)
		data, err := tk.ReadVerbatim("|")
		require.NoError(t, err)
		assert.Equal(t, "a  b", data)
		c, err := tk.Next()
		require.NoError(t, err)
		assert.Equal(t, "c", c.Text)
	})

	t.Run("empty stop reads to the end", func(t *testing.T) {
		tk := NewTokenizer("xyz")
		tk.Push(New("w", Letter))
		data, err := tk.ReadVerbatim("")
		require.NoError(t, err)
		assert.Equal(t, "wxyz", data)
	})

	t.Run("missing stop string", func(t *testing.T) {
		tk := NewTokenizer("abc")
		_, err := tk.ReadVerbatim("zz")
		var lex *errors.LexicalError
		require.True(t, stderrors.As(err, &lex))
		assert.True(t, lex.IsEOF())
	})
}
