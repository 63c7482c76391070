// Package tokens implements the category-code driven tokenizer: a pushback
// capable stream of classified tokens read from a source string, plus
// bounded sub-streams that stop exactly at a boundary token.
package tokens

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind separates tokens that exist in the source from those the scanner
// synthesizes or discards.
type Kind uint8

const (
	Plain Kind = iota
	// ExtraSpace is the space TeX inserts for a line end in the middle of a line.
	// It has no source text.
	ExtraSpace
	// SkippedSpace is a space TeX ignores (after a control word or another space).
	SkippedSpace
	// SkippedNewline is a line end TeX ignores.
	SkippedNewline
	// ParBreak is the \par produced by an empty line. Its source is the newline.
	ParBreak
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case ExtraSpace:
		return "extra-space"
	case SkippedSpace:
		return "skipped-space"
	case SkippedNewline:
		return "skipped-newline"
	case ParBreak:
		return "par-break"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Token is an immutable classified lexeme. Text is the meaning TeX sees
// (a tab in the middle of a line reads as " "), Raw the exact source text.
// Offset is the byte offset of Raw in the source, or -1 for tokens that
// were not read from the source.
type Token struct {
	Text   string
	Raw    string
	Cat    Category
	Kind   Kind
	Offset int
}

// New returns a synthetic token whose source text equals its text.
func New(text string, cat Category) Token {
	return Token{Text: text, Raw: text, Cat: cat, Offset: -1}
}

// Macro returns a synthetic escape token for the named control sequence.
func Macro(name string) Token {
	return New(`\`+name, Escape)
}

// Char returns a synthetic single character token.
func Char(r rune, cat Category) Token {
	return New(string(r), cat)
}

// MacroName returns the control sequence name of an escape token.
func (t Token) MacroName() string {
	if t.Cat != Escape {
		return ""
	}
	_, size := utf8.DecodeRuneInString(t.Text)
	return t.Text[size:]
}

// IsMacro reports whether t is the escape token for name.
func (t Token) IsMacro(name string) bool {
	return t.Cat == Escape && t.MacroName() == name
}

// IsSkipped reports whether t is a discarded space or newline marker.
func (t Token) IsSkipped() bool { return t.Cat == Skipped }

// IsSpace reports whether t is whitespace of any kind, including the markers.
func (t Token) IsSpace() bool {
	return t.Cat == Space || t.Cat == EOL || t.Cat == Skipped
}

// Equal compares category and text, ignoring source details.
func (t Token) Equal(o Token) bool {
	return t.Cat == o.Cat && t.Text == o.Text
}

// Source returns the exact source text of the token.
func (t Token) Source() string { return t.Raw }

func (t Token) String() string {
	s := fmt.Sprintf("%q(%s)", t.Text, t.Cat)
	if t.Kind != Plain {
		s += "+" + t.Kind.String()
	}
	return s
}

// Join concatenates the source text of toks.
func Join(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Raw)
	}
	return sb.String()
}

// JoinText concatenates the text TeX sees, dropping skipped tokens.
func JoinText(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.IsSkipped() {
			continue
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}
