package tokens

import (
	"fmt"
	"io"

	"latex-parser/internal/errors"
)

// Stream is a pushback capable source of tokens. *Tokenizer and the
// bounded views returned by StoppingBefore, Sized and friends implement it.
type Stream interface {
	// Next returns the next token or io.EOF.
	Next() (Token, error)
	// Push returns tokens to the stream; toks[0] is read first.
	Push(toks ...Token)
	// Pos returns the position of the next token.
	Pos() errors.Pos
	// Base returns the underlying tokenizer.
	Base() *Tokenizer
}

// Peek returns the next token without consuming it.
func Peek(s Stream) (Token, error) {
	tok, err := s.Next()
	if err != nil {
		return Token{}, err
	}
	s.Push(tok)
	return tok, nil
}

// All reads s to the end.
func All(s Stream) ([]Token, error) {
	var out []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}

// AllTokens reads s to the end and pushes everything back.
func AllTokens(s Stream) ([]Token, error) {
	toks, err := All(s)
	s.Push(toks...)
	return toks, err
}

// PosOf returns the position of tok, falling back to the stream position
// for synthetic tokens.
func PosOf(s Stream, tok Token) errors.Pos {
	if tok.Offset >= 0 {
		return errors.PosAt(s.Base().Source(), tok.Offset)
	}
	return s.Pos()
}

// Expect reads one token of category cat.
func Expect(s Stream, cat Category) (Token, error) {
	return expect(s, cat.String(), func(t Token) bool { return t.Cat == cat })
}

// ExpectText reads one token with the given text and a non-skipped category.
func ExpectText(s Stream, text string) (Token, error) {
	return expect(s, fmt.Sprintf("%q", text), func(t Token) bool { return t.Text == text && !t.IsSkipped() })
}

// ExpectMacro reads the escape token for name.
func ExpectMacro(s Stream, name string) (Token, error) {
	return expect(s, `\`+name, func(t Token) bool { return t.IsMacro(name) })
}

func expect(s Stream, desc string, ok func(Token) bool) (Token, error) {
	pos := s.Pos()
	tok, err := s.Next()
	if err == io.EOF {
		return Token{}, errors.MissingToken(desc, "", pos)
	}
	if err != nil {
		return Token{}, err
	}
	if !ok(tok) {
		return tok, errors.MissingToken(desc, tok.Text, PosOf(s, tok))
	}
	return tok, nil
}

// SkipWhitespace consumes spaces, line ends and skipped markers and returns
// them so callers can keep their source text.
func SkipWhitespace(s Stream) ([]Token, error) {
	var skipped []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			return skipped, err
		}
		if !tok.IsSpace() {
			s.Push(tok)
			return skipped, nil
		}
		skipped = append(skipped, tok)
	}
}

// bounded is a view of a parent stream that ends before a boundary token.
// The boundary token is pushed back to the parent, so the parent is left
// positioned exactly at it.
type bounded struct {
	parent Stream
	// stop is called for each token read; true ends the view
	stop func(Token) bool
	// unread undoes bookkeeping for tokens pushed back through the view
	unread func(Token)
	// dry is returned when the parent ends first; nil means io.EOF
	dry func(pos errors.Pos) error
}

func (b *bounded) Next() (Token, error) {
	pos := b.parent.Pos()
	tok, err := b.parent.Next()
	if err == io.EOF && b.dry != nil {
		return Token{}, b.dry(pos)
	}
	if err != nil {
		return Token{}, err
	}
	if b.stop(tok) {
		b.parent.Push(tok)
		return Token{}, io.EOF
	}
	return tok, nil
}

func (b *bounded) Push(toks ...Token) {
	if b.unread != nil {
		for i := len(toks) - 1; i >= 0; i-- {
			b.unread(toks[i])
		}
	}
	b.parent.Push(toks...)
}

func (b *bounded) Pos() errors.Pos  { return b.parent.Pos() }
func (b *bounded) Base() *Tokenizer { return b.parent.Base() }

// StoppingBefore ends before the first token for which boundary returns true.
func StoppingBefore(s Stream, boundary func(Token) bool) Stream {
	return &bounded{parent: s, stop: boundary}
}

// StoppingBeforeCat ends before the first token of category cat.
func StoppingBeforeCat(s Stream, cat Category) Stream {
	return StoppingBefore(s, func(t Token) bool { return t.Cat == cat })
}

// StoppingBeforeText ends before the first non-skipped token with the given text.
func StoppingBeforeText(s Stream, text string) Stream {
	return StoppingBefore(s, func(t Token) bool { return t.Text == text && !t.IsSkipped() })
}

// StoppingBeforeMacro ends before the escape token for name. Matching is by
// name only, not by nesting.
func StoppingBeforeMacro(s Stream, name string) Stream {
	return StoppingBefore(s, func(t Token) bool { return t.IsMacro(name) })
}

// WhileMatching reads tokens as long as match returns true.
func WhileMatching(s Stream, match func(Token) bool) Stream {
	return StoppingBefore(s, func(t Token) bool { return !match(t) })
}

// Sized reads at most n tokens.
func Sized(s Stream, n int) Stream {
	count := 0
	return &bounded{
		parent: s,
		stop: func(Token) bool {
			if count >= n {
				return true
			}
			count++
			return false
		},
		unread: func(Token) { count-- },
	}
}

// UntilBalancedGroup reads until an unmatched end-group token, which is left
// unread. Running out of input first is a syntax error naming "}".
func UntilBalancedGroup(s Stream) Stream {
	depth := 0
	return &bounded{
		parent: s,
		stop: func(t Token) bool {
			switch t.Cat {
			case EGroup:
				if depth == 0 {
					return true
				}
				depth--
			case BGroup:
				depth++
			}
			return false
		},
		unread: func(t Token) {
			switch t.Cat {
			case EGroup:
				depth++
			case BGroup:
				depth--
			}
		},
		dry: func(pos errors.Pos) error {
			return errors.MissingToken(`"}"`, "", pos)
		},
	}
}

// UntilClosing reads until an unmatched close token at brace depth zero.
// Nested open/close pairs and anything inside braces are part of the view.
// Unlike UntilBalancedGroup, running dry is a plain io.EOF.
func UntilClosing(s Stream, open, close string) Stream {
	braces, nest := 0, 0
	return &bounded{
		parent: s,
		stop: func(t Token) bool {
			switch {
			case t.Cat == BGroup:
				braces++
			case t.Cat == EGroup:
				braces--
			case braces > 0 || t.IsSkipped():
			case t.Text == close:
				if nest == 0 {
					return true
				}
				nest--
			case t.Text == open:
				nest++
			}
			return false
		},
		unread: func(t Token) {
			switch {
			case t.Cat == BGroup:
				braces--
			case t.Cat == EGroup:
				braces++
			case braces > 0 || t.IsSkipped():
			case t.Text == close:
				nest++
			case t.Text == open:
				nest--
			}
		},
	}
}
