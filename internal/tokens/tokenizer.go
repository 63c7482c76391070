package tokens

import (
	"io"
	"strings"
	"unicode/utf8"

	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
)

type scanState uint8

const (
	stateNewLine scanState = iota
	stateMiddle
	stateSkipping
)

// Tokenizer reads tokens from a source string. Tokens pushed back are
// returned before any new source is scanned, most recently pushed first.
// Next returns io.EOF when both are exhausted.
type Tokenizer struct {
	src      string
	pos      int
	table    *Table
	pushback []Token
	state    scanState
	err      error
	trace    bool
}

// Option configures a Tokenizer
type Option func(*Tokenizer)

// WithTable sets the category table. The table is not copied.
func WithTable(t *Table) Option {
	return func(tk *Tokenizer) { tk.table = t }
}

// WithTrace logs every scanned token at debug level.
func WithTrace(on bool) Option {
	return func(tk *Tokenizer) { tk.trace = on }
}

// NewTokenizer returns a tokenizer over source using the default table.
func NewTokenizer(source string, opts ...Option) *Tokenizer {
	t := &Tokenizer{src: source, state: stateNewLine}
	for _, opt := range opts {
		opt(t)
	}
	if t.table == nil {
		t.table = DefaultTable()
	}
	return t
}

// FromTokens returns a tokenizer that yields toks and then ends.
func FromTokens(toks []Token, opts ...Option) *Tokenizer {
	t := NewTokenizer("", opts...)
	t.Push(toks...)
	return t
}

// Tokenize scans the whole source.
func Tokenize(source string, opts ...Option) ([]Token, error) {
	return All(NewTokenizer(source, opts...))
}

// Source returns the text being scanned.
func (t *Tokenizer) Source() string { return t.src }

// Table returns the category table in use.
func (t *Tokenizer) Table() *Table { return t.table }

// SetTable replaces the category table for characters not yet scanned.
func (t *Tokenizer) SetTable(tbl *Table) { t.table = tbl }

// Base returns t itself.
func (t *Tokenizer) Base() *Tokenizer { return t }

// Offset returns the byte offset of the next unread source character.
func (t *Tokenizer) Offset() int { return t.pos }

// Pos returns the position of the next token.
func (t *Tokenizer) Pos() errors.Pos {
	if n := len(t.pushback); n > 0 && t.pushback[n-1].Offset >= 0 {
		return errors.PosAt(t.src, t.pushback[n-1].Offset)
	}
	return errors.PosAt(t.src, t.pos)
}

// Line returns the 1-based line of the next token.
func (t *Tokenizer) Line() int { return t.Pos().Line }

// Column returns the 1-based column of the next token.
func (t *Tokenizer) Column() int { return t.Pos().Column }

// Push returns tokens to the stream; toks[0] is read first.
func (t *Tokenizer) Push(toks ...Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		t.pushback = append(t.pushback, toks[i])
	}
}

// Next returns the next token, io.EOF at the end of input, or a
// *errors.LexicalError. Lexical errors are sticky.
func (t *Tokenizer) Next() (Token, error) {
	if n := len(t.pushback); n > 0 {
		tok := t.pushback[n-1]
		t.pushback = t.pushback[:n-1]
		return tok, nil
	}
	if t.err != nil {
		return Token{}, t.err
	}
	tok, err := t.scan()
	if err != nil {
		if err != io.EOF {
			t.err = err
		}
		return Token{}, err
	}
	if t.trace {
		logger.Debug("token", logger.String("token", tok.String()), logger.Int("offset", tok.Offset))
	}
	return tok, nil
}

// readChar decodes the character at offset i. A caret pair followed by an
// ASCII character (^^M, ^^@, ...) is decoded into a single character.
func (t *Tokenizer) readChar(i int) (rune, int) {
	r, size := utf8.DecodeRuneInString(t.src[i:])
	if t.table.Lookup(r) == Super && i+2 < len(t.src) && rune(t.src[i+1]) == r && t.src[i+2] < utf8.RuneSelf {
		n := t.src[i+2]
		if n >= 64 {
			return rune(n - 64), 3
		}
		return rune(n + 64), 3
	}
	return r, size
}

func (t *Tokenizer) scan() (Token, error) {
	if t.pos >= len(t.src) {
		return Token{}, io.EOF
	}

	start := t.pos
	r, size := t.readChar(start)
	cat := t.table.Lookup(r)
	t.pos += size
	raw := t.src[start:t.pos]

	switch cat {
	case Letter, Other:
		t.state = stateMiddle
		return Token{Text: string(r), Raw: raw, Cat: cat, Offset: start}, nil

	case Escape:
		if t.pos >= len(t.src) {
			return Token{}, errors.NewEOF("the name of a control sequence", errors.PosAt(t.src, start))
		}
		r2, size2 := t.readChar(t.pos)
		t.pos += size2
		var name strings.Builder
		name.WriteRune(r2)
		switch t.table.Lookup(r2) {
		case Letter:
			for t.pos < len(t.src) {
				r3, size3 := t.readChar(t.pos)
				if t.table.Lookup(r3) != Letter {
					break
				}
				name.WriteRune(r3)
				t.pos += size3
			}
			t.state = stateSkipping
		case Space:
			t.state = stateSkipping
		default:
			t.state = stateMiddle
		}
		return Token{Text: string(r) + name.String(), Raw: t.src[start:t.pos], Cat: Escape, Offset: start}, nil

	case EOL:
		switch t.state {
		case stateNewLine:
			return Token{Text: `\par`, Raw: raw, Cat: Escape, Kind: ParBreak, Offset: start}, nil
		case stateMiddle:
			t.state = stateNewLine
			t.pushback = append(t.pushback, Token{Text: raw, Raw: raw, Cat: Skipped, Kind: SkippedNewline, Offset: start})
			return Token{Text: " ", Cat: Space, Kind: ExtraSpace, Offset: start}, nil
		default:
			t.state = stateNewLine
			return Token{Text: raw, Raw: raw, Cat: Skipped, Kind: SkippedNewline, Offset: start}, nil
		}

	case Parameter:
		t.state = stateMiddle
		if t.pos < len(t.src) {
			r2, size2 := t.readChar(t.pos)
			if (r2 >= '0' && r2 <= '9') || r2 == r {
				t.pos += size2
				return Token{Text: string(r) + string(r2), Raw: t.src[start:t.pos], Cat: Parameter, Offset: start}, nil
			}
		}
		return Token{Text: string(r), Raw: raw, Cat: Other, Offset: start}, nil

	case Space:
		if t.state == stateMiddle {
			t.state = stateSkipping
			return Token{Text: " ", Raw: raw, Cat: Space, Offset: start}, nil
		}
		return Token{Text: raw, Raw: raw, Cat: Skipped, Kind: SkippedSpace, Offset: start}, nil

	case Comment:
		for t.pos < len(t.src) {
			r2, size2 := t.readChar(t.pos)
			t.pos += size2
			if t.table.Lookup(r2) == EOL {
				t.state = stateNewLine
				break
			}
		}
		return Token{Text: t.src[start:t.pos], Raw: t.src[start:t.pos], Cat: Comment, Offset: start}, nil

	case Invalid:
		return Token{}, errors.NewInvalidChar(r, errors.PosAt(t.src, start))

	case Ignored:
		return Token{Text: string(r), Raw: raw, Cat: Ignored, Offset: start}, nil

	default:
		t.state = stateMiddle
		return Token{Text: string(r), Raw: raw, Cat: cat, Offset: start}, nil
	}
}

// HasPrefix reports whether the unread source starts with s. Pushed back
// tokens are not consulted.
func (t *Tokenizer) HasPrefix(s string) bool {
	return strings.HasPrefix(t.src[t.pos:], s)
}

// Skip advances the source cursor by n bytes.
func (t *Tokenizer) Skip(n int) {
	t.pos += n
	if t.pos > len(t.src) {
		t.pos = len(t.src)
	}
}

// ReadVerbatim returns the raw text up to stop and consumes stop. Pushed
// back tokens are part of the text. An empty stop reads to the end of the
// source. A missing stop string is an EOF error.
func (t *Tokenizer) ReadVerbatim(stop string) (string, error) {
	t.rewind()
	defer func() { t.state = stateMiddle }()

	var buffer strings.Builder
	for i := len(t.pushback) - 1; i >= 0; i-- {
		buffer.WriteString(t.pushback[i].Raw)
	}
	buf := buffer.String()

	if stop == "" {
		t.pushback = t.pushback[:0]
		data := buf + t.src[t.pos:]
		t.pos = len(t.src)
		return data, nil
	}

	// stop entirely inside the pushed back text: re-scan what follows it
	if idx := strings.Index(buf, stop); idx >= 0 {
		t.pushback = t.pushback[:0]
		post := buf[idx+len(stop):]
		if post != "" {
			rest, err := Tokenize(post, WithTable(t.table))
			if err != nil {
				return "", err
			}
			for i := range rest {
				rest[i].Offset = -1
			}
			t.Push(rest...)
		}
		return buf[:idx], nil
	}

	// stop straddling pushed back text and source
	for k := len(stop) - 1; k >= 1; k-- {
		if strings.HasSuffix(buf, stop[:k]) && strings.HasPrefix(t.src[t.pos:], stop[k:]) {
			t.pushback = t.pushback[:0]
			t.pos += len(stop) - k
			return buf[:len(buf)-k], nil
		}
	}

	idx := strings.Index(t.src[t.pos:], stop)
	if idx < 0 {
		return "", errors.NewEOF(`verbatim terminator "`+stop+`"`, errors.PosAt(t.src, t.pos))
	}
	t.pushback = t.pushback[:0]
	data := t.src[t.pos : t.pos+idx]
	t.pos += idx + len(stop)
	return buf + data, nil
}

// rewind moves the cursor back over pushed back tokens when they are a
// contiguous run of source text ending at the cursor, so verbatim reads can
// scan the raw source.
func (t *Tokenizer) rewind() {
	n := len(t.pushback)
	if n == 0 {
		return
	}
	end := t.pos
	for i := 0; i < n; i++ {
		tok := t.pushback[i]
		if tok.Offset < 0 || tok.Offset+len(tok.Raw) != end {
			return
		}
		end = tok.Offset
	}
	t.pos = end
	t.pushback = t.pushback[:0]
}
