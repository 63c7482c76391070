// Package tex turns a token stream into an editable element tree.
//
// A Job reads tokens from an internal/tokens stream, resolves control
// sequences through a Context, reads macro arguments as declared by their
// Argspec and builds elements (text, groups, math, macros, environments)
// stored in prevnext lists. Every element reproduces its exact source text,
// so an unmodified tree serializes back to the input byte for byte.
//
// The package itself knows no macros. A catalog registers them, usually by
// importing latex-parser/internal/latex for its side effects; without one,
// \begin and \end are read as plain macros.
package tex

import (
	"strconv"
	"strings"

	"latex-parser/internal/prevnext"
	"latex-parser/internal/tokens"
)

// Element is any parsed construct. Elements are pointers; an element is
// linked to at most one list of siblings at a time.
type Element interface {
	prevnext.Element
	// Source returns the exact source text of the element.
	Source() string
	// Copy returns a deep copy that is not linked to any list.
	Copy() Element
	// Unlink removes the element from its list, if any.
	Unlink()
}

// Revaluer is implemented by elements that transform themselves during a
// named pass over the tree. Returning nil removes the element.
type Revaluer interface {
	Revalue(pass string) (Element, error)
}

// PassFinish runs once after parsing.
const PassFinish = "finish"

func asElement(e prevnext.Element) Element {
	if e == nil {
		return nil
	}
	return e.(Element)
}

func asElements(items []prevnext.Element) []Element {
	out := make([]Element, len(items))
	for i, e := range items {
		out[i] = e.(Element)
	}
	return out
}

// base links an element into its list of siblings.
type base struct {
	prevnext.Node
}

// Next returns the following sibling, or nil.
func (b *base) Next() Element { return asElement(b.Node.Next()) }

// Prev returns the preceding sibling, or nil.
func (b *base) Prev() Element { return asElement(b.Node.Prev()) }

// Parent returns the element owning the list of siblings, or nil.
func (b *base) Parent() Element { return asElement(b.Node.Parent()) }

// SiblingsNext returns the siblings after the element.
func (b *base) SiblingsNext() []Element { return asElements(b.Node.SiblingsNext()) }

// SiblingsPrev returns the siblings before the element.
func (b *base) SiblingsPrev() []Element { return asElements(b.Node.SiblingsPrev()) }

// RootOf walks up the parents of e.
func RootOf(e Element) Element {
	for {
		p := asElement(parentOf(e))
		if p == nil {
			return e
		}
		e = p
	}
}

func parentOf(e Element) prevnext.Element {
	type parented interface{ Parent() Element }
	if p, ok := e.(parented); ok {
		if par := p.Parent(); par != nil {
			return par
		}
	}
	return nil
}

// Text is a run of letters, other characters and spaces. Data holds the
// exact source, including whitespace TeX skips.
type Text struct {
	base
	Data string
}

// NewText returns an unlinked text element.
func NewText(data string) *Text { return &Text{Data: data} }

func (t *Text) Source() string { return t.Data }
func (t *Text) Copy() Element  { return &Text{Data: t.Data} }
func (t *Text) String() string { return t.Data }

// IsSpace reports whether the text is only whitespace.
func (t *Text) IsSpace() bool { return strings.TrimLeft(t.Data, spaceChars) == "" }

// Leaf wraps a single token that has no structure of its own: alignment
// tabs, parameters, super and subscripts, active characters, comments and
// ignored characters.
type Leaf struct {
	base
	Tok tokens.Token
	// Raw is the source text; it may be wider than Tok when the leaf was
	// read as a token-typed argument.
	Raw string
}

// NewLeaf returns an unlinked leaf for tok.
func NewLeaf(tok tokens.Token) *Leaf { return &Leaf{Tok: tok, Raw: tok.Raw} }

func (l *Leaf) Source() string { return l.Raw }
func (l *Leaf) Copy() Element  { return &Leaf{Tok: l.Tok, Raw: l.Raw} }

// SetToken replaces the token and its source text.
func (l *Leaf) SetToken(tok tokens.Token) {
	l.Tok = tok
	l.Raw = tok.Raw
}

// IsComment reports whether the leaf is a comment.
func (l *Leaf) IsComment() bool { return l.Tok.Cat == tokens.Comment }

// EmptyArg stands for an argument that was not given.
type EmptyArg struct {
	base
}

func (e *EmptyArg) Source() string { return "" }
func (e *EmptyArg) Copy() Element  { return &EmptyArg{} }

// IsEmpty reports whether e is nil or an EmptyArg.
func IsEmpty(e Element) bool {
	if e == nil {
		return true
	}
	_, ok := e.(*EmptyArg)
	return ok
}

// Par is a paragraph break: an empty line, an explicit \par, or a run of them.
type Par struct {
	base
	Raw string
}

// NewPar returns a paragraph break written as an empty line.
func NewPar() *Par { return &Par{Raw: "\n\n"} }

func (p *Par) Source() string { return p.Raw }
func (p *Par) Copy() Element  { return &Par{Raw: p.Raw} }

// Integer is an integer-typed argument value.
type Integer struct {
	base
	Value int
	raw   string
}

// NewInteger returns an integer element written in decimal.
func NewInteger(v int) *Integer { return &Integer{Value: v, raw: strconv.Itoa(v)} }

func (n *Integer) Source() string {
	if v, err := strconv.Atoi(strings.TrimSpace(n.raw)); err == nil && v == n.Value {
		return n.raw
	}
	return strconv.Itoa(n.Value)
}

func (n *Integer) Copy() Element { return &Integer{Value: n.Value, raw: n.raw} }

const spaceChars = " \t\r\n\f"

// isBlank reports whether e only contributes whitespace or paragraph breaks.
func isBlank(e Element) bool {
	switch v := e.(type) {
	case *Text:
		return v.IsSpace()
	case *Par:
		return true
	}
	return false
}
