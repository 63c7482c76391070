package tex

import (
	"strings"

	"latex-parser/internal/prevnext"
)

// Container holds an ordered list of child elements. Lead and Trail keep
// whitespace trimmed off the edges of the children so Source stays exact.
type Container struct {
	base
	list  *prevnext.List
	Lead  string
	Trail string
}

func (c *Container) init(self Element, children []Element) {
	c.list = prevnext.New(self)
	c.Add(children...)
}

// Children returns the children in order.
func (c *Container) Children() []Element { return asElements(c.list.Slice()) }

// Len returns the number of children.
func (c *Container) Len() int { return c.list.Len() }

// Child returns the child at position i; negative positions count from the end.
func (c *Container) Child(i int) Element { return asElement(c.list.At(i)) }

// IndexOf returns the position of e among the children, or -1.
func (c *Container) IndexOf(e Element) int { return c.list.Index(e) }

// Add appends elements. A Join is flattened into its children.
func (c *Container) Add(els ...Element) {
	for _, e := range els {
		if e == nil {
			continue
		}
		if j, ok := e.(*Join); ok {
			c.Add(j.Clear()...)
			continue
		}
		c.list.Append(e)
	}
}

// Insert places e before position i.
func (c *Container) Insert(i int, e Element) { c.list.Insert(i, e) }

// Replace puts e at position i and returns the previous child, unlinked.
func (c *Container) Replace(i int, e Element) Element { return asElement(c.list.Set(i, e)) }

// Remove unlinks e. It reports false when e is not a child.
func (c *Container) Remove(e Element) bool { return c.list.Remove(e) }

// Pop removes and returns the child at position i.
func (c *Container) Pop(i int) Element { return asElement(c.list.Pop(i)) }

// Clear unlinks and returns every child.
func (c *Container) Clear() []Element { return asElements(c.list.Clear()) }

// ChildrenSource concatenates the source of the children.
func (c *Container) ChildrenSource() string {
	var sb strings.Builder
	for _, e := range c.list.Slice() {
		sb.WriteString(e.(Element).Source())
	}
	return sb.String()
}

// Source returns the padded source of the children.
func (c *Container) Source() string { return c.Lead + c.ChildrenSource() + c.Trail }

func (c *Container) copyInto(dst *Container, self Element) {
	dst.list = c.list.Copy(func(e prevnext.Element) prevnext.Element { return e.(Element).Copy() })
	dst.list.SetParent(self)
	dst.Lead, dst.Trail = c.Lead, c.Trail
}

// revalueChildren runs pass over every child, replacing or removing them as
// the pass decides.
func (c *Container) revalueChildren(pass string) error {
	for _, e := range c.Children() {
		repl, err := revalue(e, pass)
		if err != nil {
			return err
		}
		switch {
		case repl == nil:
			c.Remove(e)
		case repl != e:
			c.Replace(c.IndexOf(e), repl)
		}
	}
	return nil
}

// revalue applies pass to e and its descendants, children first.
func revalue(e Element, pass string) (Element, error) {
	if v, ok := e.(interface{ arguments() *Arguments }); ok {
		if err := v.arguments().revalue(pass); err != nil {
			return nil, err
		}
	}
	if v, ok := e.(interface{ container() *Container }); ok {
		if err := v.container().revalueChildren(pass); err != nil {
			return nil, err
		}
	}
	if r, ok := e.(Revaluer); ok {
		return r.Revalue(pass)
	}
	return e, nil
}

func (c *Container) container() *Container { return c }

// TrimSpace moves blank children and whitespace at the edges of the outer
// text children into Lead and Trail.
func (c *Container) TrimSpace() {
	for c.Len() > 0 {
		first := c.Child(0)
		if isBlank(first) {
			c.Lead += first.Source()
			c.Pop(0)
			continue
		}
		if t, ok := first.(*Text); ok {
			rest := strings.TrimLeft(t.Data, spaceChars)
			c.Lead += t.Data[:len(t.Data)-len(rest)]
			t.Data = rest
		}
		break
	}
	for c.Len() > 0 {
		last := c.Child(-1)
		if isBlank(last) {
			c.Trail = last.Source() + c.Trail
			c.Pop(-1)
			continue
		}
		if t, ok := last.(*Text); ok {
			rest := strings.TrimRight(t.Data, spaceChars)
			c.Trail = t.Data[len(rest):] + c.Trail
			t.Data = rest
		}
		break
	}
}

// Group is a brace delimited group.
type Group struct {
	Container
	Open, Close string
}

// NewGroup returns a {...} group holding children.
func NewGroup(children ...Element) *Group {
	g := &Group{Open: "{", Close: "}"}
	g.init(g, children)
	return g
}

func (g *Group) Source() string { return g.Open + g.Container.Source() + g.Close }

func (g *Group) Copy() Element {
	cp := &Group{Open: g.Open, Close: g.Close}
	g.copyInto(&cp.Container, cp)
	return cp
}

// Math is an inline ($...$) or display ($$...$$) formula.
type Math struct {
	Container
	Display     bool
	Open, Close string
}

// NewMath returns a formula holding children.
func NewMath(display bool, children ...Element) *Math {
	delim := "$"
	if display {
		delim = "$$"
	}
	m := &Math{Display: display, Open: delim, Close: delim}
	m.init(m, children)
	return m
}

func (m *Math) Source() string { return m.Open + m.Container.Source() + m.Close }

func (m *Math) Copy() Element {
	cp := &Math{Display: m.Display, Open: m.Open, Close: m.Close}
	m.copyInto(&cp.Container, cp)
	return cp
}

// Join is a transient sequence without delimiters. Adding a Join to a
// container adds its children instead.
type Join struct {
	Container
}

// NewJoin returns a join of children.
func NewJoin(children ...Element) *Join {
	j := &Join{}
	j.init(j, children)
	return j
}

func (j *Join) Copy() Element {
	cp := &Join{}
	j.copyInto(&cp.Container, cp)
	return cp
}

// Stream is the flat top level of a parsed source that has no document
// environment.
type Stream struct {
	Container
	ctx *Context
}

// NewStream returns a top-level stream bound to ctx.
func NewStream(ctx *Context, children ...Element) *Stream {
	s := &Stream{ctx: ctx}
	s.init(s, children)
	return s
}

// Context returns the context the stream was parsed with.
func (s *Stream) Context() *Context { return s.ctx }

func (s *Stream) Copy() Element {
	cp := &Stream{ctx: s.ctx}
	s.copyInto(&cp.Container, cp)
	return cp
}

// Revalue trims the whole stream when the finish pass runs.
func (s *Stream) Revalue(pass string) (Element, error) {
	if pass == PassFinish {
		s.TrimSpace()
	}
	return s, nil
}

// Preamble holds everything before \begin{document}.
type Preamble struct {
	Container
}

func (p *Preamble) Copy() Element {
	cp := &Preamble{}
	p.copyInto(&cp.Container, cp)
	return cp
}

// Body holds the content of the document environment.
type Body struct {
	Container
	// Begin and End are the source of \begin{document} and \end{document}.
	Begin, End string
}

func (b *Body) Source() string { return b.Begin + b.Container.Source() + b.End }

func (b *Body) Copy() Element {
	cp := &Body{Begin: b.Begin, End: b.End}
	b.copyInto(&cp.Container, cp)
	return cp
}

// Document is a source with a document environment. Its only children are
// the Preamble and the Body.
type Document struct {
	Container
	ctx *Context
}

func newDocument(ctx *Context, pre *Preamble, body *Body) *Document {
	d := &Document{ctx: ctx}
	d.init(d, []Element{pre, body})
	return d
}

// Context returns the context the document was parsed with.
func (d *Document) Context() *Context { return d.ctx }

// Preamble returns the part before \begin{document}.
func (d *Document) Preamble() *Preamble { return d.Child(0).(*Preamble) }

// Body returns the content of the document environment.
func (d *Document) Body() *Body { return d.Child(1).(*Body) }

func (d *Document) Copy() Element {
	cp := &Document{ctx: d.ctx}
	d.copyInto(&cp.Container, cp)
	return cp
}

// Root is the result of a parse: a Stream or a Document.
type Root interface {
	Element
	Children() []Element
	Context() *Context
}

var (
	_ Root = (*Stream)(nil)
	_ Root = (*Document)(nil)
)
