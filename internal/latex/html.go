package latex

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"latex-parser/internal/tex"
	"latex-parser/internal/tokens"
)

const cssPrefix = "latex-"

const noBreakSpace = "\u00a0"

var inlineTags = map[string]atom.Atom{
	"emph":     atom.Em,
	"textit":   atom.I,
	"textsl":   atom.I,
	"textbf":   atom.B,
	"texttt":   atom.Code,
	"textsc":   atom.Span,
	"textsf":   atom.Span,
	"textrm":   atom.Span,
	"textup":   atom.Span,
	"textmd":   atom.Span,
	"footnote": atom.Small,
}

var blockEnvs = map[string]atom.Atom{
	"quote":     atom.Blockquote,
	"quotation": atom.Blockquote,
	"verse":     atom.Blockquote,
	"figure":    atom.Figure,
	"figure*":   atom.Figure,
	"table":     atom.Figure,
	"table*":    atom.Figure,
}

// htmlWriter turns an element tree into html nodes.
type htmlWriter struct {
	heading *html.Node
}

func elem(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: cssPrefix + class})
	}
	return n
}

func text(parent *html.Node, s string) {
	if s == "" {
		return
	}
	if last := parent.LastChild; last != nil && last.Type == html.TextNode {
		last.Data += s
		return
	}
	parent.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RenderHTML writes e as an HTML fragment: paragraphs, headings, lists and
// tables become their HTML counterparts and formulas are kept as TeX source
// inside spans for a client side renderer.
func RenderHTML(w io.Writer, e tex.Element) error {
	root := elem(atom.Div, "document")
	hw := &htmlWriter{}
	hw.flow(root, children(e), true)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// HTML returns e rendered by RenderHTML.
func HTML(e tex.Element) (string, error) {
	var sb strings.Builder
	if err := RenderHTML(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func children(e tex.Element) []tex.Element {
	if c, ok := e.(interface{ Children() []tex.Element }); ok {
		return c.Children()
	}
	return []tex.Element{e}
}

func isBlock(e tex.Element) bool {
	switch v := e.(type) {
	case *tex.Environment:
		return true
	case *tex.Math:
		return v.Display
	case *tex.Macro:
		_, ok := SectionLevels[v.Name]
		return ok || v.Name == "caption"
	case *tex.Preamble, *tex.Body:
		return true
	}
	return false
}

// flow renders block content into parent. With wrap set, inline runs go
// into <p> elements; otherwise they are added to parent directly.
func (w *htmlWriter) flow(parent *html.Node, els []tex.Element, wrap bool) {
	var p *html.Node
	target := func() *html.Node {
		if !wrap {
			return parent
		}
		if p == nil {
			p = elem(atom.P, "")
			parent.AppendChild(p)
			w.heading = nil
		}
		return p
	}
	for _, c := range els {
		switch v := c.(type) {
		case *tex.Par:
			p = nil
		case *tex.Text:
			if v.IsSpace() && (p == nil && wrap) {
				continue
			}
			w.inline(target(), c)
		case *tex.Preamble:
			w.preamble(parent, v)
		case *tex.Body:
			p = nil
			w.flow(parent, v.Children(), wrap)
		default:
			if isBlock(c) {
				p = nil
				w.block(parent, c)
				continue
			}
			if l, ok := c.(*tex.Leaf); ok && l.IsComment() {
				continue
			}
			if m, ok := c.(*tex.Macro); ok && m.Name == "label" && w.heading != nil && p == nil {
				setAttr(w.heading, "id", m.Args.Text("key"))
				w.heading = nil
				continue
			}
			w.inline(target(), c)
		}
	}
	if wrap {
		prune(parent)
	}
}

// prune drops paragraphs left empty and trims the others.
func prune(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.DataAtom == atom.P {
			trimNode(c)
			if c.FirstChild == nil || (c.FirstChild == c.LastChild && c.FirstChild.Type == html.TextNode && c.FirstChild.Data == "") {
				parent.RemoveChild(c)
			}
		}
		c = next
	}
}

// preamble keeps only the title information.
func (w *htmlWriter) preamble(parent *html.Node, pre *tex.Preamble) {
	for _, m := range tex.GetAll[*tex.Macro](pre) {
		if m.Name != "title" {
			continue
		}
		if data, ok := m.Arg("data"); ok {
			h := elem(atom.H1, "title")
			w.inlineAll(h, children(data))
			parent.AppendChild(h)
		}
	}
}

func (w *htmlWriter) block(parent *html.Node, e tex.Element) {
	w.heading = nil
	switch v := e.(type) {
	case *tex.Macro:
		if v.Name == "caption" {
			w.macro(parent, v)
			return
		}
		level := SectionLevels[v.Name] + 2
		level = max(1, min(level, 6))
		h := elem(atom.Lookup([]byte(fmt.Sprintf("h%d", level))), v.Name)
		if data, ok := v.Arg("data"); ok {
			w.inlineAll(h, children(data))
		}
		parent.AppendChild(h)
		w.heading = h
	case *tex.Math:
		d := elem(atom.Div, "display-math")
		text(d, v.Source())
		parent.AppendChild(d)
	case *tex.Environment:
		w.environment(parent, v)
	}
}

func (w *htmlWriter) environment(parent *html.Node, env *tex.Environment) {
	switch env.Name {
	case "document":
		w.flow(parent, env.Children(), true)
	case "itemize", "enumerate":
		list := elem(atom.Ul, env.Name)
		if env.Name == "enumerate" {
			list = elem(atom.Ol, env.Name)
		}
		for _, it := range env.Items() {
			li := elem(atom.Li, "")
			if label, ok := it.Label(); ok {
				setAttr(li, "data-label", strings.TrimSpace(PlainText(label)))
			}
			w.flow(li, it.Children(), false)
			trimNode(li)
			list.AppendChild(li)
		}
		parent.AppendChild(list)
	case "description", "thebibliography":
		dl := elem(atom.Dl, env.Name)
		for _, it := range env.Items() {
			dt := elem(atom.Dt, "")
			if label, ok := it.Label(); ok {
				w.inlineAll(dt, children(label))
			} else if key := it.Head.Args.Text("key"); key != "" {
				text(dt, key)
				setAttr(dt, "id", key)
			}
			dd := elem(atom.Dd, "")
			w.flow(dd, it.Children(), false)
			trimNode(dd)
			dl.AppendChild(dt)
			dl.AppendChild(dd)
		}
		parent.AppendChild(dl)
	case "tabular", "array":
		table := elem(atom.Table, env.Name)
		for _, row := range env.Rows() {
			if strings.Join(row.Strings(), "") == "" {
				continue
			}
			tr := elem(atom.Tr, "")
			for _, cell := range row.Cells() {
				td := elem(atom.Td, "")
				w.inlineAll(td, cell)
				trimNode(td)
				tr.AppendChild(td)
			}
			table.AppendChild(tr)
		}
		parent.AppendChild(table)
	case "verbatim", "verbatim*":
		pre := elem(atom.Pre, "verbatim")
		text(pre, strings.TrimPrefix(sourceOf(env.Children()), "\n"))
		parent.AppendChild(pre)
	default:
		if MathEnvironments[env.Name] {
			d := elem(atom.Div, "display-math")
			text(d, env.Source())
			parent.AppendChild(d)
			return
		}
		a, ok := blockEnvs[env.Name]
		if !ok {
			a = atom.Div
		}
		div := elem(a, strings.TrimSuffix(env.Name, "*"))
		w.flow(div, env.Children(), true)
		parent.AppendChild(div)
	}
}

func sourceOf(els []tex.Element) string {
	var sb strings.Builder
	for _, e := range els {
		sb.WriteString(e.Source())
	}
	return sb.String()
}

// trimNode strips leading and trailing whitespace from the text children of n.
func trimNode(n *html.Node) {
	if f := n.FirstChild; f != nil && f.Type == html.TextNode {
		f.Data = strings.TrimLeft(f.Data, " \t\n")
	}
	if l := n.LastChild; l != nil && l.Type == html.TextNode {
		l.Data = strings.TrimRight(l.Data, " \t\n")
	}
}

func (w *htmlWriter) inlineAll(parent *html.Node, els []tex.Element) {
	for _, e := range els {
		w.inline(parent, e)
	}
}

func (w *htmlWriter) inline(parent *html.Node, e tex.Element) {
	switch v := e.(type) {
	case *tex.Text:
		text(parent, v.Data)
	case *tex.Leaf:
		switch v.Tok.Cat {
		case tokens.Comment:
		case tokens.Active:
			text(parent, noBreakSpace)
		case tokens.Alignment:
			text(parent, " ")
		default:
			text(parent, v.Raw)
		}
	case *tex.Par:
		parent.AppendChild(elem(atom.Br, ""))
	case *tex.Math:
		span := elem(atom.Span, "math")
		text(span, v.Source())
		parent.AppendChild(span)
	case *tex.Verb:
		code := elem(atom.Code, "verb")
		text(code, v.Data)
		parent.AppendChild(code)
	case *tex.Macro:
		w.macro(parent, v)
	case *tex.Environment:
		w.environment(parent, v)
	default:
		w.inlineAll(parent, children(e))
	}
}

func (w *htmlWriter) macro(parent *html.Node, m *tex.Macro) {
	if s, ok := Letter(m); ok {
		text(parent, s)
		return
	}
	switch m.Name {
	case `\`, "tabularnewline", "newline":
		parent.AppendChild(elem(atom.Br, ""))
		return
	case ",", " ":
		text(parent, " ")
		return
	case "ref", "pageref", "eqref", "autoref", "nameref":
		key := m.Args.Text("key")
		a := elem(atom.A, m.Name)
		setAttr(a, "href", "#"+key)
		text(a, key)
		parent.AppendChild(a)
		return
	case "cite":
		c := elem(atom.Cite, "")
		for i, key := range m.Args.Strings("keys") {
			if i > 0 {
				text(c, ", ")
			}
			a := elem(atom.A, "")
			setAttr(a, "href", "#"+key)
			text(a, key)
			c.AppendChild(a)
		}
		parent.AppendChild(c)
		return
	case "href", "url":
		url := m.Args.Text("url")
		a := elem(atom.A, m.Name)
		setAttr(a, "href", url)
		if data, ok := m.Arg("data"); ok {
			w.inlineAll(a, children(data))
		} else {
			text(a, url)
		}
		parent.AppendChild(a)
		return
	case "includegraphics":
		img := elem(atom.Img, "graphics")
		setAttr(img, "src", m.Args.Text("file"))
		parent.AppendChild(img)
		return
	case "label":
		a := elem(atom.A, "label")
		setAttr(a, "id", m.Args.Text("key"))
		parent.AppendChild(a)
		return
	case "caption":
		fc := elem(atom.Figcaption, "")
		if data, ok := m.Arg("data"); ok {
			w.inlineAll(fc, children(data))
		}
		parent.AppendChild(fc)
		return
	}

	data, ok := m.Arg("data")
	if !ok || tex.IsEmpty(data) {
		return
	}
	if a, ok := inlineTags[m.Name]; ok {
		class := ""
		if a == atom.Span || a == atom.Small {
			class = m.Name
		}
		n := elem(a, class)
		w.inlineAll(n, children(data))
		parent.AppendChild(n)
		return
	}
	w.inlineAll(parent, children(data))
}
