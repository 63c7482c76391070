package tex

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Subitems returns the elements directly below e: argument values first,
// then children. Items also yield their \item macro.
func Subitems(e Element) []Element {
	var out []Element
	if it, ok := e.(*Item); ok && it.Head != nil {
		out = append(out, it.Head)
	}
	if v, ok := e.(interface{ arguments() *Arguments }); ok {
		for _, a := range v.arguments().Values() {
			if !IsEmpty(a) {
				out = append(out, a)
			}
		}
	}
	if v, ok := e.(interface{ container() *Container }); ok {
		out = append(out, v.container().Children()...)
	}
	return out
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the descendants of the element just visited.
func Walk(e Element, fn func(Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range Subitems(e) {
		Walk(c, fn)
	}
}

// Find returns every descendant of root, root included, of type T that
// satisfies match. A nil match accepts everything.
func Find[T Element](root Element, match func(T) bool) []T {
	var out []T
	Walk(root, func(e Element) bool {
		if v, ok := e.(T); ok && (match == nil || match(v)) {
			out = append(out, v)
		}
		return true
	})
	return out
}

// Get returns the first direct child of c of type T.
func Get[T Element](c interface{ Children() []Element }) (T, bool) {
	for _, e := range c.Children() {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// GetAll returns every direct child of c of type T.
func GetAll[T Element](c interface{ Children() []Element }) []T {
	var out []T
	for _, e := range c.Children() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// FindMacros returns every macro named name below root.
func FindMacros(root Element, name string) []*Macro {
	return Find(root, func(m *Macro) bool { return m.Name == name })
}

// FindEnvironments returns every environment named name below root.
func FindEnvironments(root Element, name string) []*Environment {
	return Find(root, func(e *Environment) bool { return e.Name == name })
}

// Revalue runs a named pass over root and its descendants, children first.
// A nil result means root removed itself.
func Revalue(root Element, pass string) (Element, error) {
	return revalue(root, pass)
}

// Dump renders the tree below e, one element per line.
func Dump(e Element) string {
	var sb strings.Builder
	dump(&sb, e, 0)
	return sb.String()
}

func dump(sb *strings.Builder, e Element, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(Label(e))
	sb.WriteByte('\n')
	for _, c := range Subitems(e) {
		dump(sb, c, depth+1)
	}
}

// Label is a one-line description of e.
func Label(e Element) string {
	switch v := e.(type) {
	case *Text:
		return fmt.Sprintf("Text %q", v.Data)
	case *Leaf:
		return fmt.Sprintf("%s %q", cases.Title(language.English).String(v.Tok.Cat.String()), v.Raw)
	case *Par:
		return "Par"
	case *Macro:
		return `Macro \` + v.Name
	case *Verb:
		return fmt.Sprintf("Verb %q", v.Data)
	case *Environment:
		return "Environment " + v.Name
	case *Item:
		return "Item"
	case *Row:
		return "Row"
	case *Group:
		return "Group"
	case *Math:
		if v.Display {
			return "DisplayMath"
		}
		return "Math"
	case *Dict:
		return fmt.Sprintf("Dict %v", v.Map())
	case *List:
		return fmt.Sprintf("List %q", v.Items())
	case *Integer:
		return fmt.Sprintf("Integer %d", v.Value)
	case *EmptyArg:
		return "EmptyArg"
	case *Join:
		return "Join"
	case *Stream:
		return "Stream"
	case *Document:
		return "Document"
	case *Preamble:
		return "Preamble"
	case *Body:
		return "Body"
	}
	return fmt.Sprintf("%T", e)
}
