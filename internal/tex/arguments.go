package tex

import (
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/prevnext"
)

// slot keeps the source around one argument value.
type slot struct {
	lead        string
	open, close string
}

// Arguments maps argument names to values in declaration order. Values are
// linked into a list owned by the macro or environment, so their Parent is
// the owner. Absent arguments hold an *EmptyArg.
type Arguments struct {
	spec  *Argspec
	list  *prevnext.List
	slots []slot
}

func newArguments(spec *Argspec, owner Element) *Arguments {
	a := &Arguments{spec: spec, slots: make([]slot, spec.Len())}
	a.list = prevnext.New(owner)
	for range a.slots {
		a.list.Append(&EmptyArg{})
	}
	return a
}

// Spec returns the declaration the arguments were read with.
func (a *Arguments) Spec() *Argspec { return a.spec }

// Len returns the number of declared arguments.
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	return a.list.Len()
}

// Names returns the argument names in order.
func (a *Arguments) Names() []string { return a.spec.Names() }

// Values returns the argument values in order.
func (a *Arguments) Values() []Element {
	if a == nil {
		return nil
	}
	return asElements(a.list.Slice())
}

// At returns the value at position i.
func (a *Arguments) At(i int) Element { return asElement(a.list.At(i)) }

// Get returns the named value. The boolean is false for undeclared names;
// absent arguments return an *EmptyArg.
func (a *Arguments) Get(name string) (Element, bool) {
	if a == nil {
		return nil, false
	}
	i := a.spec.index(name)
	if i < 0 {
		return nil, false
	}
	return a.At(i), true
}

// Has reports whether the named argument was given.
func (a *Arguments) Has(name string) bool {
	v, ok := a.Get(name)
	return ok && !IsEmpty(v)
}

// Set replaces the named value. Arguments that had no delimiters get the
// declared ones, except tok arguments which are written bare.
func (a *Arguments) Set(name string, v Element) error {
	i := a.spec.index(name)
	if i < 0 {
		return &errors.ArgumentError{Arg: name, Message: "no such argument in " + a.spec.String()}
	}
	if v == nil {
		v = &EmptyArg{}
	}
	atom := a.spec.atoms[i]
	sl := &a.slots[i]
	if sl.open == "" && atom.Type != TypeTok {
		sl.open, sl.close = atom.grouping()
	}
	a.list.Set(i, v)
	return nil
}

// SetText replaces the named value by a text element.
func (a *Arguments) SetText(name, s string) error { return a.Set(name, NewText(s)) }

// Delete resets the named argument to absent.
func (a *Arguments) Delete(name string) error { return a.Set(name, nil) }

// Text returns the source inside the delimiters of the named argument.
func (a *Arguments) Text(name string) string {
	v, ok := a.Get(name)
	if !ok {
		return ""
	}
	return v.Source()
}

// Dict returns a dict-typed argument.
func (a *Arguments) Dict(name string) (*Dict, bool) {
	v, _ := a.Get(name)
	d, ok := v.(*Dict)
	return d, ok
}

// List returns a list-typed argument.
func (a *Arguments) List(name string) (*List, bool) {
	v, _ := a.Get(name)
	l, ok := v.(*List)
	return l, ok
}

// Strings splits the named argument at commas, whatever its type.
func (a *Arguments) Strings(name string) []string {
	if l, ok := a.List(name); ok {
		return l.Items()
	}
	return ParseList(a.Text(name)).Items()
}

// Int returns an int-typed argument.
func (a *Arguments) Int(name string) (int, bool) {
	v, _ := a.Get(name)
	n, ok := v.(*Integer)
	if !ok {
		return 0, false
	}
	return n.Value, true
}

// Source writes every given argument with its delimiters.
func (a *Arguments) Source() string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	for i, e := range a.list.Slice() {
		v := e.(Element)
		if IsEmpty(v) {
			if atom := a.spec.atoms[i]; !atom.Optional() {
				logger.Warn("empty required argument", logger.String("arg", atom.Name), logger.String("argspec", a.spec.String()))
			}
			continue
		}
		sl := a.slots[i]
		sb.WriteString(sl.lead)
		sb.WriteString(sl.open)
		sb.WriteString(v.Source())
		sb.WriteString(sl.close)
	}
	return sb.String()
}

func (a *Arguments) copyFor(owner Element) *Arguments {
	if a == nil {
		return nil
	}
	cp := &Arguments{spec: a.spec, slots: append([]slot(nil), a.slots...)}
	cp.list = a.list.Copy(func(e prevnext.Element) prevnext.Element { return e.(Element).Copy() })
	cp.list.SetParent(owner)
	return cp
}

func (a *Arguments) revalue(pass string) error {
	if a == nil {
		return nil
	}
	for i, v := range a.Values() {
		repl, err := revalue(v, pass)
		if err != nil {
			return err
		}
		if repl == nil {
			repl = &EmptyArg{}
		}
		if repl != v {
			a.list.Set(i, repl)
		}
	}
	return nil
}
