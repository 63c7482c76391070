package tex

import (
	"io"
	"strings"
	"unicode/utf8"

	"latex-parser/internal/errors"
	"latex-parser/internal/tokens"
)

// Invoker reads a macro and its arguments from the stream, starting at the
// macro's own escape token. Returning a nil element is allowed; the job then
// moves on to the next token, which is how macros rewrite the stream.
type Invoker interface {
	Invoke(job *Job, s tokens.Stream, def *MacroDef) (Element, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(job *Job, s tokens.Stream, def *MacroDef) (Element, error)

func (f InvokerFunc) Invoke(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	return f(job, s, def)
}

// Expander turns an invoked macro into its replacement. Expanders may push
// tokens back to the stream and return nil.
type Expander interface {
	Expand(job *Job, s tokens.Stream, m *Macro) (Element, error)
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(job *Job, s tokens.Stream, m *Macro) (Element, error)

func (f ExpanderFunc) Expand(job *Job, s tokens.Stream, m *Macro) (Element, error) {
	return f(job, s, m)
}

// MacroDef describes a control sequence: its name, its arguments and how it
// is read. The zero Invoker reads the macro name followed by Args.
type MacroDef struct {
	Name string
	Args *Argspec
	// Doc is shown by the command line help.
	Doc string
	// ForceExpand runs Expander right after the macro is read.
	ForceExpand bool
	Invoker     Invoker
	Expander    Expander
	// Env is set for the begin (\name) and end (\endname) macros of an
	// environment.
	Env *EnvDef
	// Generic marks definitions made up for unknown names.
	Generic bool
}

// NewMacro returns a definition for name reading the arguments in decl.
func NewMacro(name, decl string) (*MacroDef, error) {
	spec, err := ParseArgspec(decl)
	if err != nil {
		return nil, err
	}
	return &MacroDef{Name: name, Args: spec}, nil
}

// Command is like NewMacro but panics on a malformed declaration.
func Command(name, decl string) *MacroDef {
	return &MacroDef{Name: name, Args: MustArgspec(decl)}
}

// WithInvoker sets a custom reader.
func (d *MacroDef) WithInvoker(inv Invoker) *MacroDef {
	d.Invoker = inv
	return d
}

// WithExpander sets the expansion run right after the macro is read.
func (d *MacroDef) WithExpander(exp Expander) *MacroDef {
	d.Expander = exp
	d.ForceExpand = true
	return d
}

// WithDoc sets the help text.
func (d *MacroDef) WithDoc(doc string) *MacroDef {
	d.Doc = doc
	return d
}

// IsEnvironment reports whether d begins or ends an environment.
func (d *MacroDef) IsEnvironment() bool { return d.Env != nil }

func (d *MacroDef) invoke(job *Job, s tokens.Stream) (Element, error) {
	var (
		el  Element
		err error
	)
	if d.Invoker != nil {
		el, err = d.Invoker.Invoke(job, s, d)
	} else {
		el, err = readMacro(job, s, d)
	}
	if err != nil || el == nil {
		return nil, err
	}
	if d.ForceExpand && d.Expander != nil {
		if m, ok := el.(*Macro); ok {
			return d.Expander.Expand(job, s, m)
		}
	}
	return el, nil
}

// readMacro is the default invoker: the name, the declared arguments and
// any whitespace TeX skips after them.
func readMacro(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	m := &Macro{Name: def.Name, Raw: tok.Raw, Def: def}
	if m.Args, err = def.Args.Invoke(job, s, def.Name, m); err != nil {
		return nil, errors.At(err, tokens.PosOf(s, tok))
	}
	if m.Gap, err = skippedRun(s); err != nil {
		return nil, err
	}
	return m, nil
}

// skippedRun consumes skipped whitespace markers and returns their source.
func skippedRun(s tokens.Stream) (string, error) {
	var sb strings.Builder
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if !tok.IsSkipped() {
			s.Push(tok)
			return sb.String(), nil
		}
		sb.WriteString(tok.Raw)
	}
}

// Macro is an invoked control sequence with its arguments.
type Macro struct {
	base
	Name string
	// Raw is the source of the control sequence, e.g. `\textbf`.
	Raw  string
	Args *Arguments
	// Gap is source text after the arguments that TeX ignores.
	Gap string
	Def *MacroDef
}

// NewMacroElement returns an unlinked macro for def with empty arguments.
func NewMacroElement(def *MacroDef) *Macro {
	m := &Macro{Name: def.Name, Raw: `\` + def.Name, Def: def}
	m.Args = newArguments(def.Args, m)
	return m
}

func (m *Macro) arguments() *Arguments { return m.Args }

// Arg returns the named argument value.
func (m *Macro) Arg(name string) (Element, bool) { return m.Args.Get(name) }

// Source writes the control sequence, its arguments and the ignored gap. A
// control word directly followed by a letter gets a separating space.
func (m *Macro) Source() string {
	args := m.Args.Source()
	if args == "" && m.Gap == "" {
		if t, ok := m.Next().(*Text); ok && m.needsSpace(t.Data) {
			return m.Raw + " "
		}
		return m.Raw
	}
	out := m.Raw
	if m.needsSpace(args) {
		out += " "
	}
	return out + args + m.Gap
}

var defaultCatcodes = tokens.DefaultTable()

// catcodes returns the category table of the tree m belongs to.
func (m *Macro) catcodes() *tokens.Table {
	if r, ok := RootOf(m).(interface{ Context() *Context }); ok {
		if ctx := r.Context(); ctx != nil && ctx.Catcodes() != nil {
			return ctx.Catcodes()
		}
	}
	return defaultCatcodes
}

// needsSpace reports whether after would be read as part of the control
// word m.Raw.
func (m *Macro) needsSpace(after string) bool {
	if after == "" || len(m.Raw) < 2 || m.Raw[0] != '\\' {
		return false
	}
	table := m.catcodes()
	last, _ := utf8.DecodeLastRuneInString(m.Raw)
	if table.Lookup(last) != tokens.Letter {
		return false
	}
	r, _ := utf8.DecodeRuneInString(after)
	return table.Lookup(r) == tokens.Letter
}

func (m *Macro) Copy() Element {
	cp := &Macro{Name: m.Name, Raw: m.Raw, Gap: m.Gap, Def: m.Def}
	cp.Args = m.Args.copyFor(cp)
	return cp
}

// Revalue defers to the definition's Revaluer, if any.
func (m *Macro) Revalue(pass string) (Element, error) {
	if m.Def != nil {
		if r, ok := m.Def.Expander.(MacroRevaluer); ok {
			return r.RevalueMacro(m, pass)
		}
	}
	return m, nil
}

// MacroRevaluer lets an Expander also take part in revalue passes.
type MacroRevaluer interface {
	RevalueMacro(m *Macro, pass string) (Element, error)
}

// Verb is inline verbatim text: \verb|...| or \verb*|...|.
type Verb struct {
	base
	Raw   string
	Star  bool
	Gap   string
	Delim string
	Data  string
}

func (v *Verb) Source() string {
	out := v.Raw
	if v.Star {
		out += "*"
	}
	return out + v.Gap + v.Delim + v.Data + v.Delim
}

func (v *Verb) Copy() Element {
	cp := *v
	cp.base = base{}
	return &cp
}

// VerbInvoker reads \verb and \verb* directly from the source.
var VerbInvoker = InvokerFunc(func(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	pos := tokens.PosOf(s, tok)
	v := &Verb{Raw: tok.Raw}
	src := s.Base()
	delim, err := src.Next()
	if err == nil && delim.Text == "*" && !delim.IsSkipped() {
		v.Star = true
		delim, err = src.Next()
	}
	for err == nil && delim.IsSkipped() {
		v.Gap += delim.Raw
		delim, err = src.Next()
	}
	if err == io.EOF {
		return nil, &errors.ArgumentError{Command: def.Name, Arg: "delimiter", Message: "missing delimiter", Pos: pos}
	}
	if err != nil {
		return nil, err
	}
	if delim.Cat == tokens.Letter || delim.IsSpace() {
		return nil, &errors.ArgumentError{Command: def.Name, Arg: "delimiter", Message: "invalid delimiter " + delim.Raw, Pos: pos}
	}
	v.Delim = delim.Raw
	if v.Data, err = src.ReadVerbatim(delim.Raw); err != nil {
		return nil, errors.At(err, pos)
	}
	return v, nil
})

// ParInvoker reads a paragraph break and collapses the breaks and skipped
// whitespace following it.
var ParInvoker = InvokerFunc(func(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	p := &Par{Raw: tok.Raw}
	for {
		var pending []tokens.Token
		next, err := s.Next()
		for err == nil && next.IsSkipped() {
			pending = append(pending, next)
			next, err = s.Next()
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == nil && next.IsMacro("par") {
			p.Raw += tokens.Join(pending) + next.Raw
			continue
		}
		p.Raw += tokens.Join(pending)
		if err == nil {
			s.Push(next)
		}
		return p, nil
	}
})

// EndInputInvoker stops reading: everything after \endinput is kept as
// ignored source.
var EndInputInvoker = InvokerFunc(func(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	rest, err := tokens.All(s)
	if err != nil {
		return nil, err
	}
	m := &Macro{Name: def.Name, Raw: tok.Raw, Def: def, Gap: tokens.Join(rest)}
	m.Args = newArguments(def.Args, m)
	return m, nil
})
