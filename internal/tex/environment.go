package tex

import (
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/tokens"
)

// BodyReader reads the content of an environment. The stream ends right
// before the environment's end macro.
type BodyReader interface {
	ReadBody(job *Job, s tokens.Stream, env *Environment) ([]Element, error)
}

// BodyReaderFunc adapts a function to BodyReader.
type BodyReaderFunc func(job *Job, s tokens.Stream, env *Environment) ([]Element, error)

func (f BodyReaderFunc) ReadBody(job *Job, s tokens.Stream, env *Environment) ([]Element, error) {
	return f(job, s, env)
}

// EnvDef describes an environment. Declaring it defines the begin macro
// \name and the end macro \endname.
type EnvDef struct {
	Name string
	Args *Argspec
	Doc  string
	// TrimNewlines moves whitespace at the edges of the body into padding.
	TrimNewlines bool
	// Verbatim reads the body as raw text up to \end{name}.
	Verbatim bool
	Body     BodyReader
}

// NewEnvironment returns a definition for name reading the arguments in decl
// after \begin{name}.
func NewEnvironment(name, decl string) (*EnvDef, error) {
	spec, err := ParseArgspec(decl)
	if err != nil {
		return nil, err
	}
	return &EnvDef{Name: name, Args: spec, TrimNewlines: true}, nil
}

// Env is like NewEnvironment but panics on a malformed declaration.
func Env(name, decl string) *EnvDef {
	return &EnvDef{Name: name, Args: MustArgspec(decl), TrimNewlines: true}
}

// VerbatimEnv returns a definition whose body is raw text.
func VerbatimEnv(name string) *EnvDef {
	return &EnvDef{Name: name, Args: &Argspec{}, Verbatim: true}
}

// WithBody sets a custom body reader.
func (d *EnvDef) WithBody(r BodyReader) *EnvDef {
	d.Body = r
	return d
}

// EndName returns the name of the end macro.
func (d *EnvDef) EndName() string { return "end" + d.Name }

func (d *EnvDef) beginMacro() *MacroDef {
	return &MacroDef{Name: d.Name, Args: d.Args, Doc: d.Doc, Env: d, Invoker: InvokerFunc(invokeEnvironment)}
}

func (d *EnvDef) endMacro() *MacroDef {
	return &MacroDef{Name: d.EndName(), Args: &Argspec{}, Env: d, Invoker: InvokerFunc(strayEnd)}
}

// Environment is a \begin{name} ... \end{name} block.
type Environment struct {
	Container
	Name string
	// BeginRaw and EndRaw hold the source of the begin and end tags.
	BeginRaw, EndRaw string
	Args             *Arguments
	Def              *EnvDef
}

// NewEnvironmentElement returns an unlinked environment for def.
func NewEnvironmentElement(def *EnvDef, children ...Element) *Environment {
	env := &Environment{
		Name:     def.Name,
		BeginRaw: `\begin{` + def.Name + `}`,
		EndRaw:   `\end{` + def.Name + `}`,
		Def:      def,
	}
	env.Args = newArguments(def.Args, env)
	env.init(env, children)
	return env
}

func (e *Environment) arguments() *Arguments { return e.Args }

// Arg returns the named argument value.
func (e *Environment) Arg(name string) (Element, bool) { return e.Args.Get(name) }

func (e *Environment) Source() string {
	return e.BeginRaw + e.Args.Source() + e.Container.Source() + e.EndRaw
}

func (e *Environment) Copy() Element {
	cp := &Environment{Name: e.Name, BeginRaw: e.BeginRaw, EndRaw: e.EndRaw, Def: e.Def}
	cp.Args = e.Args.copyFor(cp)
	e.copyInto(&cp.Container, cp)
	return cp
}

// BeginInvoker reads \begin{name}, opens a scope and hands over to the
// environment. The begin tag travels to the environment as a synthetic
// \name token carrying the tag's source.
var BeginInvoker = InvokerFunc(func(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, name, raw, err := readEnvTag(job, s, def)
	if err != nil {
		return nil, err
	}
	env, err := job.ctx.GetEnvironment(name, job.policy)
	if err != nil {
		return nil, errors.At(err, tokens.PosOf(s, tok))
	}
	s.Push(tokens.Token{Text: `\` + name, Raw: raw, Cat: tokens.Escape, Offset: -1})
	return env.beginMacro().invoke(job, s)
})

// EndInvoker reads \end{name}. It checks the tag against the innermost open
// environment and pushes a synthetic \endname token that ends its body.
var EndInvoker = InvokerFunc(func(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, name, raw, err := readEnvTag(job, s, def)
	if err != nil {
		return nil, err
	}
	pos := tokens.PosOf(s, tok)
	open := job.openEnvironment()
	if open == "" {
		return nil, errors.NewSyntax(`\end{`+name+`} without a matching \begin`, pos)
	}
	if open != name {
		return nil, errors.EnvironmentMismatch(open, name, pos)
	}
	s.Push(tokens.Token{Text: `\end` + name, Raw: raw, Cat: tokens.Escape, Offset: -1})
	return nil, nil
})

func readEnvTag(job *Job, s tokens.Stream, def *MacroDef) (tokens.Token, string, string, error) {
	tok, err := s.Next()
	if err != nil {
		return tok, "", "", err
	}
	args, err := def.Args.Invoke(job, s, def.Name, nil)
	if err != nil {
		return tok, "", "", errors.At(err, tokens.PosOf(s, tok))
	}
	name := strings.TrimSpace(args.Text("name"))
	if name == "" {
		return tok, "", "", &errors.ArgumentError{Command: def.Name, Arg: "name", Message: "empty environment name", Pos: tokens.PosOf(s, tok)}
	}
	return tok, name, tok.Raw + args.Source(), nil
}

// invokeEnvironment reads an environment from its begin macro to its end
// macro inside a new context scope.
func invokeEnvironment(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	ed := def.Env
	tok, err := tokens.ExpectMacro(s, ed.Name)
	if err != nil {
		return nil, err
	}
	pos := tokens.PosOf(s, tok)
	env := &Environment{Name: ed.Name, BeginRaw: tok.Raw, Def: ed}
	env.init(env, nil)

	job.envs = append(job.envs, ed.Name)
	defer func() { job.envs = job.envs[:len(job.envs)-1] }()

	err = job.ctx.Grouping(func() error {
		if env.Args, err = ed.Args.Invoke(job, s, ed.Name, env); err != nil {
			return errors.At(err, pos)
		}
		if ed.Verbatim {
			return readVerbatimBody(s, env)
		}
		body := tokens.StoppingBeforeMacro(s, ed.EndName())
		var children []Element
		if ed.Body != nil {
			children, err = ed.Body.ReadBody(job, body, env)
		} else {
			children, err = job.ReadAll(body)
		}
		if err != nil {
			return err
		}
		env.Add(children...)
		if ed.TrimNewlines {
			env.TrimSpace()
		}
		// the end token sits on top of the pushback; outer views must not
		// claim it when they stop at the same name
		end, err := tokens.ExpectMacro(s.Base(), ed.EndName())
		if err != nil {
			return errors.At(errors.MissingToken(`\end{`+ed.Name+`}`, tokenText(end), pos), pos)
		}
		env.EndRaw = end.Raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func tokenText(t tokens.Token) string { return t.Text }

// readVerbatimBody reads raw source up to \end{name} or \endname.
func readVerbatimBody(s tokens.Stream, env *Environment) error {
	src := s.Base()
	pos := s.Pos()
	var data strings.Builder
	for {
		chunk, err := src.ReadVerbatim(`\end`)
		if err != nil {
			return errors.At(errors.MissingToken(`\end{`+env.Name+`}`, "", pos), pos)
		}
		data.WriteString(chunk)
		if tag := "{" + env.Name + "}"; src.HasPrefix(tag) {
			src.Skip(len(tag))
			env.EndRaw = `\end` + tag
			break
		}
		if src.HasPrefix(env.Name) && !followedByLetter(src, len(env.Name)) {
			src.Skip(len(env.Name))
			env.EndRaw = `\end` + env.Name
			break
		}
		data.WriteString(`\end`)
	}
	env.Add(NewText(data.String()))
	return nil
}

func followedByLetter(t *tokens.Tokenizer, n int) bool {
	rest := t.Source()[t.Offset():]
	return len(rest) > n && isLetter(rest[n])
}

// strayEnd handles \endname outside of its environment.
func strayEnd(job *Job, s tokens.Stream, def *MacroDef) (Element, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	return nil, errors.NewSyntax(tok.Text+` without a matching \begin{`+def.Env.Name+`}`, tokens.PosOf(s, tok))
}

// Item is one entry of a list environment: the \item macro and the content
// up to the next one.
type Item struct {
	Container
	Head *Macro
}

func newItem(head *Macro) *Item {
	it := &Item{Head: head}
	it.init(it, nil)
	return it
}

// Label returns the optional label argument of the \item, if any.
func (it *Item) Label() (Element, bool) {
	if it.Head == nil || it.Head.Args == nil {
		return nil, false
	}
	v, ok := it.Head.Args.Get("label")
	if !ok || IsEmpty(v) {
		return nil, false
	}
	return v, true
}

func (it *Item) Source() string {
	head := ""
	if it.Head != nil {
		head = it.Head.Source()
	}
	return head + it.Container.Source()
}

func (it *Item) Copy() Element {
	cp := &Item{}
	if it.Head != nil {
		cp.Head = it.Head.Copy().(*Macro)
	}
	it.copyInto(&cp.Container, cp)
	return cp
}

// ItemBody groups the body of a list environment into Items, one per \item.
// Only whitespace and comments may come before the first \item.
func ItemBody(item string) BodyReader {
	return BodyReaderFunc(func(job *Job, s tokens.Stream, env *Environment) ([]Element, error) {
		children, err := job.ReadAll(s)
		if err != nil {
			return nil, err
		}
		var (
			out     []Element
			current *Item
		)
		for _, c := range children {
			if m, ok := c.(*Macro); ok && m.Name == item {
				current = newItem(m)
				out = append(out, current)
				continue
			}
			if current == nil {
				if l, ok := c.(*Leaf); !isBlank(c) && !(ok && l.IsComment()) {
					return nil, errors.NewSyntax(`content before the first \`+item+` in `+env.Name, s.Pos())
				}
				out = append(out, c)
				continue
			}
			current.Add(c)
		}
		return out, nil
	})
}

// Items returns the items of a list environment.
func (e *Environment) Items() []*Item {
	var items []*Item
	for _, c := range e.Children() {
		if it, ok := c.(*Item); ok {
			items = append(items, it)
		}
	}
	return items
}
