package tex

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/tokens"
)

// Argument types understood by ArgAtom.
const (
	TypeTeX   = "tex"
	TypeStr   = "str"
	TypeDict  = "dict"
	TypeList  = "list"
	TypeInt   = "int"
	TypeTok   = "tok"
	TypeDimen = "dimen"
)

var knownTypes = map[string]bool{
	TypeTeX: true, TypeStr: true, TypeDict: true, TypeList: true,
	TypeInt: true, TypeTok: true, TypeDimen: true,
}

var closers = map[byte]byte{'{': '}', '[': ']', '<': '>', '(': ')'}

// ArgAtom declares a single argument.
type ArgAtom struct {
	Name string
	Type string
	// TypeArgs and TypeKwargs hold the parameters of types like dict(str).
	TypeArgs   []string
	TypeKwargs map[string]string
	// Open and Close delimit an optional argument; both are empty for a
	// required braced argument.
	Open, Close string
}

// Optional reports whether the argument may be absent.
func (a *ArgAtom) Optional() bool { return a.Open != "" }

func (a *ArgAtom) grouping() (string, string) {
	if a.Open == "" {
		return "{", "}"
	}
	return a.Open, a.Close
}

func (a *ArgAtom) String() string {
	open, close := a.grouping()
	return open + a.Name + ":" + a.Type + close
}

// Argspec is the ordered list of arguments a macro or environment reads.
type Argspec struct {
	Decl  string
	atoms []*ArgAtom
}

// ParseArgspec parses declarations like "[options:dict]{names:str}". A
// missing type means tex; whitespace between atoms is ignored.
func ParseArgspec(decl string) (*Argspec, error) {
	spec := &Argspec{Decl: decl}
	seen := make(map[string]bool)
	for i := 0; i < len(decl); {
		c := decl[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		closer, ok := closers[c]
		if !ok {
			return nil, &errors.ArgspecError{Decl: decl, Message: fmt.Sprintf("unexpected %q at offset %d", c, i)}
		}
		end := strings.IndexByte(decl[i+1:], closer)
		if end < 0 {
			return nil, &errors.ArgspecError{Decl: decl, Message: fmt.Sprintf("unterminated %q", c)}
		}
		body := decl[i+1 : i+1+end]
		i += end + 2

		name, typ, _ := strings.Cut(body, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &errors.ArgspecError{Decl: decl, Message: "argument without a name"}
		}
		if seen[name] {
			return nil, &errors.ArgspecError{Decl: decl, Message: "duplicate argument " + name}
		}
		seen[name] = true

		atom := &ArgAtom{Name: name}
		atom.Type, atom.TypeArgs, atom.TypeKwargs = TypeArgs(typ)
		if !knownTypes[atom.Type] {
			return nil, &errors.ArgspecError{Decl: decl, Message: "unsupported type " + atom.Type}
		}
		if atom.Type == TypeDict && len(atom.TypeArgs) > 0 && (len(atom.TypeArgs) != 1 || atom.TypeArgs[0] != TypeStr) {
			return nil, &errors.ArgspecError{Decl: decl, Message: "dict values must be str"}
		}
		if c != '{' {
			atom.Open, atom.Close = string(c), string(closer)
		}
		spec.atoms = append(spec.atoms, atom)
	}
	return spec, nil
}

// MustArgspec is like ParseArgspec but panics on malformed declarations.
// It is meant for package tables written in code.
func MustArgspec(decl string) *Argspec {
	spec, err := ParseArgspec(decl)
	if err != nil {
		panic(err)
	}
	return spec
}

// TypeArgs splits "name(a, b, key=value)" into its name, positional and
// keyword parameters. An empty string is the tex type.
func TypeArgs(s string) (string, []string, map[string]string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeTeX, nil, nil
	}
	name, rest, _ := strings.Cut(s, "(")
	name = strings.TrimSpace(name)
	rest = strings.TrimRight(rest, ") ")
	if rest == "" {
		return name, nil, nil
	}
	var args []string
	kwargs := make(map[string]string)
	for _, item := range strings.Split(rest, ",") {
		k, v, found := strings.Cut(item, "=")
		if found && strings.TrimSpace(v) != "" {
			kwargs[strings.TrimSpace(k)] = strings.TrimSpace(v)
			continue
		}
		args = append(args, strings.TrimSpace(k))
	}
	if len(kwargs) == 0 {
		kwargs = nil
	}
	return name, args, kwargs
}

// ArgspecFromDoc finds the usage line for name in a documentation string,
// e.g. `\section[toc]{title} ==> ...`, and parses the argument part.
// Without a usage line the macro takes no arguments.
func ArgspecFromDoc(name, doc string) (*Argspec, error) {
	prefix := `\` + name
	sc := bufio.NewScanner(strings.NewReader(doc))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := line[len(prefix):]
		if rest != "" && isLetter(rest[0]) {
			continue
		}
		if i := strings.Index(rest, "==>"); i >= 0 {
			rest = rest[:i]
		}
		return ParseArgspec(strings.TrimSpace(rest))
	}
	return &Argspec{}, nil
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '@' }

// Len returns the number of arguments.
func (s *Argspec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.atoms)
}

// Atoms returns the declared arguments in order.
func (s *Argspec) Atoms() []*ArgAtom {
	if s == nil {
		return nil
	}
	return append([]*ArgAtom(nil), s.atoms...)
}

// Names returns the argument names in order.
func (s *Argspec) Names() []string {
	names := make([]string, s.Len())
	for i := range names {
		names[i] = s.atoms[i].Name
	}
	return names
}

// Atom returns the declaration of the named argument.
func (s *Argspec) Atom(name string) (*ArgAtom, bool) {
	i := s.index(name)
	if i < 0 {
		return nil, false
	}
	return s.atoms[i], true
}

func (s *Argspec) index(name string) int {
	for i := 0; i < s.Len(); i++ {
		if s.atoms[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Argspec) String() string {
	if s == nil {
		return ""
	}
	return s.Decl
}

// NewArguments returns arguments for owner with every slot empty.
func (s *Argspec) NewArguments(owner Element) *Arguments {
	return newArguments(s, owner)
}

// Invoke reads one value per declared argument from the stream.
func (s *Argspec) Invoke(job *Job, ts tokens.Stream, command string, owner Element) (*Arguments, error) {
	args := newArguments(s, owner)
	for i, atom := range s.Atoms() {
		sl, value, err := atom.read(job, ts, command)
		if err != nil {
			return nil, err
		}
		args.slots[i] = sl
		if value != nil {
			args.list.Set(i, value)
		}
	}
	return args, nil
}

// read returns the slot and the value of one argument; a nil value means the
// argument is absent.
func (a *ArgAtom) read(job *Job, ts tokens.Stream, command string) (slot, Element, error) {
	argErr := func(msg string, pos errors.Pos, cause error) error {
		return &errors.ArgumentError{Command: command, Arg: a.Name, Message: msg, Pos: pos, Cause: cause}
	}

	ws, err := tokens.SkipWhitespace(ts)
	if err != nil {
		return slot{}, nil, err
	}
	pos := ts.Pos()
	next, err := tokens.Peek(ts)
	if err != nil && err != io.EOF {
		return slot{}, nil, err
	}
	atEOF := err == io.EOF

	if a.Optional() {
		if atEOF || next.IsSkipped() || next.Text != a.Open {
			ts.Push(ws...)
			return slot{}, nil, nil
		}
		open, _ := ts.Next()
		view := tokens.UntilClosing(ts, a.Open, a.Close)
		value, err := a.readGreedy(job, view, command, pos)
		if err != nil {
			return slot{}, nil, err
		}
		end, err := tokens.ExpectText(ts, a.Close)
		if err != nil {
			return slot{}, nil, err
		}
		return slot{lead: tokens.Join(ws), open: open.Raw, close: end.Raw}, value, nil
	}

	if atEOF {
		return slot{}, nil, argErr("missing required argument", pos, nil)
	}
	if next.IsMacro("par") {
		return slot{}, nil, argErr("paragraph ended before the argument was read", pos, nil)
	}
	lead := tokens.Join(ws)

	if next.Cat == tokens.BGroup {
		open, _ := ts.Next()
		view := tokens.UntilBalancedGroup(ts)
		value, err := a.readGreedy(job, view, command, pos)
		if err != nil {
			return slot{}, nil, err
		}
		end, err := tokens.Expect(ts, tokens.EGroup)
		if err != nil {
			return slot{}, nil, err
		}
		return slot{lead: lead, open: open.Raw, close: end.Raw}, value, nil
	}

	value, err := a.readSingle(job, ts, command, pos)
	if err != nil {
		return slot{}, nil, err
	}
	return slot{lead: lead}, value, nil
}

// readGreedy reads the whole view as the argument value.
func (a *ArgAtom) readGreedy(job *Job, view tokens.Stream, command string, pos errors.Pos) (Element, error) {
	if a.Type == TypeTeX {
		children, err := job.ReadAll(view)
		if err != nil {
			return nil, err
		}
		return NewJoin(children...), nil
	}
	toks, err := tokens.All(view)
	if err != nil {
		return nil, err
	}
	return a.convert(toks, command, pos)
}

// readSingle reads an undelimited argument: one character or one element.
func (a *ArgAtom) readSingle(job *Job, ts tokens.Stream, command string, pos errors.Pos) (Element, error) {
	switch a.Type {
	case TypeTok:
		tok, err := ts.Next()
		if err != nil {
			return nil, err
		}
		return NewLeaf(tok), nil
	case TypeInt:
		digits, err := tokens.All(tokens.WhileMatching(ts, func(t tokens.Token) bool {
			return t.Cat == tokens.Other && (t.Text >= "0" && t.Text <= "9" || t.Text == "-" || t.Text == "+")
		}))
		if err != nil {
			return nil, err
		}
		return a.convert(digits, command, pos)
	}

	tok, err := ts.Next()
	if err != nil {
		return nil, err
	}
	var value Element
	if tok.Cat == tokens.Letter || tok.Cat == tokens.Other {
		value = NewText(tok.Raw)
	} else {
		ts.Push(tok)
		if value, err = job.ReadNext(ts); err != nil {
			return nil, err
		}
		if value == nil {
			return nil, &errors.ArgumentError{Command: command, Arg: a.Name, Message: "missing required argument", Pos: pos}
		}
	}
	if a.Type == TypeTeX {
		return value, nil
	}
	return a.convertText(value.Source(), command, pos)
}

func (a *ArgAtom) convert(toks []tokens.Token, command string, pos errors.Pos) (Element, error) {
	if a.Type == TypeTok {
		var tok tokens.Token
		n := 0
		for _, t := range toks {
			if !t.IsSpace() {
				tok = t
				n++
			}
		}
		if n != 1 {
			return nil, &errors.ArgumentError{Command: command, Arg: a.Name, Message: fmt.Sprintf("expected a single token, got %d", n), Pos: pos}
		}
		return &Leaf{Tok: tok, Raw: tokens.Join(toks)}, nil
	}
	return a.convertText(tokens.Join(toks), command, pos)
}

func (a *ArgAtom) convertText(raw, command string, pos errors.Pos) (Element, error) {
	switch a.Type {
	case TypeDict:
		return ParseDict(raw), nil
	case TypeList:
		return ParseList(raw), nil
	case TypeInt:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &errors.ArgumentError{Command: command, Arg: a.Name, Message: "not an integer", Pos: pos, Cause: err}
		}
		return &Integer{Value: v, raw: raw}, nil
	}
	return NewText(raw), nil
}
