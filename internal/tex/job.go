package tex

import (
	"io"
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/tokens"
)

// Job parses one source text with one Context.
type Job struct {
	name     string
	source   string
	ctx      *Context
	packages []string
	policy   Policy
	trace    bool
	tokens   *tokens.Tokenizer
	envs     []string
	parsed   Root
}

// Option configures a Job.
type Option func(*Job)

// WithContext parses with ctx instead of a DefaultContext. The context is
// modified by the parse.
func WithContext(ctx *Context) Option {
	return func(j *Job) { j.ctx = ctx }
}

// WithPackages loads extra registered packages before parsing.
func WithPackages(names ...string) Option {
	return func(j *Job) { j.packages = append(j.packages, names...) }
}

// WithPolicy sets the unknown name policy. The default is Warn.
func WithPolicy(p Policy) Option {
	return func(j *Job) { j.policy = p }
}

// WithName sets the job name, stored in the "jobname" variable.
func WithName(name string) Option {
	return func(j *Job) { j.name = name }
}

// WithTrace logs every token read at debug level.
func WithTrace(on bool) Option {
	return func(j *Job) { j.trace = on }
}

// NewJob prepares a parse of source.
func NewJob(source string, opts ...Option) (*Job, error) {
	j := &Job{source: source, policy: Warn, name: "texput"}
	for _, opt := range opts {
		opt(j)
	}
	if j.ctx == nil {
		ctx, err := DefaultContext(j.packages...)
		if err != nil {
			return nil, err
		}
		j.ctx = ctx
	} else {
		for _, name := range j.packages {
			if err := j.ctx.LoadPackage(name); err != nil {
				return nil, err
			}
		}
	}
	j.ctx.SetVariable("jobname", j.name)
	j.tokens = tokens.NewTokenizer(source, tokens.WithTable(j.ctx.Catcodes()), tokens.WithTrace(j.trace))
	return j, nil
}

// Parse reads source with a new job.
func Parse(source string, opts ...Option) (Root, error) {
	j, err := NewJob(source, opts...)
	if err != nil {
		return nil, err
	}
	return j.Parse()
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Source returns the text being parsed.
func (j *Job) Source() string { return j.source }

// Context returns the context of the job.
func (j *Job) Context() *Context { return j.ctx }

// Policy returns the unknown name policy.
func (j *Job) Policy() Policy { return j.policy }

// Tokens returns the token stream of the whole source.
func (j *Job) Tokens() *tokens.Tokenizer { return j.tokens }

func (j *Job) openEnvironment() string {
	if len(j.envs) == 0 {
		return ""
	}
	return j.envs[len(j.envs)-1]
}

// Parse reads the whole source, runs the finish pass and splits the result
// into a Document when it has a document environment. The result is cached.
func (j *Job) Parse() (Root, error) {
	if j.parsed != nil {
		return j.parsed, nil
	}
	logger.Debug("parsing", logger.String("job", j.name), logger.Int("bytes", len(j.source)))

	children, err := j.ReadAll(j.tokens)
	if err != nil {
		return nil, err
	}
	stream := NewStream(j.ctx, children...)
	if _, err := revalue(stream, PassFinish); err != nil {
		return nil, err
	}

	root, err := j.split(stream)
	if err != nil {
		return nil, err
	}
	j.parsed = root
	logger.Debug("parsed", logger.String("job", j.name), logger.Int("elements", len(root.Children())))
	return root, nil
}

// split turns a stream holding a document environment into a Document.
func (j *Job) split(stream *Stream) (Root, error) {
	var doc *Environment
	for _, c := range stream.Children() {
		if env, ok := c.(*Environment); ok && env.Name == "document" {
			doc = env
			break
		}
	}
	if doc == nil {
		return stream, nil
	}

	var trail strings.Builder
	for _, c := range doc.SiblingsNext() {
		if !isBlank(c) {
			src := c.Source()
			offset := len(stream.Lead) + len(stream.ChildrenSource()) - len(src) - len(sourceAfter(c))
			offset += len(src) - len(strings.TrimLeft(src, " \t\r\n"))
			return nil, errors.NewSyntax(`content after \end{document}: `+quote(c.Source()), errors.PosAt(j.source, offset))
		}
		trail.WriteString(c.Source())
	}

	pre := &Preamble{}
	pre.init(pre, nil)
	pre.Lead = stream.Lead
	for _, c := range doc.SiblingsPrev() {
		c.Unlink()
		pre.Add(c)
	}
	pre.TrimSpace()

	body := &Body{Begin: doc.BeginRaw + doc.Args.Source(), End: doc.EndRaw}
	body.init(body, doc.Clear())
	body.Lead, body.Trail = doc.Lead, doc.Trail

	d := newDocument(j.ctx, pre, body)
	d.Trail = trail.String() + stream.Trail
	return d, nil
}

func sourceAfter(e Element) string {
	var sb strings.Builder
	for n := e.(interface{ Next() Element }).Next(); n != nil; n = n.(interface{ Next() Element }).Next() {
		sb.WriteString(n.Source())
	}
	return sb.String()
}

func quote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return `"` + s + `"`
}

// ReadAll reads elements until s ends.
func (j *Job) ReadAll(s tokens.Stream) ([]Element, error) {
	var out []Element
	for {
		e, err := j.ReadNext(s)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return out, nil
		}
		out = append(out, e)
	}
}

// ReadNext reads one element. It returns nil, nil at the end of s.
func (j *Job) ReadNext(s tokens.Stream) (Element, error) {
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		switch tok.Cat {
		case tokens.Escape:
			s.Push(tok)
			def, err := j.ctx.GetMacro(tok.MacroName(), j.policy)
			if err != nil {
				return nil, errors.At(err, tokens.PosOf(s, tok))
			}
			e, err := def.invoke(j, s)
			if err != nil {
				return nil, err
			}
			if e == nil {
				continue
			}
			return e, nil

		case tokens.Space, tokens.Letter, tokens.Other, tokens.Skipped, tokens.EOL:
			s.Push(tok)
			e, err := j.readText(s)
			if err != nil {
				return nil, err
			}
			if e == nil {
				continue
			}
			return e, nil

		case tokens.BGroup:
			s.Push(tok)
			return j.readGroup(s)

		case tokens.MathShift:
			s.Push(tok)
			return j.readMath(s)

		case tokens.EGroup:
			return nil, errors.NewSyntax(`unexpected "}"`, tokens.PosOf(s, tok))

		case tokens.Alignment, tokens.Parameter, tokens.Super, tokens.Sub,
			tokens.Active, tokens.Comment, tokens.Ignored:
			return NewLeaf(tok), nil
		}
		errors.Invariant("no reader for token %s", tok)
	}
}

func isTextToken(t tokens.Token) bool {
	return t.Cat.IsText() || t.Cat == tokens.Skipped || t.Cat == tokens.EOL
}

// readText joins a run of text tokens. Synthetic spaces have no source and
// contribute nothing; a run made of them only is dropped.
func (j *Job) readText(s tokens.Stream) (Element, error) {
	toks, err := tokens.All(tokens.WhileMatching(s, isTextToken))
	if err != nil {
		return nil, err
	}
	data := tokens.Join(toks)
	if data == "" {
		return nil, nil
	}
	return NewText(data), nil
}

func (j *Job) readGroup(s tokens.Stream) (Element, error) {
	open, err := s.Next()
	if err != nil {
		return nil, err
	}
	children, err := j.ReadAll(tokens.UntilBalancedGroup(s))
	if err != nil {
		return nil, err
	}
	end, err := tokens.Expect(s, tokens.EGroup)
	if err != nil {
		return nil, err
	}
	g := &Group{Open: open.Raw, Close: end.Raw}
	g.init(g, children)
	return g, nil
}

// readMath reads $...$ or $$...$$. A display formula must be closed by two
// math shift tokens.
func (j *Job) readMath(s tokens.Stream) (Element, error) {
	open, err := s.Next()
	if err != nil {
		return nil, err
	}
	m := &Math{Open: open.Raw}
	if next, err := tokens.Peek(s); err == nil && next.Cat == tokens.MathShift {
		s.Next()
		m.Display = true
		m.Open += next.Raw
	}

	children, err := j.ReadAll(tokens.StoppingBeforeCat(s, tokens.MathShift))
	if err != nil {
		return nil, err
	}
	end, err := tokens.Expect(s, tokens.MathShift)
	if err != nil {
		return nil, err
	}
	m.Close = end.Raw
	if m.Display {
		end, err = tokens.Expect(s, tokens.MathShift)
		if err != nil {
			return nil, err
		}
		m.Close += end.Raw
	}
	m.init(m, children)
	return m, nil
}
