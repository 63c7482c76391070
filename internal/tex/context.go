package tex

import (
	"fmt"
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/scope"
	"latex-parser/internal/tokens"
)

// Policy decides what happens when a macro or environment is unknown.
type Policy int

const (
	// Strict fails with an *errors.UnknownNameError.
	Strict Policy = iota
	// Warn logs a warning and defines a generic macro or environment.
	Warn
	// Silent defines a generic macro or environment quietly.
	Silent
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Warn:
		return "warn"
	case Silent:
		return "silent"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy converts "strict", "warn" or "silent".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "warn", "warning", "":
		return Warn, nil
	case "silent":
		return Silent, nil
	}
	return Warn, fmt.Errorf("unknown strictness %q", s)
}

// Context maps names to macro definitions with TeX-like grouping, and keeps
// the loaded packages, job variables and category table.
type Context struct {
	macros   *scope.Table[string, *MacroDef]
	packages [][]string
	vars     map[string]any
	catcodes *tokens.Table
}

// NewContext returns a context with no definitions at all.
func NewContext() *Context {
	return &Context{
		macros:   scope.New[string, *MacroDef](),
		packages: [][]string{nil},
		vars:     make(map[string]any),
		catcodes: tokens.DefaultTable(),
	}
}

// DefaultContext returns a context with the registered base packages and
// then the named ones loaded.
func DefaultContext(packages ...string) (*Context, error) {
	c := NewContext()
	for _, name := range BasePackages {
		if _, ok := LookupPackage(name); !ok {
			logger.Warn("base package not registered, is a catalog imported?", logger.String("package", name))
			continue
		}
		if err := c.LoadPackage(name); err != nil {
			return nil, err
		}
	}
	for _, name := range packages {
		if err := c.LoadPackage(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LookupMacro returns the definition of name, if any.
func (c *Context) LookupMacro(name string) (*MacroDef, bool) {
	return c.macros.Get(name)
}

// GetMacro returns the definition of name, applying p when it is unknown.
// Definitions made up for unknown names are saved in the current scope.
func (c *Context) GetMacro(name string, p Policy) (*MacroDef, error) {
	if def, ok := c.macros.Get(name); ok {
		return def, nil
	}
	switch p {
	case Strict:
		return nil, &errors.UnknownNameError{Kind: "macro", Name: name}
	case Warn:
		logger.Warn("creating macro", logger.String("name", `\`+name))
	}
	def := &MacroDef{Name: name, Args: &Argspec{}, Generic: true}
	c.SaveMacro(def)
	return def, nil
}

// SaveMacro defines def.Name in the current scope.
func (c *Context) SaveMacro(def *MacroDef) {
	c.macros.Set(def.Name, def)
}

// LookupEnvironment returns the definition of the environment name, if any.
func (c *Context) LookupEnvironment(name string) (*EnvDef, bool) {
	def, ok := c.macros.Get(name)
	if !ok || def.Env == nil || def.Env.Name != name {
		return nil, false
	}
	return def.Env, true
}

// GetEnvironment returns the environment name, applying p when it is unknown.
func (c *Context) GetEnvironment(name string, p Policy) (*EnvDef, error) {
	if env, ok := c.LookupEnvironment(name); ok {
		return env, nil
	}
	switch p {
	case Strict:
		return nil, &errors.UnknownNameError{Kind: "environment", Name: name}
	case Warn:
		logger.Warn("creating environment", logger.String("name", name))
	}
	env := &EnvDef{Name: name, Args: &Argspec{}, TrimNewlines: true}
	c.SaveEnvironment(env)
	return env, nil
}

// SaveEnvironment defines the begin and end macros of env.
func (c *Context) SaveEnvironment(env *EnvDef) {
	c.SaveMacro(env.beginMacro())
	c.SaveMacro(env.endMacro())
}

// MacroNames returns every visible macro name.
func (c *Context) MacroNames() []string { return c.macros.Keys() }

// LoadPackage loads a registered package by name. Loading a package twice
// is a no-op.
func (c *Context) LoadPackage(name string) error {
	if c.HasPackage(name) {
		return nil
	}
	p, ok := LookupPackage(name)
	if !ok {
		return &errors.UnknownNameError{Kind: "package", Name: name}
	}
	c.Load(p)
	return nil
}

// Load defines every macro and environment of p in the current scope.
func (c *Context) Load(p *Package) {
	for _, def := range p.macros {
		c.SaveMacro(def)
	}
	for _, env := range p.envs {
		c.SaveEnvironment(env)
	}
	top := len(c.packages) - 1
	c.packages[top] = append(c.packages[top], p.Name)
	logger.Debug("package loaded", logger.String("package", p.Name), logger.Int("macros", len(p.macros)), logger.Int("environments", len(p.envs)))
}

// HasPackage reports whether name is loaded in any open scope.
func (c *Context) HasPackage(name string) bool {
	for _, level := range c.packages {
		for _, n := range level {
			if n == name {
				return true
			}
		}
	}
	return false
}

// Packages returns the loaded package names in load order.
func (c *Context) Packages() []string {
	var out []string
	for _, level := range c.packages {
		out = append(out, level...)
	}
	return out
}

// SetVariable stores a job variable such as the job name.
func (c *Context) SetVariable(name string, value any) { c.vars[name] = value }

// Variable returns a job variable.
func (c *Context) Variable(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// VariableOr returns a job variable or def when it is unset.
func (c *Context) VariableOr(name string, def any) any {
	if v, ok := c.vars[name]; ok {
		return v
	}
	return def
}

// Catcodes returns the category table new jobs start with.
func (c *Context) Catcodes() *tokens.Table { return c.catcodes }

// SetCatcodes replaces the category table.
func (c *Context) SetCatcodes(t *tokens.Table) { c.catcodes = t }

// BeginGroup opens a scope; definitions made inside it vanish at EndGroup.
func (c *Context) BeginGroup() {
	c.macros.Up()
	c.packages = append(c.packages, nil)
}

// EndGroup closes the innermost scope.
func (c *Context) EndGroup() error {
	if err := c.macros.Down(); err != nil {
		return err
	}
	c.packages = c.packages[:len(c.packages)-1]
	return nil
}

// Depth returns the number of open scopes, at least 1.
func (c *Context) Depth() int { return c.macros.Depth() }

// Grouping runs fn inside a scope that is closed however fn returns.
func (c *Context) Grouping(fn func() error) (err error) {
	c.BeginGroup()
	defer func() {
		if cerr := c.EndGroup(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}

// Copy returns an independent context with the same definitions.
func (c *Context) Copy() *Context {
	cp := &Context{
		macros:   c.macros.Clone(),
		packages: make([][]string, len(c.packages)),
		vars:     make(map[string]any, len(c.vars)),
		catcodes: c.catcodes.Clone(),
	}
	for i, level := range c.packages {
		cp.packages[i] = append([]string(nil), level...)
	}
	for k, v := range c.vars {
		cp.vars[k] = v
	}
	return cp
}
