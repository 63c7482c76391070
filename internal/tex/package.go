package tex

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// BasePackages are loaded into every DefaultContext, in order.
var BasePackages = []string{"@TeX", "@LaTeX"}

// Package is a named set of macro and environment definitions.
type Package struct {
	Name   string
	macros []*MacroDef
	envs   []*EnvDef
}

// NewPackage returns an empty package.
func NewPackage(name string) *Package { return &Package{Name: name} }

// Add appends macro definitions.
func (p *Package) Add(defs ...*MacroDef) *Package {
	p.macros = append(p.macros, defs...)
	return p
}

// AddEnvironment appends environment definitions.
func (p *Package) AddEnvironment(envs ...*EnvDef) *Package {
	p.envs = append(p.envs, envs...)
	return p
}

// Macros returns the macro definitions.
func (p *Package) Macros() []*MacroDef { return append([]*MacroDef(nil), p.macros...) }

// Environments returns the environment definitions.
func (p *Package) Environments() []*EnvDef { return append([]*EnvDef(nil), p.envs...) }

// Macro returns the named macro definition.
func (p *Package) Macro(name string) (*MacroDef, bool) {
	for _, d := range p.macros {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

var commandName = regexp.MustCompile(`^\\[a-zA-Z@]+`)

// AddCommands defines plain commands from a template with one command per
// line, e.g. `\vskip{size:dimen}`. Blank lines and lines starting with %
// are skipped.
func (p *Package) AddCommands(template string) error {
	sc := bufio.NewScanner(strings.NewReader(template))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		name := commandName.FindString(line)
		if name == "" {
			return fmt.Errorf("invalid command template: %q", line)
		}
		def, err := NewMacro(name[1:], strings.TrimSpace(line[len(name):]))
		if err != nil {
			return err
		}
		p.Add(def)
	}
	return sc.Err()
}

// MustAddCommands is like AddCommands but panics on a malformed template.
func (p *Package) MustAddCommands(template string) *Package {
	if err := p.AddCommands(template); err != nil {
		panic(err)
	}
	return p
}

var registry = struct {
	sync.RWMutex
	packages map[string]*Package
}{packages: make(map[string]*Package)}

// RegisterPackage makes p available to LoadPackage under its name,
// replacing any package of the same name.
func RegisterPackage(p *Package) {
	registry.Lock()
	defer registry.Unlock()
	registry.packages[p.Name] = p
}

// LookupPackage returns a registered package.
func LookupPackage(name string) (*Package, bool) {
	registry.RLock()
	defer registry.RUnlock()
	p, ok := registry.packages[name]
	return p, ok
}

// RegisteredPackages returns the registered package names, sorted.
func RegisteredPackages() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.packages))
	for name := range registry.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
