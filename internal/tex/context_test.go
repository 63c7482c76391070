package tex

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
)

func TestPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		err  bool
	}{
		{"strict", Strict, false},
		{" Warn ", Warn, false},
		{"", Warn, false},
		{"silent", Silent, false},
		{"loud", Warn, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePolicy(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "policy(9)", Policy(9).String())
}

func TestContextUnknownNames(t *testing.T) {
	ctx := NewContext()

	_, err := ctx.GetMacro("foo", Strict)
	var ue *errors.UnknownNameError
	require.True(t, stderrors.As(err, &ue))
	assert.Equal(t, "macro", ue.Kind)
	_, ok := ctx.LookupMacro("foo")
	assert.False(t, ok, "strict lookups define nothing")

	def, err := ctx.GetMacro("foo", Silent)
	require.NoError(t, err)
	assert.True(t, def.Generic)
	assert.Equal(t, 0, def.Args.Len())

	again, err := ctx.GetMacro("foo", Strict)
	require.NoError(t, err)
	assert.Same(t, def, again, "generic definitions are saved")

	env, err := ctx.GetEnvironment("box", Silent)
	require.NoError(t, err)
	assert.Equal(t, "box", env.Name)
	_, ok = ctx.LookupMacro("endbox")
	assert.True(t, ok)

	_, err = ctx.GetEnvironment("other", Strict)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownName))
}

func TestContextGrouping(t *testing.T) {
	ctx := NewContext()
	ctx.SaveMacro(Command("outer", ""))
	assert.Equal(t, 1, ctx.Depth())

	err := ctx.Grouping(func() error {
		assert.Equal(t, 2, ctx.Depth())
		ctx.SaveMacro(Command("inner", ""))
		ctx.SaveMacro(Command("outer", "{x}"))
		ctx.Load(NewPackage("local").Add(Command("fromlocal", "")))

		def, _ := ctx.LookupMacro("outer")
		assert.Equal(t, 1, def.Args.Len())
		assert.True(t, ctx.HasPackage("local"))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ctx.Depth())
	_, ok := ctx.LookupMacro("inner")
	assert.False(t, ok)
	_, ok = ctx.LookupMacro("fromlocal")
	assert.False(t, ok)
	assert.False(t, ctx.HasPackage("local"))

	def, ok := ctx.LookupMacro("outer")
	require.True(t, ok)
	assert.Equal(t, 0, def.Args.Len(), "shadowed definitions come back")

	boom := stderrors.New("boom")
	assert.Same(t, boom, ctx.Grouping(func() error { return boom }))
	assert.Equal(t, 1, ctx.Depth(), "scopes close on error")

	assert.Error(t, ctx.EndGroup(), "the global scope cannot be closed")
}

func TestContextPackages(t *testing.T) {
	p := NewPackage("ctx-test-pkg")
	p.Add(Command("alpha", "{a}"))
	p.AddEnvironment(Env("beta", ""))
	RegisterPackage(p)

	ctx := NewContext()
	require.NoError(t, ctx.LoadPackage("ctx-test-pkg"))
	require.NoError(t, ctx.LoadPackage("ctx-test-pkg"))
	assert.Equal(t, []string{"ctx-test-pkg"}, ctx.Packages())

	_, ok := ctx.LookupMacro("alpha")
	assert.True(t, ok)
	env, ok := ctx.LookupEnvironment("beta")
	require.True(t, ok)
	assert.Equal(t, "endbeta", env.EndName())
	_, ok = ctx.LookupEnvironment("alpha")
	assert.False(t, ok, "plain macros are not environments")

	err := ctx.LoadPackage("missing-pkg")
	var ue *errors.UnknownNameError
	require.True(t, stderrors.As(err, &ue))
	assert.Equal(t, "package", ue.Kind)

	assert.Contains(t, RegisteredPackages(), "ctx-test-pkg")
	assert.ElementsMatch(t, []string{"alpha", "beta", "endbeta"}, ctx.MacroNames())
}

func TestContextCopy(t *testing.T) {
	ctx := NewContext()
	ctx.SaveMacro(Command("a", ""))
	ctx.SetVariable("jobname", "one")

	cp := ctx.Copy()
	cp.SaveMacro(Command("b", ""))
	cp.SetVariable("jobname", "two")
	cp.Catcodes().Set('@', 12)

	_, ok := ctx.LookupMacro("b")
	assert.False(t, ok)
	_, ok = cp.LookupMacro("a")
	assert.True(t, ok)
	assert.Equal(t, "one", ctx.VariableOr("jobname", ""))
	assert.Equal(t, "two", cp.VariableOr("jobname", ""))
	assert.NotEqual(t, ctx.Catcodes().Lookup('@'), cp.Catcodes().Lookup('@'))

	_, ok = ctx.Variable("missing")
	assert.False(t, ok)
	assert.Equal(t, 3, ctx.VariableOr("missing", 3))
}

func TestAddCommands(t *testing.T) {
	p := NewPackage("cmds")
	err := p.AddCommands(`
% comment
\one
\two[opt]{req:str}
`)
	require.NoError(t, err)
	require.Len(t, p.Macros(), 2)

	two, ok := p.Macro("two")
	require.True(t, ok)
	assert.Equal(t, []string{"opt", "req"}, two.Args.Names())

	assert.Error(t, p.AddCommands("not a command"))
	assert.Error(t, p.AddCommands(`\bad{`))
	assert.Panics(t, func() { p.MustAddCommands("x") })
}

func TestDefaultContextWarnsWithoutCatalog(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.SetGlobalLogger(logger.New(&buf, logger.LevelWarn))
	saved := BasePackages
	t.Cleanup(func() {
		logger.SetGlobalLogger(prev)
		BasePackages = saved
	})
	BasePackages = []string{"@missing"}

	ctx, err := DefaultContext()
	require.NoError(t, err)
	assert.Empty(t, ctx.Packages())
	assert.Contains(t, buf.String(), "base package not registered")
	assert.Contains(t, buf.String(), "@missing")
}
