package check

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/errors"
	"latex-parser/internal/tex"
	"latex-parser/internal/types"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.tex":          "a",
		"notes.txt":         "b",
		"chapters/one.TEX":  "c",
		"chapters/two.tex":  "d",
		"style/paper.sty":   "e",
		".git/hooks/x.tex":  "f",
		"figures/plot.tikz": "g",
	})

	files, err := Collect([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "chapters/one.TEX"),
		filepath.Join(dir, "chapters/two.tex"),
		filepath.Join(dir, "main.tex"),
		filepath.Join(dir, "style/paper.sty"),
	}, files)

	t.Run("extensions", func(t *testing.T) {
		files, err := Collect([]string{dir}, ".tikz")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "figures/plot.tikz")}, files)
	})

	t.Run("glob and duplicates", func(t *testing.T) {
		files, err := Collect([]string{
			filepath.Join(dir, "chapters", "*.tex"),
			filepath.Join(dir, "chapters", "two.tex"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "chapters/two.tex")}, files)
	})

	t.Run("missing file kept", func(t *testing.T) {
		files, err := Collect([]string{filepath.Join(dir, "nope.tex")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "nope.tex")}, files)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Collect([]string{filepath.Join(dir, "[")})
		assert.Error(t, err)
	})
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.tex":     "\\section{Intro}\\label{sec:intro}\nSee \\ref{sec:intro}.\n",
		"unclosed.tex": "line one\n\\textbf{bold\n",
		"unknown.tex":  "\\frobnicate{x}\n",
		"gbk.tex":      string([]byte{0xd6, 0xd0, 0xce, 0xc4, '\n'}),
	})

	report, err := errors.NewReport("")
	require.NoError(t, err)
	c := New(Options{Policy: tex.Strict}, report, nil)

	t.Run("passes", func(t *testing.T) {
		res := c.CheckFile(filepath.Join(dir, "good.tex"))
		assert.True(t, res.OK, res.Error)
		assert.Equal(t, "UTF-8", res.Encoding)
		assert.Greater(t, res.Elements, 3)
		assert.Empty(t, res.Stage)
	})

	t.Run("decodes other encodings", func(t *testing.T) {
		res := c.CheckFile(filepath.Join(dir, "gbk.tex"))
		assert.True(t, res.OK, res.Error)
		assert.Equal(t, "GBK", res.Encoding)
	})

	t.Run("syntax error has position", func(t *testing.T) {
		path := filepath.Join(dir, "unclosed.tex")
		res := c.CheckFile(path)
		assert.False(t, res.OK)
		assert.Equal(t, string(errors.StageParse), res.Stage)
		assert.Positive(t, res.Line)

		f, ok := report.Get(path)
		require.True(t, ok)
		assert.Equal(t, errors.StageParse, f.Stage)
		assert.Equal(t, errors.CodeMissingToken, f.Code)
	})

	t.Run("unknown name under strict policy", func(t *testing.T) {
		res := c.CheckFile(filepath.Join(dir, "unknown.tex"))
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "frobnicate")
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(dir, "missing.tex")
		res := c.CheckFile(path)
		assert.False(t, res.OK)
		assert.Equal(t, string(errors.StageRead), res.Stage)
		f, ok := report.Get(path)
		require.True(t, ok)
		assert.Equal(t, errors.StageRead, f.Stage)
	})

	t.Run("fixed file is resolved", func(t *testing.T) {
		path := filepath.Join(dir, "unclosed.tex")
		writeFiles(t, dir, map[string]string{"unclosed.tex": "line one\n\\textbf{bold}\n"})
		res := c.CheckFile(path)
		assert.True(t, res.OK, res.Error)
		_, ok := report.Get(path)
		assert.False(t, ok)
	})
}

func TestCheckText(t *testing.T) {
	c := New(Options{Policy: tex.Silent}, nil, nil)
	res := c.CheckText("<stdin>", "$x$ and $$y$$")
	assert.True(t, res.OK, res.Error)

	res = c.CheckText("<stdin>", "$x")
	assert.False(t, res.OK)
	assert.Equal(t, 1, c.Report().Len())
}

func TestRunKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{}
	var paths []string
	for i := 0; i < 20; i++ {
		name := filepath.Join("docs", string(rune('a'+i))+".tex")
		content := "\\emph{ok}\n"
		if i%5 == 0 {
			content = "{broken\n"
		}
		files[name] = content
		paths = append(paths, filepath.Join(dir, name))
	}
	writeFiles(t, dir, files)

	var calls atomic.Int32
	c := New(Options{
		Policy:  tex.Silent,
		Workers: 4,
		Progress: func(done, total int, _ *types.CheckResult) {
			calls.Add(1)
			assert.Equal(t, 20, total)
			assert.LessOrEqual(t, done, total)
		},
	}, nil, nil)

	sum := c.Run(context.Background(), paths)
	assert.Equal(t, 20, sum.Files)
	assert.Equal(t, 16, sum.Passed)
	assert.Equal(t, 4, sum.Failed)
	assert.Equal(t, 4, sum.ByStage[string(errors.StageParse)])
	assert.EqualValues(t, 20, calls.Load())
	for i, res := range sum.Results {
		assert.Equal(t, paths[i], res.Path)
	}
	assert.Equal(t, 4, c.Report().Len())
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.tex": "a", "b.tex": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(Options{Workers: 1}, nil, nil)
	sum := c.Run(ctx, []string{filepath.Join(dir, "a.tex"), filepath.Join(dir, "b.tex")})
	assert.Zero(t, sum.Files)
	assert.Empty(t, sum.Results)
}

func TestMismatch(t *testing.T) {
	assert.Equal(t, -1, Mismatch("abc", "abc"))
	assert.Equal(t, 1, Mismatch("abc", "axc"))
	assert.Equal(t, 2, Mismatch("ab", "abc"))
	assert.Equal(t, 0, Mismatch("", "a"))
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "paper", JobName("dir/sub/paper.tex"))
	assert.Equal(t, "notes", JobName(`C:\docs\notes.tex`))
	assert.Equal(t, "style.sty", JobName("style.sty"))
}
