package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/source"
)

// runCLI runs the command with an isolated config file.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := filepath.Join(t.TempDir(), "config.json")
	args = append([]string{"--config", cfg}, args...)
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunEchoesSource(t *testing.T) {
	src := "\\section{Intro} % first\nSome {grouped} text.\n\n$x$\n"
	code, out, _ := runCLI(t, src)
	assert.Equal(t, 0, code)
	assert.Equal(t, src, out)
}

func TestRunTree(t *testing.T) {
	code, out, _ := runCLI(t, `\textbf{x}`, "--tree")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `Macro \textbf`)
	assert.Contains(t, out, `Text "x"`)
}

func TestRunText(t *testing.T) {
	path := writeFile(t, "doc.tex", "\\documentclass{article}\n\\begin{document}\nHello \\emph{world}.\n\\end{document}\n")
	code, out, _ := runCLI(t, "", "--text", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "Hello world.\n", out)
}

func TestRunCheck(t *testing.T) {
	good := writeFile(t, "good.tex", "a {b} c")
	bad := writeFile(t, "bad.tex", "a\n{b")

	code, out, errOut := runCLI(t, "", "--check", good, bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "good.tex: ok (")
	assert.Contains(t, errOut, "SYNTAX ERROR")
	assert.Contains(t, errOut, "bad.tex")
}

func TestRunMissingFile(t *testing.T) {
	code, _, errOut := runCLI(t, "", filepath.Join(t.TempDir(), "none.tex"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "source file not found")
}

func TestRunPolicy(t *testing.T) {
	code, _, errOut := runCLI(t, `\undefinedthing`, "--strict")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "NAME ERROR")

	code, out, _ := runCLI(t, `\undefinedthing`, "--policy", "silent")
	assert.Equal(t, 0, code)
	assert.Equal(t, `\undefinedthing`, out)
}

func TestRunRejectsBadSettings(t *testing.T) {
	tests := [][]string{
		{"--policy", "loud"},
		{"--encoding", "ebcdic"},
		{"--nosuchflag"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, _, _ := runCLI(t, "x", args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestRunOutputKeepsEncoding(t *testing.T) {
	data, err := source.Encode("标题 {x}", source.GBK)
	require.NoError(t, err)
	in := filepath.Join(t.TempDir(), "in.tex")
	require.NoError(t, os.WriteFile(in, data, 0644))
	out := filepath.Join(t.TempDir(), "out.txt")

	code, stdout, _ := runCLI(t, "", "--text", "--output", out, in)
	require.Equal(t, 0, code)
	assert.Empty(t, stdout)

	f, err := source.ReadFile(out, source.Options{})
	require.NoError(t, err)
	assert.Equal(t, source.GBK, f.Encoding)
	assert.Equal(t, "标题 x\n", f.Text)
}

func TestRunPreloadsPackages(t *testing.T) {
	code, _, errOut := runCLI(t, "x", "--packages", "nosuchpackage")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "nosuchpackage")
}

type scriptedLines struct{ lines []string }

func (s *scriptedLines) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestSession(t *testing.T) (*session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	s, err := newSession(&runner{out: &out, errOut: &errOut, mode: modeSource})
	require.NoError(t, err)
	return s, &out, &errOut
}

func TestSessionContinuesIncompleteInput(t *testing.T) {
	s, out, errOut := newTestSession(t)
	var inputs []string
	s.loop(&scriptedLines{lines: []string{
		"{a",
		"b}",
		":tree",
		`\emph{x}`,
		"\\begin{center}",
		"",
		":quit",
		"never read",
	}}, func(code string) { inputs = append(inputs, code) })

	assert.Equal(t, []string{"{a\nb}", `\emph{x}`, "\\begin{center}"}, inputs)
	assert.True(t, strings.HasPrefix(out.String(), "{a\nb}\n"))
	assert.Contains(t, out.String(), `Macro \emph`)
	assert.Contains(t, errOut.String(), `\end{center}`)
}

func TestSessionCommands(t *testing.T) {
	s, out, errOut := newTestSession(t)
	s.loop(&scriptedLines{lines: []string{
		":policy strict",
		`\nope`,
		":policy",
		":check",
		"a%b",
		":packages",
		":bogus",
	}}, nil)

	assert.Contains(t, errOut.String(), "NAME ERROR")
	assert.Contains(t, errOut.String(), "未知命令")
	assert.Contains(t, out.String(), "strict\n")
	assert.Contains(t, out.String(), "ok (")
	assert.Contains(t, out.String(), "LaTeX")
}

func TestSessionComplete(t *testing.T) {
	s, _, _ := newTestSession(t)
	got := s.complete(`see \textb`)
	assert.Contains(t, got, `see \textbf`)
	for _, c := range got {
		assert.True(t, strings.HasPrefix(c, `see \textb`))
	}
	assert.Nil(t, s.complete("no control word"))
	assert.Nil(t, s.complete(`\textbf{x} y`))
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, []byte("a\nb\nc\nd\n"), 2))
	assert.Equal(t, "c\nd\n", buf.String())

	buf.Reset()
	require.NoError(t, writeHistory(&buf, []byte("a\nb\n"), 0))
	assert.Equal(t, "a\nb\n", buf.String())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
