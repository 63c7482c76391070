package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/tex"
)

func parse(t *testing.T, src string) tex.Root {
	t.Helper()
	root, err := tex.Parse(src, tex.WithPolicy(tex.Strict))
	require.NoError(t, err)
	return root
}

func TestPackagesRegistered(t *testing.T) {
	for _, name := range []string{TeXName, LaTeXName} {
		p, ok := tex.LookupPackage(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, p.Macros())
	}

	ctx, err := tex.DefaultContext()
	require.NoError(t, err)
	for _, name := range []string{"par", "relax", "begin", "end", "textbf", "item", "verb", "'", "ss", `\`} {
		_, ok := ctx.LookupMacro(name)
		assert.True(t, ok, `\%s`, name)
	}
	for _, name := range []string{"document", "itemize", "tabular", "verbatim", "verbatim*", "center"} {
		_, ok := ctx.LookupEnvironment(name)
		assert.True(t, ok, name)
	}
}

func TestCatalogDeclarations(t *testing.T) {
	dc, ok := LaTeX().Macro("documentclass")
	require.True(t, ok)
	assert.Equal(t, []string{"options", "name"}, dc.Args.Names())
	opts, _ := dc.Args.Atom("options")
	assert.Equal(t, tex.TypeDict, opts.Type)
	assert.True(t, opts.Optional())

	vskip, ok := TeX().Macro("vskip")
	require.True(t, ok)
	size, _ := vskip.Args.Atom("size")
	assert.Equal(t, tex.TypeDimen, size.Type)

	par, _ := TeX().Macro("par")
	assert.NotEmpty(t, par.Doc)
	spec, err := tex.ArgspecFromDoc("par", par.Doc)
	require.NoError(t, err)
	assert.Equal(t, 0, spec.Len())

	use, _ := LaTeX().Macro("usepackage")
	spec, err = tex.ArgspecFromDoc("usepackage", use.Doc)
	require.NoError(t, err)
	assert.Equal(t, use.Args.Names(), spec.Names())
}

func TestStrictDocument(t *testing.T) {
	src := `\documentclass[11pt, twocolumn]{article}
\usepackage{amsmath}
\title{On \TeX}
\author{A. Author\thanks{Somewhere}}

\begin{document}
\maketitle
\begin{abstract}
Short.
\end{abstract}

Text with \emph{emphasis}, \textbf{bold} and \verb|code|.\\[1ex]
\begin{itemize}
  \item One
  \item[$\dag$] Two
\end{itemize}
\begin{tabular}{ll}
a & b \\ \hline
\end{tabular}
\end{document}
`
	root := parse(t, src)
	assert.Equal(t, src, root.Source())

	doc, ok := root.(*tex.Document)
	require.True(t, ok)
	cls, ok := tex.Get[*tex.Macro](doc.Preamble())
	require.True(t, ok)
	opts, ok := cls.Args.Dict("options")
	require.True(t, ok)
	assert.Equal(t, []string{"11pt", "twocolumn"}, opts.Keys())
}

func TestUsePackageExpander(t *testing.T) {
	p := tex.NewPackage("latex-test-pkg").MustAddCommands(`\gadget`)
	tex.RegisterPackage(p)

	root := parse(t, `\RequirePackage{unknown,latex-test-pkg}\gadget`)
	assert.True(t, root.Context().HasPackage("latex-test-pkg"))
	assert.False(t, root.Context().HasPackage("unknown"))
	assert.Len(t, tex.FindMacros(root, "gadget"), 1)
}

func TestLetter(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`\'{e}`, "é"},
		{`\"o`, "ö"},
		{`\^{\i}`, "î"},
		{`\c c`, "ç"},
		{`\v{s}`, "š"},
		{`\ss`, "ß"},
		{`\AE`, "Æ"},
		{`\%`, "%"},
		{`\t{oo}`, "o\u0361o"},
		{`\H{o}`, "ő"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root := parse(t, tt.src)
			m, ok := root.Children()[0].(*tex.Macro)
			require.True(t, ok)
			got, ok := Letter(m)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.src, root.Source())
		})
	}
}

func TestLetterUnknown(t *testing.T) {
	root := parse(t, `\textbf{x}\'{\textbf{y}}`)
	for _, c := range root.Children() {
		_, ok := Letter(c.(*tex.Macro))
		assert.False(t, ok)
	}
}

func TestPlainText(t *testing.T) {
	root := parse(t, "\\documentclass{article}\n\\begin{document}\nCaf\\'{e} \\textbf{na\\\"{\\i}ve} % note\n$x^2$ and \\verb|v|.\n\n\\begin{center}Done\\end{center}\n\\end{document}")
	assert.Equal(t, "Café naïve $x^2$ and v.\n\nDone", PlainText(root.(*tex.Document).Body()))
}

func TestOutline(t *testing.T) {
	src := `\chapter{Start}
\section[short]{The \emph{first} part}\label{sec:first}
See \ref{sec:second} and \cite[p.~2]{knuth84, lamport94}.
\label{ignored}
\section{Second}
\label{sec:second}
\subsection{Na\"ive}
\begin{figure}[t]\caption{A figure}\label{fig:a}\end{figure}
`
	root := parse(t, src)
	assert.Equal(t, src, root.Source())

	assert.Equal(t, []Heading{
		{Command: "chapter", Level: 0, Title: "Start"},
		{Command: "section", Level: 1, Title: "The first part", Label: "sec:first"},
		{Command: "section", Level: 1, Title: "Second", Label: "sec:second"},
		{Command: "subsection", Level: 2, Title: "Naïve", Label: "fig:a"},
	}, Outline(root))

	assert.Equal(t, []string{"sec:first", "ignored", "sec:second", "fig:a"}, Keys(root, "label"))
	assert.Equal(t, []string{"sec:second", "knuth84", "lamport94"}, Keys(root, "ref", "cite"))

	fig := tex.FindEnvironments(root, "figure")
	require.Len(t, fig, 1)
	assert.Equal(t, "t", fig[0].Args.Text("placement"))
}

func TestBibliography(t *testing.T) {
	src := "\\begin{thebibliography}{9}\n\\bibitem{knuth84} D. Knuth.\n\\bibitem[L94]{lamport94} L. Lamport.\n\\end{thebibliography}"
	root := parse(t, src)
	assert.Equal(t, src, root.Source())

	env := tex.FindEnvironments(root, "thebibliography")[0]
	assert.Equal(t, "9", env.Args.Text("widest"))
	require.Len(t, env.Items(), 2)
	assert.Equal(t, []string{"knuth84", "lamport94"}, Keys(root, "bibitem"))
}

func TestOptionalPackages(t *testing.T) {
	for _, name := range []string{"amsmath", "hyperref", "graphicx"} {
		_, ok := tex.LookupPackage(name)
		assert.True(t, ok, name)
	}

	_, err := tex.Parse(`\eqref{x}`, tex.WithPolicy(tex.Strict))
	assert.Error(t, err, "amsmath commands need \\usepackage")

	root := parse(t, "\\usepackage{amsmath}\n\\begin{align*}\na &= b \\\\\nc &= d\n\\end{align*}\nsee \\eqref{eq:one}")
	assert.Len(t, tex.FindEnvironments(root, "align*"), 1)
	assert.Equal(t, []string{"eq:one"}, Keys(root, "eqref"))
}
