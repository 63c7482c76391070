// Package latex holds the macro and environment catalog of plain TeX and
// LaTeX. Importing it registers the @TeX and @LaTeX packages with the tex
// engine.
package latex

import (
	"latex-parser/internal/logger"
	"latex-parser/internal/tex"
	"latex-parser/internal/tokens"
)

// LaTeXName is the name of the LaTeX kernel package.
const LaTeXName = "@LaTeX"

func init() {
	tex.RegisterPackage(TeX())
	tex.RegisterPackage(LaTeX())
}

// LaTeX returns the LaTeX kernel commands and environments.
func LaTeX() *tex.Package {
	p := tex.NewPackage(LaTeXName)

	p.Add(
		tex.Command("begin", "{name:str}").WithInvoker(tex.BeginInvoker),
		tex.Command("end", "{name:str}").WithInvoker(tex.EndInvoker),
	)
	p.AddEnvironment(tex.Env("document", ""))

	// sentences, logos and spacing
	p.MustAddCommands(`
\frenchspacing
\nonfrenchspacing
\LaTeX
\TeX
\today
\emph{data}
\em
`)
	p.Add(
		tex.Command(",", ""),
		tex.Command(" ", ""),
		tex.Command("@", ""),
		tex.Command(`\`, "[space:dimen]"),
		tex.Command("tabularnewline", ""),
	)
	addSymbols(p)

	// classes, packages and page styles
	p.MustAddCommands(`
\documentclass[options:dict]{name:str}
\documentstyle[options:dict]{name:str}
\pagestyle{style:str}
\thispagestyle{style:str}
\markright{text}
\markboth{left}{right}
\pagenumbering{style:str}
\twocolumn[text]
\onecolumn
\maketitle
\title[toc]{data}
\author{data}
\date{data}
\thanks{data}
\ProvidesPackage{name:str}[message:str]
\ProvidesClass{name:str}[message:str]
\NeedsTeXFormat{name:str}[date:str]
`)
	p.Add(
		tex.Command("usepackage", "[options:dict]{names:str}").WithExpander(packageLoader{}).
			WithDoc(`\usepackage[options]{names} ==> load packages; registered ones define their commands`),
		tex.Command("RequirePackage", "[options:dict]{names:str}").WithExpander(packageLoader{}),
	)
	p.AddEnvironment(tex.Env("abstract", ""), tex.Env("titlepage", ""))

	// lists
	p.Add(tex.Command("item", "[label]"))
	for _, name := range []string{"itemize", "enumerate", "description"} {
		p.AddEnvironment(tex.Env(name, "").WithBody(tex.ItemBody("item")))
	}

	// verbatim
	p.AddEnvironment(tex.VerbatimEnv("verbatim"), tex.VerbatimEnv("verbatim*"))
	p.Add(tex.Command("verb", "").WithInvoker(tex.VerbInvoker))

	// tables
	p.Add(
		tex.Command("hline", ""),
		tex.Command("cline", "{cols:str}"),
	)
	p.AddEnvironment(
		tex.Env("tabular", "[pos:str]{colspec:str}").WithBody(tex.RowBody),
		tex.Env("array", "[pos:str]{colspec:str}").WithBody(tex.RowBody),
	)

	// font selection
	p.MustAddCommands(`
\md
\mdseries
\textmd{data}
\bf
\bfseries
\textbf{data}
\rm
\rmfamily
\textrm{data}
\sf
\sffamily
\textsf{data}
\tt
\ttfamily
\texttt{data}
\up
\upshape
\textup{data}
\it
\itshape
\textit{data}
\sl
\slshape
\textsl{data}
\sc
\scshape
\textsc{data}
\normalfont
\textnormal{data}
\tiny
\scriptsize
\footnotesize
\small
\normalsize
\large
\Large
\LARGE
\huge
\Huge
\symbol{number:int}
`)

	// alignment
	p.MustAddCommands(`
\centering
\raggedright
\raggedleft
`)
	p.AddEnvironment(tex.Env("center", ""), tex.Env("flushleft", ""), tex.Env("flushright", ""))

	// sectioning and cross references
	p.MustAddCommands(`
\part[toc]{data}
\chapter[toc]{data}
\section[toc]{data}
\subsection[toc]{data}
\subsubsection[toc]{data}
\paragraph[toc]{data}
\subparagraph[toc]{data}
\appendix
\tableofcontents
\label{key:str}
\ref{key:str}
\pageref{key:str}
\cite[note]{keys:str}
\nocite{keys:str}
\footnote[number:int]{data}
\caption[toc]{data}
\newline
\newpage
\clearpage
\noindent
\bibliography{files:str}
\bibliographystyle{style:str}
\bibitem[label]{key:str}
`)
	for _, name := range []string{"figure", "figure*", "table", "table*"} {
		p.AddEnvironment(tex.Env(name, "[placement:str]"))
	}
	p.AddEnvironment(
		tex.Env("quote", ""),
		tex.Env("quotation", ""),
		tex.Env("verse", ""),
		tex.Env("thebibliography", "{widest:str}").WithBody(tex.ItemBody("bibitem")),
	)
	return p
}

// SectionLevels maps sectioning commands to their depth, part being -1.
var SectionLevels = map[string]int{
	"part":          -1,
	"chapter":       0,
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
	"paragraph":     4,
	"subparagraph":  5,
}

// packageLoader loads the registered packages named by \usepackage so
// their commands are known for the rest of the source.
type packageLoader struct{}

func (packageLoader) Expand(job *tex.Job, s tokens.Stream, m *tex.Macro) (tex.Element, error) {
	ctx := job.Context()
	for _, name := range m.Args.Strings("names") {
		if _, ok := tex.LookupPackage(name); !ok {
			logger.Debug("package not in catalog", logger.String("package", name))
			continue
		}
		if err := ctx.LoadPackage(name); err != nil {
			return nil, err
		}
	}
	return m, nil
}
