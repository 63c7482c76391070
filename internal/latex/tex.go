package latex

import (
	"latex-parser/internal/tex"
)

// TeXName is the name of the plain TeX package.
const TeXName = "@TeX"

// TeX returns the plain TeX primitives the parser needs to know about.
func TeX() *tex.Package {
	p := tex.NewPackage(TeXName)
	p.MustAddCommands(`
% control flow
\relax
\protect
\global
\hfil
\fi
\else
\long
\undefined

% spacing
\leavevmode
\kern
\hrule
\vskip{size:dimen}
\hskip{size:dimen}

% internal
\@undefined
\@vobeyspaces
\@noligs
`)
	p.Add(
		tex.Command("par", "").WithInvoker(tex.ParInvoker).
			WithDoc(`\par ==> end the current paragraph; repeated breaks collapse`),
		tex.Command("endinput", "").WithInvoker(tex.EndInputInvoker).
			WithDoc(`\endinput ==> stop reading; the rest of the source is kept verbatim`),
	)
	return p
}
