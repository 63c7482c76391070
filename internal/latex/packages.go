package latex

import (
	"latex-parser/internal/tex"
)

func init() {
	tex.RegisterPackage(AMSMath())
	tex.RegisterPackage(HyperRef())
	tex.RegisterPackage(GraphicX())
}

// MathEnvironments are the environments whose body is typeset as displayed
// math.
var MathEnvironments = map[string]bool{
	"equation":  true,
	"equation*": true,
	"align":     true,
	"align*":    true,
	"gather":    true,
	"gather*":   true,
	"multline":  true,
	"multline*": true,
	"split":     true,
}

// AMSMath returns the commonly used part of the amsmath package.
func AMSMath() *tex.Package {
	p := tex.NewPackage("amsmath")
	p.MustAddCommands(`
\eqref{key:str}
\text{data}
\tag{data}
\notag
\nonumber
\intertext{data}
\numberwithin{counter:str}{within:str}
\DeclareMathOperator{name}{data}
\dfrac{num}{den}
\tfrac{num}{den}
\binom{n}{k}
\boldsymbol{data}
\operatorname{data}
`)
	for _, name := range []string{"equation", "align", "gather", "multline"} {
		p.AddEnvironment(tex.Env(name, ""), tex.Env(name+"*", ""))
	}
	p.AddEnvironment(tex.Env("split", ""))
	return p
}

// HyperRef returns the hyperref commands.
func HyperRef() *tex.Package {
	return tex.NewPackage("hyperref").MustAddCommands(`
\href{url:str}{data}
\url{url:str}
\autoref{key:str}
\nameref{key:str}
\hypersetup{options:dict}
\phantomsection
`)
}

// GraphicX returns the graphicx commands.
func GraphicX() *tex.Package {
	return tex.NewPackage("graphicx").MustAddCommands(`
\includegraphics[options:dict]{file:str}
\graphicspath{dirs:str}
\rotatebox[options:dict]{angle:str}{data}
\scalebox{h:str}[v:str]{data}
\resizebox{width:str}{height:str}{data}
`)
}
