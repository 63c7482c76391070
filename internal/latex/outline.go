package latex

import (
	"latex-parser/internal/tex"
)

// Heading is one sectioning command of a document.
type Heading struct {
	Command string
	Level   int
	Title   string
	// Label is the key of the first \label following the heading before the
	// next heading, if any.
	Label string
}

// Outline lists the sectioning commands below root in document order.
func Outline(root tex.Element) []Heading {
	var out []Heading
	tex.Walk(root, func(e tex.Element) bool {
		m, ok := e.(*tex.Macro)
		if !ok {
			return true
		}
		if level, ok := SectionLevels[m.Name]; ok {
			h := Heading{Command: m.Name, Level: level}
			if data, ok := m.Arg("data"); ok {
				h.Title = PlainText(data)
			}
			out = append(out, h)
			return true
		}
		if m.Name == "label" && len(out) > 0 && out[len(out)-1].Label == "" {
			out[len(out)-1].Label = m.Args.Text("key")
		}
		return true
	})
	return out
}

// Keys collects the keys named by \label, \ref, \cite and friends below
// root, in document order. Repeated keys are kept.
func Keys(root tex.Element, commands ...string) []string {
	want := make(map[string]bool, len(commands))
	for _, c := range commands {
		want[c] = true
	}
	var out []string
	tex.Walk(root, func(e tex.Element) bool {
		m, ok := e.(*tex.Macro)
		if !ok || !want[m.Name] {
			return true
		}
		switch {
		case m.Args.Has("keys"):
			out = append(out, m.Args.Strings("keys")...)
		case m.Args.Has("key"):
			out = append(out, m.Args.Text("key"))
		}
		return true
	})
	return out
}
