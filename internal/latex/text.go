package latex

import (
	"regexp"
	"strings"

	"latex-parser/internal/tex"
	"latex-parser/internal/tokens"
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n(\s*\n)+`)

// PlainText renders the readable text below e: accents and symbols become
// their letters, font and title commands keep their text, comments and
// other commands are dropped. Formulas are kept as source.
func PlainText(e tex.Element) string {
	var sb strings.Builder
	writeText(&sb, e)
	out := blankLines.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeText(sb *strings.Builder, e tex.Element) {
	switch v := e.(type) {
	case *tex.Text:
		sb.WriteString(v.Data)
	case *tex.Par:
		sb.WriteString("\n\n")
	case *tex.Math:
		sb.WriteString(v.Source())
	case *tex.Verb:
		sb.WriteString(v.Data)
	case *tex.Leaf:
		switch v.Tok.Cat {
		case tokens.Comment:
		case tokens.Alignment, tokens.Active:
			sb.WriteByte(' ')
		default:
			sb.WriteString(v.Raw)
		}
	case *tex.Macro:
		writeMacro(sb, v)
	case interface{ Children() []tex.Element }:
		for _, c := range v.Children() {
			writeText(sb, c)
		}
	}
}

func writeMacro(sb *strings.Builder, m *tex.Macro) {
	if s, ok := Letter(m); ok {
		sb.WriteString(s)
		return
	}
	switch m.Name {
	case `\`, "tabularnewline":
		sb.WriteByte('\n')
		return
	case ",", " ":
		sb.WriteByte(' ')
		return
	}
	if data, ok := m.Arg("data"); ok && !tex.IsEmpty(data) {
		writeText(sb, data)
	}
}
