package latex

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"latex-parser/internal/tex"
)

// accents maps accent commands to the combining mark they put on a letter.
var accents = map[string]rune{
	"`": '\u0300', // grave
	"'": '\u0301', // acute
	"^": '\u0302', // circumflex
	"~": '\u0303', // tilde
	"=": '\u0304', // macron
	"u": '\u0306', // breve
	".": '\u0307', // dot above
	`"`: '\u0308', // umlaut
	"r": '\u030A', // ring above
	"H": '\u030B', // double acute
	"v": '\u030C', // caron
	"d": '\u0323', // dot below
	"c": '\u0327', // cedilla
	"k": '\u0328', // ogonek
	"b": '\u0331', // macron below
	"t": '\u0361', // tie
}

// symbols maps symbol commands to their text.
var symbols = map[string]string{
	"dag": "†", "ddag": "‡", "S": "§", "P": "¶",
	"copyright": "©", "pounds": "£",
	"textbar": "|", "textbackslash": `\`, "textgreater": ">", "textless": "<",
	"textendash": "–", "textemdash": "—",
	"texttrademark": "™", "textregistered": "®",
	"textexclamdown": "¡", "textquestiondown": "¿",
	"oe": "œ", "OE": "Œ", "ae": "æ", "AE": "Æ", "aa": "å", "AA": "Å",
	"o": "ø", "O": "Ø", "l": "ł", "L": "Ł", "ss": "ß",
	"i": "ı", "j": "ȷ",
	"%": "%", "#": "#", "$": "$", "{": "{", "}": "}", "_": "_", "&": "&",
	"LaTeX": "LaTeX", "TeX": "TeX",
}

// dotless maps \i and \j to the letters accents are composed with.
var dotless = map[string]string{"ı": "i", "ȷ": "j"}

func addSymbols(p *tex.Package) {
	for _, name := range sortedKeys(accents) {
		p.Add(tex.Command(name, "{letter}"))
	}
	for _, name := range sortedKeys(symbols) {
		if name == "LaTeX" || name == "TeX" {
			continue
		}
		p.Add(tex.Command(name, ""))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Letter returns the text an accent or symbol macro stands for, e.g. "é"
// for \'{e} and "ß" for \ss.
func Letter(m *tex.Macro) (string, bool) {
	if s, ok := symbols[m.Name]; ok {
		return s, true
	}
	mark, ok := accents[m.Name]
	if !ok {
		return "", false
	}
	arg, _ := m.Arg("letter")
	base, ok := letterBase(arg)
	if !ok {
		return "", false
	}
	// the tie spans two letters and sits on the first one
	first, rest := base, ""
	if mark == '\u0361' && len([]rune(base)) > 1 {
		r := []rune(base)
		first, rest = string(r[0]), string(r[1:])
	}
	if dotted, ok := dotless[first]; ok {
		first = dotted
	}
	return norm.NFC.String(first+string(mark)) + rest, true
}

func letterBase(arg tex.Element) (string, bool) {
	switch v := arg.(type) {
	case *tex.Text:
		s := strings.TrimSpace(v.Data)
		return s, s != ""
	case *tex.Macro:
		return Letter(v)
	case *tex.Join:
		var sb strings.Builder
		for _, c := range v.Children() {
			s, ok := letterBase(c)
			if !ok {
				return "", false
			}
			sb.WriteString(s)
		}
		return sb.String(), sb.Len() > 0
	}
	return "", false
}
