// Command analyze_tex compares two LaTeX files to find structural differences
package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"latex-parser/internal/errors"
	"latex-parser/internal/latex"
	"latex-parser/internal/logger"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
)

// commentedEnvRe finds environments that were switched off with a comment
var commentedEnvRe = regexp.MustCompile(`^%\s*\\(begin|end)\{([^}]+)\}`)

// stats is what analyze_tex knows about one file
type stats struct {
	Lines     int
	Bytes     int
	Envs      map[string]int
	Commented map[string]int
	Outline   []latex.Heading
	Labels    []string
	Refs      []string
}

func analyze(text string, root tex.Element) *stats {
	s := &stats{
		Lines:     strings.Count(text, "\n") + 1,
		Bytes:     len(text),
		Envs:      make(map[string]int),
		Commented: make(map[string]int),
		Outline:   latex.Outline(root),
		Labels:    latex.Keys(root, "label"),
		Refs:      latex.Keys(root, "ref", "pageref", "eqref", "autoref", "cref"),
	}
	tex.Walk(root, func(e tex.Element) bool {
		switch v := e.(type) {
		case *tex.Environment:
			s.Envs[v.Name]++
		case *tex.Leaf:
			if v.IsComment() {
				if m := commentedEnvRe.FindStringSubmatch(v.Raw); m != nil {
					s.Commented[`% \`+m[1]+"{"+m[2]+"}"]++
				}
			}
		}
		return true
	})
	return s
}

func load(path string) (*stats, error) {
	f, err := source.ReadFile(path, source.Options{})
	if err != nil {
		return nil, err
	}
	root, err := tex.Parse(f.Text, tex.WithPolicy(tex.Silent), tex.WithName(path))
	if err != nil {
		return nil, fmt.Errorf("%s", errors.Render(err, path, f.Text))
	}
	return analyze(f.Text, root), nil
}

func union(a, b map[string]int) []string {
	seen := make(map[string]bool)
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// missing returns the keys of want that have no entry in have, once each.
func missing(want, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, k := range have {
		set[k] = true
	}
	var out []string
	for _, k := range want {
		if !set[k] {
			out = append(out, k)
			set[k] = true
		}
	}
	return out
}

func printOutline(w io.Writer, title string, hs []latex.Heading) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(hs))
	for i, h := range hs {
		indent := strings.Repeat("  ", max(h.Level, 0))
		fmt.Fprintf(w, "  %d. %s%s", i+1, indent, strings.TrimSpace(h.Title))
		if h.Label != "" {
			fmt.Fprintf(w, " [%s]", h.Label)
		}
		fmt.Fprintln(w)
	}
}

// compare prints the report and returns the number of differences found.
func compare(w io.Writer, orig, trans *stats) int {
	diffs := 0

	fmt.Fprintln(w, "=== File Statistics ===")
	fmt.Fprintf(w, "Original: %d lines, %d bytes\n", orig.Lines, orig.Bytes)
	fmt.Fprintf(w, "Translated: %d lines, %d bytes\n", trans.Lines, trans.Bytes)

	fmt.Fprintln(w, "\n=== Structure Comparison ===")
	for _, name := range union(orig.Envs, trans.Envs) {
		o, t := orig.Envs[name], trans.Envs[name]
		diff := ""
		if o != t {
			diff = fmt.Sprintf(" [DIFF: %+d]", t-o)
			diffs++
		}
		fmt.Fprintf(w, "%-15s: orig=%2d, trans=%2d%s\n", name, o, t, diff)
	}
	if len(orig.Outline) != len(trans.Outline) {
		fmt.Fprintf(w, "%-15s: orig=%2d, trans=%2d [DIFF: %+d]\n", "headings",
			len(orig.Outline), len(trans.Outline), len(trans.Outline)-len(orig.Outline))
		diffs++
	}

	if len(orig.Commented)+len(trans.Commented) > 0 {
		fmt.Fprintln(w, "\n=== Commented Environments ===")
		for _, name := range union(orig.Commented, trans.Commented) {
			fmt.Fprintf(w, "%-20s: orig=%2d, trans=%2d\n", name, orig.Commented[name], trans.Commented[name])
		}
	}

	fmt.Fprintln(w, "\n=== Section Titles ===")
	printOutline(w, "Original sections", orig.Outline)
	fmt.Fprintln(w)
	printOutline(w, "Translated sections", trans.Outline)

	fmt.Fprintln(w, "\n=== Potential Missing Content ===")
	if labels := missing(orig.Labels, trans.Labels); len(labels) > 0 {
		fmt.Fprintf(w, "Missing labels (%d):\n", len(labels))
		for _, l := range labels {
			fmt.Fprintf(w, "  - %s\n", l)
		}
		diffs += len(labels)
	} else {
		fmt.Fprintln(w, "All labels present!")
	}
	if refs := missing(trans.Refs, trans.Labels); len(refs) > 0 {
		fmt.Fprintf(w, "Undefined references in translation (%d):\n", len(refs))
		for _, r := range refs {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		diffs += len(refs)
	}
	return diffs
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(stderr, "Usage: analyze_tex <original.tex> <translated.tex>")
		return 2
	}
	if err := logger.Init(&logger.Config{Output: stderr, Level: logger.LevelError}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()

	orig, err := load(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error reading original: %v\n", err)
		return 1
	}
	trans, err := load(args[1])
	if err != nil {
		fmt.Fprintf(stderr, "Error reading translated: %v\n", err)
		return 1
	}
	if compare(stdout, orig, trans) > 0 {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
