// Package editor rewrites TeX sources through their element tree. Edits
// change only the elements they target, so the rest of a file keeps its
// exact text.
package editor

import (
	"fmt"
	"regexp"
	"strings"

	_ "latex-parser/internal/latex"
	"latex-parser/internal/logger"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
	"latex-parser/internal/types"
)

var (
	controlWord   = regexp.MustCompile(`^[A-Za-z@]+$`)
	environmentRe = regexp.MustCompile(`^[A-Za-z@]+\*?$`)
)

// Edit changes a tree in place and reports how many elements it changed.
type Edit interface {
	Apply(root tex.Element) (int, error)
	String() string
}

// RenameMacro renames every \From to \To, keeping the arguments.
type RenameMacro struct {
	From, To string
}

func (r RenameMacro) String() string { return fmt.Sprintf(`rename \%s to \%s`, r.From, r.To) }

func (r RenameMacro) Apply(root tex.Element) (int, error) {
	if !controlWord.MatchString(r.To) && len([]rune(r.To)) != 1 {
		return 0, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid macro name", r.To, nil)
	}
	n := 0
	for _, m := range tex.FindMacros(root, r.From) {
		m.Name = r.To
		m.Raw = `\` + r.To
		n++
	}
	return n, nil
}

// RenameEnvironment renames every From environment to To.
type RenameEnvironment struct {
	From, To string
}

func (r RenameEnvironment) String() string { return fmt.Sprintf("rename environment %s to %s", r.From, r.To) }

func (r RenameEnvironment) Apply(root tex.Element) (int, error) {
	if !environmentRe.MatchString(r.To) {
		return 0, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid environment name", r.To, nil)
	}
	n := 0
	for _, env := range tex.FindEnvironments(root, r.From) {
		env.Name = r.To
		env.BeginRaw = renameTag(env.BeginRaw, r.From, r.To)
		env.EndRaw = renameTag(env.EndRaw, r.From, r.To)
		n++
	}
	return n, nil
}

// renameTag replaces the braced name in a \begin or \end tag, keeping any
// spacing the author put around it.
func renameTag(raw, from, to string) string {
	i := strings.LastIndex(raw, "{"+from+"}")
	if i < 0 {
		return raw
	}
	return raw[:i+1] + to + raw[i+1+len(from):]
}

// DeleteMacro removes every \Name together with its arguments.
type DeleteMacro struct {
	Name string
}

func (d DeleteMacro) String() string { return `delete \` + d.Name }

func (d DeleteMacro) Apply(root tex.Element) (int, error) {
	return remove(tex.FindMacros(root, d.Name)), nil
}

// DeleteEnvironment removes every Name environment with its content.
type DeleteEnvironment struct {
	Name string
}

func (d DeleteEnvironment) String() string { return "delete environment " + d.Name }

func (d DeleteEnvironment) Apply(root tex.Element) (int, error) {
	return remove(tex.FindEnvironments(root, d.Name)), nil
}

// StripComments removes comments. A comment takes its line end with it, as
// it does when TeX reads it.
type StripComments struct{}

func (StripComments) String() string { return "strip comments" }

func (StripComments) Apply(root tex.Element) (int, error) {
	comments := tex.Find(root, func(l *tex.Leaf) bool { return l.IsComment() })
	return remove(comments), nil
}

type parented interface {
	Parent() tex.Element
}

type remover interface {
	Remove(tex.Element) bool
}

// remove unlinks els from their containers. Elements held directly by an
// argument slot are left alone.
func remove[T tex.Element](els []T) int {
	n := 0
	for _, e := range els {
		p, ok := any(e).(parented)
		if !ok {
			continue
		}
		if r, ok := p.Parent().(remover); ok && r.Remove(e) {
			n++
		}
	}
	return n
}

// Editor applies edits to sources and files
type Editor struct {
	backups *BackupManager
	src     source.Options
	opts    []tex.Option
}

// New returns an editor. backups may be nil to write files without backups.
func New(backups *BackupManager, src source.Options, opts ...tex.Option) *Editor {
	return &Editor{backups: backups, src: src, opts: opts}
}

// Result describes one edited source
type Result struct {
	Path    string
	Changes int
	Backup  string
	Source  string
}

// Apply parses text, runs edits in order and returns the new source. The
// new source must parse again; otherwise an error is returned.
func (e *Editor) Apply(name, text string, edits ...Edit) (string, int, error) {
	root, err := tex.Parse(text, append(e.opts, tex.WithName(name))...)
	if err != nil {
		return "", 0, err
	}

	total := 0
	for _, ed := range edits {
		n, err := ed.Apply(root)
		if err != nil {
			return "", 0, err
		}
		logger.Debug("edit applied", logger.String("source", name), logger.String("edit", ed.String()), logger.Int("changes", n))
		total += n
	}
	out := root.Source()
	if total == 0 {
		return out, 0, nil
	}

	if _, err := tex.Parse(out, append(e.opts, tex.WithName(name))...); err != nil {
		return "", 0, types.NewAppErrorWithDetails(types.ErrParse, "edited source no longer parses", name, err)
	}
	return out, total, nil
}

// EditFile edits the file at path. Unless dryRun is set, a changed file is
// backed up and rewritten in its original encoding.
func (e *Editor) EditFile(path string, dryRun bool, edits ...Edit) (*Result, error) {
	f, err := source.ReadFile(path, e.src)
	if err != nil {
		return nil, err
	}
	out, n, err := e.Apply(path, f.Text, edits...)
	if err != nil {
		return nil, err
	}
	res := &Result{Path: path, Changes: n, Source: out}
	if n == 0 || dryRun {
		return res, nil
	}

	if e.backups != nil {
		if res.Backup, err = e.backups.Create(path); err != nil {
			return nil, err
		}
	}
	if err := f.WriteFile(path, out); err != nil {
		if res.Backup != "" {
			if rerr := e.backups.Restore(res.Backup, path); rerr != nil {
				logger.Error("failed to restore after write error", rerr, logger.String("path", path))
			}
		}
		return nil, err
	}
	logger.Info("source edited",
		logger.String("path", path),
		logger.Int("changes", n),
		logger.String("backup", res.Backup))
	return res, nil
}

