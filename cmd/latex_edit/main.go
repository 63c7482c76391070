// latex-edit is a command-line tool for editing LaTeX files through their
// element tree
package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"latex-parser/internal/editor"
	"latex-parser/internal/errors"
	"latex-parser/internal/logger"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
	"latex-parser/internal/types"
)

const usage = `latex-edit - LaTeX File Editing Tool

Usage:
  latex-edit [options] <command> [arguments] <file>...

Commands:
  rename-macro <from> <to>    rename \from to \to, keeping arguments
  rename-env <from> <to>      rename an environment
  delete-macro <name>         delete a macro with its arguments
  delete-env <name>           delete an environment with its content
  strip-comments              delete comments

Backup Commands:
  latex-edit backup list <file>
  latex-edit backup restore <file> [backup]
  latex-edit backup cleanup <file> [keep]

Options:
  --dry-run            print the edited source instead of writing it
  --backup-dir <DIR>   where backups are kept (default: next to the file)
  --no-backup          do not back up files before writing
  --encoding <NAME>    source encoding
  --strict             unknown macros and environments are errors
`

// parseEdit turns a command and its arguments into an edit and returns the
// remaining arguments.
func parseEdit(args []string) (editor.Edit, []string, error) {
	need := func(n int) error {
		if len(args) < n+1 {
			return fmt.Errorf("%s needs %d argument(s)", args[0], n)
		}
		return nil
	}
	switch args[0] {
	case "rename-macro":
		if err := need(2); err != nil {
			return nil, nil, err
		}
		return editor.RenameMacro{From: args[1], To: args[2]}, args[3:], nil
	case "rename-env":
		if err := need(2); err != nil {
			return nil, nil, err
		}
		return editor.RenameEnvironment{From: args[1], To: args[2]}, args[3:], nil
	case "delete-macro":
		if err := need(1); err != nil {
			return nil, nil, err
		}
		return editor.DeleteMacro{Name: args[1]}, args[2:], nil
	case "delete-env":
		if err := need(1); err != nil {
			return nil, nil, err
		}
		return editor.DeleteEnvironment{Name: args[1]}, args[2:], nil
	case "strip-comments":
		return editor.StripComments{}, args[1:], nil
	}
	return nil, nil, fmt.Errorf("unknown command: %s", args[0])
}

func backupCommand(m *editor.BackupManager, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	path := args[1]
	switch args[0] {
	case "list":
		list, err := m.List(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, b := range list {
			fmt.Fprintln(stdout, b)
		}
	case "restore":
		backup := ""
		if len(args) > 2 {
			backup = args[2]
		} else {
			var err error
			if backup, err = m.Latest(path); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
		if err := m.Restore(backup, path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "restored %s from %s\n", path, backup)
	case "cleanup":
		keep := 5
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				fmt.Fprintf(stderr, "Error: invalid keep count %q\n", args[2])
				return 2
			}
			keep = n
		}
		removed, err := m.Cleanup(path, keep)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "removed %d backup(s)\n", removed)
	default:
		fmt.Fprintf(stderr, "Unknown backup command: %s\n", args[0])
		return 2
	}
	return 0
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("latex-edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		dryRun    = fs.Bool("dry-run", false, "print instead of writing")
		backupDir = fs.String("backup-dir", "", "backup directory")
		noBackup  = fs.Bool("no-backup", false, "do not back up files")
		encoding  = fs.String("encoding", "", "source encoding")
		strict    = fs.Bool("strict", false, "unknown names are errors")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	args = fs.Args()
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	if err := logger.Init(&logger.Config{Output: stderr, Level: logger.LevelWarn}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()

	backups := editor.NewBackupManager(*backupDir)
	if args[0] == "backup" {
		return backupCommand(backups, args[1:], stdout, stderr)
	}

	edit, files, err := parseEdit(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Error: no input files")
		return 2
	}

	enc, err := source.ParseEncoding(*encoding)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	policy := tex.Warn
	if *strict {
		policy = tex.Strict
	}
	if *noBackup {
		backups = nil
	}
	ed := editor.New(backups, source.Options{Encoding: enc}, tex.WithPolicy(policy))

	status := 0
	for _, path := range files {
		res, err := ed.EditFile(path, *dryRun, edit)
		if err != nil {
			// positions of edited-source errors do not match the file on disk
			var appErr *types.AppError
			if stderrors.As(err, &appErr) && appErr.Code == types.ErrParse {
				fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			} else if f, rerr := source.ReadFile(path, source.Options{Encoding: enc}); rerr == nil {
				fmt.Fprintln(stderr, errors.Render(err, path, f.Text))
			} else {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
			status = 1
			continue
		}
		if *dryRun {
			fmt.Fprint(stdout, res.Source)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s, %d change(s)\n", path, edit, res.Changes)
	}
	return status
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
