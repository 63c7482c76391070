// Package check runs the parser over many source files and verifies that
// every file parses and that the element tree reproduces its source.
package check

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"latex-parser/internal/errors"
	_ "latex-parser/internal/latex"
	"latex-parser/internal/logger"
	"latex-parser/internal/source"
	"latex-parser/internal/tex"
	"latex-parser/internal/types"
)

// DefaultExtensions are the file extensions collected from directories.
var DefaultExtensions = []string{".tex", ".sty", ".cls", ".ltx"}

// Options configure a Checker
type Options struct {
	Policy   tex.Policy
	Packages []string
	Source   source.Options
	// Workers is the number of files checked at once. Values below one mean one.
	Workers int
	// Progress is called after each file when set.
	Progress func(done, total int, res *types.CheckResult)
}

// settings renders the options that influence a result, for cache keys.
func (o Options) settings() string {
	return fmt.Sprintf("policy=%s;packages=%s;encoding=%s;nfc=%t",
		o.Policy, strings.Join(o.Packages, ","), o.Source.Encoding, o.Source.NFC)
}

// Checker checks source files and keeps failures in a report
type Checker struct {
	opts   Options
	report *errors.Report
	cache  *Cache
}

// New returns a checker. report and cache may be nil.
func New(opts Options, report *errors.Report, cache *Cache) *Checker {
	if report == nil {
		report, _ = errors.NewReport("")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Checker{opts: opts, report: report, cache: cache}
}

// Report returns the failure report
func (c *Checker) Report() *errors.Report {
	return c.report
}

// CheckFile checks the file at path.
func (c *Checker) CheckFile(path string) *types.CheckResult {
	start := time.Now()
	res := &types.CheckResult{Path: path}
	defer func() { res.ElapsedMS = time.Since(start).Milliseconds() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = types.NewAppErrorWithDetails(types.ErrFileNotFound, "source file not found", path, err)
		} else {
			err = types.NewAppError(types.ErrInvalidInput, "failed to read file", err)
		}
		c.fail(res, errors.StageRead, err)
		return res
	}

	digest := Digest(c.opts.settings(), data)
	if c.cache.Passed(digest) {
		res.OK = true
		res.Cached = true
		c.report.Resolve(path)
		logger.Debug("unchanged source skipped", logger.String("path", path))
		return res
	}

	f, err := source.Load(path, data, c.opts.Source)
	if err != nil {
		c.fail(res, errors.StageRead, err)
		return res
	}
	res.Encoding = string(f.Encoding)
	c.checkText(res, f.Text)
	if res.OK {
		c.cache.Mark(digest, path)
	}
	return res
}

// CheckText checks source text that did not come from disk.
func (c *Checker) CheckText(name, text string) *types.CheckResult {
	start := time.Now()
	res := &types.CheckResult{Path: name, Encoding: string(source.UTF8)}
	c.checkText(res, text)
	res.ElapsedMS = time.Since(start).Milliseconds()
	return res
}

func (c *Checker) checkText(res *types.CheckResult, text string) {
	root, err := tex.Parse(text,
		tex.WithPolicy(c.opts.Policy),
		tex.WithPackages(c.opts.Packages...),
		tex.WithName(JobName(res.Path)))
	if err != nil {
		c.fail(res, errors.StageParse, err)
		return
	}

	if off := Mismatch(text, root.Source()); off >= 0 {
		pos := errors.PosAt(text, off)
		res.Mismatch = off
		c.fail(res, errors.StageRoundTrip, &roundTripError{pos: pos})
		return
	}

	tex.Walk(root, func(tex.Element) bool {
		res.Elements++
		return true
	})
	res.OK = true
	c.report.Resolve(res.Path)
}

func (c *Checker) fail(res *types.CheckResult, stage errors.Stage, err error) {
	res.OK = false
	res.Stage = string(stage)
	res.Error = err.Error()
	var p errors.Positioned
	if stderrors.As(err, &p) && p.Position().IsValid() {
		res.Line = p.Position().Line
		res.Column = p.Position().Column
	}
	c.cache.Forget(res.Path)
	c.report.Record(res.Path, stage, err)
	logger.Info("source check failed",
		logger.String("path", res.Path),
		logger.String("stage", string(stage)),
		logger.Err(err))
}

// roundTripError reports where a rebuilt source first differs from the input
type roundTripError struct {
	pos errors.Pos
}

func (e *roundTripError) Error() string {
	return fmt.Sprintf("rebuilt source differs from input at %s", e.pos)
}

func (e *roundTripError) Position() errors.Pos { return e.pos }

// Run checks paths with the configured number of workers. Results keep the
// order of paths. Files not started when ctx is cancelled are left out.
func (c *Checker) Run(ctx context.Context, paths []string) *types.CheckSummary {
	start := time.Now()
	results := make([]*types.CheckResult, len(paths))

	sem := make(chan struct{}, c.opts.Workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

loop:
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			res := c.CheckFile(path)
			mu.Lock()
			results[idx] = res
			done++
			n := done
			mu.Unlock()

			if c.opts.Progress != nil {
				c.opts.Progress(n, len(paths), res)
			}
		}(i, path)
	}
	wg.Wait()

	sum := &types.CheckSummary{ByStage: make(map[string]int)}
	for _, res := range results {
		if res == nil {
			continue
		}
		sum.Results = append(sum.Results, res)
		sum.Files++
		switch {
		case res.OK:
			sum.Passed++
			if res.Cached {
				sum.Cached++
			}
		default:
			sum.Failed++
			sum.ByStage[res.Stage]++
		}
	}
	sum.Duration = time.Since(start).Milliseconds()
	logger.Info("source check finished",
		logger.Int("files", sum.Files),
		logger.Int("passed", sum.Passed),
		logger.Int("failed", sum.Failed),
		logger.Int("cached", sum.Cached))
	return sum
}

// Collect expands roots into a sorted list of files. Directories are walked
// for files with one of exts (DefaultExtensions when empty); other roots are
// glob patterns or plain file names.
func Collect(roots []string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err == nil && info.IsDir() {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if path != root && strings.HasPrefix(d.Name(), ".") {
						return filepath.SkipDir
					}
					return nil
				}
				if want[strings.ToLower(filepath.Ext(path))] {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", root, err)
			}
			continue
		}
		if err == nil {
			add(root)
			continue
		}

		matches, gerr := filepath.Glob(root)
		if gerr != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", root, gerr)
		}
		if len(matches) == 0 {
			// reported as a read failure by the checker
			add(root)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Mismatch returns the byte offset of the first difference between a and b,
// or -1 when they are equal.
func Mismatch(a, b string) int {
	if a == b {
		return -1
	}
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// JobName strips the directory and .tex extension like TeX does for \jobname.
func JobName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ".tex")
}
