package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stage names the step of a batch check at which a file failed
type Stage string

const (
	StageRead      Stage = "read"       // 读取/解码阶段
	StageParse     Stage = "parse"      // 解析阶段
	StageRoundTrip Stage = "round_trip" // 源码重建不一致
)

// Failure is one recorded failure of a batch check
type Failure struct {
	File      string    `json:"file"`
	Stage     Stage     `json:"stage"`
	Code      Code      `json:"code,omitempty"`
	Message   string    `json:"message"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts"`
}

// Report collects failures keyed by file and persists them as JSON so that
// repeated runs can track which files keep failing.
type Report struct {
	path     string
	mu       sync.RWMutex
	failures map[string]*Failure
}

// NewReport opens the report stored at path. A missing file yields an empty report.
func NewReport(path string) (*Report, error) {
	r := &Report{
		path:     path,
		failures: make(map[string]*Failure),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Record stores a failure for file, replacing an earlier one and counting attempts.
func (r *Report) Record(file string, stage Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &Failure{
		File:      file,
		Stage:     stage,
		Code:      codeOf(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
		Attempts:  1,
	}

	var p Positioned
	if stderrors.As(err, &p) && p.Position().IsValid() {
		f.Line = p.Position().Line
		f.Column = p.Position().Column
	}

	if existing, ok := r.failures[file]; ok {
		f.Attempts = existing.Attempts + 1
	}
	r.failures[file] = f
}

// Resolve removes the failure recorded for file, if any.
func (r *Report) Resolve(file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, file)
}

// Get returns a copy of the failure recorded for file
func (r *Report) Get(file string) (Failure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.failures[file]
	if !ok {
		return Failure{}, false
	}
	return *f, true
}

// List returns copies of all failures ordered by file name.
func (r *Report) List() []Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Failure, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// Len returns the number of failing files
func (r *Report) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.failures)
}

// Save writes the report to its path. Reports opened with an empty path are not persisted.
func (r *Report) Save() error {
	if r.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(r.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ExportFiles writes the failing file names to outputPath, one per line.
func (r *Report) ExportFiles(outputPath string) error {
	var sb strings.Builder
	for _, f := range r.List() {
		sb.WriteString(f.File)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write file list: %w", err)
	}
	return nil
}

func (r *Report) load() error {
	if r.path == "" {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read report: %w", err)
	}

	var failures []*Failure
	if err := json.Unmarshal(data, &failures); err != nil {
		return fmt.Errorf("failed to unmarshal report: %w", err)
	}
	for _, f := range failures {
		r.failures[f.File] = f
	}
	return nil
}

// StageDisplayName returns a short human label for a stage
func StageDisplayName(stage Stage) string {
	switch stage {
	case StageRead:
		return "read"
	case StageParse:
		return "parse"
	case StageRoundTrip:
		return "round trip"
	default:
		return string(stage)
	}
}

func codeOf(err error) Code {
	var (
		lex *LexicalError
		syn *SyntaxError
		unk *UnknownNameError
		arg *ArgumentError
	)
	switch {
	case stderrors.As(err, &lex):
		return lex.Code
	case stderrors.As(err, &syn):
		return syn.Code
	case stderrors.As(err, &unk):
		return CodeUnknownName
	case stderrors.As(err, &arg):
		return CodeArgument
	}
	return ""
}
