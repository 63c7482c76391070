package errors

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")

	r, err := NewReport(path)
	if err != nil {
		t.Fatalf("Failed to open report: %v", err)
	}

	r.Record("b.tex", StageParse, MissingToken(`"}"`, "", Pos{Line: 4, Column: 2}))
	r.Record("a.tex", StageRoundTrip, stderrors.New("source differs at byte 10"))

	f, ok := r.Get("b.tex")
	if !ok {
		t.Fatal("Failure for b.tex not found")
	}
	if f.Code != CodeMissingToken || f.Line != 4 || f.Column != 2 {
		t.Errorf("unexpected failure record: %+v", f)
	}
	if f.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", f.Attempts)
	}

	r.Record("b.tex", StageParse, MissingToken(`"}"`, "", Pos{Line: 4, Column: 2}))
	f, _ = r.Get("b.tex")
	if f.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", f.Attempts)
	}

	list := r.List()
	if len(list) != 2 || list[0].File != "a.tex" || list[1].File != "b.tex" {
		t.Errorf("List should be sorted by file: %+v", list)
	}

	if err := r.Save(); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	reloaded, err := NewReport(path)
	if err != nil {
		t.Fatalf("Failed to reload report: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("Expected 2 failures after reload, got %d", reloaded.Len())
	}

	reloaded.Resolve("a.tex")
	if _, ok := reloaded.Get("a.tex"); ok {
		t.Error("a.tex should be resolved")
	}
}

func TestReportExportFiles(t *testing.T) {
	dir := t.TempDir()
	r, err := NewReport("")
	if err != nil {
		t.Fatalf("Failed to open report: %v", err)
	}
	r.Record("x.tex", StageRead, stderrors.New("permission denied"))
	r.Record("w.tex", StageParse, NewInvalidChar('\x7f', Pos{Line: 1, Column: 1}))

	out := filepath.Join(dir, "failing.txt")
	if err := r.ExportFiles(out); err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if strings.TrimSpace(string(data)) != "w.tex\nx.tex" {
		t.Errorf("unexpected export content: %q", data)
	}

	w, _ := r.Get("w.tex")
	if w.Code != CodeInvalidChar {
		t.Errorf("Expected code %s, got %s", CodeInvalidChar, w.Code)
	}
}

func TestReportBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReport(path); err == nil {
		t.Error("expected an error for a corrupt report file")
	}
}

func TestStageDisplayName(t *testing.T) {
	if got := StageDisplayName(StageRoundTrip); got != "round trip" {
		t.Errorf("StageDisplayName = %q", got)
	}
	if got := StageDisplayName(Stage("custom")); got != "custom" {
		t.Errorf("StageDisplayName = %q", got)
	}
}
