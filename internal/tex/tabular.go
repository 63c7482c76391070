package tex

import (
	"strings"

	"latex-parser/internal/tokens"
)

// Row is one line of a tabular body, including the \\ that ends it.
type Row struct {
	Container
}

func newRow(children []Element) *Row {
	r := &Row{}
	r.init(r, children)
	return r
}

func (r *Row) Copy() Element {
	cp := &Row{}
	r.copyInto(&cp.Container, cp)
	return cp
}

// Cells splits the row at alignment tabs. Rules such as \hline and the row
// terminator are not part of any cell.
func (r *Row) Cells() [][]Element {
	var (
		cells [][]Element
		cur   []Element
	)
	for _, c := range r.Children() {
		if l, ok := c.(*Leaf); ok && l.Tok.Cat == tokens.Alignment {
			cells = append(cells, cur)
			cur = nil
			continue
		}
		if m, ok := c.(*Macro); ok && (isRowEnd(m.Name) || m.Name == "hline" || m.Name == "cline") {
			continue
		}
		cur = append(cur, c)
	}
	if len(cells) > 0 || len(cur) > 0 {
		cells = append(cells, cur)
	}
	return cells
}

// Strings returns the trimmed source of every cell.
func (r *Row) Strings() []string {
	var out []string
	for _, cell := range r.Cells() {
		var sb strings.Builder
		for _, e := range cell {
			sb.WriteString(e.Source())
		}
		out = append(out, strings.TrimSpace(sb.String()))
	}
	return out
}

func isRowEnd(name string) bool { return name == `\` || name == "tabularnewline" }

// RowBody groups the body of a tabular-like environment into Rows ended by
// \\ or \tabularnewline. A last row holding only whitespace and rules is
// kept as a row.
var RowBody = BodyReaderFunc(func(job *Job, s tokens.Stream, env *Environment) ([]Element, error) {
	children, err := job.ReadAll(s)
	if err != nil {
		return nil, err
	}
	var (
		out []Element
		cur []Element
	)
	for _, c := range children {
		cur = append(cur, c)
		if m, ok := c.(*Macro); ok && isRowEnd(m.Name) {
			out = append(out, newRow(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, newRow(cur))
	}
	return out, nil
})

// Rows returns the rows of a tabular-like environment.
func (e *Environment) Rows() []*Row { return GetAll[*Row](e) }

// Matrix returns the trimmed cell sources of every row that has cells.
func (e *Environment) Matrix() [][]string {
	var out [][]string
	for _, r := range e.Rows() {
		if cells := r.Strings(); len(cells) > 0 && !(len(cells) == 1 && cells[0] == "") {
			out = append(out, cells)
		}
	}
	return out
}
