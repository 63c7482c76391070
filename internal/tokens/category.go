package tokens

import "fmt"

// Category is the lexical class of a character.
type Category int

const (
	Escape Category = iota
	BGroup
	EGroup
	MathShift
	Alignment
	EOL
	Parameter
	Super
	Sub
	Ignored
	Space
	Letter
	Other
	Active
	Comment
	Invalid
	// Skipped marks characters TeX discards. They are kept as zero-width
	// tokens so the original text can be rebuilt.
	Skipped
)

var categoryNames = [...]string{
	"escape", "bgroup", "egroup", "mathshift", "alignment", "eol",
	"parameter", "super", "sub", "ignored", "space", "letter", "other",
	"active", "comment", "invalid", "skipped",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// IsText reports whether characters of this category form plain text.
func (c Category) IsText() bool {
	return c == Space || c == Letter || c == Other
}

// Table maps characters to categories. Characters without an entry are Other.
type Table struct {
	ascii [128]Category
	wide  map[rune]Category
}

// NewTable returns a table where every character is Other.
func NewTable() *Table {
	t := &Table{}
	for i := range t.ascii {
		t.ascii[i] = Other
	}
	return t
}

// DefaultTable returns the plain TeX/LaTeX category assignment, with '@'
// treated as a letter.
func DefaultTable() *Table {
	t := NewTable()
	t.Set('\\', Escape)
	t.Set('{', BGroup)
	t.Set('}', EGroup)
	t.Set('$', MathShift)
	t.Set('&', Alignment)
	t.Set('\n', EOL)
	t.Set('#', Parameter)
	t.Set('^', Super)
	t.Set('_', Sub)
	t.Set('\x00', Ignored)
	t.SetAll(" \t\r\f", Space)
	t.SetAll(asciiLetters+"@", Letter)
	t.Set('~', Active)
	t.Set('%', Comment)
	return t
}

// VerbatimTable returns a table where only ASCII letters are special.
func VerbatimTable() *Table {
	t := NewTable()
	t.SetAll(asciiLetters, Letter)
	return t
}

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Set assigns a category to one character.
func (t *Table) Set(r rune, c Category) {
	if r >= 0 && r < 128 {
		t.ascii[r] = c
		return
	}
	if t.wide == nil {
		t.wide = make(map[rune]Category)
	}
	t.wide[r] = c
}

// SetAll assigns a category to every character of chars.
func (t *Table) SetAll(chars string, c Category) {
	for _, r := range chars {
		t.Set(r, c)
	}
}

// Lookup returns the category of r.
func (t *Table) Lookup(r rune) Category {
	if r >= 0 && r < 128 {
		return t.ascii[r]
	}
	if c, ok := t.wide[r]; ok {
		return c
	}
	return Other
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{ascii: t.ascii}
	if len(t.wide) > 0 {
		c.wide = make(map[rune]Category, len(t.wide))
		for r, cat := range t.wide {
			c.wide[r] = cat
		}
	}
	return c
}
