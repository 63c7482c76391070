package prevnext

import (
	stderrors "errors"
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-parser/internal/errors"
)

type word struct {
	Node
	text string
}

func w(s string) *word { return &word{text: s} }

func texts(items []Element) string {
	var sb strings.Builder
	for _, e := range items {
		sb.WriteString(e.(*word).text)
	}
	return sb.String()
}

func letters(s string) []Element {
	out := make([]Element, 0, len(s))
	for _, r := range s {
		out = append(out, w(string(r)))
	}
	return out
}

func TestMain(m *testing.M) {
	SetChecks(true)
	m.Run()
}

func TestSiblings(t *testing.T) {
	items := letters("RESPECT")
	l := New(nil, items...)
	R, P, C := items[0].(*word), items[3].(*word), items[5].(*word)

	assert.Equal(t, "E", R.Next().(*word).text)
	assert.Equal(t, "S", P.Prev().(*word).text)
	assert.Equal(t, "T", C.Next().(*word).text)
	assert.Nil(t, R.Prev())
	assert.Nil(t, items[6].(*word).Next())

	P.Unlink()
	C.Unlink()
	assert.Equal(t, "RESET", texts(l.Slice()))
	assert.False(t, P.Linked())
	assert.Equal(t, -1, P.Index())

	InsertPrev(R, w("P"))
	assert.Equal(t, "PRESET", texts(l.Slice()))

	last := l.PopLast().(*word)
	assert.False(t, last.HasSiblings())

	e := items[4].(*word)
	require.True(t, e.ReplaceBy(w("LEY")))
	assert.Equal(t, "PRESLEY", texts(l.Slice()))
	assert.False(t, e.Linked())

	cleared := l.Clear()
	assert.Equal(t, "PRESLEY", texts(cleared))
	assert.False(t, R.HasSiblings())
	assert.Equal(t, 0, l.Len())
}

func TestSiblingSlices(t *testing.T) {
	items := letters("abcd")
	New(nil, items...)
	c := items[2].(*word)
	assert.Equal(t, "ab", texts(c.SiblingsPrev()))
	assert.Equal(t, "d", texts(c.SiblingsNext()))
	assert.Equal(t, "abcd", texts(Siblings(c)))

	lone := w("z")
	assert.Equal(t, "z", texts(Siblings(lone)))
	assert.Nil(t, lone.SiblingsNext())
	assert.False(t, lone.ReplaceBy(w("y")))
}

func TestInsertOnUnlinkedElement(t *testing.T) {
	a, b := w("a"), w("b")
	InsertNext(a, b)
	require.NotNil(t, a.List())
	assert.Same(t, a.List(), b.List())
	assert.Equal(t, "ab", texts(Siblings(a)))

	c, d := w("c"), w("d")
	InsertPrev(c, d)
	assert.Equal(t, "dc", texts(Siblings(c)))
	assert.Nil(t, c.Parent())
}

func TestParent(t *testing.T) {
	owner := w("owner")
	l := New(owner, letters("xy")...)
	assert.Same(t, owner, l.At(0).(*word).Parent())
	assert.Same(t, owner, l.Parent())
}

func TestDuplicateInsertionPanics(t *testing.T) {
	a := w("a")
	l := New(nil, a)

	assertInvariant(t, func() { l.Append(a) })
	assertInvariant(t, func() { New(nil).Append(a) })
	assertInvariant(t, func() { l.Insert(0, a) })

	b := w("b")
	l.Append(b)
	assertInvariant(t, func() { l.Set(0, b) })
	assert.Equal(t, "ab", texts(l.Slice()), "failed mutations leave the list intact")
	require.NoError(t, l.Verify())
}

func assertInvariant(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, stderrors.Is(err, errors.ErrInvariant))
	}()
	f()
}

func TestSetReturnsUnlinkedElement(t *testing.T) {
	l := New(nil, letters("abc")...)
	old := l.Set(1, w("X"))
	assert.Equal(t, "b", old.(*word).text)
	assert.False(t, old.(*word).Linked())
	assert.Equal(t, "aXc", texts(l.Slice()))
	same := l.At(1)
	assert.Same(t, same, l.Set(1, same), "setting an element onto itself is a no-op")
	assert.True(t, same.(*word).Linked())
}

func TestInsertClamps(t *testing.T) {
	l := New(nil, letters("bc")...)
	l.Insert(-10, w("a"))
	l.Insert(99, w("d"))
	l.Insert(-1, w("_"))
	assert.Equal(t, "abc_d", texts(l.Slice()))
}

func TestRemove(t *testing.T) {
	items := letters("abc")
	l := New(nil, items...)
	assert.True(t, l.Remove(items[1]))
	assert.False(t, l.Remove(items[1]))
	assert.Equal(t, "ac", texts(l.Slice()))
	assert.Equal(t, 1, items[2].(*word).Index())
}

func TestSortAndReverse(t *testing.T) {
	l := New(nil, letters("dbca")...)
	l.Sort(func(a, b Element) bool { return a.(*word).text < b.(*word).text })
	assert.Equal(t, "abcd", texts(l.Slice()))
	l.Reverse()
	assert.Equal(t, "dcba", texts(l.Slice()))
	for i, e := range l.Slice() {
		assert.Equal(t, i, e.(*word).Index())
	}
}

func TestCopyDetaches(t *testing.T) {
	owner := w("owner")
	l := New(owner, letters("abc")...)
	cp := l.Copy(func(e Element) Element { return w(e.(*word).text) })

	assert.Equal(t, "abc", texts(cp.Slice()))
	assert.Nil(t, cp.Parent())
	for i := 0; i < l.Len(); i++ {
		assert.NotSame(t, l.At(i), cp.At(i))
		assert.Same(t, cp, cp.At(i).(*word).List())
		assert.Same(t, l, l.At(i).(*word).List())
	}

	assertInvariant(t, func() { l.Copy(func(e Element) Element { return e }) })
}

// Random operation sequences keep every cached index equal to the true
// position and never link an element to two lists.
func TestConsistencyUnderRandomOperations(t *testing.T) {
	cfg := &quick.Config{MaxCount: 300, Rand: rand.New(rand.NewSource(7))}

	property := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		l := New(nil)
		other := New(nil)
		var pool []*word
		for i := 0; i < 8; i++ {
			pool = append(pool, w(string(rune('a'+i))))
		}

		for step := 0; step < 40; step++ {
			switch r.Intn(6) {
			case 0:
				e := pool[r.Intn(len(pool))]
				if !e.Linked() {
					l.Insert(r.Intn(l.Len()+1), e)
				}
			case 1:
				if l.Len() > 0 {
					other.Append(l.Pop(r.Intn(l.Len())))
				}
			case 2:
				l.Sort(func(a, b Element) bool { return a.(*word).text < b.(*word).text })
			case 3:
				l.Reverse()
			case 4:
				if other.Len() > 0 {
					l.Append(other.Pop(0))
				}
			case 5:
				if l.Len() > 1 {
					e := l.At(r.Intn(l.Len())).(*word)
					e.Unlink()
					InsertPrev(l.At(0), e)
				}
			}

			if l.Verify() != nil || other.Verify() != nil {
				return false
			}
			for i, e := range l.Slice() {
				if e.(*word).Index() != i || other.Contains(e) {
					return false
				}
			}
		}
		return l.Len()+other.Len() <= len(pool)
	}

	if err := quick.Check(property, cfg); err != nil {
		t.Error(err)
	}
}
