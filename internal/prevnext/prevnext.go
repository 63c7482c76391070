// Package prevnext implements an ordered, duplicate-free list of elements
// that know their own position, siblings and parent.
//
// Elements are linked to at most one List at a time. A List keeps an
// identity to position cache so that an element finds its index in O(1);
// every mutating operation keeps the cache exact. Linking an element twice
// is an engine bug and panics with an *errors.InvariantError.
//
// Types become list elements by embedding Node:
//
//	type Word struct {
//		prevnext.Node
//		Text string
//	}
//
//	l := prevnext.New(nil, &Word{Text: "a"}, &Word{Text: "b"})
package prevnext

import (
	"fmt"
	"sort"
	"sync/atomic"

	"latex-parser/internal/errors"
)

// Element is implemented by any type embedding Node. Implementations must
// be pointers so that identity is well defined.
type Element interface {
	link() *Node
}

// Node holds the back-reference from an element to its list.
type Node struct {
	list *List
	self Element
}

func (n *Node) link() *Node { return n }

var checks atomic.Bool

// SetChecks turns the full consistency check after every mutation on or off.
func SetChecks(on bool) { checks.Store(on) }

// ChecksEnabled reports whether consistency checks run after every mutation.
func ChecksEnabled() bool { return checks.Load() }

// List is an ordered sequence of linked elements with an optional parent.
type List struct {
	items  []Element
	index  map[Element]int
	parent Element
}

// New returns a list owned by parent (which may be nil) holding items.
func New(parent Element, items ...Element) *List {
	l := &List{index: make(map[Element]int), parent: parent}
	l.Extend(items...)
	return l
}

// Parent returns the element owning the list, or nil.
func (l *List) Parent() Element { return l.parent }

// SetParent changes the owner of the list.
func (l *List) SetParent(p Element) { l.parent = p }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// At returns the element at position i. Negative positions count from the end.
func (l *List) At(i int) Element {
	return l.items[l.norm(i)]
}

// Slice returns a copy of the elements in order.
func (l *List) Slice() []Element {
	return append([]Element(nil), l.items...)
}

// Index returns the position of e, or -1.
func (l *List) Index(e Element) int {
	if i, ok := l.index[e]; ok {
		return i
	}
	return -1
}

// Contains reports whether e is linked to l.
func (l *List) Contains(e Element) bool {
	_, ok := l.index[e]
	return ok
}

func (l *List) norm(i int) int {
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		panic(fmt.Sprintf("prevnext: index %d out of range [0:%d]", i, len(l.items)))
	}
	return i
}

func (l *List) claim(e Element) {
	if e == nil {
		errors.Invariant("nil element inserted into list")
	}
	n := e.link()
	if n.list == l {
		errors.Invariant("%T already present in the list", e)
	}
	if n.list != nil {
		errors.Invariant("%T already linked to another list", e)
	}
	n.list = l
	n.self = e
}

func release(e Element) {
	n := e.link()
	n.list = nil
	n.self = nil
}

// Append adds e at the end.
func (l *List) Append(e Element) {
	l.claim(e)
	l.items = append(l.items, e)
	l.index[e] = len(l.items) - 1
	l.verify()
}

// Extend appends every element of items in order.
func (l *List) Extend(items ...Element) {
	for _, e := range items {
		l.Append(e)
	}
}

// Insert places e before position i. Positions past either end are
// clamped; negative positions count from the end.
func (l *List) Insert(i int, e Element) {
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 {
		i = 0
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	l.claim(e)
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = e
	l.reindex(i)
	l.verify()
}

// Pop removes and returns the element at position i.
func (l *List) Pop(i int) Element {
	i = l.norm(i)
	e := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.index, e)
	release(e)
	l.reindex(i)
	l.verify()
	return e
}

// PopLast removes and returns the last element.
func (l *List) PopLast() Element { return l.Pop(-1) }

// Remove unlinks e. It reports false when e is not in the list.
func (l *List) Remove(e Element) bool {
	i, ok := l.index[e]
	if !ok {
		return false
	}
	l.Pop(i)
	return true
}

// Set replaces the element at position i by e and returns the element
// that was there, now unlinked.
func (l *List) Set(i int, e Element) Element {
	i = l.norm(i)
	old := l.items[i]
	if old == e {
		return old
	}
	l.claim(e)
	delete(l.index, old)
	release(old)
	l.items[i] = e
	l.index[e] = i
	l.verify()
	return old
}

// Sort orders the list with a stable sort.
func (l *List) Sort(less func(a, b Element) bool) {
	sort.SliceStable(l.items, func(i, j int) bool { return less(l.items[i], l.items[j]) })
	l.reindex(0)
	l.verify()
}

// Reverse reverses the list in place.
func (l *List) Reverse() {
	for i, j := 0, len(l.items)-1; i < j; i, j = i+1, j-1 {
		l.items[i], l.items[j] = l.items[j], l.items[i]
	}
	l.reindex(0)
	l.verify()
}

// Clear unlinks every element and returns them in their former order.
func (l *List) Clear() []Element {
	out := l.items
	for _, e := range out {
		release(e)
	}
	l.items = nil
	l.index = make(map[Element]int)
	l.verify()
	return out
}

// Copy returns a new list without parent holding clone(e) for every
// element. Clones must be fresh, unlinked values.
func (l *List) Copy(clone func(Element) Element) *List {
	c := New(nil)
	for _, e := range l.items {
		cp := clone(e)
		if cp == e {
			errors.Invariant("copy of %T shares identity with the original", e)
		}
		c.Append(cp)
	}
	return c
}

func (l *List) reindex(from int) {
	for i := from; i < len(l.items); i++ {
		l.index[l.items[i]] = i
	}
}

// Verify checks that the position cache matches the sequence and that every
// element points back to this list.
func (l *List) Verify() error {
	if len(l.index) != len(l.items) {
		return fmt.Errorf("index cache has %d entries for %d elements", len(l.index), len(l.items))
	}
	for i, e := range l.items {
		if j, ok := l.index[e]; !ok || j != i {
			return fmt.Errorf("%T at position %d is cached at %d", e, i, j)
		}
		if n := e.link(); n.list != l || n.self != e {
			return fmt.Errorf("%T at position %d does not link back to its list", e, i)
		}
	}
	return nil
}

func (l *List) verify() {
	if !checks.Load() {
		return
	}
	if err := l.Verify(); err != nil {
		errors.Invariant("%v", err)
	}
}

// List returns the list n is linked to, or nil.
func (n *Node) List() *List { return n.list }

// Linked reports whether the element belongs to a list.
func (n *Node) Linked() bool { return n.list != nil }

// Index returns the position among siblings, or -1 when unlinked.
func (n *Node) Index() int {
	if n.list == nil {
		return -1
	}
	return n.list.index[n.self]
}

// Next returns the following sibling, or nil.
func (n *Node) Next() Element {
	if n.list == nil {
		return nil
	}
	i := n.Index() + 1
	if i >= n.list.Len() {
		return nil
	}
	return n.list.items[i]
}

// Prev returns the preceding sibling, or nil.
func (n *Node) Prev() Element {
	if n.list == nil {
		return nil
	}
	i := n.Index()
	if i == 0 {
		return nil
	}
	return n.list.items[i-1]
}

// Parent returns the owner of the list n is linked to.
func (n *Node) Parent() Element {
	if n.list == nil {
		return nil
	}
	return n.list.parent
}

// HasSiblings reports whether other elements share the list.
func (n *Node) HasSiblings() bool {
	return n.list != nil && n.list.Len() > 1
}

// SiblingsNext returns the siblings after the element.
func (n *Node) SiblingsNext() []Element {
	if n.list == nil {
		return nil
	}
	return append([]Element(nil), n.list.items[n.Index()+1:]...)
}

// SiblingsPrev returns the siblings before the element.
func (n *Node) SiblingsPrev() []Element {
	if n.list == nil {
		return nil
	}
	return append([]Element(nil), n.list.items[:n.Index()]...)
}

// Unlink removes the element from its list. Unlinked elements are left
// untouched.
func (n *Node) Unlink() {
	if n.list != nil {
		n.list.Pop(n.Index())
	}
}

// ReplaceBy puts other at the element's position and unlinks the element.
// It reports false when the element is not linked.
func (n *Node) ReplaceBy(other Element) bool {
	if n.list == nil {
		return false
	}
	n.list.Set(n.Index(), other)
	return true
}

// Siblings returns every element of e's list, or just e when unlinked.
func Siblings(e Element) []Element {
	if l := e.link().list; l != nil {
		return l.Slice()
	}
	return []Element{e}
}

// InsertNext places obj right after e. An unlinked e gets a fresh list
// holding both.
func InsertNext(e, obj Element) {
	n := e.link()
	if n.list != nil {
		n.list.Insert(n.Index()+1, obj)
		return
	}
	New(nil, e, obj)
}

// InsertPrev places obj right before e. An unlinked e gets a fresh list
// holding both.
func InsertPrev(e, obj Element) {
	n := e.link()
	if n.list != nil {
		n.list.Insert(n.Index(), obj)
		return
	}
	New(nil, obj, e)
}
