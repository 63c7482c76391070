// Package scope provides a stack of maps where lookups walk from the
// innermost level outwards and writes always go to the innermost level.
package scope

import "errors"

// ErrOutermost is returned when closing the last remaining level.
var ErrOutermost = errors.New("scope: already at the outermost level")

// Table is a nested map. The zero value is not usable; call New.
type Table[K comparable, V any] struct {
	levels []level[K, V]
}

type level[K comparable, V any] struct {
	values map[K]V
	order  []K
}

func newLevel[K comparable, V any]() level[K, V] {
	return level[K, V]{values: make(map[K]V)}
}

// New returns a table with a single, outermost level.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{levels: []level[K, V]{newLevel[K, V]()}}
}

// Up opens a new innermost level.
func (t *Table[K, V]) Up() {
	t.levels = append(t.levels, newLevel[K, V]())
}

// Down discards the innermost level and everything written to it.
func (t *Table[K, V]) Down() error {
	if len(t.levels) == 1 {
		return ErrOutermost
	}
	t.levels = t.levels[:len(t.levels)-1]
	return nil
}

// Depth returns the number of levels, at least 1.
func (t *Table[K, V]) Depth() int { return len(t.levels) }

// Get looks key up from the innermost level outwards.
func (t *Table[K, V]) Get(key K) (V, bool) {
	for i := len(t.levels) - 1; i >= 0; i-- {
		if v, ok := t.levels[i].values[key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Set writes key in the innermost level, shadowing outer definitions.
func (t *Table[K, V]) Set(key K, value V) {
	lv := &t.levels[len(t.levels)-1]
	if _, ok := lv.values[key]; !ok {
		lv.order = append(lv.order, key)
	}
	lv.values[key] = value
}

// Delete removes the innermost definition of key. The outer definition, if
// any, becomes visible again.
func (t *Table[K, V]) Delete(key K) bool {
	for i := len(t.levels) - 1; i >= 0; i-- {
		lv := &t.levels[i]
		if _, ok := lv.values[key]; ok {
			delete(lv.values, key)
			for j, k := range lv.order {
				if k == key {
					lv.order = append(lv.order[:j], lv.order[j+1:]...)
					break
				}
			}
			return true
		}
	}
	return false
}

// Keys returns every visible key once, outermost definitions first, in
// insertion order.
func (t *Table[K, V]) Keys() []K {
	seen := make(map[K]bool)
	var keys []K
	for _, lv := range t.levels {
		for _, k := range lv.order {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Len returns the number of visible keys.
func (t *Table[K, V]) Len() int { return len(t.Keys()) }

// Clone returns a table with the same levels. Values are copied shallowly.
func (t *Table[K, V]) Clone() *Table[K, V] {
	c := &Table[K, V]{levels: make([]level[K, V], len(t.levels))}
	for i, lv := range t.levels {
		nl := level[K, V]{values: make(map[K]V, len(lv.values)), order: append([]K(nil), lv.order...)}
		for k, v := range lv.values {
			nl.values[k] = v
		}
		c.levels[i] = nl
	}
	return c
}
