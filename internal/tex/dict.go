package tex

import (
	"strings"
)

// DictValue is the value of a Dict entry: a string, or a bare flag.
type DictValue struct {
	Value string
	Flag  bool
}

func (v DictValue) String() string {
	if v.Flag {
		return "true"
	}
	return v.Value
}

// Dict is a comma separated key=value argument such as [french,12pt,a=b].
// Keys without a value are flags set to true. Entries keep their order.
type Dict struct {
	base
	keys     []string
	values   map[string]DictValue
	raw      string
	modified bool
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{values: make(map[string]DictValue), modified: true}
}

// ParseDict reads key=value pairs separated by commas at brace depth zero.
func ParseDict(raw string) *Dict {
	d := &Dict{values: make(map[string]DictValue), raw: raw}
	for _, item := range splitTopLevel(raw, ',') {
		k, v, found := strings.Cut(item, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		if !found || v == "" {
			d.put(k, DictValue{Flag: true})
		} else {
			d.put(k, DictValue{Value: v})
		}
	}
	return d
}

func (d *Dict) put(k string, v DictValue) {
	if _, ok := d.values[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.values[k] = v
}

// Keys returns the keys in order.
func (d *Dict) Keys() []string { return append([]string(nil), d.keys...) }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Get returns the entry for key.
func (d *Dict) Get(key string) (DictValue, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Set stores a string value.
func (d *Dict) Set(key, value string) {
	d.put(key, DictValue{Value: value})
	d.modified = true
}

// SetFlag stores a bare key.
func (d *Dict) SetFlag(key string) {
	d.put(key, DictValue{Flag: true})
	d.modified = true
}

// Delete removes key.
func (d *Dict) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	d.modified = true
}

// Map returns the entries as a plain map; flags map to "true".
func (d *Dict) Map() map[string]string {
	m := make(map[string]string, len(d.keys))
	for _, k := range d.keys {
		m[k] = d.values[k].String()
	}
	return m
}

// Source returns the text as read, or "k, k=v" once the dictionary changed.
func (d *Dict) Source() string {
	if !d.modified {
		return d.raw
	}
	items := make([]string, len(d.keys))
	for i, k := range d.keys {
		v := d.values[k]
		if v.Flag {
			items[i] = k
		} else {
			items[i] = k + "=" + v.Value
		}
	}
	return strings.Join(items, ", ")
}

func (d *Dict) Copy() Element {
	cp := &Dict{values: make(map[string]DictValue, len(d.values)), raw: d.raw, modified: d.modified}
	cp.keys = append(cp.keys, d.keys...)
	for k, v := range d.values {
		cp.values[k] = v
	}
	return cp
}

// List is a comma separated list of strings.
type List struct {
	base
	items    []string
	raw      string
	modified bool
}

// NewList returns a list of items.
func NewList(items ...string) *List {
	return &List{items: append([]string(nil), items...), modified: true}
}

// ParseList splits raw at commas on brace depth zero and trims each item.
// Empty items are dropped.
func ParseList(raw string) *List {
	l := &List{raw: raw}
	for _, item := range splitTopLevel(raw, ',') {
		if item = strings.TrimSpace(item); item != "" {
			l.items = append(l.items, item)
		}
	}
	return l
}

// Items returns the items in order.
func (l *List) Items() []string { return append([]string(nil), l.items...) }

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Append adds items at the end.
func (l *List) Append(items ...string) {
	l.items = append(l.items, items...)
	l.modified = true
}

// Source returns the text as read, or the items joined by ", " once the list changed.
func (l *List) Source() string {
	if !l.modified {
		return l.raw
	}
	return strings.Join(l.items, ", ")
}

func (l *List) Copy() Element {
	return &List{items: append([]string(nil), l.items...), raw: l.raw, modified: l.modified}
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
