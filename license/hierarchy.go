package license

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// ORDERED MAP - String-keyed map that remembers first-seen key order
// =============================================================================
// Every view is a nested mapping keyed by account, then sub-account, then
// license, and consumers render them in first-seen order. Go maps do not keep
// order, so views are built from OrderedMaps, which also marshal to JSON
// objects with keys in that order.
// =============================================================================

// OrderedMap is a string-keyed map that iterates in insertion order.
// Re-setting an existing key keeps its original position.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores v under key.
func (m *OrderedMap[V]) Set(key string, v V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in first-seen order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys. Safe on a nil receiver.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (m *OrderedMap[V]) Range(fn func(key string, v V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MapValues returns a new OrderedMap with fn applied to every value, keeping order.
func MapValues[V, W any](m *OrderedMap[V], fn func(V) W) *OrderedMap[W] {
	out := NewOrderedMap[W]()
	m.Range(func(k string, v V) bool {
		out.Set(k, fn(v))
		return true
	})
	return out
}

// =============================================================================
// HIERARCHY BUILDER - Nest a sorted row set by account / sub-account / license
// =============================================================================
// The accumulation policy is chosen per view:
//   Overwrite - one value per leaf, a repeated leaf key replaces the value
//               (usage, technology mix: rows are pre-aggregated)
//   Append    - a repeated leaf key appends to an ordered list
//               (future expiration: one entry per dated tranche;
//                shortage: one list of licenses per sub-account)
// Row order is preserved at every level: keys appear in first-seen order and
// appended lists keep the row order of the input.
// =============================================================================

// Accumulator merges a row value into the leaf currently stored under its key.
// current is the zero L the first time a key is seen.
type Accumulator[V, L any] func(current L, v V) L

// Overwrite keeps the last value seen for a leaf key.
func Overwrite[V any]() Accumulator[V, V] {
	return func(_ V, v V) V { return v }
}

// Append collects every value seen for a leaf key, in row order.
func Append[V any]() Accumulator[V, []V] {
	return func(current []V, v V) []V { return append(current, v) }
}

// Build2 nests rows two levels deep: first key -> second key -> leaf.
func Build2[T, V, L any](
	rows []T,
	keys func(T) (string, string),
	value func(T) V,
	acc Accumulator[V, L],
) *OrderedMap[*OrderedMap[L]] {
	out := NewOrderedMap[*OrderedMap[L]]()
	for _, row := range rows {
		k1, k2 := keys(row)
		leaves := child[L](out, k1)
		current, _ := leaves.Get(k2)
		leaves.Set(k2, acc(current, value(row)))
	}
	return out
}

// Build3 nests rows three levels deep: account -> sub-account -> license -> leaf.
func Build3[T, V, L any](
	rows []T,
	keys func(T) (string, string, string),
	value func(T) V,
	acc Accumulator[V, L],
) *OrderedMap[*OrderedMap[*OrderedMap[L]]] {
	out := NewOrderedMap[*OrderedMap[*OrderedMap[L]]]()
	for _, row := range rows {
		k1, k2, k3 := keys(row)
		leaves := child[L](child[*OrderedMap[L]](out, k1), k2)
		current, _ := leaves.Get(k3)
		leaves.Set(k3, acc(current, value(row)))
	}
	return out
}

// child returns the map stored under key, creating it on first use.
func child[V any](parent *OrderedMap[*OrderedMap[V]], key string) *OrderedMap[V] {
	m, ok := parent.Get(key)
	if !ok {
		m = NewOrderedMap[V]()
		parent.Set(key, m)
	}
	return m
}
