package stackitem

import "fmt"

// Array is an ordered, mutable vector of items compared by reference
// identity.
type Array struct {
	value []Item
	rc    int
}

// NewArray constructs an Array item from items (not copied).
func NewArray(items []Item) Item {
	return &Array{value: items}
}

// Type implements Item.
func (*Array) Type() Type { return ArrayT }

// Value implements Item.
func (a *Array) Value() interface{} { return a.value }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.value) }

// Append adds an item, enforcing MaxSize on the resulting count as a
// proxy for encoded size (exact size is re-checked at serialization).
func (a *Array) Append(it Item) error {
	if len(a.value)+1 > MaxSize {
		return ErrTooBig
	}
	a.value = append(a.value, it)
	return nil
}

// Bytes implements Item; compound types have no byte representation.
func (*Array) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Array has no bytes", ErrInvalidType)
}

// TryBool implements Item.
func (*Array) TryBool() (bool, error) { return true, nil }

// Equals implements Item: Array only compares equal by reference
// identity.
func (a *Array) Equals(other Item) bool {
	o, ok := other.(*Array)
	return ok && a == o
}

// Dup implements Item: Array duplication shares the underlying slice
// (a reference-semantics copy), matching the reference VM's handling
// of DUP on compound items.
func (a *Array) Dup() Item { return a }

// RefCount implements RefCounted.
func (a *Array) RefCount() int { return a.rc }

// IncRC implements RefCounted.
func (a *Array) IncRC() int { a.rc++; return a.rc }

// DecRC implements RefCounted.
func (a *Array) DecRC() int { a.rc--; return a.rc }

// RemoveAt deletes the element at index i, shifting later elements down.
func (a *Array) RemoveAt(i int) { a.value = append(a.value[:i], a.value[i+1:]...) }

// Clear empties the array.
func (a *Array) Clear() { a.value = nil }

// Struct is an ordered, mutable vector of items compared by deep
// value-equality (up to a recursion bound, enforced by the caller to
// avoid stack overflow on cyclic structs).
type Struct struct {
	value []Item
	rc    int
}

// NewStruct constructs a Struct item from items (not copied).
func NewStruct(items []Item) Item {
	return &Struct{value: items}
}

// Type implements Item.
func (*Struct) Type() Type { return StructT }

// Value implements Item.
func (s *Struct) Value() interface{} { return s.value }

// Len returns the number of fields.
func (s *Struct) Len() int { return len(s.value) }

// Append adds a field.
func (s *Struct) Append(it Item) error {
	if len(s.value)+1 > MaxSize {
		return ErrTooBig
	}
	s.value = append(s.value, it)
	return nil
}

// Bytes implements Item.
func (*Struct) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Struct has no bytes", ErrInvalidType)
}

// TryBool implements Item.
func (*Struct) TryBool() (bool, error) { return true, nil }

// Equals implements Item: structural, field-by-field comparison. The
// depth parameter of structEquals bounds recursion against cyclic
// structs; the engine calls the exported helper with its configured
// limit.
func (s *Struct) Equals(other Item) bool {
	return structEquals(s, other, 0, defaultMaxCompareDepth)
}

// defaultMaxCompareDepth bounds Struct equality recursion.
const defaultMaxCompareDepth = 64

func structEquals(a, other Item, depth, maxDepth int) bool {
	if depth > maxDepth {
		return false
	}
	s, ok := a.(*Struct)
	if !ok {
		return false
	}
	o, ok := other.(*Struct)
	if !ok || len(s.value) != len(o.value) {
		return false
	}
	for i := range s.value {
		if os, ok := s.value[i].(*Struct); ok {
			if !structEquals(os, o.value[i], depth+1, maxDepth) {
				return false
			}
			continue
		}
		if !s.value[i].Equals(o.value[i]) {
			return false
		}
	}
	return true
}

// Dup implements Item: Struct has value semantics, so Dup performs a
// shallow copy of the field vector (nested compounds are still shared
// by reference, matching the reference VM).
func (s *Struct) Dup() Item {
	cp := make([]Item, len(s.value))
	copy(cp, s.value)
	return &Struct{value: cp}
}

// Clone returns a deep, recursive copy, used when a Struct is read
// from storage and must not alias the stored instance.
func (s *Struct) Clone() *Struct {
	cp := make([]Item, len(s.value))
	for i, it := range s.value {
		if sub, ok := it.(*Struct); ok {
			cp[i] = sub.Clone()
		} else {
			cp[i] = it
		}
	}
	return &Struct{value: cp}
}

// RefCount implements RefCounted.
func (s *Struct) RefCount() int { return s.rc }

// IncRC implements RefCounted.
func (s *Struct) IncRC() int { s.rc++; return s.rc }

// DecRC implements RefCounted.
func (s *Struct) DecRC() int { s.rc--; return s.rc }

// RemoveAt deletes the field at index i, shifting later fields down.
func (s *Struct) RemoveAt(i int) { s.value = append(s.value[:i], s.value[i+1:]...) }

// Clear empties the struct.
func (s *Struct) Clear() { s.value = nil }

// MapElement is one key/value pair of a Map, kept in insertion order.
type MapElement struct {
	Key   Item
	Value Item
}

// Map is an insertion-ordered key->item map. Keys are restricted to
// primitive, immutable types (Boolean, Integer, ByteString).
type Map struct {
	elems []MapElement
	index map[interface{}]int
	rc    int
}

// NewMap constructs an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[interface{}]int)}
}

// Type implements Item.
func (*Map) Type() Type { return MapT }

// Value implements Item.
func (m *Map) Value() interface{} { return m.elems }

// Bytes implements Item.
func (*Map) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Map has no bytes", ErrInvalidType)
}

// TryBool implements Item.
func (*Map) TryBool() (bool, error) { return true, nil }

// Equals implements Item: Map compares equal by reference identity.
func (m *Map) Equals(other Item) bool {
	o, ok := other.(*Map)
	return ok && m == o
}

// Dup implements Item: reference-semantics share, matching Array/Struct
// family compound handling under DUP.
func (m *Map) Dup() Item { return m }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.elems) }

func mapKey(key Item) (interface{}, error) {
	if !key.Type().IsValid() {
		return nil, fmt.Errorf("%w: invalid map key type %s", ErrInvalidType, key.Type())
	}
	b, err := key.Bytes()
	if err != nil {
		return nil, err
	}
	return string(b) + key.Type().String(), nil
}

// Get looks up key, returning (nil, false) if absent.
func (m *Map) Get(key Item) (Item, bool) {
	k, err := mapKey(key)
	if err != nil {
		return nil, false
	}
	idx, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return m.elems[idx].Value, true
}

// Has reports whether key is present.
func (m *Map) Has(key Item) bool {
	_, ok := m.Get(key)
	return ok
}

// Set inserts or updates key->value, preserving original insertion
// order on update and enforcing MaxSize on growth.
func (m *Map) Set(key, value Item) error {
	k, err := mapKey(key)
	if err != nil {
		return err
	}
	if idx, ok := m.index[k]; ok {
		m.elems[idx].Value = value
		return nil
	}
	if len(m.elems)+1 > MaxSize {
		return ErrTooBig
	}
	m.index[k] = len(m.elems)
	m.elems = append(m.elems, MapElement{Key: key, Value: value})
	return nil
}

// Delete removes key if present.
func (m *Map) Delete(key Item) {
	k, err := mapKey(key)
	if err != nil {
		return
	}
	idx, ok := m.index[k]
	if !ok {
		return
	}
	m.elems = append(m.elems[:idx], m.elems[idx+1:]...)
	delete(m.index, k)
	for i := idx; i < len(m.elems); i++ {
		ek, _ := mapKey(m.elems[i].Key)
		m.index[ek] = i
	}
}

// Clear empties the map.
func (m *Map) Clear() {
	m.elems = nil
	m.index = make(map[interface{}]int)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Key
	}
	return out
}

// Values returns the values in insertion order.
func (m *Map) Values() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Value
	}
	return out
}

// RefCount implements RefCounted.
func (m *Map) RefCount() int { return m.rc }

// IncRC implements RefCounted.
func (m *Map) IncRC() int { m.rc++; return m.rc }

// DecRC implements RefCounted.
func (m *Map) DecRC() int { m.rc--; return m.rc }
