// Package columnar holds nullable columns and the engine that applies a
// fallible row parser across them in parallel partitions.
package columnar

import "fmt"

// Kind is the logical type of a column.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindUint16 Kind = "uint16"
	KindStruct Kind = "struct"
)

// Scalar is the set of value types a Column can hold.
type Scalar interface {
	string | bool | uint16
}

// Array is the type-erased view shared by every column.
type Array interface {
	Name() string
	Kind() Kind
	Len() int
	NullCount() int
	IsNull(i int) bool
	// Value returns the row as a Go value, or nil for null.
	Value(i int) any
}

// Column is an ordered sequence of optional values of one type.
type Column[T Scalar] struct {
	name   string
	values []T
	valid  []bool
	nulls  int
}

// Concrete columns the engine produces.
type (
	StringColumn = Column[string]
	BoolColumn   = Column[bool]
	Uint16Column = Column[uint16]
)

// NewColumn returns an empty column with room for capacity rows.
func NewColumn[T Scalar](name string, capacity int) *Column[T] {
	return &Column[T]{
		name:   name,
		values: make([]T, 0, capacity),
		valid:  make([]bool, 0, capacity),
	}
}

// FromValues builds a column from pointers; nil entries are null.
func FromValues[T Scalar](name string, values []*T) *Column[T] {
	c := NewColumn[T](name, len(values))
	for _, v := range values {
		if v == nil {
			c.AppendNull()
			continue
		}
		c.Append(*v)
	}
	return c
}

// Strings builds a string column without nulls.
func Strings(name string, values ...string) *StringColumn {
	c := NewColumn[string](name, len(values))
	for _, v := range values {
		c.Append(v)
	}
	return c
}

func (c *Column[T]) Name() string { return c.name }

func (c *Column[T]) Kind() Kind {
	var zero T
	switch any(zero).(type) {
	case bool:
		return KindBool
	case uint16:
		return KindUint16
	default:
		return KindString
	}
}

func (c *Column[T]) Len() int { return len(c.values) }
func (c *Column[T]) NullCount() int { return c.nulls }

func (c *Column[T]) Append(v T) {
	c.values = append(c.values, v)
	c.valid = append(c.valid, true)
}

func (c *Column[T]) AppendNull() {
	var zero T
	c.values = append(c.values, zero)
	c.valid = append(c.valid, false)
	c.nulls++
}

// AppendOption appends v when ok is set and a null otherwise.
func (c *Column[T]) AppendOption(v T, ok bool) {
	if !ok {
		c.AppendNull()
		return
	}
	c.Append(v)
}

// Get returns the value at row i and whether it is present.
func (c *Column[T]) Get(i int) (T, bool) {
	return c.values[i], c.valid[i]
}

func (c *Column[T]) IsNull(i int) bool { return !c.valid[i] }

func (c *Column[T]) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	return c.values[i]
}

// Values returns one pointer per row, nil for nulls.
func (c *Column[T]) Values() []*T {
	out := make([]*T, len(c.values))
	for i := range c.values {
		if c.valid[i] {
			v := c.values[i]
			out[i] = &v
		}
	}
	return out
}

// Rename returns a shallow copy of c under a new name.
func (c *Column[T]) Rename(name string) *Column[T] {
	cp := *c
	cp.name = name
	return &cp
}

// Concat joins columns end to end under name, preserving order.
func Concat[T Scalar](name string, parts ...*Column[T]) *Column[T] {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	out := NewColumn[T](name, n)
	for _, p := range parts {
		out.values = append(out.values, p.values...)
		out.valid = append(out.valid, p.valid...)
		out.nulls += p.nulls
	}
	return out
}

// StructColumn is a column of records with named, independently nullable
// fields. Rows themselves are never null.
type StructColumn struct {
	name   string
	fields []Array
	index  map[string]int
	length int
}

// NewStructColumn assembles equal-length child columns into a struct column.
func NewStructColumn(name string, fields ...Array) (*StructColumn, error) {
	s := &StructColumn{name: name, fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if i == 0 {
			s.length = f.Len()
		} else if f.Len() != s.length {
			return nil, fmt.Errorf("struct %s: field %s has %d rows, expected %d", name, f.Name(), f.Len(), s.length)
		}
		if _, dup := s.index[f.Name()]; dup {
			return nil, fmt.Errorf("struct %s: duplicate field %s", name, f.Name())
		}
		s.index[f.Name()] = i
	}
	return s, nil
}

func (s *StructColumn) Name() string { return s.name }
func (s *StructColumn) Kind() Kind { return KindStruct }
func (s *StructColumn) Len() int { return s.length }
func (s *StructColumn) NullCount() int { return 0 }
func (s *StructColumn) IsNull(int) bool { return false }
func (s *StructColumn) Fields() []Array { return s.fields }
func (s *StructColumn) NumFields() int { return len(s.fields) }

// Field returns the child column called name.
func (s *StructColumn) Field(name string) (Array, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// Value returns row i as a map of field name to value, with nil for null
// fields.
func (s *StructColumn) Value(i int) any {
	row := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		row[f.Name()] = f.Value(i)
	}
	return row
}
