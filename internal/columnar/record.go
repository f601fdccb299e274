package columnar

import "fmt"

// Value is one optional scalar slot of a Record.
type Value struct {
	kind  Kind
	str   string
	b     bool
	u16   uint16
	valid bool
}

// StringValue returns a present string slot.
func StringValue(s string) Value { return Value{kind: KindString, str: s, valid: true} }

// BoolValue returns a present boolean slot.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b, valid: true} }

// Uint16Value returns a present small unsigned integer slot.
func Uint16Value(n uint16) Value { return Value{kind: KindUint16, u16: n, valid: true} }

// Null returns an absent slot of the given kind.
func Null(kind Kind) Value { return Value{kind: kind} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return !v.valid }

// Str returns the string payload when the slot is a present string.
func (v Value) Str() (string, bool) {
	return v.str, v.valid && v.kind == KindString
}

// Bool returns the boolean payload when the slot is a present boolean.
func (v Value) Bool() (bool, bool) {
	return v.b, v.valid && v.kind == KindBool
}

// Uint16 returns the integer payload when the slot is a present uint16.
func (v Value) Uint16() (uint16, bool) {
	return v.u16, v.valid && v.kind == KindUint16
}

// Any returns the payload as a Go value, or nil when absent.
func (v Value) Any() any {
	switch {
	case !v.valid:
		return nil
	case v.kind == KindBool:
		return v.b
	case v.kind == KindUint16:
		return v.u16
	default:
		return v.str
	}
}

// FieldSpec names and types one output slot.
type FieldSpec struct {
	Name string
	Kind Kind
}

// Record is the outcome of processing one row: a slot per field, each
// independently present or absent.
type Record struct {
	fields []FieldSpec
	values []Value
}

func (r Record) Len() int { return len(r.values) }

// At returns the slot at position i.
func (r Record) At(i int) Value { return r.values[i] }

// Get returns the slot called name.
func (r Record) Get(name string) (Value, bool) {
	for i, f := range r.fields {
		if f.Name == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// Map returns the record as field name to Go value, nil for absent slots.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, f := range r.fields {
		out[f.Name] = r.values[i].Any()
	}
	return out
}

// Field extracts one named slot from a parsed value of type P.
type Field[P any] struct {
	Name    string
	Kind    Kind
	Extract func(P) Value
}

// StringField extracts a value that is always present once parsing succeeds.
func StringField[P any](name string, fn func(P) string) Field[P] {
	return Field[P]{Name: name, Kind: KindString, Extract: func(p P) Value { return StringValue(fn(p)) }}
}

// OptionalStringField extracts a value that may be legitimately absent on an
// otherwise valid identifier.
func OptionalStringField[P any](name string, fn func(P) (string, bool)) Field[P] {
	return Field[P]{Name: name, Kind: KindString, Extract: func(p P) Value {
		if s, ok := fn(p); ok {
			return StringValue(s)
		}
		return Null(KindString)
	}}
}

// BoolField extracts a derived predicate.
func BoolField[P any](name string, fn func(P) bool) Field[P] {
	return Field[P]{Name: name, Kind: KindBool, Extract: func(p P) Value { return BoolValue(fn(p)) }}
}

// OptionalBoolField extracts a predicate that only applies to some values.
func OptionalBoolField[P any](name string, fn func(P) (bool, bool)) Field[P] {
	return Field[P]{Name: name, Kind: KindBool, Extract: func(p P) Value {
		if b, ok := fn(p); ok {
			return BoolValue(b)
		}
		return Null(KindBool)
	}}
}

// OptionalUint16Field extracts an integer that may be absent.
func OptionalUint16Field[P any](name string, fn func(P) (uint16, bool)) Field[P] {
	return Field[P]{Name: name, Kind: KindUint16, Extract: func(p P) Value {
		if n, ok := fn(p); ok {
			return Uint16Value(n)
		}
		return Null(KindUint16)
	}}
}

// Projection pairs a fallible parser with the fields read from its result.
type Projection[P any] struct {
	Parse  func(string) (P, error)
	Fields []Field[P]
}

// Select returns a projection restricted to the named fields, in the order
// given.
func (p Projection[P]) Select(names ...string) (Projection[P], error) {
	out := Projection[P]{Parse: p.Parse, Fields: make([]Field[P], 0, len(names))}
	for _, name := range names {
		found := false
		for _, f := range p.Fields {
			if f.Name == name {
				out.Fields = append(out.Fields, f)
				found = true
				break
			}
		}
		if !found {
			return Projection[P]{}, fmt.Errorf("unknown field %q", name)
		}
	}
	return out, nil
}

// Row parses one input and extracts every field. A parse failure is returned
// as is and yields no record.
func (p Projection[P]) Row(input string) (Record, error) {
	plan := p.Plan()
	values := make([]Value, len(plan.fields))
	if err := plan.fill(input, values); err != nil {
		return Record{}, err
	}
	return Record{fields: plan.fields, values: values}, nil
}

// Plan erases the parsed type so the engine can run the projection.
func (p Projection[P]) Plan() Plan {
	specs := make([]FieldSpec, len(p.Fields))
	for i, f := range p.Fields {
		specs[i] = FieldSpec{Name: f.Name, Kind: f.Kind}
	}
	fields := p.Fields
	parse := p.Parse
	return Plan{
		fields: specs,
		fill: func(input string, out []Value) error {
			parsed, err := parse(input)
			if err != nil {
				return err
			}
			for i, f := range fields {
				out[i] = f.Extract(parsed)
			}
			return nil
		},
	}
}

// Plan is a projection with its parsed type erased.
type Plan struct {
	fields []FieldSpec
	fill   func(input string, out []Value) error
}

// Fields returns the output slots in order.
func (p Plan) Fields() []FieldSpec { return append([]FieldSpec(nil), p.fields...) }
