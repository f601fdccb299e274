// Package projection exposes every identifier projection as a named function
// ("iban.bank_id", "cusip.extract_all", "url.check", ...) that runs on the
// columnar engine.
package projection

import (
	"context"
	"fmt"
	"sort"

	"istr/internal/columnar"
	"istr/internal/diagnostic"
	"istr/internal/identifier"
)

// Mode is the shape of a projection's output.
type Mode string

const (
	// ModeExtractAll produces one struct column with every field.
	ModeExtractAll Mode = "extract_all"
	// ModeField produces one nullable column for a single field.
	ModeField Mode = "field"
	// ModeIsValid produces a boolean column.
	ModeIsValid Mode = "is_valid"
	// ModeCheck produces a diagnostic string column.
	ModeCheck Mode = "check"
)

type runFunc func(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error)

// Function is a named projection over a column of identifier strings.
type Function struct {
	Name   string
	Format identifier.Format
	Mode   Mode
	Output columnar.Kind
	// Fields lists the struct fields for ModeExtractAll and the single field
	// for ModeField.
	Fields      []columnar.FieldSpec
	Description string

	run runFunc
}

// Run applies the function to in. The output always has in.Len() rows.
func (f Function) Run(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error) {
	if f.run == nil {
		return nil, fmt.Errorf("function %s has no implementation", f.Name)
	}
	return f.run(ctx, e, in)
}

// Registry maintains the registered functions.
type Registry struct {
	functions map[string]Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]Function)}
}

// Default returns a registry holding the projections of every supported
// format.
func Default() *Registry {
	r := NewRegistry()
	for _, register := range []func(*Registry) error{registerCUSIP, registerISIN, registerIBAN, registerURL} {
		if err := register(r); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds f to the registry.
func (r *Registry) Register(f Function) error {
	if _, exists := r.functions[f.Name]; exists {
		return fmt.Errorf("function %s already registered", f.Name)
	}
	r.functions[f.Name] = f
	return nil
}

// Get retrieves a function by name.
func (r *Registry) Get(name string) (Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// All returns every function sorted by name.
func (r *Registry) All() []Function {
	out := make([]Function, 0, len(r.functions))
	for _, f := range r.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByFormat returns the functions of one format sorted by name.
func (r *Registry) ListByFormat(format identifier.Format) []Function {
	var out []Function
	for _, f := range r.All() {
		if f.Format == format {
			out = append(out, f)
		}
	}
	return out
}

// Checker returns the diagnostic function of a format.
func (r *Registry) Checker(format identifier.Format) (Function, bool) {
	return r.Get(Name(format, string(ModeCheck)))
}

// Name joins a format and projection into a function name.
func Name(format identifier.Format, projection string) string {
	return format.String() + "." + projection
}

// formatSpec describes one identifier family for registration.
type formatSpec[P any] struct {
	format      identifier.Format
	projection  columnar.Projection[P]
	validate    func(string) bool
	description map[string]string
}

func register[P any](r *Registry, spec formatSpec[P]) error {
	plan := spec.projection.Plan()
	describe := func(key, fallback string) string {
		if d, ok := spec.description[key]; ok {
			return d
		}
		return fallback
	}

	fns := []Function{{
		Name:        Name(spec.format, string(ModeExtractAll)),
		Format:      spec.format,
		Mode:        ModeExtractAll,
		Output:      columnar.KindStruct,
		Fields:      plan.Fields(),
		Description: describe(string(ModeExtractAll), fmt.Sprintf("all %s fields as one struct", spec.format)),
		run: func(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error) {
			return e.ProjectStruct(ctx, in, plan)
		},
	}}

	for _, field := range plan.Fields() {
		single, err := spec.projection.Select(field.Name)
		if err != nil {
			return err
		}
		singlePlan := single.Plan()
		fns = append(fns, Function{
			Name:        Name(spec.format, field.Name),
			Format:      spec.format,
			Mode:        ModeField,
			Output:      field.Kind,
			Fields:      []columnar.FieldSpec{field},
			Description: describe(field.Name, fmt.Sprintf("%s %s", spec.format, field.Name)),
			run: func(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error) {
				cols, err := e.Project(ctx, in, singlePlan)
				if err != nil {
					return nil, err
				}
				return renamed(cols[0], in.Name()), nil
			},
		})
	}

	parse := spec.projection.Parse
	fns = append(fns,
		Function{
			Name:        Name(spec.format, string(ModeIsValid)),
			Format:      spec.format,
			Mode:        ModeIsValid,
			Output:      columnar.KindBool,
			Description: describe(string(ModeIsValid), fmt.Sprintf("whether the value is a valid %s", spec.format)),
			run: func(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error) {
				return e.IsValid(ctx, in, spec.validate)
			},
		},
		Function{
			Name:        Name(spec.format, string(ModeCheck)),
			Format:      spec.format,
			Mode:        ModeCheck,
			Output:      columnar.KindString,
			Description: describe(string(ModeCheck), fmt.Sprintf("\"ok\" or the reason the value is not a valid %s", spec.format)),
			run: func(ctx context.Context, e *columnar.Engine, in *columnar.StringColumn) (columnar.Array, error) {
				return e.Check(ctx, in, func(s string) string {
					_, err := parse(s)
					return diagnostic.Classify(err)
				})
			},
		},
	)

	for _, f := range fns {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// renamed gives a single-field output the input column's name.
func renamed(a columnar.Array, name string) columnar.Array {
	switch c := a.(type) {
	case *columnar.StringColumn:
		return c.Rename(name)
	case *columnar.BoolColumn:
		return c.Rename(name)
	case *columnar.Uint16Column:
		return c.Rename(name)
	}
	return a
}
