package columnar

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultPartitionSize is the number of rows handed to one worker.
const DefaultPartitionSize = 16 * 1024

// Engine applies row functions across a column in contiguous partitions.
// Each partition fills its own builders; outputs are stitched back in
// partition order, so results never depend on scheduling.
type Engine struct {
	partitionSize int
	maxWorkers    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPartitionSize sets the rows per partition. Values below one are ignored.
func WithPartitionSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.partitionSize = n
		}
	}
}

// WithMaxWorkers bounds the partitions processed concurrently. Values below
// one are ignored.
func WithMaxWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// NewEngine returns an engine defaulting to GOMAXPROCS workers.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		partitionSize: DefaultPartitionSize,
		maxWorkers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) PartitionSize() int { return e.partitionSize }
func (e *Engine) MaxWorkers() int { return e.maxWorkers }

type rowRange struct {
	lo, hi int
}

func (e *Engine) partition(n int) []rowRange {
	if n == 0 {
		return nil
	}
	out := make([]rowRange, 0, (n+e.partitionSize-1)/e.partitionSize)
	for lo := 0; lo < n; lo += e.partitionSize {
		out = append(out, rowRange{lo: lo, hi: min(lo+e.partitionSize, n)})
	}
	return out
}

// runPartitions calls fn once per partition and returns the results in row
// order. Cancelling ctx stops further partitions from being scheduled; a
// partition that has started always runs to completion.
func runPartitions[R any](ctx context.Context, e *Engine, n int, fn func(lo, hi int) R) ([]R, error) {
	ranges := e.partition(n)
	results := make([]R, len(ranges))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ranges) <= 1 {
		for i, r := range ranges {
			results[i] = fn(r.lo, r.hi)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers)
	for i, r := range ranges {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = fn(r.lo, r.hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Project runs plan over every row and returns one column per field. Absent
// inputs and failed parses produce nulls in every column; a successful parse
// produces each field's own value or null.
func (e *Engine) Project(ctx context.Context, in *StringColumn, plan Plan) ([]Array, error) {
	parts, err := runPartitions(ctx, e, in.Len(), func(lo, hi int) []builder {
		builders := newBuilders(plan.fields, hi-lo)
		scratch := make([]Value, len(plan.fields))
		for i := lo; i < hi; i++ {
			v, ok := in.Get(i)
			if !ok || plan.fill(v, scratch) != nil {
				for _, b := range builders {
					b.appendNull()
				}
				continue
			}
			for k, b := range builders {
				b.append(scratch[k])
			}
		}
		return builders
	})
	if err != nil {
		return nil, err
	}

	out := make([]Array, len(plan.fields))
	for k, f := range plan.fields {
		pieces := make([]builder, len(parts))
		for p := range parts {
			pieces[p] = parts[p][k]
		}
		out[k] = merge(f, pieces)
	}
	return out, nil
}

// ProjectStruct runs plan and assembles the fields into one struct column
// named after the input.
func (e *Engine) ProjectStruct(ctx context.Context, in *StringColumn, plan Plan) (*StructColumn, error) {
	fields, err := e.Project(ctx, in, plan)
	if err != nil {
		return nil, err
	}
	return NewStructColumn(in.Name(), fields...)
}

// IsValid reports per row whether validate accepts the input. Absent inputs
// stay null; present inputs are never null.
func (e *Engine) IsValid(ctx context.Context, in *StringColumn, validate func(string) bool) (*BoolColumn, error) {
	return mapColumn(ctx, e, in, validate)
}

// Check reports per row the diagnostic produced by check. Absent inputs stay
// null.
func (e *Engine) Check(ctx context.Context, in *StringColumn, check func(string) string) (*StringColumn, error) {
	return mapColumn(ctx, e, in, check)
}

func mapColumn[T Scalar](ctx context.Context, e *Engine, in *StringColumn, fn func(string) T) (*Column[T], error) {
	parts, err := runPartitions(ctx, e, in.Len(), func(lo, hi int) *Column[T] {
		col := NewColumn[T](in.Name(), hi-lo)
		for i := lo; i < hi; i++ {
			v, ok := in.Get(i)
			if !ok {
				col.AppendNull()
				continue
			}
			col.Append(fn(v))
		}
		return col
	})
	if err != nil {
		return nil, err
	}
	return Concat(in.Name(), parts...), nil
}

type builder interface {
	append(Value)
	appendNull()
}

type stringBuilder struct{ col *StringColumn }

func (b stringBuilder) append(v Value) { b.col.AppendOption(v.Str()) }
func (b stringBuilder) appendNull() { b.col.AppendNull() }

type boolBuilder struct{ col *BoolColumn }

func (b boolBuilder) append(v Value) { b.col.AppendOption(v.Bool()) }
func (b boolBuilder) appendNull() { b.col.AppendNull() }

type uint16Builder struct{ col *Uint16Column }

func (b uint16Builder) append(v Value) { b.col.AppendOption(v.Uint16()) }
func (b uint16Builder) appendNull() { b.col.AppendNull() }

func newBuilders(fields []FieldSpec, capacity int) []builder {
	out := make([]builder, len(fields))
	for i, f := range fields {
		switch f.Kind {
		case KindBool:
			out[i] = boolBuilder{col: NewColumn[bool](f.Name, capacity)}
		case KindUint16:
			out[i] = uint16Builder{col: NewColumn[uint16](f.Name, capacity)}
		default:
			out[i] = stringBuilder{col: NewColumn[string](f.Name, capacity)}
		}
	}
	return out
}

func merge(f FieldSpec, pieces []builder) Array {
	switch f.Kind {
	case KindBool:
		return concatBuilt(f.Name, pieces, func(b builder) *BoolColumn { return b.(boolBuilder).col })
	case KindUint16:
		return concatBuilt(f.Name, pieces, func(b builder) *Uint16Column { return b.(uint16Builder).col })
	default:
		return concatBuilt(f.Name, pieces, func(b builder) *StringColumn { return b.(stringBuilder).col })
	}
}

func concatBuilt[T Scalar](name string, pieces []builder, col func(builder) *Column[T]) *Column[T] {
	cols := make([]*Column[T], len(pieces))
	for i, p := range pieces {
		cols[i] = col(p)
	}
	return Concat(name, cols...)
}
