package handler

import (
	"strings"

	"istr/internal/batch"
	"istr/internal/columnar"
	"istr/internal/projection"
	dErrors "istr/pkg/domain-errors"
)

// RunRequest is the body of POST /v1/functions/{name}. A JSON null in Values is
// an absent input.
type RunRequest struct {
	Column string    `json:"column,omitempty"`
	Values []*string `json:"values"`
}

func (r *RunRequest) Normalize() {
	r.Column = strings.TrimSpace(r.Column)
}

func (r *RunRequest) Validate() error {
	if r.Values == nil {
		return dErrors.New(dErrors.CodeValidation, "values is required")
	}
	if len(r.Column) > 128 {
		return dErrors.New(dErrors.CodeValidation, "column name must be at most 128 characters")
	}
	return nil
}

type RunResponse struct {
	Function string         `json:"function"`
	RunID    string         `json:"run_id"`
	Rows     int            `json:"rows"`
	Stats    batch.Stats    `json:"stats"`
	Columns  []ColumnOutput `json:"columns"`
}

// ColumnOutput is a scalar column with Values, or a struct column with Fields.
type ColumnOutput struct {
	Name   string         `json:"name"`
	Type   columnar.Kind  `json:"type"`
	Values *[]any         `json:"values,omitempty"`
	Fields []ColumnOutput `json:"fields,omitempty"`
}

func toColumnOutput(a columnar.Array) ColumnOutput {
	out := ColumnOutput{Name: a.Name(), Type: a.Kind()}
	if sc, ok := a.(*columnar.StructColumn); ok {
		out.Fields = make([]ColumnOutput, 0, sc.NumFields())
		for _, f := range sc.Fields() {
			out.Fields = append(out.Fields, toColumnOutput(f))
		}
		return out
	}
	values := make([]any, a.Len())
	for i := range values {
		values[i] = a.Value(i)
	}
	out.Values = &values
	return out
}

type FieldInfo struct {
	Name string        `json:"name"`
	Type columnar.Kind `json:"type"`
}

type FunctionInfo struct {
	Name        string        `json:"name"`
	Format      string        `json:"format"`
	Mode        string        `json:"mode"`
	Output      columnar.Kind `json:"output"`
	Fields      []FieldInfo   `json:"fields,omitempty"`
	Description string        `json:"description"`
}

func toFunctionInfo(fn projection.Function) FunctionInfo {
	info := FunctionInfo{
		Name:        fn.Name,
		Format:      fn.Format.String(),
		Mode:        string(fn.Mode),
		Output:      fn.Output,
		Description: fn.Description,
	}
	for _, f := range fn.Fields {
		info.Fields = append(info.Fields, FieldInfo{Name: f.Name, Type: f.Kind})
	}
	return info
}

type FunctionsResponse struct {
	Functions []FunctionInfo `json:"functions"`
}

type RunsResponse struct {
	Runs []batch.RunSummary `json:"runs"`
}
