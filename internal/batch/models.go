package batch

import (
	"time"

	"istr/internal/columnar"
)

// Request is one batch: a named function applied to a column of optional
// strings. A nil entry is an absent value.
type Request struct {
	Function string
	// Column names the input; outputs take this name. Defaults to "value".
	Column string
	Values []*string
}

// Stats summarises a batch against the format's diagnostic classifier.
type Stats struct {
	Rows       int            `json:"rows"`
	NullInputs int            `json:"null_inputs"`
	Valid      int            `json:"valid"`
	Invalid    map[string]int `json:"invalid,omitempty"`
}

// InvalidTotal is the number of present inputs that failed to parse.
func (s Stats) InvalidTotal() int {
	n := 0
	for _, c := range s.Invalid {
		n += c
	}
	return n
}

// Result is the output of a batch run. Output has exactly Stats.Rows rows in
// input order.
type Result struct {
	RunID    string
	Function string
	Output   columnar.Array
	Stats    Stats
	Duration time.Duration
}

// RunSummary is what the ledger keeps about a run; no row values are stored.
type RunSummary struct {
	ID        string        `json:"id"`
	Function  string        `json:"function"`
	Format    string        `json:"format"`
	Subject   string        `json:"subject,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Stats     Stats         `json:"stats"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}
