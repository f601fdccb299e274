// Package batch runs named identifier projections over batches of values and
// keeps a ledger of what was run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"istr/internal/batch/metrics"
	"istr/internal/columnar"
	"istr/internal/diagnostic"
	"istr/internal/projection"
	dErrors "istr/pkg/domain-errors"
	audit "istr/pkg/platform/audit"
	"istr/pkg/platform/sentinel"
	"istr/pkg/requestcontext"
)

// DefaultColumn names the input when the request leaves it empty.
const DefaultColumn = "value"

// Ledger stores run summaries.
type Ledger interface {
	Save(ctx context.Context, run RunSummary) error
	Get(ctx context.Context, id string) (*RunSummary, error)
	ListRecent(ctx context.Context, limit int) ([]RunSummary, error)
}

// AuditPublisher receives one event per run.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	registry *projection.Registry
	engine   *columnar.Engine
	ledger   Ledger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
	maxRows  int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithMaxRows caps the rows accepted per request. Values <= 0 are ignored.
func WithMaxRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

func New(registry *projection.Registry, engine *columnar.Engine, ledger Ledger, opts ...Option) (*Service, error) {
	if registry == nil || engine == nil || ledger == nil {
		return nil, errors.New("batch: registry, engine and ledger are required")
	}
	s := &Service{
		registry: registry,
		engine:   engine,
		ledger:   ledger,
		logger:   slog.Default(),
		tracer:   otel.Tracer("istr/internal/batch"),
		maxRows:  1_000_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Functions lists the registered functions sorted by name.
func (s *Service) Functions() []projection.Function {
	return s.registry.All()
}

// Function resolves a function by name.
func (s *Service) Function(name string) (projection.Function, error) {
	fn, ok := s.registry.Get(name)
	if !ok {
		return projection.Function{}, dErrors.Newf(dErrors.CodeNotFound, "unknown function %q", name)
	}
	return fn, nil
}

// Run applies req.Function to req.Values. Ledger and audit failures are
// logged; only the projection itself can fail a run.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	fn, err := s.Function(req.Function)
	if err != nil {
		s.reject(ctx, req, "unknown_function")
		return nil, err
	}
	if len(req.Values) > s.maxRows {
		s.reject(ctx, req, "too_many_rows")
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "batch of %d rows exceeds the limit of %d", len(req.Values), s.maxRows)
	}
	column := req.Column
	if column == "" {
		column = DefaultColumn
	}

	ctx, span := s.tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("istr.function", fn.Name),
		attribute.String("istr.format", fn.Format.String()),
		attribute.Int("istr.rows", len(req.Values)),
	))
	defer span.End()

	start := requestcontext.Now(ctx)
	clock := time.Now()
	in := columnar.FromValues(column, req.Values)

	out, err := fn.Run(ctx, s.engine, in)
	if err == nil {
		var stats Stats
		stats, err = s.stats(ctx, fn, in, out)
		if err == nil {
			return s.complete(ctx, span, fn, start, time.Since(clock), out, stats), nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.fail(ctx, fn, len(req.Values), err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "batch run cancelled")
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch run failed")
}

func (s *Service) complete(ctx context.Context, span trace.Span, fn projection.Function, start time.Time, elapsed time.Duration, out columnar.Array, stats Stats) *Result {
	run := RunSummary{
		ID:        uuid.NewString(),
		Function:  fn.Name,
		Format:    fn.Format.String(),
		Subject:   requestcontext.Subject(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Stats:     stats,
		StartedAt: start,
		Duration:  elapsed,
	}
	span.SetAttributes(
		attribute.String("istr.run_id", run.ID),
		attribute.Int("istr.null_inputs", stats.NullInputs),
		attribute.Int("istr.invalid", stats.InvalidTotal()),
	)

	if s.metrics != nil {
		s.metrics.ObserveRun(fn.Name, fn.Format.String(), elapsed, stats.Rows, stats.NullInputs, stats.Invalid)
	}
	if err := s.ledger.Save(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to save run summary",
			"error", err,
			"run_id", run.ID,
			"request_id", run.RequestID,
		)
	}
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventBatchRunCompleted),
		Subject:  run.Subject,
		RunID:    run.ID,
		Function: fn.Name,
		Rows:     stats.Rows,
		Nulls:    stats.NullInputs,
		Invalid:  stats.Invalid,
	})

	s.logger.InfoContext(ctx, "batch run completed",
		"run_id", run.ID,
		"function", fn.Name,
		"rows", stats.Rows,
		"invalid", stats.InvalidTotal(),
		"duration_ms", elapsed.Milliseconds(),
		"request_id", run.RequestID,
	)
	return &Result{RunID: run.ID, Function: fn.Name, Output: out, Stats: stats, Duration: elapsed}
}

// stats tallies null inputs and diagnostic categories. A check function's own
// output is reused; other functions run the format's checker.
func (s *Service) stats(ctx context.Context, fn projection.Function, in *columnar.StringColumn, out columnar.Array) (Stats, error) {
	diag, ok := out.(*columnar.StringColumn)
	if fn.Mode != projection.ModeCheck || !ok {
		checker, found := s.registry.Checker(fn.Format)
		if !found {
			return Stats{}, fmt.Errorf("no checker registered for %s", fn.Format)
		}
		arr, err := checker.Run(ctx, s.engine, in)
		if err != nil {
			return Stats{}, err
		}
		if diag, ok = arr.(*columnar.StringColumn); !ok {
			return Stats{}, fmt.Errorf("checker %s returned %s, not string", checker.Name, arr.Kind())
		}
	}

	stats := Stats{Rows: in.Len(), NullInputs: in.NullCount()}
	for i := range diag.Len() {
		category, present := diag.Get(i)
		switch {
		case !present:
		case category == diagnostic.OK:
			stats.Valid++
		default:
			if stats.Invalid == nil {
				stats.Invalid = make(map[string]int)
			}
			stats.Invalid[category]++
		}
	}
	return stats, nil
}

func (s *Service) reject(ctx context.Context, req Request, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
	s.logger.WarnContext(ctx, "batch run rejected",
		"function", req.Function,
		"rows", len(req.Values),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventBatchRunRejected),
		Subject:  requestcontext.Subject(ctx),
		Function: req.Function,
		Rows:     len(req.Values),
		Reason:   reason,
		Labels:   clientLabels(ctx),
	})
}

// clientLabels identifies the caller of a rejected run for abuse review.
func clientLabels(ctx context.Context) map[string]string {
	labels := map[string]string{}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		labels["client_ip"] = ip
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		labels["user_agent"] = ua
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

func (s *Service) fail(ctx context.Context, fn projection.Function, rows int, err error) {
	if s.metrics != nil {
		s.metrics.IncrementFailed(fn.Name)
	}
	s.logger.ErrorContext(ctx, "batch run failed",
		"error", err,
		"function", fn.Name,
		"rows", rows,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventBatchRunFailed),
		Subject:  requestcontext.Subject(ctx),
		Function: fn.Name,
		Rows:     rows,
		Reason:   err.Error(),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// GetRun returns a stored run summary.
func (s *Service) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "run id must be a UUID")
	}
	run, err := s.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "run %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load run")
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	runs, err := s.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list runs")
	}
	return runs, nil
}
