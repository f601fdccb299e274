package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route and retain them differently.
type EventCategory string

const (
	// CategoryOperations covers routine activity: batch runs and their outcome.
	CategoryOperations EventCategory = "operations"
	// CategorySecurity covers events relevant to abuse monitoring.
	CategorySecurity EventCategory = "security"
)

type AuditEvent string

const (
	EventBatchRunCompleted AuditEvent = "batch_run_completed"
	EventBatchRunFailed    AuditEvent = "batch_run_failed"
	EventBatchRunRejected  AuditEvent = "batch_run_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventBatchRunCompleted: CategoryOperations,
	EventBatchRunFailed:    CategoryOperations,
	EventBatchRunRejected:  CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted by the batch service to record what was run, by whom, and
// how many rows failed validation. It carries no row values.
type Event struct {
	ID        string            `json:"id"`
	Category  EventCategory     `json:"category"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	Function  string            `json:"function,omitempty"`
	Rows      int               `json:"rows"`
	Nulls     int               `json:"nulls"`
	Invalid   map[string]int    `json:"invalid,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Store persists events and lists them back.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event, typically to forward it off-host.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
