package models

import "time"

// KeyKind says what a rate limit bucket is keyed on.
type KeyKind string

const (
	// KeyIP buckets anonymous callers by client address.
	KeyIP KeyKind = "ip"
	// KeySubject buckets authenticated callers by token subject.
	KeySubject KeyKind = "subject"
)

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the API response when rate limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"` // seconds
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, at
// least one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
