// Package requestcontext carries request-scoped values through a
// context.Context so services and stores can read them without importing
// net/http. Middleware sets them; tests may set them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithSubject(ctx, "svc-ingest")
package requestcontext

import (
	"context"
	"time"
)

type key uint8

const (
	keySubject key = iota
	keyClientIP
	keyUserAgent
	keyRequestID
	keyRequestTime
)

func lookup[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// Subject is the authenticated caller (the token "sub" claim), or "" when the
// request is anonymous.
func Subject(ctx context.Context) string {
	s, _ := lookup[string](ctx, keySubject)
	return s
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, keySubject, subject)
}

func ClientIP(ctx context.Context) string {
	ip, _ := lookup[string](ctx, keyClientIP)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := lookup[string](ctx, keyUserAgent)
	return ua
}

// WithClientMetadata stores the resolved client address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(context.WithValue(ctx, keyClientIP, clientIP), keyUserAgent, userAgent)
}

func RequestID(ctx context.Context) string {
	id, _ := lookup[string](ctx, keyRequestID)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now is the time pinned to the request, or the wall clock when none is set
// (CLI runs and most tests).
func Now(ctx context.Context) time.Time {
	if t, ok := lookup[time.Time](ctx, keyRequestTime); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}
