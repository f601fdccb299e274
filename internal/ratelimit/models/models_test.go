package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKey(t *testing.T) {
	assert.Equal(t, "ratelimit:batch:ip:10.0.0.1", NewKey(KeyIP, "10.0.0.1"))
	assert.Equal(t, "ratelimit:batch:subject:a_b", NewKey(KeySubject, "a:b"))
	assert.Equal(t, "ratelimit:batch:ip:__1", NewKey(KeyIP, "::1"))
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, 1, RetryAfterSeconds(now, now))
	assert.Equal(t, 1, RetryAfterSeconds(now, now.Add(-time.Second)))
	assert.Equal(t, 2, RetryAfterSeconds(now, now.Add(1500*time.Millisecond)))
	assert.Equal(t, 60, RetryAfterSeconds(now, now.Add(time.Minute)))
}
