package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	assert.Equal(t, CategoryOperations, EventBatchRunCompleted.Category())
	assert.Equal(t, CategorySecurity, EventBatchRunRejected.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_else").Category())
}
