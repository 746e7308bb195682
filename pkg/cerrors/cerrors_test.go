package cerrors

import (
	"testing"

	"github.com/palantir/stacktrace"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{
			name:     "validation error keeps its code",
			err:      Validation{Field: "errorRate", Reason: "must be between 0 and 100"},
			expected: ErrorTypeValidation,
		},
		{
			name:     "unknown flag keeps its code",
			err:      FlagNotFound{Name: "cart_meltdown"},
			expected: ErrorTypeFlagNotFound,
		},
		{
			name:     "plain error maps to the generic code",
			err:      errors.New("boom"),
			expected: ErrorTypeNonUserFriendly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorType(tt.err))
		})
	}
}

func TestIsSimulated(t *testing.T) {
	assert.True(t, IsSimulated(Simulated{Reason: "simulated error for observability demo"}))
	assert.True(t, IsSimulated(errors.Wrap(Simulated{Reason: "injected"}, "checkout failed")))
	assert.True(t, IsSimulated(stacktrace.Propagate(Simulated{Reason: "injected"}, "checkout failed")))
	assert.False(t, IsSimulated(Store{Operation: "read", Key: "flags:cart_error_rate", Reason: "connection refused"}))
	assert.False(t, IsSimulated(errors.New("boom")))
	assert.False(t, IsSimulated(nil))
}
