package matchcore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", notFoundf("op", "gone"), IsNotFound},
		{"invalid request", invalidRequestf("op", "bad input"), IsInvalidRequest},
		{"conflict", conflictf("op", "taken"), IsConflict},
		{"unauthorized", unauthorizedf("op", "not yours"), IsUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.pred(tc.err))
			// Survives wrapping.
			assert.True(t, tc.pred(fmt.Errorf("outer: %w", tc.err)))
			// And stays distinct from the other kinds.
			for _, other := range tests {
				if other.name != tc.name {
					assert.False(t, other.pred(tc.err), "%s matched %s", tc.name, other.name)
				}
			}
		})
	}

	assert.False(t, IsNotFound(nil))
	assert.False(t, IsConflict(errors.New("plain")))
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := internalErr("UpdatePair", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UpdatePair")
}
