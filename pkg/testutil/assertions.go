package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireErrorIs fails the test immediately unless err matches target.
func RequireErrorIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	require.True(t, errors.Is(err, target), "want %v, got %v", target, err)
}

// AssertDecimal compares got against the decimal literal want by value, so
// "99" and "99.00" are equal.
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) bool {
	t.Helper()
	w := decimal.RequireFromString(want)
	if len(msgAndArgs) == 0 {
		msgAndArgs = []any{"want %s, got %s", w, got}
	}
	return assert.True(t, got.Equal(w), msgAndArgs...)
}
