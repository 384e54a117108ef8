package gobq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The E variants report and continue, the F variants stop the test.

func assertNilE(t *testing.T, actual any, descriptions ...any) {
	t.Helper()
	assert.Nil(t, actual, descriptions...)
}

func assertNilF(t *testing.T, actual any, descriptions ...any) {
	t.Helper()
	require.Nil(t, actual, descriptions...)
}

func assertNotNilF(t *testing.T, actual any, descriptions ...any) {
	t.Helper()
	require.NotNil(t, actual, descriptions...)
}

func assertErrIsE(t *testing.T, actual, expected error, descriptions ...any) {
	t.Helper()
	assert.ErrorIs(t, actual, expected, descriptions...)
}

func assertErrIsF(t *testing.T, actual, expected error, descriptions ...any) {
	t.Helper()
	require.ErrorIs(t, actual, expected, descriptions...)
}

func assertErrorsAsF(t *testing.T, err error, target any, descriptions ...any) {
	t.Helper()
	require.ErrorAs(t, err, target, descriptions...)
}

func assertEqualE(t *testing.T, actual any, expected any, descriptions ...any) {
	t.Helper()
	assert.Equal(t, expected, actual, descriptions...)
}

func assertEqualF(t *testing.T, actual any, expected any, descriptions ...any) {
	t.Helper()
	require.Equal(t, expected, actual, descriptions...)
}

func assertDeepEqualE(t *testing.T, actual any, expected any, descriptions ...any) {
	t.Helper()
	assert.EqualValues(t, expected, actual, descriptions...)
}

func assertTrueE(t *testing.T, actual bool, descriptions ...any) {
	t.Helper()
	assert.True(t, actual, descriptions...)
}

func assertTrueF(t *testing.T, actual bool, descriptions ...any) {
	t.Helper()
	require.True(t, actual, descriptions...)
}

func assertFalseE(t *testing.T, actual bool, descriptions ...any) {
	t.Helper()
	assert.False(t, actual, descriptions...)
}

func assertStringContainsE(t *testing.T, actual string, expectedToContain string, descriptions ...any) {
	t.Helper()
	assert.Contains(t, actual, expectedToContain, descriptions...)
}

func assertLessOrEqualE(t *testing.T, actual, limit int, descriptions ...any) {
	t.Helper()
	assert.LessOrEqual(t, actual, limit, descriptions...)
}
