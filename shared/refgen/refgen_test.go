package refgen_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyago/shared/failure"
	"voyago/shared/refgen"
)

var referencePattern = regexp.MustCompile(`^TRV-[0-9A-Z]{13}$`)

func neverExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func TestGenerate_Format(t *testing.T) {
	gen := refgen.New("TRV", 5)

	reference, err := gen.Generate(context.Background(), neverExists)

	require.NoError(t, err)
	assert.Regexp(t, referencePattern, reference)
}

func TestGenerate_Unique(t *testing.T) {
	gen := refgen.New("TRV", 5)

	seen := map[string]bool{}
	for range 100 {
		reference, err := gen.Generate(context.Background(), neverExists)
		require.NoError(t, err)

		assert.False(t, seen[reference], "duplicate reference %s", reference)
		seen[reference] = true
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	gen := refgen.New("TRV", 5)

	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	reference, err := gen.Generate(context.Background(), exists)

	require.NoError(t, err)
	assert.Regexp(t, referencePattern, reference)
	assert.Equal(t, 3, calls)
}

func TestGenerate_Exhaustion(t *testing.T) {
	gen := refgen.New("TRV", 5)

	calls := 0
	alwaysExists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := gen.Generate(context.Background(), alwaysExists)

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	assert.Equal(t, 5, calls)
}

func TestGenerate_MinimumAttempts(t *testing.T) {
	// A misconfigured attempt budget is raised to the floor.
	gen := refgen.New("TRV", 1)

	calls := 0
	alwaysExists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := gen.Generate(context.Background(), alwaysExists)

	require.Error(t, err)
	assert.Equal(t, 5, calls)
}

func TestGenerate_ExistsError(t *testing.T) {
	gen := refgen.New("TRV", 5)

	storeErr := errors.New("store unavailable")
	exists := func(_ context.Context, _ string) (bool, error) {
		return false, storeErr
	}

	_, err := gen.Generate(context.Background(), exists)

	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestGenerate_TimeOrdered(t *testing.T) {
	gen := refgen.New("TRV", 5)

	first, err := gen.Generate(context.Background(), neverExists)
	require.NoError(t, err)

	second, err := gen.Generate(context.Background(), neverExists)
	require.NoError(t, err)

	// Timestamp prefixes are fixed width base 36, so a later reference never
	// sorts before an earlier one.
	assert.LessOrEqual(t, first[:len("TRV-")+9], second[:len("TRV-")+9])
}
