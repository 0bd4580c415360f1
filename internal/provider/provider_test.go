package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"coinwatch/internal/provider"
)

func TestUnknown_MatchesSentinelAndNamesSymbol(t *testing.T) {
	t.Parallel()

	err := provider.Unknown("FAKE")
	require.ErrorIs(t, err, provider.ErrUnknownSymbol)
	require.Equal(t, "FAKE: unknown symbol", err.Error())

	var se *provider.SymbolError
	require.ErrorAs(t, err, &se)
	require.EqualValues(t, "FAKE", se.Symbol)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	require.NoError(t, provider.Unavailable(nil))

	err := provider.Unavailable(context.DeadlineExceeded)
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Already classified errors are passed through untouched.
	again := provider.Unavailable(err)
	require.Same(t, err, again)

	require.False(t, errors.Is(provider.Unavailable(errors.New("boom")), provider.ErrUnknownSymbol))
}
