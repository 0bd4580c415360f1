package timeout

import (
	"context"
	"time"

	"coinwatch/internal/coin"
	"coinwatch/internal/provider"
)

// Source wraps a provider.Source and bounds every call with Timeout.
// Expiry surfaces as provider.ErrUpstreamUnavailable instead of blocking the
// command indefinitely.
type Source struct {
	S       provider.Source
	Timeout time.Duration
}

func (s *Source) CurrentPrices(ctx context.Context, symbols []coin.Symbol, currency string) (map[coin.Symbol]provider.Quote, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	qs, err := s.S.CurrentPrices(ctx, symbols, currency)
	if err != nil {
		return nil, s.expired(ctx, err)
	}
	return qs, nil
}

func (s *Source) HistoricalPrice(ctx context.Context, symbol coin.Symbol, currency string, at time.Time) (provider.Quote, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	q, err := s.S.HistoricalPrice(ctx, symbol, currency, at)
	if err != nil {
		return provider.Quote{}, s.expired(ctx, err)
	}
	return q, nil
}

func (s *Source) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// expired reclassifies err when our own deadline fired.
func (s *Source) expired(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return provider.Unavailable(err)
	}
	return err
}
