package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coinwatch/internal/coin"
)

var (
	// ErrUnknownSymbol means the remote source has no price for a symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUpstreamUnavailable means the remote source could not be reached or
	// answered with something unusable. Safe to retry the whole command later.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Quote is the normalized shape returned by all sources.
type Quote struct {
	Symbol   coin.Symbol
	Price    decimal.Decimal
	Currency string
	AsOf     time.Time
}

// Source resolves symbols to current and historical prices.
type Source interface {
	// CurrentPrices resolves every symbol in a single round-trip where the
	// upstream allows it. A symbol missing from the answer is an error.
	CurrentPrices(ctx context.Context, symbols []coin.Symbol, currency string) (map[coin.Symbol]Quote, error)
	// HistoricalPrice resolves one symbol as of the given instant.
	HistoricalPrice(ctx context.Context, symbol coin.Symbol, currency string, at time.Time) (Quote, error)
}

// SymbolError ties a failure to the symbol that caused it.
type SymbolError struct {
	Symbol coin.Symbol
	Err    error
}

func (e *SymbolError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, e.Err) }

func (e *SymbolError) Unwrap() error { return e.Err }

// Unknown is shorthand for a SymbolError wrapping ErrUnknownSymbol.
func Unknown(symbol coin.Symbol) error {
	return &SymbolError{Symbol: symbol, Err: ErrUnknownSymbol}
}

// Unavailable wraps err so that it matches ErrUpstreamUnavailable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
