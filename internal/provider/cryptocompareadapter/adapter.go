package cryptocompareadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"coinwatch/internal/coin"
	"coinwatch/internal/provider"
	"coinwatch/internal/provider/cryptocompare"
)

// API is the subset of the CryptoCompare client the adapter needs.
type API interface {
	GetPriceMulti(ctx context.Context, fsyms []string, tsyms []string, opts ...cryptocompare.CryptoCompareAPIClientOption) (cryptocompare.Prices, error)
	GetPriceHistorical(ctx context.Context, fsym string, tsyms []string, at time.Time, opts ...cryptocompare.CryptoCompareAPIClientOption) (cryptocompare.Prices, error)
}

// Adapter exposes the CryptoCompare API as a provider.Source. Untyped API
// answers stop here; callers only ever see provider.Quote values.
type Adapter struct {
	api API
	now func() time.Time
}

func New(api API) *Adapter {
	return &Adapter{api: api, now: time.Now}
}

// CurrentPrices resolves all symbols with a single pricemulti request.
func (a *Adapter) CurrentPrices(ctx context.Context, symbols []coin.Symbol, currency string) (map[coin.Symbol]provider.Quote, error) {
	out := make(map[coin.Symbol]provider.Quote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	prices, err := a.api.GetPriceMulti(ctx, coin.Strings(symbols), []string{currency})
	if err != nil {
		return nil, classify(err, symbols, currency)
	}

	asOf := a.now().UTC()
	for _, s := range symbols {
		price, ok := prices[string(s)][currency]
		if !ok {
			return nil, provider.Unknown(s)
		}
		out[s] = provider.Quote{Symbol: s, Price: price, Currency: currency, AsOf: asOf}
	}
	return out, nil
}

// HistoricalPrice resolves one symbol at the given instant.
func (a *Adapter) HistoricalPrice(ctx context.Context, symbol coin.Symbol, currency string, at time.Time) (provider.Quote, error) {
	prices, err := a.api.GetPriceHistorical(ctx, string(symbol), []string{currency}, at)
	if err != nil {
		return provider.Quote{}, classify(err, []coin.Symbol{symbol}, currency)
	}
	price, ok := prices[string(symbol)][currency]
	if !ok {
		return provider.Quote{}, provider.Unknown(symbol)
	}
	return provider.Quote{Symbol: symbol, Price: price, Currency: currency, AsOf: at.UTC()}, nil
}

// classify maps client errors onto the provider error taxonomy. A not-found
// answer names the pair it choked on, e.g. "(FAKE-USD)"; that symbol is
// reported when it can be found, otherwise the first requested one.
func classify(err error, symbols []coin.Symbol, currency string) error {
	if !errors.Is(err, cryptocompare.ErrNotFound) {
		return provider.Unavailable(err)
	}
	msg := err.Error()
	for _, s := range symbols {
		if strings.Contains(msg, "("+string(s)+"-"+currency+")") {
			return provider.Unknown(s)
		}
	}
	return provider.Unknown(symbols[0])
}
