// Package aggregate resolves symbol sets into price reports and manages the
// watchlist use-cases built on top of them.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"coinwatch/internal/coin"
	"coinwatch/internal/provider"
	"coinwatch/internal/render"
	"coinwatch/internal/watchlist"
)

var (
	// ErrEmptyRequest is returned when no symbols were requested.
	ErrEmptyRequest = errors.New("no symbols requested")
	// ErrNoWatchlist means the user has not stored any symbols yet.
	ErrNoWatchlist = errors.New("no watchlist")
)

// Row is a resolved price line.
type Row = render.Row

// DefaultTop is the high market cap list shown by Top.
var DefaultTop = []coin.Symbol{"BTC", "ETH", "BNB", "XRP", "ADA", "DOGE", "SOL", "LTC", "TRX", "MATIC", "DOT"}

const (
	// DefaultLookback is how far back the change reference point lies.
	DefaultLookback = 24 * time.Hour
	// DefaultMaxConcurrency bounds parallel historical lookups per report.
	DefaultMaxConcurrency = 4

	topTitle       = "High market cap coins, change in 24h"
	watchlistTitle = "Your watchlist, change in 24h"
)

type Config struct {
	Currency string
	Top      []coin.Symbol
	// Lookback places the reference price at now - Lookback. A negative
	// value puts it in the future.
	Lookback       time.Duration
	MaxConcurrency int
}

// Service orchestrates price lookups, change computation and rendering.
type Service struct {
	src   provider.Source
	store watchlist.Store
	cfg   Config
	now   func() time.Time
}

func New(src provider.Source, store watchlist.Store, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if len(cfg.Top) == 0 {
		cfg.Top = DefaultTop
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Service{src: src, store: store, cfg: cfg, now: time.Now}
}

// Currency is the quote currency every price is expressed in.
func (s *Service) Currency() string { return s.cfg.Currency }

// ReferenceTime is the instant historical prices are requested for.
func (s *Service) ReferenceTime() time.Time {
	return s.now().Add(-s.cfg.Lookback)
}

// Rows resolves symbols into price rows in request order. Duplicates are
// collapsed onto their first occurrence. Any symbol that cannot be resolved
// fails the whole batch with a *provider.SymbolError naming it; no partial
// result is returned.
func (s *Service) Rows(ctx context.Context, symbols []coin.Symbol) ([]Row, error) {
	symbols = dedupe(symbols)
	if len(symbols) == 0 {
		return nil, ErrEmptyRequest
	}

	current, err := s.src.CurrentPrices(ctx, symbols, s.cfg.Currency)
	if err != nil {
		return nil, err
	}

	historical, err := s.historical(ctx, symbols)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(symbols))
	for i, sym := range symbols {
		cur, ok := current[sym]
		if !ok {
			return nil, provider.Unknown(sym)
		}
		change, err := PercentChange(cur.Price, historical[i].Price)
		if err != nil {
			return nil, &provider.SymbolError{Symbol: sym, Err: err}
		}
		rows = append(rows, Row{Symbol: sym, Price: cur.Price, Change: change})
	}
	return rows, nil
}

// historical fetches one reference quote per symbol. Lookups run in parallel
// but the reported failure is the first one in request order.
func (s *Service) historical(ctx context.Context, symbols []coin.Symbol) ([]provider.Quote, error) {
	at := s.ReferenceTime()
	out := make([]provider.Quote, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			q, err := s.src.HistoricalPrice(gctx, sym, s.cfg.Currency, at)
			if err != nil {
				errs[i] = err
				return err
			}
			out[i] = q
			return nil
		})
	}
	werr := g.Wait()
	if werr == nil {
		return out, nil
	}

	// Lookups aborted because a sibling failed are not the cause.
	for i, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, bySymbol(symbols[i], err)
		}
	}
	for i, err := range errs {
		if err != nil {
			return nil, bySymbol(symbols[i], err)
		}
	}
	return nil, werr
}

// BuildReport renders the rows for symbols as a plain text table.
func (s *Service) BuildReport(ctx context.Context, symbols []coin.Symbol) (string, error) {
	rows, err := s.Rows(ctx, symbols)
	if err != nil {
		return "", err
	}
	return render.Table(rows), nil
}

// Coin renders a one-row report for symbol.
func (s *Service) Coin(ctx context.Context, symbol coin.Symbol) (string, error) {
	rows, err := s.Rows(ctx, []coin.Symbol{symbol})
	if err != nil {
		return "", err
	}
	return render.HTML("", rows), nil
}

// Top renders the configured high market cap list.
func (s *Service) Top(ctx context.Context) (string, error) {
	rows, err := s.TopRows(ctx)
	if err != nil {
		return "", err
	}
	return render.HTML(topTitle, rows), nil
}

// TopRows resolves the configured high market cap list.
func (s *Service) TopRows(ctx context.Context) ([]Row, error) {
	return s.Rows(ctx, s.cfg.Top)
}

// Watchlist renders the user's stored symbols, or returns ErrNoWatchlist.
func (s *Service) Watchlist(ctx context.Context, user string) (string, error) {
	symbols, err := s.store.Get(ctx, user)
	if err != nil {
		return "", err
	}
	if len(symbols) == 0 {
		return "", ErrNoWatchlist
	}
	rows, err := s.Rows(ctx, symbols)
	if err != nil {
		return "", err
	}
	return render.HTML(watchlistTitle, rows), nil
}

// AddCoin stores symbol for user once the price source has confirmed it.
func (s *Service) AddCoin(ctx context.Context, user string, symbol coin.Symbol) error {
	if _, err := s.src.CurrentPrices(ctx, []coin.Symbol{symbol}, s.cfg.Currency); err != nil {
		return err
	}
	if err := s.store.Add(ctx, user, symbol); err != nil {
		return fmt.Errorf("adding %s: %w", symbol, err)
	}
	return nil
}

// RemoveCoin deletes symbol from the user's watchlist and reports whether it
// was there.
func (s *Service) RemoveCoin(ctx context.Context, user string, symbol coin.Symbol) (bool, error) {
	removed, err := s.store.Remove(ctx, user, symbol)
	if err != nil {
		return false, fmt.Errorf("removing %s: %w", symbol, err)
	}
	return removed, nil
}

func bySymbol(sym coin.Symbol, err error) error {
	var se *provider.SymbolError
	if errors.As(err, &se) {
		return err
	}
	return &provider.SymbolError{Symbol: sym, Err: err}
}

func dedupe(symbols []coin.Symbol) []coin.Symbol {
	seen := make(map[coin.Symbol]struct{}, len(symbols))
	out := make([]coin.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
