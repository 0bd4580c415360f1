package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"coinwatch/internal/aggregate"
	"coinwatch/internal/coin"
	"coinwatch/internal/config"
	"coinwatch/internal/httpx"
	"coinwatch/internal/logging"
	"coinwatch/internal/provider/cryptocompare"
	"coinwatch/internal/provider/cryptocompareadapter"
	"coinwatch/internal/provider/timeout"
)

// fetch prints a one-off price table for the given symbols, or the
// configured top list when none are given.
func main() {
	var symbolsCSV string
	var currency string
	var lookbackSec int
	var timeoutSec int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", ""), "comma-separated coin tokens (default: configured top list)")
	flag.StringVar(&currency, "currency", "", "quote currency (default from config)")
	flag.IntVar(&lookbackSec, "lookback", 0, "change lookback in seconds (default from config)")
	flag.IntVar(&timeoutSec, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 0), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml or config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("config: %v", err)
	}
	if currency != "" {
		cfg.CryptoCompare.Currency = strings.ToUpper(currency)
	}
	if lookbackSec != 0 {
		cfg.Report.LookbackSec = lookbackSec
	}
	if timeoutSec > 0 {
		cfg.CryptoCompare.RequestTimeoutSec = timeoutSec
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	requestTimeout := time.Duration(cfg.CryptoCompare.RequestTimeoutSec) * time.Second
	cc, err := cryptocompare.NewCryptoCompareAPIClient(
		cfg.CryptoCompare.APIKey,
		cryptocompare.WithBaseURL(cfg.CryptoCompare.Endpoint),
		cryptocompare.WithHTTPClient(httpx.New(requestTimeout)),
	)
	if err != nil {
		fatalf("cryptocompare client: %v", err)
	}
	top, err := coin.ParseAll(cfg.Report.Top)
	if err != nil {
		fatalf("report.top: %v", err)
	}
	// No watchlist store: the CLI only renders tables.
	svc := aggregate.New(&timeout.Source{S: cryptocompareadapter.New(cc), Timeout: requestTimeout}, nil, aggregate.Config{
		Currency:       cfg.CryptoCompare.Currency,
		Top:            top,
		Lookback:       time.Duration(cfg.Report.LookbackSec) * time.Second,
		MaxConcurrency: cfg.Report.MaxConcurrency,
	})

	symbols := top
	if symbolsCSV != "" {
		symbols, err = coin.ParseAll(splitCSV(symbolsCSV))
		if err != nil {
			fatalf("symbols: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*requestTimeout)
	defer cancel()
	start := time.Now()
	table, err := svc.BuildReport(ctx, symbols)
	if err != nil {
		log.Error("report failed", "error", err)
		cancel()
		os.Exit(1)
	}
	log.Debug("report built", "symbols", len(symbols), "took", time.Since(start), "reference", svc.ReferenceTime().Format(time.RFC3339))
	fmt.Printf("Prices in %s\n%s\n", svc.Currency(), table)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" { out = append(out, p) }
	}
	return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 { return x }
	}
	return def
}
