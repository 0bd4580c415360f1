package cryptocompare

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GetPriceHistorical retrieves the price of one coin at the given instant.
// The API only accepts a single from-symbol per call.
func (c *CryptoCompareAPIClient) GetPriceHistorical(ctx context.Context, fsym string, tsyms []string, at time.Time, opts ...CryptoCompareAPIClientOption) (Prices, error) {
	override := c.with(opts)

	params := url.Values{}
	params.Set("fsym", fsym)
	params.Set("tsyms", strings.Join(tsyms, ","))
	params.Set("ts", strconv.FormatInt(at.Unix(), 10))

	body, err := override.getJSON(ctx, "/data/pricehistorical", params)
	if err != nil {
		return nil, err
	}
	prices, err := parsePrices(body)
	if err != nil {
		return nil, fmt.Errorf("decoding pricehistorical response: %w", err)
	}
	return prices, nil
}
