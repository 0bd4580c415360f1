package cryptocompare

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetPriceMulti retrieves current prices of several coins in one request.
// Symbols the API does not know are absent from the result; when none of
// them is known the API answers with an error wrapped in ErrNotFound.
func (c *CryptoCompareAPIClient) GetPriceMulti(ctx context.Context, fsyms []string, tsyms []string, opts ...CryptoCompareAPIClientOption) (Prices, error) {
	override := c.with(opts)

	params := url.Values{}
	params.Set("fsyms", strings.Join(fsyms, ","))
	params.Set("tsyms", strings.Join(tsyms, ","))

	body, err := override.getJSON(ctx, "/data/pricemulti", params)
	if err != nil {
		return nil, err
	}
	prices, err := parsePrices(body)
	if err != nil {
		return nil, fmt.Errorf("decoding pricemulti response: %w", err)
	}
	return prices, nil
}
