package cryptocompare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the API reports that a coin pair does not exist.
var ErrNotFound = errors.New("coin pair not found")

// APIError is an error payload returned by the API with HTTP 200.
type APIError struct {
	Message string
	Type    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cryptocompare: %s (type %d)", e.Message, e.Type)
}

// Prices maps a from-symbol to its prices keyed by to-symbol.
type Prices map[string]map[string]decimal.Decimal

// getJSON performs a GET request and decodes the object body with numbers kept
// as json.Number so prices are never routed through float64.
func (c *CryptoCompareAPIClient) getJSON(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	query := url.Values{}
	for k, vs := range c.query {
		query[k] = append([]string(nil), vs...)
	}
	for k, vs := range params {
		query[k] = append(query[k], vs...)
	}

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var body map[string]any
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// {
	//   "Response": "Error",
	//   "Message": "cccagg_or_exchange market does not exist for this coin pair (FAKE-USD)",
	//   "Type": 2
	// }
	if resp, _ := body["Response"].(string); resp == "Error" {
		msg, _ := body["Message"].(string)
		var typ int
		if n, ok := body["Type"].(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				typ = int(v)
			}
		}
		apiErr := &APIError{Message: msg, Type: typ}
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "does not exist") || strings.Contains(lower, "no data") {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, apiErr)
		}
		return nil, apiErr
	}
	return body, nil
}

// parsePrices converts {"BTC":{"USD":50000}} into Prices.
func parsePrices(body map[string]any) (Prices, error) {
	out := make(Prices, len(body))
	for fsym, raw := range body {
		inner, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decoding %s: unexpected type %T", fsym, raw)
		}
		prices := make(map[string]decimal.Decimal, len(inner))
		for tsym, v := range inner {
			price, err := parseDecimal(v)
			if err != nil {
				return nil, fmt.Errorf("decoding %s-%s price: %w", fsym, tsym, err)
			}
			prices[tsym] = price
		}
		out[fsym] = prices
	}
	return out, nil
}

func parseDecimal(v any) (decimal.Decimal, error) {
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected type: %T", v)
	}
	return decimal.NewFromString(n.String())
}
