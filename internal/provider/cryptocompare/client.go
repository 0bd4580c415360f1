package cryptocompare

import (
	"net/http"
	"net/url"
)

// baseURL is the public CryptoCompare min-api endpoint.
const baseURL = "https://min-api.cryptocompare.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=cryptocompare_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CryptoCompareAPIClient is a client for the CryptoCompare API.
type CryptoCompareAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// CryptoCompareAPIClientOption is a configuration option for the CryptoCompare API client.
type CryptoCompareAPIClientOption func(*CryptoCompareAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) CryptoCompareAPIClientOption {
	return func(c *CryptoCompareAPIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) CryptoCompareAPIClientOption {
	return func(c *CryptoCompareAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) CryptoCompareAPIClientOption {
	return func(c *CryptoCompareAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewCryptoCompareAPIClient creates a new CryptoCompare API client. The key
// is optional; anonymous calls are allowed with a lower upstream quota.
func NewCryptoCompareAPIClient(key string, options ...CryptoCompareAPIClientOption) (*CryptoCompareAPIClient, error) {
	var client = &CryptoCompareAPIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if key != "" {
		// https://min-api.cryptocompare.com/documentation
		client.query.Add("api_key", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// with returns a copy of the client with per-call options applied.
func (c *CryptoCompareAPIClient) with(opts []CryptoCompareAPIClientOption) *CryptoCompareAPIClient {
	var override = &CryptoCompareAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}
	return override
}
