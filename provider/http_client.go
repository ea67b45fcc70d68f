package provider

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultReadTimeout    = 10 * time.Second
	maxResponseBody       = 4 << 20
)

// HTTPClientConfig represents configuration for the gateway HTTP client
type HTTPClientConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	DefaultHeaders map[string]string
}

// HTTPRequest represents a gateway request
type HTTPRequest struct {
	Operation   string
	Method      string
	Endpoint    string
	Headers     map[string]string
	FormData    url.Values
	QueryParams url.Values
}

// GatewayHTTPClient sends requests to the gateway and records each round
// trip as an Exchange.
type GatewayHTTPClient struct {
	config *HTTPClientConfig
	client *http.Client
}

// NewGatewayHTTPClient creates a new gateway HTTP client
func NewGatewayHTTPClient(config *HTTPClientConfig) *GatewayHTTPClient {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaultReadTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   config.ConnectTimeout,
		ResponseHeaderTimeout: config.ReadTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &GatewayHTTPClient{
		config: config,
		client: &http.Client{
			Timeout:   config.ConnectTimeout + config.ReadTimeout,
			Transport: transport,
		},
	}
}

// SendForm sends a form-encoded request
func (c *GatewayHTTPClient) SendForm(ctx context.Context, req *HTTPRequest) (*Exchange, error) {
	return c.send(ctx, req, strings.NewReader(req.FormData.Encode()), "application/x-www-form-urlencoded")
}

// Get sends a request without a body
func (c *GatewayHTTPClient) Get(ctx context.Context, req *HTTPRequest) (*Exchange, error) {
	req.Method = http.MethodGet
	return c.send(ctx, req, nil, "")
}

func (c *GatewayHTTPClient) send(ctx context.Context, req *HTTPRequest, body io.Reader, contentType string) (*Exchange, error) {
	fullURL := c.buildURL(req.Endpoint, req.QueryParams)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrGateway, err)
	}
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrGateway, req.Method, redactQuery(fullURL), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrGateway, err)
	}

	ex := &Exchange{
		Operation:  req.Operation,
		Method:     req.Method,
		URL:        redactQuery(fullURL),
		StatusCode: resp.StatusCode,
		Headers:    flattenHeader(resp.Header),
		Body:       respBody,
		Duration:   time.Since(start),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ex, fmt.Errorf("%w: HTTP %d from %s", ErrGateway, resp.StatusCode, req.Operation)
	}
	return ex, nil
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// redactQuery drops the query string, which may carry the entity id
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func joinURL(base, endpoint string) string {
	if strings.HasSuffix(base, "/") && strings.HasPrefix(endpoint, "/") {
		return base + endpoint[1:]
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(endpoint, "/") {
		return base + "/" + endpoint
	}
	return base + endpoint
}

// buildURL constructs the full URL with query parameters
func (c *GatewayHTTPClient) buildURL(endpoint string, queryParams url.Values) string {
	fullURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		fullURL = joinURL(c.config.BaseURL, endpoint)
	}
	if len(queryParams) == 0 {
		return fullURL
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return fullURL
	}
	q := u.Query()
	for key, values := range queryParams {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// CreateHTTPClientConfig creates the client configuration for a gateway base URL
func CreateHTTPClientConfig(baseURL, bearerToken string, connectTimeout, readTimeout time.Duration) *HTTPClientConfig {
	return &HTTPClientConfig{
		BaseURL:        baseURL,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
		DefaultHeaders: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + bearerToken,
			"User-Agent":    "VRPay/1.0",
		},
	}
}
