package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/fetch"
	"github.com/gaborage/go-apifetch/logger"
)

const (
	// DefaultTimeout is the default per-call timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged body bytes when payload logging is on
	DefaultMaxPayloadLogBytes = 1024
)

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response, before the body is read
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the transport configuration
type Config struct {
	Timeout time.Duration
	// BaseURL defines the origin used for same-origin credential decisions
	BaseURL              string
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader is the header used for request ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a request ID when the context carries none (default: uuid)
	NewTraceID func() string
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation
	EnableW3CTrace bool
	// RateLimit bounds calls per second across the client; zero disables limiting
	RateLimit float64
	// Burst is the limiter bucket size (default: 1 when RateLimit is set)
	Burst int
}

// Client is the net/http implementation of fetch.Transport.
type Client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	origin     *url.URL
	limiter    *rate.Limiter
	callCount  int64
}

var _ fetch.Transport = (*Client)(nil)

// Builder provides a fluent interface for configuring the transport
type Builder struct {
	config     *Config
	logger     logger.Logger
	httpClient *nethttp.Client
	jar        nethttp.CookieJar
	transport  nethttp.RoundTripper
}

func defaultConfig() *Config {
	return &Config{
		Timeout:            DefaultTimeout,
		DefaultHeaders:     make(map[string]string),
		MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
		TraceIDHeader:      HeaderXRequestID,
		NewTraceID:         newTraceID,
	}
}

// NewClient creates a transport with default configuration
func NewClient(log logger.Logger) *Client {
	return NewBuilder(log).Build()
}

// NewBuilder creates a new transport builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{config: defaultConfig(), logger: log}
}

// WithTimeout sets the per-call timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithBaseURL sets the origin used for same-origin credential decisions
func (b *Builder) WithBaseURL(base string) *Builder {
	b.config.BaseURL = base
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithCookieJar sets the jar consulted for credentialed requests
func (b *Builder) WithCookieJar(jar nethttp.CookieJar) *Builder {
	b.jar = jar
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging enables debug logging of request and response payloads
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader sets the request ID header name; empty keeps the default
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithTraceIDGenerator sets the request ID generator; nil keeps the default
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	if gen != nil {
		b.config.NewTraceID = gen
	}
	return b
}

// WithW3CTrace toggles W3C trace context propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithRateLimit limits calls to perSecond with the given burst
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	b.config.RateLimit = perSecond
	b.config.Burst = burst
	return b
}

// WithHTTPClient uses a preconfigured http.Client. A zero client timeout
// takes the builder's timeout.
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.httpClient = c
	return b
}

// WithTransport sets the round tripper of the underlying http.Client
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// Build creates the transport with the configured options
func (b *Builder) Build() *Client {
	hc := b.httpClient
	if hc == nil {
		hc = &nethttp.Client{}
	}
	if hc.Timeout == 0 {
		hc.Timeout = b.config.Timeout
	}
	if b.transport != nil {
		hc.Transport = b.transport
	}
	if b.jar != nil {
		hc.Jar = b.jar
	}

	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{httpClient: hc, logger: log, config: b.config}

	if b.config.BaseURL != "" {
		if u, err := url.Parse(b.config.BaseURL); err == nil && u.Host != "" {
			c.origin = u
		}
	}
	if b.config.RateLimit > 0 {
		burst := b.config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(b.config.RateLimit), burst)
	}
	return c
}

// Do performs one HTTP exchange.
func (c *Client) Do(ctx context.Context, req *fetch.TransportRequest) (*fetch.RawResponse, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewRateLimitError(err)
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logRequest(httpReq, req.Body)

	httpResp, err := c.clientFor(httpReq.URL, req.Credentials).Do(httpReq)
	if err != nil {
		if c.isTimeout(err) {
			timeout := c.httpClient.Timeout
			if req.Timeout > 0 {
				timeout = req.Timeout
			}
			return nil, NewTimeoutError("request timeout", timeout, err)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := c.buildResponse(ctx, start, httpReq, httpResp)
	if err != nil {
		return nil, err
	}
	c.logResponse(resp, callCount)
	return resp, nil
}

// CallCount returns the number of exchanges started by this client.
func (c *Client) CallCount() int64 {
	return atomic.LoadInt64(&c.callCount)
}

func (c *Client) validateRequest(req *fetch.TransportRequest) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// buildRequest constructs an *http.Request, applies headers, credentials and
// trace context, and runs request interceptors.
func (c *Client) buildRequest(ctx context.Context, req *fetch.TransportRequest) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}

	c.applyHeaders(httpReq, req)
	if c.sendCredentials(httpReq.URL, req.Credentials) && c.config.BasicAuth != nil {
		httpReq.SetBasicAuth(c.config.BasicAuth.Username, c.config.BasicAuth.Password)
	}
	c.applyTraceHeaders(ctx, httpReq.Header)

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return httpReq, nil
}

// applyHeaders applies default headers, then request headers, which override defaults.
func (c *Client) applyHeaders(httpReq *nethttp.Request, req *fetch.TransportRequest) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, values := range req.Headers {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
}

// sendCredentials reports whether credentials may accompany a request to target.
func (c *Client) sendCredentials(target *url.URL, mode api.CredentialsMode) bool {
	switch mode {
	case api.CredentialsInclude:
		return true
	case api.CredentialsOmit:
		return false
	default:
		if c.origin == nil {
			return true
		}
		return strings.EqualFold(target.Scheme, c.origin.Scheme) && strings.EqualFold(target.Host, c.origin.Host)
	}
}

// clientFor returns the http.Client to use; credential-free calls bypass the cookie jar.
func (c *Client) clientFor(target *url.URL, mode api.CredentialsMode) *nethttp.Client {
	if c.httpClient.Jar == nil || c.sendCredentials(target, mode) {
		return c.httpClient
	}
	noJar := *c.httpClient
	noJar.Jar = nil
	return &noJar
}

// buildResponse runs response interceptors and reads the body.
func (c *Client) buildResponse(ctx context.Context, start time.Time, httpReq *nethttp.Request, httpResp *nethttp.Response) (*fetch.RawResponse, error) {
	defer httpResp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, httpReq, httpResp); err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if c.isTimeout(err) {
			return nil, NewTimeoutError("reading response body", c.httpClient.Timeout, err)
		}
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &fetch.RawResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		Elapsed:    time.Since(start),
	}, nil
}

func (c *Client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) logRequest(httpReq *nethttp.Request, body []byte) {
	c.logger.Info().
		Str("direction", "outbound").
		Str("method", httpReq.Method).
		Str("url", httpReq.URL.String()).
		Msg("API transport request")

	if c.config.LogPayloads {
		c.logger.Debug().
			Interface("headers", httpReq.Header).
			Bytes("body", c.truncate(body)).
			Msg("API transport request payload")
	}
}

func (c *Client) logResponse(resp *fetch.RawResponse, callCount int64) {
	c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Elapsed).
		Int64("call_count", callCount).
		Msg("API transport response")

	if c.config.LogPayloads {
		c.logger.Debug().
			Interface("headers", resp.Headers).
			Bytes("body", c.truncate(resp.Body)).
			Msg("API transport response payload")
	}
}

func (c *Client) truncate(body []byte) []byte {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 || len(body) <= limit {
		return body
	}
	return body[:limit]
}
