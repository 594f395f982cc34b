// Package transport is the authenticated JSON-over-HTTP client used to
// talk to the story-sharing service. It turns every failure into one of
// the error kinds declared in the models package.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
)

// Request describes one call. Path may contain {placeholders} filled
// from PathParams. Token, when set, is sent as a bearer credential.
type Request struct {
	Operation   string
	Method      string
	Path        string
	PathParams  map[string]string
	Token       string
	Headers     map[string]string
	QueryParams map[string]string
	Body        any
}

type metricsObserver interface {
	ObserveRequest(operation, method string, status int, elapsed time.Duration)
}

// Client performs requests against a fixed base URL.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
	metrics metricsObserver
}

type InitOption func(*initOptions)

type initOptions struct {
	timeout           time.Duration
	requestsPerSecond float64
	metrics           metricsObserver
	httpClient        *http.Client
}

// WithTimeout bounds every request; zero disables the bound.
func WithTimeout(timeout time.Duration) InitOption {
	return func(options *initOptions) {
		options.timeout = timeout
	}
}

// WithRateLimit throttles outgoing calls; zero means unlimited.
func WithRateLimit(requestsPerSecond float64) InitOption {
	return func(options *initOptions) {
		options.requestsPerSecond = requestsPerSecond
	}
}

// WithMetrics records each call on m.
func WithMetrics(m metricsObserver) InitOption {
	return func(options *initOptions) {
		options.metrics = m
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) InitOption {
	return func(options *initOptions) {
		options.httpClient = httpClient
	}
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, optionsProto ...InitOption) *Client {
	options := &initOptions{
		timeout: 30 * time.Second,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	rest := resty.New()
	if options.httpClient != nil {
		rest = resty.NewWithClient(options.httpClient)
	}
	rest.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(options.timeout).
		SetHeader("Accept", "application/json")
	logger.WithLoggingRestyMiddleware(rest)

	client := &Client{
		rest:    rest,
		metrics: options.metrics,
	}
	if options.requestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(options.requestsPerSecond), 1)
	}

	return client
}

// Do performs req and decodes a successful JSON reply into result
// (which may be nil to discard the body).
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.NewAPIError(models.ErrNetwork, 0, "request not sent", err)
		}
	}

	r := c.rest.R().SetContext(ctx)
	if req.Token != "" {
		r.SetAuthToken(req.Token)
	}
	if len(req.PathParams) > 0 {
		r.SetPathParams(req.PathParams)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.QueryParams) > 0 {
		r.SetQueryParams(req.QueryParams)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	elapsed := time.Since(start)

	status := 0
	if err == nil && resp != nil {
		status = resp.StatusCode()
	}
	if c.metrics != nil {
		c.metrics.ObserveRequest(req.Operation, req.Method, status, elapsed)
	}

	if err != nil {
		return models.NewAPIError(models.ErrNetwork, 0, "", err)
	}

	if status < 200 || status >= 300 {
		return statusError(status, resp.Body())
	}

	if result == nil || len(resp.Body()) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return models.NewAPIError(models.ErrServer, status, "undecodable response body", err)
	}

	return nil
}

func statusError(status int, body []byte) error {
	var envelope models.ErrorBody
	message := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		message = envelope.Error.Message
		if message == "" {
			message = envelope.Error.Title
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	return models.NewAPIError(models.KindForStatus(status), status, message, nil)
}
