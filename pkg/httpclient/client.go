// Package httpclient provides the HTTP client used to reach remote query
// APIs. It wraps the resty library with retry, rate limiting, connection
// pooling, and mapping of response statuses onto the library's error types.
//
// Example usage:
//
//	client, err := httpclient.New(ctx, cfg.Downstream)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	var result timeseries.QueryResult
//	status, err := client.PostJSON(ctx, endpoint, q, &result)
package httpclient

import (
	"context"
	"net/http"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/tracing"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// Client is an HTTP client with retry, rate limiting, and typed errors.
type Client struct {
	resty   *resty.Client
	config  config.DownstreamConfig
	limiter *rate.Limiter
}

// New creates a new HTTP client from the provided configuration.
func New(ctx context.Context, cfg config.DownstreamConfig) (*Client, error) {
	restyClient := resty.New()
	restyClient.SetTimeout(cfg.Timeout)

	// Configure retry
	if cfg.RetryCount > 0 {
		restyClient.
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(cfg.RetryWaitTime).
			SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
			SetAllowNonIdempotentRetry(true)

		// Retry temporary errors and 5xx status codes (except 501)
		restyClient.AddRetryConditions(func(res *resty.Response, err error) bool {
			if err != nil {
				return errors.IsTemporary(err)
			}
			statusCode := res.StatusCode()
			return statusCode >= 500 && statusCode != 501
		})
	}

	// Configure transport (connection pooling)
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	restyClient.SetTransport(transport)

	// Create rate limiter if configured
	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}

	return &Client{
		resty:   restyClient,
		config:  cfg,
		limiter: limiter,
	}, nil
}

// PostJSON sends body as JSON to url and decodes a successful JSON response
// into out (when out is non-nil). The returned status is the final HTTP
// status; non-2xx statuses are also reported as typed errors. Trace context
// is injected into the request headers.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) (int, error) {
	if err := c.checkRateLimit(ctx); err != nil {
		return 0, err
	}

	req := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if out != nil {
		req.SetResult(out)
	}

	headers := make(http.Header)
	tracing.InjectHTTP(ctx, headers)
	for k, vs := range headers {
		for _, v := range vs {
			req.SetHeader(k, v)
		}
	}

	resp, err := req.Post(url)
	if err != nil {
		if ctx.Err() != nil {
			return 0, errors.NewCancelledWithCause("httpclient", "request aborted", ctx.Err())
		}
		return 0, errors.NewTemporary("http request failed", err)
	}

	status := resp.StatusCode()
	if serr := errors.FromHTTPStatus(status, resp.Status()); serr != nil {
		return status, serr
	}
	return status, nil
}

// checkRateLimit enforces rate limiting before making a request.
// It blocks until a token is available or the context is canceled.
func (c *Client) checkRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait failed")
	}
	return nil
}

// Close releases all resources associated with the client.
func (c *Client) Close() error {
	return c.resty.Close()
}
