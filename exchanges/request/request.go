package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/thrasher-corp/papertrader/log"
	"golang.org/x/time/rate"
)

// New returns a new Requester. A nil client gets one bounded by DefaultTimeout
func New(name string, httpRequester *http.Client, opts ...RequesterOption) *Requester {
	if httpRequester == nil {
		httpRequester = &http.Client{Timeout: DefaultTimeout}
	}
	r := &Requester{
		HTTPClient:  httpRequester,
		Name:        name,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		backoff:     DefaultBackoff(),
		retryPolicy: DefaultRetryPolicy,
		maxRetries:  MaxRetryAttempts,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// WithLimiter sets the rate limiter shared by every request
func WithLimiter(l *rate.Limiter) RequesterOption {
	return func(r *Requester) {
		if l != nil {
			r.limiter = l
		}
	}
}

// WithBackoff sets the retry backoff
func WithBackoff(b Backoff) RequesterOption {
	return func(r *Requester) {
		r.backoff = b
	}
}

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(p RetryPolicy) RequesterOption {
	return func(r *Requester) {
		r.retryPolicy = p
	}
}

// WithMaxRetries sets the number of retries after the first attempt
func WithMaxRetries(n int) RequesterOption {
	return func(r *Requester) {
		r.maxRetries = n
	}
}

// WithLogger routes verbose and retry logging to a sub logger
func WithLogger(sl *log.SubLogger) RequesterOption {
	return func(r *Requester) {
		r.logger = sl
	}
}

// WithUserAgent sets the User-Agent header of every request
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) {
		r.UserAgent = ua
	}
}

// SendPayload handles sending HTTP/HTTPS requests
func (r *Requester) SendPayload(ctx context.Context, newRequest Generate) error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if newRequest == nil {
		return errRequestFunctionIsNil
	}
	return r.doRequest(ctx, newRequest)
}

// validateRequest validates the requester item fields
func (i *Item) validateRequest(ctx context.Context, r *Requester) (*http.Request, error) {
	if i == nil {
		return nil, errRequestItemNil
	}
	if i.Path == "" {
		return nil, errInvalidPath
	}
	req, err := http.NewRequestWithContext(ctx, i.Method, i.Path, i.Body)
	if err != nil {
		return nil, err
	}
	for k, v := range i.Headers {
		req.Header.Add(k, v)
	}
	if r.UserAgent != "" && req.Header.Get(userAgent) == "" {
		req.Header.Add(userAgent, r.UserAgent)
	}
	return req, nil
}

func (r *Requester) initiateRateLimit(ctx context.Context) error {
	if hasDelayNotAllowed(ctx) {
		if !r.limiter.Allow() {
			return fmt.Errorf("%s %w", r.Name, errDelayNotAllowed)
		}
		return nil
	}
	return r.limiter.Wait(ctx)
}

func (r *Requester) doRequest(ctx context.Context, newRequest Generate) error {
	for attempt := 1; ; attempt++ {
		if err := r.initiateRateLimit(ctx); err != nil {
			return err
		}

		p, err := newRequest()
		if err != nil {
			return err
		}

		req, err := p.validateRequest(ctx, r)
		if err != nil {
			return err
		}

		verbose := IsVerbose(ctx, p.Verbose)
		if verbose {
			log.Debugf(r.logger, "%s attempt %d request %s %s", r.Name, attempt, p.Method, p.Path)
		}

		resp, err := r.HTTPClient.Do(req)
		if !hasRetryNotAllowed(ctx) {
			retry, checkErr := r.retryPolicy(resp, err)
			if checkErr != nil {
				return checkErr
			}
			if retry {
				if err == nil {
					r.drainBody(resp.Body)
				}
				if attempt > r.maxRetries {
					if err != nil {
						return fmt.Errorf("%s %w, err: %v", r.Name, errFailedToRetryRequest, err)
					}
					return fmt.Errorf("%s %w, status: %s", r.Name, errFailedToRetryRequest, resp.Status)
				}
				delay := r.backoff(attempt)
				if after := RetryAfter(resp, time.Now()); after > delay {
					delay = after
				}
				log.Warnf(r.logger, "%s request failed, retrying in %s, attempt %d", r.Name, delay, attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
		}
		if err != nil {
			return err
		}

		contents, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return &StatusError{Name: r.Name, StatusCode: resp.StatusCode, Body: string(contents)}
		}

		if verbose {
			log.Debugf(r.logger, "%s HTTP status: %s raw response: %s", r.Name, resp.Status, contents)
		}
		if p.Result != nil && len(contents) > 0 {
			return json.Unmarshal(contents, p.Result)
		}
		return nil
	}
}

func (r *Requester) drainBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, io.LimitReader(body, 1<<16)); err != nil {
		log.Errorf(r.logger, "%s failed to drain request body %s", r.Name, err)
	}
	if err := body.Close(); err != nil {
		log.Errorf(r.logger, "%s failed to close request body %s", r.Name, err)
	}
}

// IsTimeout reports whether the error came from a deadline or a network timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
