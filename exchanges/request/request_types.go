package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thrasher-corp/papertrader/log"
	"golang.org/x/time/rate"
)

const (
	// MaxRetryAttempts is the default number of retries after the first attempt
	MaxRetryAttempts = 3
	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 10 * time.Second

	userAgent        = "User-Agent"
	headerRetryAfter = "Retry-After"
)

var (
	// ErrUnsuccessfulStatus is matched by every StatusError
	ErrUnsuccessfulStatus = errors.New("unsuccessful HTTP status code")

	errRequestSystemIsNil   = errors.New("request system is nil")
	errRequestFunctionIsNil = errors.New("request function is nil")
	errRequestItemNil       = errors.New("request item is nil")
	errInvalidPath          = errors.New("invalid path")
	errFailedToRetryRequest = errors.New("failed to retry request")
	errDelayNotAllowed      = errors.New("rate limit delay not allowed")
)

// Requester sends rate limited HTTP requests for a single remote service
type Requester struct {
	Name       string
	HTTPClient *http.Client
	UserAgent  string

	limiter     *rate.Limiter
	backoff     Backoff
	retryPolicy RetryPolicy
	maxRetries  int
	logger      *log.SubLogger
}

// RequesterOption is a function option for a Requester
type RequesterOption func(*Requester)

// Item is a single request to send
type Item struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    io.Reader
	// Result is unmarshalled from the response body when set
	Result  interface{}
	Verbose bool
}

// Generate builds a fresh Item for each attempt so bodies can be re-read
type Generate func() (*Item, error)

// Backoff returns the delay before the nth retry
type Backoff func(n int) time.Duration

// RetryPolicy decides whether a response or transport error should be retried
type RetryPolicy func(resp *http.Response, err error) (bool, error)

// StatusError is returned when the remote service answers outside the 2xx range
type StatusError struct {
	Name       string
	StatusCode int
	Body       string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("%s %v: %d raw response: %s", s.Name, ErrUnsuccessfulStatus, s.StatusCode, s.Body)
}

// Unwrap allows errors.Is(err, ErrUnsuccessfulStatus)
func (s *StatusError) Unwrap() error {
	return ErrUnsuccessfulStatus
}
