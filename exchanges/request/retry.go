package request

import (
	"net"
	"net/http"
	"strconv"
	"time"
)

// DefaultRetryPolicy retries network timeouts, 429s and any response
// carrying a Retry-After header
func DefaultRetryPolicy(resp *http.Response, err error) (bool, error) {
	if err != nil {
		if timeoutErr, ok := err.(net.Error); ok && timeoutErr.Timeout() {
			return true, nil
		}
		return false, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.Header.Get(headerRetryAfter) != "" {
		return true, nil
	}
	return false, nil
}

// RetryAfter parses the Retry-After header as seconds or an HTTP date
func RetryAfter(resp *http.Response, now time.Time) time.Duration {
	if resp == nil {
		return 0
	}
	after := resp.Header.Get(headerRetryAfter)
	if after == "" {
		return 0
	}
	if sec, err := strconv.ParseFloat(after, 64); err == nil {
		if sec <= 0 {
			return 0
		}
		return time.Duration(sec * float64(time.Second))
	}
	if when, err := http.ParseTime(after); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// LinearBackoff grows the delay by base on every attempt up to max
func LinearBackoff(base, max time.Duration) Backoff {
	return func(n int) time.Duration {
		d := time.Duration(n) * base
		if d > max {
			return max
		}
		return d
	}
}

// DefaultBackoff is a 100ms linear backoff capped at one second
func DefaultBackoff() Backoff {
	return LinearBackoff(100*time.Millisecond, time.Second)
}
