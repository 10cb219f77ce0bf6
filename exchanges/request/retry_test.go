package request

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()
	type args struct {
		Error    error
		Response *http.Response
	}
	type want struct {
		Error error
		Retry bool
	}
	testTable := map[string]struct {
		Args args
		Want want
	}{
		"DNS Error": {
			Args: args{Error: &net.DNSError{Err: "fake"}},
			Want: want{Error: &net.DNSError{Err: "fake"}},
		},
		"DNS Timeout": {
			Args: args{Error: &net.DNSError{Err: "fake", IsTimeout: true}},
			Want: want{Retry: true},
		},
		"Too Many Requests": {
			Args: args{Response: &http.Response{StatusCode: http.StatusTooManyRequests}},
			Want: want{Retry: true},
		},
		"Not Found": {
			Args: args{Response: &http.Response{StatusCode: http.StatusNotFound}},
		},
		"Retry After": {
			Args: args{Response: &http.Response{StatusCode: http.StatusTeapot, Header: http.Header{"Retry-After": []string{"0.5"}}}},
			Want: want{Retry: true},
		},
	}

	for name, tt := range testTable {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			retry, err := DefaultRetryPolicy(tt.Args.Response, tt.Args.Error)
			if tt.Want.Error != nil {
				assert.Equal(t, tt.Want.Error, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.Want.Retry, retry)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()
	now := time.Date(2020, time.April, 20, 13, 31, 13, 0, time.UTC)
	withHeader := func(v string) *http.Response {
		return &http.Response{Header: http.Header{"Retry-After": []string{v}}}
	}
	assert.Zero(t, RetryAfter(nil, now))
	assert.Zero(t, RetryAfter(&http.Response{}, now))
	assert.Zero(t, RetryAfter(withHeader("-1"), now))
	assert.Zero(t, RetryAfter(withHeader("garbage"), now))
	assert.Equal(t, 1500*time.Millisecond, RetryAfter(withHeader("1.5"), now))
	assert.Equal(t, 7*time.Second, RetryAfter(withHeader("Mon, 20 Apr 2020 13:31:20 GMT"), now))
	assert.Zero(t, RetryAfter(withHeader("Mon, 20 Apr 2020 13:31:00 GMT"), now), "dates in the past do not delay")
}

func TestLinearBackoff(t *testing.T) {
	t.Parallel()
	b := LinearBackoff(time.Second, 3*time.Second)
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 3*time.Second, b(5))
	assert.Equal(t, 100*time.Millisecond, DefaultBackoff()(1))
}
