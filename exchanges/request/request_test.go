package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return 0 }

func get(path string, result interface{}) Generate {
	return func() (*Item, error) {
		return &Item{
			Method:  http.MethodGet,
			Path:    path,
			Headers: map[string]string{"X-Test": "yes"},
			Result:  result,
		}, nil
	}
}

func TestSendPayload(t *testing.T) {
	t.Parallel()
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		assert.Equal(t, "papertrader", r.Header.Get(userAgent))
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"symbol":"AAPL","price":101.5}`))
		assert.NoError(t, err)
	}))
	defer serv.Close()

	r := New("test", serv.Client(), WithUserAgent("papertrader"))
	var resp struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, r.SendPayload(context.Background(), get(serv.URL, &resp)))
	assert.Equal(t, "AAPL", resp.Symbol)
	assert.Equal(t, 101.5, resp.Price)
}

func TestSendPayloadErrors(t *testing.T) {
	t.Parallel()
	var r *Requester
	assert.ErrorIs(t, r.SendPayload(context.Background(), get("x", nil)), errRequestSystemIsNil)

	r = New("test", nil)
	assert.Equal(t, DefaultTimeout, r.HTTPClient.Timeout)
	assert.ErrorIs(t, r.SendPayload(context.Background(), nil), errRequestFunctionIsNil)
	assert.ErrorIs(t, r.SendPayload(context.Background(), func() (*Item, error) { return nil, nil }), errRequestItemNil)
	assert.ErrorIs(t, r.SendPayload(context.Background(), get("", nil)), errInvalidPath)

	errBuild := errors.New("cannot build")
	assert.ErrorIs(t, r.SendPayload(context.Background(), func() (*Item, error) { return nil, errBuild }), errBuild)
}

func TestUnsuccessfulStatus(t *testing.T) {
	t.Parallel()
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"order not found"}`, http.StatusNotFound)
	}))
	defer serv.Close()

	r := New("test", serv.Client())
	err := r.SendPayload(context.Background(), get(serv.URL, nil))
	require.ErrorIs(t, err, ErrUnsuccessfulStatus)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "order not found")
}

func TestRetries(t *testing.T) {
	t.Parallel()
	var hits int32
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, err := w.Write([]byte(`{}`))
		assert.NoError(t, err)
	}))
	defer serv.Close()

	r := New("test", serv.Client(), WithBackoff(noBackoff))
	require.NoError(t, r.SendPayload(context.Background(), get(serv.URL, nil)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRetriesExhausted(t *testing.T) {
	t.Parallel()
	var hits int32
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serv.Close()

	r := New("test", serv.Client(), WithBackoff(noBackoff), WithMaxRetries(2))
	err := r.SendPayload(context.Background(), get(serv.URL, nil))
	assert.ErrorIs(t, err, errFailedToRetryRequest)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	atomic.StoreInt32(&hits, 0)
	err = r.SendPayload(WithRetryNotAllowed(context.Background()), get(serv.URL, nil))
	assert.ErrorIs(t, err, ErrUnsuccessfulStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retry when disallowed")
}

func TestTimeout(t *testing.T) {
	t.Parallel()
	serv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer serv.Close()

	client := serv.Client()
	client.Timeout = 20 * time.Millisecond
	r := New("test", client)
	err := r.SendPayload(WithRetryNotAllowed(context.Background()), get(serv.URL, nil))
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(errRequestItemNil))
}

func TestDelayNotAllowed(t *testing.T) {
	t.Parallel()
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer serv.Close()

	r := New("test", serv.Client(), WithLimiter(NewRateLimit(time.Hour, 1)))
	ctx := WithDelayNotAllowed(context.Background())
	require.NoError(t, r.SendPayload(ctx, get(serv.URL, nil)))
	assert.ErrorIs(t, r.SendPayload(ctx, get(serv.URL, nil)), errDelayNotAllowed)
}
