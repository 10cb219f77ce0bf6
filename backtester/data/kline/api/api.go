package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/csv"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/exchanges/request"
	"github.com/thrasher-corp/papertrader/log"
	"golang.org/x/sync/errgroup"
)

// New returns a market data client. Every call is bounded by cfg.Timeout
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, common.ErrNilArguments
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errMissingCredentials
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = request.DefaultTimeout
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	timeframe := cfg.Timeframe
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	return &Client{
		requester: request.New("marketdata",
			&http.Client{Timeout: timeout},
			request.WithLimiter(request.NewRateLimit(time.Minute, perMinute)),
			request.WithLogger(common.Data)),
		baseURL:   baseURL,
		key:       cfg.APIKey,
		secret:    cfg.APISecret,
		feed:      cfg.Feed,
		timeframe: timeframe,
		cacheDir:  cfg.CacheDirectory,
		verbose:   cfg.Verbose,
	}, nil
}

func (c *Client) sendHTTPRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	if c.feed != "" {
		params.Set("feed", c.feed)
	}
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return c.requester.SendPayload(ctx, func() (*request.Item, error) {
		return &request.Item{
			Method: http.MethodGet,
			Path:   target,
			Headers: map[string]string{
				headerKey:    c.key,
				headerSecret: c.secret,
			},
			Result:  result,
			Verbose: c.verbose,
		}, nil
	})
}

// LatestBar returns the most recent bar the feed has for the symbol
func (c *Client) LatestBar(ctx context.Context, symbol string) (*kline.Kline, error) {
	var resp latestBarResponse
	err := c.sendHTTPRequest(ctx, fmt.Sprintf(latestBarsPath, url.PathEscape(symbol)), url.Values{}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Bar == nil {
		return nil, fmt.Errorf("%w %v", data.ErrNoBars, symbol)
	}
	return resp.Bar.toKline(symbol), nil
}

// Load downloads daily history for each symbol. When a cache directory is
// configured, a previous download of the same range is read instead
func (c *Client) Load(ctx context.Context, symbols []string, start, end time.Time) (map[string][]*kline.Kline, error) {
	var m sync.Mutex
	resp := make(map[string][]*kline.Kline, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	for i := range symbols {
		symbol := symbols[i]
		g.Go(func() error {
			bars, err := c.loadSymbol(ctx, symbol, start, end)
			if err != nil {
				return fmt.Errorf("%v %w", symbol, err)
			}
			m.Lock()
			resp[symbol] = bars
			m.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) loadSymbol(ctx context.Context, symbol string, start, end time.Time) ([]*kline.Kline, error) {
	var cachePath string
	if c.cacheDir != "" {
		cachePath = filepath.Join(c.cacheDir, fmt.Sprintf("%s_%s_%s%s",
			strings.ToUpper(symbol),
			start.Format(common.SimpleTimeFormat),
			end.Format(common.SimpleTimeFormat),
			csv.Extension))
		bars, err := csv.LoadFile(cachePath, symbol, start, end)
		switch {
		case err == nil:
			log.Debugf(common.Data, "%v read %v bars from cache %v", symbol, len(bars), cachePath)
			return bars, nil
		case !errors.Is(err, os.ErrNotExist):
			log.Warnf(common.Data, "%v ignoring unreadable cache %v: %v", symbol, cachePath, err)
		}
	}
	bars, err := c.GetBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		if err := csv.Save(cachePath, bars); err != nil {
			log.Warnf(common.Data, "%v could not cache bars: %v", symbol, err)
		}
	}
	return bars, nil
}

// GetBars follows every page of the bar history for the range
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]*kline.Kline, error) {
	var resp []*kline.Kline
	seen := make(map[string]bool)
	var pageToken string
	for {
		params := url.Values{}
		params.Set("timeframe", c.timeframe)
		params.Set("limit", strconv.Itoa(DefaultPageLimit))
		if !start.IsZero() {
			params.Set("start", start.UTC().Format(time.RFC3339))
		}
		if !end.IsZero() {
			params.Set("end", end.UTC().Format(time.RFC3339))
		}
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}
		var page barsResponse
		if err := c.sendHTTPRequest(ctx, fmt.Sprintf(barsPath, url.PathEscape(symbol)), params, &page); err != nil {
			return nil, err
		}
		for i := range page.Bars {
			if page.Bars[i] == nil {
				continue
			}
			resp = append(resp, page.Bars[i].toKline(symbol))
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		pageToken = *page.NextPageToken
		if seen[pageToken] {
			return nil, fmt.Errorf("%w %v", errPaginationLoop, pageToken)
		}
		seen[pageToken] = true
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w %v", errEmptyResponse, symbol)
	}
	return resp, nil
}

func (b *barResponse) toKline(symbol string) *kline.Kline {
	return &kline.Kline{
		Base:   event.Base{Symbol: symbol, Time: b.Time.UTC()},
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}
