package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/log"
)

// New returns an unconnected stream for the configured symbols
func New(cfg *Config) (*Stream, error) {
	if cfg == nil {
		return nil, common.ErrNilArguments
	}
	if len(cfg.Symbols) == 0 {
		return nil, errNoSymbols
	}
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	symbols := make([]string, len(cfg.Symbols))
	for i := range cfg.Symbols {
		symbols[i] = strings.ToUpper(cfg.Symbols[i])
	}
	return &Stream{
		url:              url,
		key:              cfg.APIKey,
		secret:           cfg.APISecret,
		symbols:          symbols,
		handshakeTimeout: timeout,
		verbose:          cfg.Verbose,
		dialer:           &websocket.Dialer{HandshakeTimeout: timeout},
		trades:           make(map[string]*kline.Kline),
		bars:             make(map[string]*kline.Kline),
	}, nil
}

// Connect dials the stream, authenticates when credentials are set,
// subscribes to trades and bars, then reads in the background until Shutdown
func (s *Stream) Connect(ctx context.Context) error {
	if s.connected.Load() {
		return errAlreadyConnected
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket connection: %v %v Error: %w", s.url, resp.StatusCode, err)
		}
		return fmt.Errorf("websocket connection: %v Error: %w", s.url, err)
	}
	resp.Body.Close()
	s.conn = conn

	if err = s.handshake(); err != nil {
		conn.Close()
		s.conn = nil
		return err
	}
	s.connected.Store(true)
	log.Infof(common.Data, "stream connected to %v, subscribed to %v", s.url, strings.Join(s.symbols, ","))
	s.wg.Add(1)
	go s.readLoop()
	return nil
}

func (s *Stream) handshake() error {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout)); err != nil {
		return err
	}
	if err := s.expect(msgConnected); err != nil {
		return err
	}
	if s.key != "" {
		if err := s.send(authRequest{Action: "auth", Key: s.key, Secret: s.secret}); err != nil {
			return err
		}
		if err := s.expect(msgAuthenticated); err != nil {
			return err
		}
	}
	if err := s.send(subscribeRequest{Action: "subscribe", Trades: s.symbols, Bars: s.symbols}); err != nil {
		return err
	}
	return s.conn.SetReadDeadline(time.Time{})
}

// expect reads one message and requires a success item carrying msg
func (s *Stream) expect(msg string) error {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return err
	}
	var found bool
	var itemErr error
	_, err = jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		typ, _ := jsonparser.GetUnsafeString(value, "T")
		switch typ {
		case messageSuccess:
			if m, _ := jsonparser.GetUnsafeString(value, "msg"); m == msg {
				found = true
			}
		case messageError:
			itemErr = parseStreamError(value)
		}
	})
	if err != nil {
		return fmt.Errorf("%w %s", errUnexpectedResponse, data)
	}
	if itemErr != nil {
		return itemErr
	}
	if !found {
		return fmt.Errorf("%w waiting for %q: %s", errUnexpectedResponse, msg, data)
	}
	return nil
}

func (s *Stream) send(v interface{}) error {
	s.writeControl.Lock()
	defer s.writeControl.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.connected.Swap(false) {
				log.Errorf(common.Data, "stream read failed, latest prices will go stale: %v", err)
			}
			return
		}
		if s.verbose {
			log.Debugf(common.Data, "stream received: %s", data)
		}
		if err = s.handleMessage(data); err != nil {
			log.Warnf(common.Data, "stream message dropped: %v", err)
		}
	}
}

// handleMessage processes a batch of stream items. A bad item is reported
// without losing the rest of the batch
func (s *Stream) handleMessage(data []byte) error {
	var errs []error
	_, err := jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if itemErr := s.handleItem(value); itemErr != nil {
			errs = append(errs, itemErr)
		}
	})
	if err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (s *Stream) handleItem(value []byte) error {
	typ, err := jsonparser.GetUnsafeString(value, "T")
	if err != nil {
		return err
	}
	switch typ {
	case messageTrade:
		k, err := parseTrade(value)
		if err != nil {
			return err
		}
		s.store(s.trades, k)
	case messageBar:
		k, err := parseBar(value)
		if err != nil {
			return err
		}
		s.store(s.bars, k)
	case messageError:
		return parseStreamError(value)
	case messageSuccess, messageSubscription:
		log.Debugf(common.Data, "stream: %s", value)
	}
	return nil
}

// store keeps k unless a later item for the symbol is already held
func (s *Stream) store(target map[string]*kline.Kline, k *kline.Kline) {
	s.m.Lock()
	defer s.m.Unlock()
	if prev, ok := target[k.Symbol]; ok && k.Time.Before(prev.Time) {
		return
	}
	target[k.Symbol] = k
}

// LatestBar returns a bar built from the last trade when it is newer than the
// last streamed bar, otherwise the last streamed bar
func (s *Stream) LatestBar(_ context.Context, symbol string) (*kline.Kline, error) {
	symbol = strings.ToUpper(symbol)
	s.m.RLock()
	defer s.m.RUnlock()
	trade, bar := s.trades[symbol], s.bars[symbol]
	switch {
	case trade == nil && bar == nil:
		return nil, fmt.Errorf("%w for %v", errNoData, symbol)
	case bar == nil || (trade != nil && trade.Time.After(bar.Time)):
		cp := *trade
		return &cp, nil
	default:
		cp := *bar
		return &cp, nil
	}
}

// IsConnected returns whether the stream is still receiving
func (s *Stream) IsConnected() bool {
	return s.connected.Load()
}

// Shutdown closes the connection and waits for the reader to exit
func (s *Stream) Shutdown() error {
	if s.conn == nil {
		return errNotConnected
	}
	var err error
	if s.connected.Swap(false) {
		s.writeControl.Lock()
		err = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeControl.Unlock()
	}
	if closeErr := s.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.wg.Wait()
	s.conn = nil
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func parseStreamError(value []byte) error {
	code, _ := jsonparser.GetInt(value, "code")
	msg, _ := jsonparser.GetString(value, "msg")
	return fmt.Errorf("%w %v %v", errStreamError, code, msg)
}

func parseTrade(value []byte) (*kline.Kline, error) {
	symbol, t, err := parseHeader(value)
	if err != nil {
		return nil, err
	}
	price, err := getDecimal(value, "p")
	if err != nil {
		return nil, err
	}
	size, err := getDecimal(value, "s")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, err
	}
	return &kline.Kline{
		Base:   event.Base{Symbol: symbol, Time: t, Reason: "synthetic bar from last trade"},
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: size,
	}, nil
}

func parseBar(value []byte) (*kline.Kline, error) {
	symbol, t, err := parseHeader(value)
	if err != nil {
		return nil, err
	}
	k := &kline.Kline{Base: event.Base{Symbol: symbol, Time: t}}
	for _, f := range []struct {
		target *decimal.Decimal
		key    string
	}{
		{&k.Open, "o"},
		{&k.High, "h"},
		{&k.Low, "l"},
		{&k.Close, "c"},
		{&k.Volume, "v"},
	} {
		if *f.target, err = getDecimal(value, f.key); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func parseHeader(value []byte) (string, time.Time, error) {
	symbol, err := jsonparser.GetString(value, "S")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("symbol: %w", err)
	}
	ts, err := jsonparser.GetUnsafeString(value, "t")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%v timestamp: %w", symbol, err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return "", time.Time{}, err
	}
	return strings.ToUpper(symbol), t.UTC(), nil
}

func getDecimal(value []byte, key string) (decimal.Decimal, error) {
	raw, _, _, err := jsonparser.Get(value, key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%v: %w", key, err)
	}
	return decimal.NewFromString(string(raw))
}
