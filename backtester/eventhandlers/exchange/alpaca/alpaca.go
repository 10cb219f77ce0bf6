package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/exchanges/request"
	"github.com/thrasher-corp/papertrader/log"
)

// Setup returns a live broker. Every call is bounded by cfg.Timeout
func Setup(cfg *Config) (*Broker, error) {
	if cfg == nil {
		return nil, common.ErrNilArguments
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errMissingCredentials
	}
	commission := cfg.Commission
	if commission.Type == "" {
		commission.Type = fee.Flat
	}
	if err := commission.Validate(); err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	return &Broker{
		requester: request.New("alpaca",
			&http.Client{Timeout: timeout},
			request.WithLimiter(request.NewRateLimit(time.Minute, perMinute)),
			request.WithLogger(common.Exchange)),
		baseURL:    baseURL,
		key:        cfg.APIKey,
		secret:     cfg.APISecret,
		commission: commission,
		verbose:    cfg.Verbose,
		orders:     make(map[string]*order.Order),
		brokerIDs:  make(map[string]string),
	}, nil
}

func (b *Broker) sendHTTPRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	return b.requester.SendPayload(ctx, func() (*request.Item, error) {
		item := &request.Item{
			Method: method,
			Path:   b.baseURL + path,
			Headers: map[string]string{
				headerKeyID:  b.key,
				headerSecret: b.secret,
			},
			Result:  result,
			Verbose: b.verbose,
		}
		if payload != nil {
			item.Body = bytes.NewReader(payload)
			item.Headers["Content-Type"] = "application/json"
		}
		return item, nil
	})
}

// orderContext marks a request that changes broker state. It is sent once
// and always logged
func orderContext(ctx context.Context) context.Context {
	return request.WithVerbose(request.WithRetryNotAllowed(ctx))
}

// Submit sends the order to the broker exactly once. The order becomes
// SUBMITTED and is filled later by OnBar. A failed or timed out submission
// marks the order REJECTED and returns an error
func (b *Broker) Submit(ctx context.Context, o *order.Order, bar *kline.Kline) (*fill.Fill, error) {
	if o == nil || bar == nil {
		return nil, common.ErrNilArguments
	}
	if err := o.Validate(); err != nil {
		o.Status = order.Rejected
		o.AppendReason(err.Error())
		return nil, err
	}
	if o.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		o.ID = id.String()
	}
	req := orderRequest{
		Symbol:        o.Symbol,
		Qty:           strconv.FormatInt(o.Quantity, 10),
		Side:          strings.ToLower(o.Side.String()),
		Type:          strings.ToLower(string(o.Type)),
		TimeInForce:   "day",
		ClientOrderID: o.ID,
	}
	if o.Type == order.Limit || o.Type == order.StopLimit {
		req.LimitPrice = o.LimitPrice.String()
	}
	if o.Type == order.Stop || o.Type == order.StopLimit {
		req.StopPrice = o.StopPrice.String()
	}

	var resp orderResponse
	err := b.sendHTTPRequest(orderContext(ctx), http.MethodPost, pathOrders, req, &resp)

	b.m.Lock()
	defer b.m.Unlock()
	b.orders[o.ID] = o
	b.sequence = append(b.sequence, o.ID)
	if err != nil {
		o.Status = order.Rejected
		if request.IsTimeout(err) {
			o.AppendReason(ErrBrokerTimeout.Error())
			return nil, fmt.Errorf("%w %v %v: %w", errSubmissionFailed, o.Symbol, o.ID, ErrBrokerTimeout)
		}
		o.AppendReasonf("broker error: %v", err)
		return nil, fmt.Errorf("%w %v %v: %w", errSubmissionFailed, o.Symbol, o.ID, err)
	}
	b.brokerIDs[o.ID] = resp.ID
	o.Status = convertStatus(resp.Status)
	if o.Status == order.Pending {
		o.Status = order.Submitted
	}
	log.Infof(common.Exchange, "%v %v %v order %v submitted to broker as %v, status %v", o.Symbol, o.Side, o.Type, o.ID, resp.ID, resp.Status)
	return b.fillFromResponse(o, &resp, bar)
}

// OnBar polls the broker for every open order of the bar's symbol and
// returns fills for those that completed
func (b *Broker) OnBar(ctx context.Context, bar *kline.Kline) ([]*fill.Fill, error) {
	if bar == nil {
		return nil, common.ErrNilEvent
	}
	type outstanding struct {
		local, remote string
	}
	b.m.Lock()
	var open []outstanding
	for _, id := range b.sequence {
		o := b.orders[id]
		if o.IsTerminal() || o.Symbol != bar.Symbol || b.brokerIDs[id] == "" {
			continue
		}
		open = append(open, outstanding{local: id, remote: b.brokerIDs[id]})
	}
	b.m.Unlock()

	// polls never wait on the rate limiter, an order that cannot be polled
	// now is polled again on the next bar
	pollCtx := request.WithDelayNotAllowed(ctx)
	var resp []*fill.Fill
	for i := range open {
		var remote orderResponse
		err := b.sendHTTPRequest(pollCtx, http.MethodGet, pathOrders+"/"+open[i].remote, nil, &remote)
		if err != nil {
			log.Warnf(common.Exchange, "%v could not poll order %v: %v", bar.Symbol, open[i].local, err)
			continue
		}
		b.m.Lock()
		o := b.orders[open[i].local]
		o.Status = convertStatus(remote.Status)
		f, err := b.fillFromResponse(o, &remote, bar)
		b.m.Unlock()
		if err != nil {
			log.Errorf(common.Exchange, "%v order %v: %v", bar.Symbol, o.ID, err)
			continue
		}
		if f != nil {
			resp = append(resp, f)
		}
	}
	return resp, nil
}

// fillFromResponse books a fill once the broker reports a terminal state
// with executed quantity. Partial fills are only booked when the remainder
// is cancelled
func (b *Broker) fillFromResponse(o *order.Order, resp *orderResponse, bar *kline.Kline) (*fill.Fill, error) {
	if o.Status != order.Filled && o.Status != order.Cancelled {
		return nil, nil
	}
	qty := resp.FilledQty.IntPart()
	if qty <= 0 {
		if o.Status == order.Filled {
			return nil, errUnfilledQuantity
		}
		return nil, nil
	}
	if !resp.FilledAvgPrice.Valid || !resp.FilledAvgPrice.Decimal.IsPositive() {
		return nil, errUnfilledQuantity
	}
	price := resp.FilledAvgPrice.Decimal
	if o.Status == order.Cancelled {
		o.AppendReasonf("cancelled after filling %v of %v", qty, o.Quantity)
	}
	return &fill.Fill{
		Base: event.Base{
			Offset: bar.Offset,
			Time:   bar.Time,
			Symbol: o.Symbol,
			Reason: o.Reason,
		},
		OrderID:        o.ID,
		Side:           o.Side,
		Quantity:       qty,
		ReferencePrice: bar.Close,
		Price:          price,
		Commission:     b.commission.Calculate(price, qty),
	}, nil
}

// Cancel asks the broker to cancel an open order
func (b *Broker) Cancel(ctx context.Context, id string) error {
	b.m.Lock()
	o, ok := b.orders[id]
	remote := b.brokerIDs[id]
	b.m.Unlock()
	if !ok {
		return fmt.Errorf("%w %v", exchange.ErrOrderNotFound, id)
	}
	if o.IsTerminal() {
		return fmt.Errorf("%w %v %v", exchange.ErrOrderTerminal, id, o.Status)
	}
	if err := b.sendHTTPRequest(orderContext(ctx), http.MethodDelete, pathOrders+"/"+remote, nil, nil); err != nil {
		return err
	}
	b.m.Lock()
	o.Status = order.Cancelled
	b.m.Unlock()
	return nil
}

// OrderStatus returns the broker's latest status for an order
func (b *Broker) OrderStatus(ctx context.Context, id string) (order.Status, error) {
	b.m.Lock()
	o, ok := b.orders[id]
	remote := b.brokerIDs[id]
	b.m.Unlock()
	if !ok {
		return "", fmt.Errorf("%w %v", exchange.ErrOrderNotFound, id)
	}
	if o.IsTerminal() || remote == "" {
		return o.Status, nil
	}
	var resp orderResponse
	if err := b.sendHTTPRequest(ctx, http.MethodGet, pathOrders+"/"+remote, nil, &resp); err != nil {
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w %v", exchange.ErrOrderNotFound, id)
		}
		return "", err
	}
	return convertStatus(resp.Status), nil
}

// PendingOrders returns copies of every order the broker has not completed
func (b *Broker) PendingOrders() []order.Order {
	b.m.Lock()
	defer b.m.Unlock()
	var resp []order.Order
	for _, id := range b.sequence {
		if o := b.orders[id]; !o.IsTerminal() {
			resp = append(resp, *o)
		}
	}
	return resp
}

// Positions returns the broker's open positions
func (b *Broker) Positions(ctx context.Context) ([]holdings.Holding, error) {
	var resp []positionResponse
	if err := b.sendHTTPRequest(ctx, http.MethodGet, pathPositions, nil, &resp); err != nil {
		return nil, err
	}
	positions := make([]holdings.Holding, 0, len(resp))
	for i := range resp {
		positions = append(positions, holdings.Holding{
			Symbol:      resp[i].Symbol,
			Quantity:    resp[i].Qty.IntPart(),
			AverageCost: resp[i].AvgEntryPrice,
			LastPrice:   resp[i].CurrentPrice,
		})
	}
	return positions, nil
}

// AccountInfo returns the broker's cash, equity and buying power
func (b *Broker) AccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	var resp accountResponse
	if err := b.sendHTTPRequest(ctx, http.MethodGet, pathAccount, nil, &resp); err != nil {
		return nil, err
	}
	equity := resp.Equity
	if equity.IsZero() {
		equity = resp.PortfolioValue
	}
	return &exchange.AccountInfo{
		Cash:        resp.Cash,
		Equity:      equity,
		BuyingPower: resp.BuyingPower,
	}, nil
}

// convertStatus maps the broker's order status onto the order lifecycle
func convertStatus(s string) order.Status {
	switch strings.ToLower(s) {
	case "new", "accepted":
		return order.Submitted
	case "pending_new":
		return order.Pending
	case "filled":
		return order.Filled
	case "partially_filled":
		return order.PartiallyFilled
	case "canceled", "cancelled", "expired":
		return order.Cancelled
	case "rejected":
		return order.Rejected
	default:
		return order.Pending
	}
}
