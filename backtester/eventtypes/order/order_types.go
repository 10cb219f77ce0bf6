package order

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

// Type is the execution style of an order
type Type string

// Order types supported by the execution models
const (
	Market    Type = "MARKET"
	Limit     Type = "LIMIT"
	Stop      Type = "STOP"
	StopLimit Type = "STOP_LIMIT"
)

// Status is the lifecycle state of an order
type Status string

// Order statuses
const (
	Pending         Status = "PENDING"
	Submitted       Status = "SUBMITTED"
	Filled          Status = "FILLED"
	PartiallyFilled Status = "PARTIALLY_FILLED"
	Rejected        Status = "REJECTED"
	Cancelled       Status = "CANCELLED"
)

var (
	// ErrInvalidOrder is returned when an order's fields are inconsistent with its type
	ErrInvalidOrder = errors.New("invalid order")
)

// Order contains all details of an order created from an approved signal
type Order struct {
	event.Base
	ID       string           `json:"id"`
	Type     Type             `json:"type"`
	Side     common.Direction `json:"side"`
	Quantity int64            `json:"quantity"`
	// Price is the reference price of the originating signal
	Price      decimal.Decimal `json:"price"`
	LimitPrice decimal.Decimal `json:"limit-price,omitempty"`
	StopPrice  decimal.Decimal `json:"stop-price,omitempty"`
	Status     Status          `json:"status"`
	// StopTriggered records that the stop leg of a STOP_LIMIT order has
	// fired and the order now rests as a limit order
	StopTriggered bool `json:"stop-triggered,omitempty"`
}
