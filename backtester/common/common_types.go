package common

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/log"
)

// Direction is the intent of a signal or the side of an order
type Direction string

const (
	// Buy opens or grows a long position
	Buy Direction = "BUY"
	// Sell reduces or closes a position
	Sell Direction = "SELL"
	// DoNothing is an explicit signal for the backtester to not perform an action
	// based upon indicator results
	DoNothing Direction = "HOLD"
	// CouldNotBuy is flagged when a BUY signal is raised in the strategy/signal phase, but the
	// portfolio manager or exchange cannot place an order
	CouldNotBuy Direction = "COULD NOT BUY"
	// CouldNotSell is flagged when a SELL signal is raised in the strategy/signal phase, but the
	// portfolio manager or exchange cannot place an order
	CouldNotSell Direction = "COULD NOT SELL"
	// MissingData is signalled during the strategy/signal phase when data has been identified as missing
	// No buy or sell events can occur
	MissingData Direction = "MISSING DATA"
)

// SimpleTimeFormat is the date layout accepted on the command line and in configs
const SimpleTimeFormat = "2006-01-02"

var (
	// ErrNilArguments is a common error response to highlight that nils were passed in
	// when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it shouldn't have
	ErrNilEvent = errors.New("nil event received")
	// ErrInvalidDataType occurs when an event of an unexpected type is received
	ErrInvalidDataType = errors.New("invalid datatype received")
)

// Sub loggers used by the backtester and paper trader
var (
	Backtester  *log.SubLogger
	PaperTrader *log.SubLogger
	Strategy    *log.SubLogger
	Risk        *log.SubLogger
	Portfolio   *log.SubLogger
	Exchange    *log.SubLogger
	Statistics  *log.SubLogger
	Data        *log.SubLogger
	Monitor     *log.SubLogger
	Config      *log.SubLogger
	Report      *log.SubLogger
	Database    *log.SubLogger
)

// EventHandler is implemented by every event travelling through the queue
type EventHandler interface {
	GetOffset() int64
	SetOffset(int64)
	GetTime() time.Time
	GetSymbol() string

	GetReason() string
	AppendReason(string)
	AppendReasonf(string, ...interface{})
}

// DataEventHandler is a bar arriving in the queue
type DataEventHandler interface {
	EventHandler
	GetOpenPrice() decimal.Decimal
	GetHighPrice() decimal.Decimal
	GetLowPrice() decimal.Decimal
	GetClosePrice() decimal.Decimal
}

// Directioner dictates the side of an order
type Directioner interface {
	SetDirection(Direction)
	GetDirection() Direction
}
