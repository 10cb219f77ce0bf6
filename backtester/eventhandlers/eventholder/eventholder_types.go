package eventholder

import (
	"errors"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
)

var (
	errEventInPast = errors.New("event is earlier than the last dispatched event")
)

// Holder contains the event queue for backtester processing. Events are
// returned in timestamp order, and events sharing a timestamp are returned
// in the order they were appended
type Holder struct {
	queue          eventQueue
	sequence       uint64
	lastDispatched time.Time
}

// EventHolder interface details what is expected of an event holder to perform
type EventHolder interface {
	Reset()
	AppendEvent(common.EventHandler) error
	NextEvent() common.EventHandler
	Len() int
}

type queued struct {
	event    common.EventHandler
	sequence uint64
}

type eventQueue []queued
