package engine

// Event is a typed outbound message. The engine publishes into a bounded
// queue and never blocks on consumers; when the queue is full the event is
// dropped (consumers can always re-poll authoritative state).
type Event interface {
	isEvent()
}

// TradeEvent is emitted for every trade appended to the tape.
type TradeEvent struct {
	Trade Trade
}

func (TradeEvent) isEvent() {}

// FillEvent is emitted toward the maker whose resting order was consumed.
type FillEvent struct {
	OwnerID   string
	OrderID   int64
	Price     float64
	Size      int64
	Remaining int64 // displayed lots left after the fill
}

func (FillEvent) isEvent() {}

// CancelEvent is emitted when a player cancels a resting order.
type CancelEvent struct {
	OwnerID   string
	OrderID   int64
	Remaining int64
}

func (CancelEvent) isEvent() {}

// ExpireEvent is emitted when maintenance force-expires a resting order.
type ExpireEvent struct {
	OwnerID   string
	OrderID   int64
	Remaining int64
}

func (ExpireEvent) isEvent() {}

// NewsPushedEvent is emitted for every PushNews call.
type NewsPushedEvent struct {
	News NewsEvent
}

func (NewsPushedEvent) isEvent() {}

// TickEvent carries the snapshot produced by StepTick.
type TickEvent struct {
	Snapshot EngineSnapshot
}

func (TickEvent) isEvent() {}

// Events exposes the outbound queue for subscription.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
