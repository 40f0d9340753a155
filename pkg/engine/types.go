package engine

import (
	"fmt"
	"strings"

	"github.com/pitsim/pitsim/pkg/book"
)

// OrderType selects how an order interacts with the book.
type OrderType uint8

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

// ParseOrderType accepts the wire spelling of an order type.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(s) {
	case "market":
		return Market, nil
	case "limit":
		return Limit, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// ParseSide accepts the wire spelling of an order side.
func ParseSide(s string) (book.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY", "BID":
		return book.Bid, nil
	case "SELL", "ASK":
		return book.Ask, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// Mode selects the price process.
type Mode uint8

const (
	// ModeOrderflow: price only moves as a consequence of executed trades.
	ModeOrderflow Mode = iota
	// ModeNews: price follows a damped-acceleration process toward smoothed
	// fair value, with noise and post-sweep momentum.
	ModeNews
)

func (m Mode) String() string {
	if m == ModeNews {
		return "news"
	}
	return "orderflow"
}

// ParseMode accepts the wire spelling of a price mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "orderflow":
		return ModeOrderflow, nil
	case "news":
		return ModeNews, nil
	default:
		return 0, fmt.Errorf("unknown price mode %q", s)
	}
}

// OrderSpec is a trading request from a player or bot.
type OrderSpec struct {
	Type     OrderType
	Side     book.Side
	Price    float64 // limit orders only
	Quantity float64 // fractional requests are silently rounded to whole lots
}

// FillView is one fill attributed to an accepted order. Maker fields are empty
// / zero when the fill consumed ambient liquidity.
type FillView struct {
	Price        float64 `json:"price"`
	Size         int64   `json:"size"`
	MakerID      string  `json:"makerId,omitempty"`
	MakerOrderID int64   `json:"makerOrderId,omitempty"`
}

// RestingView describes the resting remainder of an accepted order.
type RestingView struct {
	ID             int64   `json:"id"`
	Side           string  `json:"side"`
	Price          float64 `json:"price"`
	RemainingUnits int64   `json:"remainingUnits"` // displayed lots
	HiddenUnits    int64   `json:"hiddenUnits"`    // iceberg reserve lots
}

// OrderResult is the structured outcome of SubmitOrder. Rejections set
// OK=false and Reason; they are never delivered as errors.
type OrderResult struct {
	OK       bool         `json:"ok"`
	Reason   string       `json:"reason,omitempty"`
	Filled   int64        `json:"filled"`
	AvgPrice float64      `json:"avgPrice"`
	Fills    []FillView   `json:"fills"`
	Resting  *RestingView `json:"resting,omitempty"`
}

// Trade is one entry of the bounded trade tape.
type Trade struct {
	TS        int64     `json:"ts"`
	Price     float64   `json:"price"`
	Size      int64     `json:"size"`
	TakerSide book.Side `json:"-"`
	Side      string    `json:"side"` // taker side, "BUY" or "SELL"
	TakerID   string    `json:"takerId"`
	MakerID   string    `json:"makerId,omitempty"` // empty for ambient liquidity
}

// NewsEvent is one entry of the bounded news log. Independent of the book.
type NewsEvent struct {
	TS    int64   `json:"ts"`
	Delta float64 `json:"delta"`
	Sign  int     `json:"sign"`
	Text  string  `json:"text"`
}

// PlayerView is a copy of a player's account, safe to hand out.
type PlayerView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position int64    `json:"position"`
	AvgPrice *float64 `json:"avgPrice"` // nil when flat
	Realized float64  `json:"realized"`
	PnL      float64  `json:"pnl"`
}

// OrderView is a copy of a resting order, in whole lots.
type OrderView struct {
	ID             int64   `json:"id"`
	Side           string  `json:"side"`
	Price          float64 `json:"price"`
	RemainingUnits int64   `json:"remainingUnits"`
	HiddenUnits    int64   `json:"hiddenUnits"`
	CreatedAt      int64   `json:"createdAt"`
}

// TopOfBook is the inside market plus shallow depth.
type TopOfBook struct {
	BestBid float64           `json:"bestBid"`
	BestAsk float64           `json:"bestAsk"`
	Spread  float64           `json:"spread"`
	Mid     float64           `json:"mid"`
	Bids    []book.DepthLevel `json:"bids"`
	Asks    []book.DepthLevel `json:"asks"`
}

// EngineSnapshot is the per-tick state handed to the tick driver and polled by
// the transport layer.
type EngineSnapshot struct {
	Tick              int64        `json:"tick"`
	TS                int64        `json:"ts"`
	Price             float64      `json:"price"`
	Fair              float64      `json:"fair"`
	FairTarget        float64      `json:"fairTarget"`
	Mode              string       `json:"mode"`
	LastSweepPressure float64      `json:"lastSweepPressure"`
	BestBid           float64      `json:"bestBid"`
	BestAsk           float64      `json:"bestAsk"`
	Players           []PlayerView `json:"players"`
}
