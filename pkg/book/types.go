package book

// Side is the direction of an order. Bid buys, Ask sells.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BUY"
	case Ask:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is a resting order queued at a price level. Remaining is the displayed
// quantity; HiddenRemaining is the undisplayed iceberg reserve. Both are float
// lots internally because passive decay produces fractional remainders; the
// engine rounds every fill to whole lots before it touches any ledger.
type Order struct {
	ID              int64
	Owner           string
	Side            Side
	Price           float64
	Remaining       float64
	HiddenRemaining float64
	DisplayTarget   float64
	CreatedAt       int64 // unix millis
	NextRefreshAt   int64 // unix millis
}

// TotalRemaining is displayed plus hidden quantity.
func (o *Order) TotalRemaining() float64 {
	return o.Remaining + o.HiddenRemaining
}

// Fill is one slice of a match. Owner is empty and OrderID zero when the fill
// consumed ambient baseline liquidity.
type Fill struct {
	Price   float64
	Size    float64
	Owner   string
	OrderID int64
}

// Result reports the outcome of a marketable order.
type Result struct {
	Filled    float64
	AvgPrice  float64 // volume-weighted, 0 when nothing filled
	Fills     []Fill
	Remainder float64
}

// CanceledOrder describes an order removed by cancellation or expiry.
type CanceledOrder struct {
	ID        int64
	Owner     string
	Side      Side
	Price     float64
	Remaining float64 // displayed + hidden at removal time
}
