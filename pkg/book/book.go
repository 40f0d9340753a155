package book

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/num"
	"github.com/pitsim/pitsim/pkg/util"
)

// ErrLevelCapacity is returned by PlaceLimitOrder when the target level has no
// manual capacity left. Any fills produced by crossing the book first still
// stand; only the resting remainder is refused.
var ErrLevelCapacity = errors.New("price level at manual capacity")

type levelKey struct {
	side  Side
	ticks int64
}

// OrderBook owns price levels, resting orders and ambient baseline liquidity,
// and runs price-time priority matching. It knows nothing about participants'
// economic accounting.
//
// The book is not internally synchronized: the engine serializes every call
// behind its own mutex, so no caller can observe a half-updated book.
type OrderBook struct {
	cfg   Config
	clock util.Clock
	rng   *rand.Rand
	log   *zap.SugaredLogger

	// levels and owners are kept consistent by construction: every mutation
	// updates the level table, the owner table and the order locator together.
	levels   map[levelKey]*level
	owners   map[string]map[int64]struct{}
	orderLoc map[int64]levelKey

	nextID    int64
	lastTrade float64 // 0 until the first fill

	snapshots []Snapshot
}

// New builds an empty book. The random source is injected so maintenance
// jitter is reproducible in tests.
func New(cfg Config, clock util.Clock, rng *rand.Rand, log *zap.SugaredLogger) *OrderBook {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OrderBook{
		cfg:      cfg,
		clock:    clock,
		rng:      rng,
		log:      log,
		levels:   make(map[levelKey]*level),
		owners:   make(map[string]map[int64]struct{}),
		orderLoc: make(map[int64]levelKey),
	}
}

// Quantize snaps a price to the book's tick grid.
func (b *OrderBook) Quantize(p float64) float64 {
	return num.QuantizePrice(p, b.cfg.TickSize)
}

func (b *OrderBook) key(side Side, price float64) levelKey {
	return levelKey{side: side, ticks: num.PriceTicks(price, b.cfg.TickSize)}
}

func (b *OrderBook) levelAt(side Side, price float64) *level {
	return b.levels[b.key(side, price)]
}

func (b *OrderBook) ensureLevel(side Side, price float64) *level {
	k := b.key(side, price)
	if l, ok := b.levels[k]; ok {
		return l
	}
	l := &level{side: side, price: price}
	b.levels[k] = l
	return l
}

func (b *OrderBook) pruneIfEmpty(l *level) {
	if l.empty() {
		delete(b.levels, b.key(l.side, l.price))
	}
}

// bestLevel returns the most aggressive non-empty level on a side: highest
// price for bids, lowest for asks.
func (b *OrderBook) bestLevel(side Side) *level {
	var best *level
	for k, l := range b.levels {
		if k.side != side || l.totalVolume() <= volEps {
			continue
		}
		if best == nil {
			best = l
			continue
		}
		if side == Bid && l.price > best.price {
			best = l
		}
		if side == Ask && l.price < best.price {
			best = l
		}
	}
	return best
}

// indexOrder registers a freshly rested order in the owner table and locator.
func (b *OrderBook) indexOrder(o *Order) {
	set, ok := b.owners[o.Owner]
	if !ok {
		set = make(map[int64]struct{})
		b.owners[o.Owner] = set
	}
	set[o.ID] = struct{}{}
	b.orderLoc[o.ID] = b.key(o.Side, o.Price)
}

// unindexOrder removes an order from the owner table and locator. Panics if
// the indexes disagree: that is a programming error, not a market condition.
func (b *OrderBook) unindexOrder(o *Order) {
	set, ok := b.owners[o.Owner]
	if !ok {
		panic(fmt.Sprintf("book: order %d owner %q missing from owner index", o.ID, o.Owner))
	}
	delete(set, o.ID)
	if len(set) == 0 {
		delete(b.owners, o.Owner)
	}
	delete(b.orderLoc, o.ID)
}

// finalize removes an exhausted or expired order from its level and indexes.
func (b *OrderBook) finalize(l *level, o *Order) {
	if !l.removeOrder(o.ID) {
		panic(fmt.Sprintf("book: order %d indexed at level %.4f but not queued there", o.ID, l.price))
	}
	b.unindexOrder(o)
}

// refreshClip releases a fresh display clip from an order's hidden reserve and
// re-queues it at the back of its level's time priority. This is what keeps
// visible size from revealing true iceberg size.
func (b *OrderBook) refreshClip(l *level, o *Order) {
	clip := math.Max(b.cfg.MinClip, b.cfg.DisplayFraction*o.TotalRemaining())
	if b.cfg.JitterFrac > 0 {
		clip *= 1 + (b.rng.Float64()*2-1)*b.cfg.JitterFrac
	}
	release := math.Min(o.HiddenRemaining, clip)
	if release <= volEps {
		return
	}
	o.HiddenRemaining -= release
	o.Remaining += release
	o.DisplayTarget = o.Remaining
	o.NextRefreshAt = b.clock.Now().UnixMilli() + b.cfg.RefreshInterval.Milliseconds()
	l.requeue(o)
}

// ExecuteMarketOrder crosses the book on the given taker side for qty lots,
// optionally bounded by a limit price. Within each level, resting orders are
// consumed strictly in arrival order before ambient baseline volume. A drained
// order gets one immediate forced refresh from its iceberg reserve before
// being finalized. Zero or negative qty is a no-op.
func (b *OrderBook) ExecuteMarketOrder(side Side, qty float64, limit *float64) Result {
	var res Result
	if qty <= 0 {
		return res
	}

	opposing := side.Opposite()
	need := qty
	var notional float64

	for need > volEps {
		lvl := b.bestLevel(opposing)
		if lvl == nil {
			break
		}
		if limit != nil {
			if side == Bid && lvl.price > *limit+volEps {
				break
			}
			if side == Ask && lvl.price < *limit-volEps {
				break
			}
		}

		// Manual orders first, in time priority.
		for need > volEps && len(lvl.orders) > 0 {
			o := lvl.orders[0]
			take := math.Min(need, o.Remaining)
			if take > volEps {
				o.Remaining -= take
				need -= take
				notional += take * lvl.price
				res.Filled += take
				res.Fills = append(res.Fills, Fill{Price: lvl.price, Size: take, Owner: o.Owner, OrderID: o.ID})
				b.lastTrade = lvl.price
			}
			if o.Remaining <= volEps {
				if o.HiddenRemaining > volEps {
					b.refreshClip(lvl, o)
				}
				if o.TotalRemaining() <= volEps {
					b.finalize(lvl, o)
				}
			}
			if take <= volEps && o.Remaining > volEps {
				break
			}
		}

		// Then ambient baseline.
		if need > volEps && lvl.base > volEps {
			take := math.Min(need, lvl.base)
			lvl.base -= take
			need -= take
			notional += take * lvl.price
			res.Filled += take
			res.Fills = append(res.Fills, Fill{Price: lvl.price, Size: take})
			b.lastTrade = lvl.price
		}

		if lvl.totalVolume() <= volEps {
			b.pruneLevel(lvl)
		} else {
			// Limit reached or qty exhausted at this level.
			break
		}
	}

	if res.Filled > volEps {
		res.AvgPrice = notional / res.Filled
	}
	if need > volEps {
		res.Remainder = need
	}
	return res
}

// pruneLevel drops a level and finalizes any dust orders still queued on it.
func (b *OrderBook) pruneLevel(l *level) {
	for len(l.orders) > 0 {
		b.finalize(l, l.orders[0])
	}
	delete(b.levels, b.key(l.side, l.price))
}

// PlaceLimitOrder first crosses the book up to the limit price exactly as a
// market order would, then rests any remainder at the (quantized) limit,
// bounded by the level's remaining manual capacity. When capacity is
// exhausted the remainder is rejected outright with ErrLevelCapacity rather
// than partially queued; crossing fills already produced still stand.
func (b *OrderBook) PlaceLimitOrder(owner string, side Side, price, qty float64) (Result, *Order, error) {
	price = b.Quantize(price)
	res := b.ExecuteMarketOrder(side, qty, &price)
	if res.Remainder <= volEps {
		return res, nil, nil
	}

	lvl := b.ensureLevel(side, price)
	if b.cfg.MaxLevelSize-lvl.manualVolume() < res.Remainder-volEps {
		b.pruneIfEmpty(lvl)
		return res, nil, ErrLevelCapacity
	}

	now := b.clock.Now().UnixMilli()
	b.nextID++
	o := &Order{
		ID:            b.nextID,
		Owner:         owner,
		Side:          side,
		Price:         price,
		CreatedAt:     now,
		NextRefreshAt: now + b.cfg.RefreshInterval.Milliseconds(),
	}

	display := res.Remainder
	if display > b.cfg.IcebergMinParent {
		display = math.Max(b.cfg.MinClip, b.cfg.DisplayFraction*res.Remainder)
		if display > res.Remainder {
			display = res.Remainder
		}
	}
	o.Remaining = display
	o.HiddenRemaining = res.Remainder - display
	o.DisplayTarget = display

	lvl.orders = append(lvl.orders, o)
	b.indexOrder(o)
	return res, o, nil
}

// Cancel removes one order. Unknown ids are a no-op returning nil, never an
// error.
func (b *OrderBook) Cancel(id int64) *CanceledOrder {
	k, ok := b.orderLoc[id]
	if !ok {
		return nil
	}
	lvl, ok := b.levels[k]
	if !ok {
		panic(fmt.Sprintf("book: order %d located at missing level %+v", id, k))
	}
	var o *Order
	for _, cand := range lvl.orders {
		if cand.ID == id {
			o = cand
			break
		}
	}
	if o == nil {
		panic(fmt.Sprintf("book: order %d located at level %.4f but not queued there", id, lvl.price))
	}
	canceled := &CanceledOrder{
		ID:        o.ID,
		Owner:     o.Owner,
		Side:      o.Side,
		Price:     o.Price,
		Remaining: o.TotalRemaining(),
	}
	b.finalize(lvl, o)
	b.pruneIfEmpty(lvl)
	return canceled
}

// CancelAllForOwner cancels every order the owner holds, in O(owned orders).
func (b *OrderBook) CancelAllForOwner(owner string) []CanceledOrder {
	set, ok := b.owners[owner]
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]CanceledOrder, 0, len(ids))
	for _, id := range ids {
		if c := b.Cancel(id); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// LastTradePrice returns the price of the most recent fill, 0 if none yet.
func (b *OrderBook) LastTradePrice() float64 {
	return b.lastTrade
}
