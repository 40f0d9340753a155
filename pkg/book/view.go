package book

import "sort"

// DepthLevel is one row of an aggregated book view.
type DepthLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"` // ambient + displayed manual
	Orders int     `json:"orders"` // resting order count (0 = pure ambient)
}

// Snapshot is one analytics record, written once per maintenance pass into a
// bounded ring. It is replay/analytics data, not authoritative state.
type Snapshot struct {
	TS        int64        `json:"ts"`
	BestBid   float64      `json:"bestBid"` // 0 when side is empty
	BestAsk   float64      `json:"bestAsk"`
	Spread    float64      `json:"spread"`
	Mid       float64      `json:"mid"`
	LastTrade float64      `json:"lastTrade"`
	Bids      []DepthLevel `json:"bids"`
	Asks      []DepthLevel `json:"asks"`
}

// snapshotCap bounds the analytics ring buffer.
const snapshotCap = 400

// BestBid returns the highest bid level with displayed volume.
func (b *OrderBook) BestBid() (float64, bool) {
	if l := b.bestLevel(Bid); l != nil {
		return l.price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask level with displayed volume.
func (b *OrderBook) BestAsk() (float64, bool) {
	if l := b.bestLevel(Ask); l != nil {
		return l.price, true
	}
	return 0, false
}

// Depth returns up to n aggregated levels per side, best first. The slices are
// fresh copies; callers cannot mutate book state through them.
func (b *OrderBook) Depth(n int) (bids, asks []DepthLevel) {
	for k, l := range b.levels {
		if l.totalVolume() <= volEps {
			continue
		}
		row := DepthLevel{Price: l.price, Volume: l.totalVolume(), Orders: len(l.orders)}
		if k.side == Bid {
			bids = append(bids, row)
		} else {
			asks = append(asks, row)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if n > 0 && len(bids) > n {
		bids = bids[:n]
	}
	if n > 0 && len(asks) > n {
		asks = asks[:n]
	}
	return bids, asks
}

// TotalVolumeAt reports displayed volume at one price, 0 if the level is gone.
func (b *OrderBook) TotalVolumeAt(side Side, price float64) float64 {
	if l := b.levelAt(side, price); l != nil {
		return l.totalVolume()
	}
	return 0
}

// OrdersForOwner returns copies of every resting order the owner holds,
// oldest id first.
func (b *OrderBook) OrdersForOwner(owner string) []Order {
	set, ok := b.owners[owner]
	if !ok {
		return nil
	}
	out := make([]Order, 0, len(set))
	for id := range set {
		k := b.orderLoc[id]
		lvl := b.levels[k]
		if lvl == nil {
			continue
		}
		for _, o := range lvl.orders {
			if o.ID == id {
				out = append(out, *o)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OwnsOrder reports whether the order id rests on the book under this owner.
func (b *OrderBook) OwnsOrder(owner string, id int64) bool {
	set, ok := b.owners[owner]
	if !ok {
		return false
	}
	_, ok = set[id]
	return ok
}

// DisplayedRemaining returns an order's displayed remainder, 0 if it is gone.
func (b *OrderBook) DisplayedRemaining(id int64) float64 {
	k, ok := b.orderLoc[id]
	if !ok {
		return 0
	}
	if lvl := b.levels[k]; lvl != nil {
		for _, o := range lvl.orders {
			if o.ID == id {
				return o.Remaining
			}
		}
	}
	return 0
}

// OrderCount reports the number of resting orders across the whole book.
func (b *OrderBook) OrderCount() int {
	n := 0
	for _, l := range b.levels {
		n += len(l.orders)
	}
	return n
}

// LevelCount reports the number of live price levels.
func (b *OrderBook) LevelCount() int {
	return len(b.levels)
}

// Snapshots returns a copy of the analytics ring, oldest first.
func (b *OrderBook) Snapshots() []Snapshot {
	out := make([]Snapshot, len(b.snapshots))
	copy(out, b.snapshots)
	return out
}

func (b *OrderBook) appendSnapshot(now int64) {
	snap := Snapshot{TS: now, LastTrade: b.lastTrade}
	if bid, ok := b.BestBid(); ok {
		snap.BestBid = bid
	}
	if ask, ok := b.BestAsk(); ok {
		snap.BestAsk = ask
	}
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.Spread = snap.BestAsk - snap.BestBid
		snap.Mid = (snap.BestAsk + snap.BestBid) / 2
	}
	snap.Bids, snap.Asks = b.Depth(b.cfg.SnapshotDepth)

	b.snapshots = append(b.snapshots, snap)
	if len(b.snapshots) > snapshotCap {
		b.snapshots = b.snapshots[len(b.snapshots)-snapshotCap:]
	}
}
