package book_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/util"
)

func newTestBook(t *testing.T, mutate func(*book.Config)) (*book.OrderBook, *util.ManualClock) {
	t.Helper()
	cfg := book.DefaultConfig()
	cfg.JitterFrac = 0 // deterministic targets
	if mutate != nil {
		mutate(&cfg)
	}
	clock := util.NewManualClock(time.UnixMilli(1_700_000_000_000))
	return book.New(cfg, clock, rand.New(rand.NewSource(1)), nil), clock
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBookStartsEmptyUntilMaintenance(t *testing.T) {
	b, _ := newTestBook(t, nil)
	if b.LevelCount() != 0 || b.OrderCount() != 0 {
		t.Fatalf("fresh book not empty: levels=%d orders=%d", b.LevelCount(), b.OrderCount())
	}

	b.TickMaintenance(100, 100)

	if b.LevelCount() != 24 {
		t.Errorf("expected 12 ambient levels per side, got %d total", b.LevelCount())
	}
	if b.OrderCount() != 0 {
		t.Errorf("maintenance must not create manual orders, got %d", b.OrderCount())
	}
	bid, ok := b.BestBid()
	if !ok || !approx(bid, 99.95) {
		t.Errorf("best bid = %v (%v), want 99.95", bid, ok)
	}
	ask, ok := b.BestAsk()
	if !ok || !approx(ask, 100.05) {
		t.Errorf("best ask = %v (%v), want 100.05", ask, ok)
	}
}

func TestBaselineConvergesTowardTarget(t *testing.T) {
	b, _ := newTestBook(t, nil)
	for i := 0; i < 50; i++ {
		b.TickMaintenance(100, 100)
	}
	// Innermost level target is round(BaseDepth) = 60 lots.
	vol := b.TotalVolumeAt(book.Ask, 100.05)
	if math.Abs(vol-60) > 1 {
		t.Errorf("inner ask baseline = %v, want ~60", vol)
	}
	// Outermost level decayed geometrically and clamped to [5,120].
	outer := b.TotalVolumeAt(book.Ask, 100.60)
	want := math.Round(60 * math.Exp(-0.25*11))
	if want < 5 {
		want = 5
	}
	if math.Abs(outer-want) > 1 {
		t.Errorf("outer ask baseline = %v, want ~%v", outer, want)
	}
}

func TestZeroQuantityMarketOrderIsNoop(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.TickMaintenance(100, 100)

	for _, qty := range []float64{0, -5} {
		res := b.ExecuteMarketOrder(book.Bid, qty, nil)
		if res.Filled != 0 || len(res.Fills) != 0 || res.Remainder != 0 {
			t.Errorf("qty=%v: expected no-op, got %+v", qty, res)
		}
	}
}

func TestLimitOrderRestsAndCancels(t *testing.T) {
	b, _ := newTestBook(t, nil)

	res, resting, err := b.PlaceLimitOrder("alice", book.Bid, 99.50, 10)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if res.Filled != 0 {
		t.Errorf("expected no fills on empty book, got %v", res.Filled)
	}
	if resting == nil || !approx(resting.Remaining, 10) {
		t.Fatalf("expected resting order of 10, got %+v", resting)
	}

	orders := b.OrdersForOwner("alice")
	if len(orders) != 1 || orders[0].ID != resting.ID {
		t.Fatalf("owner index mismatch: %+v", orders)
	}

	if c := b.Cancel(resting.ID); c == nil || c.Owner != "alice" || !approx(c.Remaining, 10) {
		t.Fatalf("cancel returned %+v", c)
	}
	if b.Cancel(resting.ID) != nil {
		t.Error("double cancel should be a no-op returning nil")
	}
	if b.Cancel(99999) != nil {
		t.Error("unknown id cancel should be a no-op returning nil")
	}
	if got := b.OrdersForOwner("alice"); len(got) != 0 {
		t.Errorf("owner index not cleaned: %+v", got)
	}
}

func TestPriceTimePriorityWithinLevel(t *testing.T) {
	b, _ := newTestBook(t, nil)

	_, first, _ := b.PlaceLimitOrder("early", book.Ask, 100.10, 5)
	_, second, _ := b.PlaceLimitOrder("late", book.Ask, 100.10, 5)
	if first.ID >= second.ID {
		t.Fatal("order ids must be monotonically assigned")
	}

	res := b.ExecuteMarketOrder(book.Bid, 5, nil)
	if !approx(res.Filled, 5) {
		t.Fatalf("filled %v, want 5", res.Filled)
	}
	for _, f := range res.Fills {
		if f.Owner != "early" {
			t.Errorf("fill attributed to %q, want earliest arrival", f.Owner)
		}
	}
	if got := b.OrdersForOwner("late"); len(got) != 1 {
		t.Errorf("later order should be untouched, got %+v", got)
	}
}

func TestManualOrdersConsumedBeforeAmbient(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.TickMaintenance(100, 100) // seeds ambient at 100.05
	ambientBefore := b.TotalVolumeAt(book.Ask, 100.05)

	_, _, err := b.PlaceLimitOrder("mm", book.Ask, 100.05, 4)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	res := b.ExecuteMarketOrder(book.Bid, 4, nil)
	if !approx(res.Filled, 4) {
		t.Fatalf("filled %v, want 4", res.Filled)
	}
	for _, f := range res.Fills {
		if f.Owner != "mm" {
			t.Errorf("manual volume must fill before ambient, got owner %q", f.Owner)
		}
	}
	if got := b.TotalVolumeAt(book.Ask, 100.05); !approx(got, ambientBefore) {
		t.Errorf("ambient volume consumed early: %v, want %v", got, ambientBefore)
	}
}

func TestLimitOrderCrossesThenRestsRemainder(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.PlaceLimitOrder("seller", book.Ask, 100.05, 4)

	res, resting, err := b.PlaceLimitOrder("buyer", book.Bid, 100.05, 6)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !approx(res.Filled, 4) || !approx(res.AvgPrice, 100.05) {
		t.Errorf("cross: filled=%v avg=%v, want 4 @ 100.05", res.Filled, res.AvgPrice)
	}
	if resting == nil || !approx(resting.Remaining, 2) || resting.Side != book.Bid {
		t.Fatalf("remainder should rest as 2-lot bid, got %+v", resting)
	}
	if got := b.OrdersForOwner("seller"); len(got) != 0 {
		t.Errorf("seller's order should be fully consumed, got %+v", got)
	}
}

func TestMarketOrderSweepsLevels(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.PlaceLimitOrder("s1", book.Ask, 100.05, 3)
	b.PlaceLimitOrder("s2", book.Ask, 100.10, 5)

	preSweepAsk, _ := b.BestAsk()

	res := b.ExecuteMarketOrder(book.Bid, 6, nil)
	if !approx(res.Filled, 6) {
		t.Fatalf("filled %v, want 6", res.Filled)
	}
	if len(res.Fills) < 2 {
		t.Errorf("sweep should span multiple levels, got %d fills", len(res.Fills))
	}
	if got := b.TotalVolumeAt(book.Ask, preSweepAsk); got != 0 {
		t.Errorf("pre-sweep level should be empty, has %v", got)
	}
	ask, ok := b.BestAsk()
	if !ok || ask <= preSweepAsk {
		t.Errorf("best ask %v should move strictly away from %v", ask, preSweepAsk)
	}
	if vwap := res.AvgPrice; vwap <= 100.05 || vwap >= 100.10 {
		t.Errorf("vwap %v should be between swept levels", vwap)
	}
}

func TestLimitPriceBoundsMarketableFill(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.PlaceLimitOrder("s1", book.Ask, 100.05, 3)
	b.PlaceLimitOrder("s2", book.Ask, 100.15, 3)

	limit := 100.05
	res := b.ExecuteMarketOrder(book.Bid, 6, &limit)
	if !approx(res.Filled, 3) {
		t.Errorf("filled %v, want 3 (second level is beyond the limit)", res.Filled)
	}
	if !approx(res.Remainder, 3) {
		t.Errorf("remainder %v, want 3", res.Remainder)
	}
}

func TestIcebergDisplaysFractionAndRefreshes(t *testing.T) {
	b, _ := newTestBook(t, nil)

	_, o, err := b.PlaceLimitOrder("whale", book.Ask, 100.20, 40)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	// 40 > minParent 20: display max(minClip 5, 0.25*40) = 10, hide 30.
	if !approx(o.Remaining, 10) || !approx(o.HiddenRemaining, 30) {
		t.Fatalf("iceberg split = %v/%v, want 10/30", o.Remaining, o.HiddenRemaining)
	}

	// Draining the displayed clip forces an immediate refresh instead of
	// finalizing the order.
	res := b.ExecuteMarketOrder(book.Bid, 10, nil)
	if !approx(res.Filled, 10) {
		t.Fatalf("filled %v, want 10", res.Filled)
	}
	orders := b.OrdersForOwner("whale")
	if len(orders) != 1 {
		t.Fatalf("iceberg should survive the drain, got %+v", orders)
	}
	refreshed := orders[0]
	if refreshed.Remaining <= 0 {
		t.Error("refresh should release a new display clip")
	}
	if !approx(refreshed.TotalRemaining(), 30) {
		t.Errorf("total remaining %v, want 30", refreshed.TotalRemaining())
	}
}

func TestIcebergRequeuesAtBackOnRefresh(t *testing.T) {
	b, _ := newTestBook(t, nil)

	b.PlaceLimitOrder("whale", book.Ask, 100.10, 40) // displays 10
	b.PlaceLimitOrder("small", book.Ask, 100.10, 5)

	// Drain the whale's displayed clip; its refresh re-queues it behind small.
	b.ExecuteMarketOrder(book.Bid, 10, nil)

	res := b.ExecuteMarketOrder(book.Bid, 5, nil)
	for _, f := range res.Fills {
		if f.Owner != "small" {
			t.Errorf("refreshed iceberg should lose time priority, fill owner %q", f.Owner)
		}
	}
}

func TestLevelCapacityRejection(t *testing.T) {
	b, _ := newTestBook(t, func(cfg *book.Config) { cfg.MaxLevelSize = 10 })

	if _, _, err := b.PlaceLimitOrder("a", book.Bid, 99.50, 8); err != nil {
		t.Fatalf("first order should fit: %v", err)
	}
	_, resting, err := b.PlaceLimitOrder("b", book.Bid, 99.50, 5)
	if err != book.ErrLevelCapacity {
		t.Fatalf("expected ErrLevelCapacity, got %v", err)
	}
	if resting != nil {
		t.Error("rejected order must not be partially queued")
	}
	if got := b.OrdersForOwner("b"); len(got) != 0 {
		t.Errorf("rejected owner should hold nothing, got %+v", got)
	}
}

func TestCancelAllForOwner(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.PlaceLimitOrder("alice", book.Bid, 99.50, 3)
	b.PlaceLimitOrder("alice", book.Bid, 99.45, 4)
	b.PlaceLimitOrder("bob", book.Ask, 100.50, 5)

	canceled := b.CancelAllForOwner("alice")
	if len(canceled) != 2 {
		t.Fatalf("canceled %d orders, want 2", len(canceled))
	}
	if len(b.OrdersForOwner("alice")) != 0 {
		t.Error("alice should hold no orders")
	}
	if len(b.OrdersForOwner("bob")) != 1 {
		t.Error("bob's order must be untouched")
	}
	if got := b.CancelAllForOwner("nobody"); got != nil {
		t.Errorf("unknown owner should cancel nothing, got %+v", got)
	}
}

func TestRestingOrdersDecayWithAge(t *testing.T) {
	b, clock := newTestBook(t, nil)

	// Far from the maintenance band so baseline regen doesn't touch the level.
	_, o, _ := b.PlaceLimitOrder("slow", book.Bid, 90.00, 10)

	clock.Advance(30 * time.Second) // age == half-life
	b.TickMaintenance(100, 100)

	orders := b.OrdersForOwner("slow")
	if len(orders) != 1 {
		t.Fatalf("order should survive one half-life, got %+v", orders)
	}
	if got := orders[0].Remaining; !approx(got, 5.5) {
		t.Errorf("decayed remaining = %v, want 5.5 (10 * 0.55^1)", got)
	}
	if orders[0].ID != o.ID {
		t.Error("decay must not reissue the order")
	}
}

func TestStaleOrdersExpire(t *testing.T) {
	b, clock := newTestBook(t, nil)
	_, o, _ := b.PlaceLimitOrder("idle", book.Bid, 90.00, 10)

	clock.Advance(3 * time.Minute) // beyond MaxAge
	expired := b.TickMaintenance(100, 100)

	found := false
	for _, x := range expired {
		if x.ID == o.ID && x.Owner == "idle" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected expiry of order %d, got %+v", o.ID, expired)
	}
	if len(b.OrdersForOwner("idle")) != 0 {
		t.Error("expired order still in owner index")
	}
}

func TestUntargetedEmptyLevelsDiscarded(t *testing.T) {
	b, _ := newTestBook(t, nil)
	b.TickMaintenance(100, 100)
	if b.TotalVolumeAt(book.Bid, 99.95) == 0 {
		t.Fatal("expected ambient at 99.95")
	}

	// Recenter far away: old baseline-only levels must be discarded.
	b.TickMaintenance(110, 110)
	if got := b.TotalVolumeAt(book.Bid, 99.95); got != 0 {
		t.Errorf("stale ambient level kept %v volume", got)
	}
}

func TestMaintenanceAppendsBoundedSnapshots(t *testing.T) {
	b, _ := newTestBook(t, nil)
	for i := 0; i < 450; i++ {
		b.TickMaintenance(100, 100)
	}
	snaps := b.Snapshots()
	if len(snaps) != 400 {
		t.Fatalf("snapshot ring length %d, want cap 400", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if !approx(last.BestBid, 99.95) || !approx(last.BestAsk, 100.05) {
		t.Errorf("snapshot inside market %v/%v, want 99.95/100.05", last.BestBid, last.BestAsk)
	}
	if !approx(last.Mid, 100) || !approx(last.Spread, 0.10) {
		t.Errorf("snapshot mid/spread %v/%v", last.Mid, last.Spread)
	}
	if len(last.Bids) != 5 || len(last.Asks) != 5 {
		t.Errorf("snapshot depth %d/%d, want 5/5", len(last.Bids), len(last.Asks))
	}
}
