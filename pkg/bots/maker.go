package bots

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/engine"
)

// MarketMaker keeps a two-sided quote around the current price, cancel/replace
// style: every interval it pulls its resting orders and re-quotes at a fixed
// tick offset from the mid.
type MarketMaker struct {
	Name       string
	Interval   time.Duration
	OffsetTick float64 // quote distance from mid, in price units
	QuoteLots  int64
	Rng        *rand.Rand
	Log        *zap.SugaredLogger
}

func (m *MarketMaker) Run(ctx context.Context, client Client) {
	me := client.RegisterPlayer(m.Name)

	for {
		if !sleep(ctx, jittered(m.Rng, m.Interval)) {
			return
		}

		client.CancelOrders(me.ID, nil)

		snap := client.GetSnapshot()
		mid := snap.Price
		if top := client.GetTopOfBook(1); top.Mid > 0 {
			mid = top.Mid
		}

		bid := client.SubmitOrder(me.ID, engine.OrderSpec{
			Type:     engine.Limit,
			Side:     book.Bid,
			Price:    mid - m.OffsetTick,
			Quantity: float64(m.QuoteLots),
		})
		ask := client.SubmitOrder(me.ID, engine.OrderSpec{
			Type:     engine.Limit,
			Side:     book.Ask,
			Price:    mid + m.OffsetTick,
			Quantity: float64(m.QuoteLots),
		})
		if !bid.OK || !ask.OK {
			m.Log.Debugw("maker_quote_partial", "bot", me.ID,
				"bid_ok", bid.OK, "ask_ok", ask.OK,
				"bid_reason", bid.Reason, "ask_reason", ask.Reason)
		}
	}
}
