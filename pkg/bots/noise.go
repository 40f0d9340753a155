package bots

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/engine"
)

// NoiseTrader fires small market orders on random sides at random intervals,
// supplying uninformed order flow.
type NoiseTrader struct {
	Name     string
	Interval time.Duration // mean wait between orders
	MaxLots  int64
	Rng      *rand.Rand
	Log      *zap.SugaredLogger
}

func (n *NoiseTrader) Run(ctx context.Context, client Client) {
	me := client.RegisterPlayer(n.Name)

	for {
		if !sleep(ctx, jittered(n.Rng, n.Interval)) {
			return
		}
		side := book.Bid
		if n.Rng.Intn(2) == 1 {
			side = book.Ask
		}
		qty := 1 + n.Rng.Int63n(n.MaxLots)

		res := client.SubmitOrder(me.ID, engine.OrderSpec{
			Type:     engine.Market,
			Side:     side,
			Quantity: float64(qty),
		})
		if !res.OK {
			n.Log.Debugw("noise_order_rejected", "bot", me.ID, "reason", res.Reason)
		}
	}
}
