package book

import (
	"math"

	"github.com/pitsim/pitsim/pkg/num"
)

// TickMaintenance runs once per simulation tick. It ages, decays and
// refreshes all resting liquidity, regenerates ambient baseline volume for the
// configured band of levels around the (fair-nudged) center price, discards
// baseline on levels no longer targeted, and appends one analytics snapshot.
// Returns descriptors for orders force-expired this pass.
func (b *OrderBook) TickMaintenance(center, fair float64) []CanceledOrder {
	now := b.clock.Now().UnixMilli()
	expired := b.ageRestingOrders(now)
	b.regenBaseline(center, fair)
	b.appendSnapshot(now)
	return expired
}

// ageRestingOrders applies iceberg refreshes, passive decay and forced expiry
// to every resting order.
func (b *OrderBook) ageRestingOrders(now int64) []CanceledOrder {
	var expired []CanceledOrder

	halfLife := b.cfg.HalfLife.Milliseconds()
	maxAge := b.cfg.MaxAge.Milliseconds()
	refreshFloor := 0.06 * b.cfg.MinVolume
	expireFloor := 0.02 * b.cfg.MinVolume

	for _, lvl := range b.levels {
		// Snapshot the queue: refreshes re-order it and expiry shrinks it.
		queued := make([]*Order, len(lvl.orders))
		copy(queued, lvl.orders)

		for _, o := range queued {
			if o.HiddenRemaining > volEps && (o.Remaining <= refreshFloor || now >= o.NextRefreshAt) {
				b.refreshClip(lvl, o)
			}

			age := now - o.CreatedAt
			if halfLife > 0 && age > halfLife/2 {
				o.Remaining *= math.Pow(b.cfg.PassiveDecay, float64(age)/float64(halfLife))
			}

			tooOld := maxAge > 0 && age > maxAge
			dust := o.Remaining < expireFloor && o.HiddenRemaining <= volEps
			if tooOld || dust {
				expired = append(expired, CanceledOrder{
					ID:        o.ID,
					Owner:     o.Owner,
					Side:      o.Side,
					Price:     o.Price,
					Remaining: o.TotalRemaining(),
				})
				b.finalize(lvl, o)
			}
		}
		b.pruneIfEmpty(lvl)
	}
	return expired
}

// regenBaseline moves each targeted level's ambient volume a fraction of the
// way toward its distance-decayed target, representing background market-maker
// presence. Levels outside the targeted band that hold no resting orders are
// dropped.
func (b *OrderBook) regenBaseline(center, fair float64) {
	eff := b.Quantize(center + (fair-center)*b.cfg.FairNudge)
	targeted := make(map[levelKey]struct{}, 2*b.cfg.LevelsPerSide)

	for _, side := range []Side{Bid, Ask} {
		for i := 1; i <= b.cfg.LevelsPerSide; i++ {
			offset := float64(i) * b.cfg.TickSize
			price := eff - offset
			if side == Ask {
				price = eff + offset
			}
			if price < b.cfg.TickSize {
				continue
			}
			price = b.Quantize(price)

			target := b.cfg.BaseDepth * math.Exp(-b.cfg.DepthFalloff*float64(i-1))
			target = num.Clamp(target, b.cfg.MinVolume, b.cfg.MaxVolume)
			if b.cfg.JitterFrac > 0 {
				target *= 1 + (b.rng.Float64()*2-1)*b.cfg.JitterFrac
			}
			target = math.Round(target)

			lvl := b.ensureLevel(side, price)
			if lvl.base < target {
				lvl.base += (target - lvl.base) * b.cfg.RegenRate
			} else {
				lvl.base -= (lvl.base - target) * b.cfg.ExcessDecay
			}
			targeted[b.key(side, price)] = struct{}{}
		}
	}

	for k, lvl := range b.levels {
		if _, ok := targeted[k]; ok {
			continue
		}
		if len(lvl.orders) == 0 {
			delete(b.levels, k)
		}
	}
}
