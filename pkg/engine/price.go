package engine

import (
	"math"

	"github.com/pitsim/pitsim/pkg/num"
)

// StepTick advances the simulation by one tick: book maintenance first, then
// the fair-value and price processes, then a drift-free PnL recompute for
// every player. The caller drives this at a fixed cadence; the engine holds no
// timers of its own.
func (e *Engine) StepTick() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++
	for _, x := range e.book.TickMaintenance(e.price, e.fair) {
		e.publish(ExpireEvent{OwnerID: x.Owner, OrderID: x.ID, Remaining: num.RoundLots(x.Remaining)})
	}

	e.advanceFair()
	e.advancePrice()
	e.decaySweep()

	for _, p := range e.players {
		p.markPnL(e.price)
	}

	snap := e.snapshotLocked()
	e.publish(TickEvent{Snapshot: snap})
	return snap
}

// advanceFair moves fair value a bounded fraction toward the pushed target,
// with the step capped as a percentage of the current fair value so news can
// never cause a discontinuous jump.
func (e *Engine) advanceFair() {
	step := (e.fairTarget - e.fair) * e.cfg.FairAdjustRate
	maxStep := e.cfg.FairStepCapFrac * e.fair
	e.fair += num.Clamp(step, -maxStep, maxStep)
}

// advancePrice derives this tick's traded price.
//
// orderflow: the price is exactly the book's last trade; with no matching
// activity it is unchanged tick over tick.
//
// news: damped acceleration toward the smoothed fair value, plus gaussian
// noise scaled by price, plus decaying sweep pressure, with velocity capped as
// a percentage of price.
func (e *Engine) advancePrice() {
	switch e.mode {
	case ModeOrderflow:
		if lt := e.book.LastTradePrice(); lt > 0 {
			e.price = lt
		}
	case ModeNews:
		noise := e.rng.NormFloat64() * e.cfg.NoiseScale * e.price
		accel := e.cfg.Stiffness*(e.fair-e.price) - e.cfg.Damping*e.vel + e.cfg.SweepImpact*e.sweep + noise
		e.vel += accel
		maxV := e.cfg.MaxVelocityFrac * e.price
		e.vel = num.Clamp(e.vel, -maxV, maxV)
		e.price = math.Max(e.cfg.TickSize, e.price+e.vel)
	}
}

// decaySweep bleeds off post-sweep momentum a configured fraction per tick.
func (e *Engine) decaySweep() {
	e.sweep *= 1 - e.cfg.SweepDecay
	if math.Abs(e.sweep) < 1e-6 {
		e.sweep = 0
	}
}
