package engine

import (
	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/num"
)

// Player is one participant's account. Position is a signed whole-lot count
// bounded by the configured maximum; avgPrice is the cost basis of the open
// position and is only meaningful while the position is non-zero. PnL is
// derived, never accumulated: it is recomputed from the current price once per
// tick, which keeps it drift-free.
type Player struct {
	ID       string
	Name     string
	Position int64
	avgPrice float64
	Realized float64
	PnL      float64
}

func (p *Player) view() PlayerView {
	v := PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Position: p.Position,
		Realized: p.Realized,
		PnL:      p.PnL,
	}
	if p.Position != 0 {
		avg := p.avgPrice
		v.AvgPrice = &avg
	}
	return v
}

// markPnL recomputes unrealized+realized PnL at the given price.
func (p *Player) markPnL(price float64) {
	if p.Position == 0 {
		p.PnL = p.Realized
		return
	}
	p.PnL = (price-p.avgPrice)*float64(p.Position) + p.Realized
}

// applyFill mutates one account for a whole-lot fill. Same-direction fills
// blend the average cost by existing quantity; fills that flatten or reverse
// the position realize PnL on the closed portion and reset the cost basis to
// the fill price for any residual.
func (p *Player) applyFill(side book.Side, price float64, size int64) {
	if size <= 0 {
		return
	}
	delta := size
	if side == book.Ask {
		delta = -size
	}

	pos := p.Position
	if pos == 0 || num.SignInt(pos) == num.SignInt(delta) {
		p.avgPrice = num.WeightedAvg(p.avgPrice, float64(num.AbsInt(pos)), price, float64(size))
		p.Position = pos + delta
		return
	}

	closed := num.AbsInt(pos)
	if size < closed {
		closed = size
	}
	p.Realized += (price - p.avgPrice) * float64(closed) * float64(num.SignInt(pos))

	p.Position = pos + delta
	switch {
	case p.Position == 0:
		p.avgPrice = 0
	case num.SignInt(p.Position) != num.SignInt(pos):
		// Reversal: residual opens at the fill price.
		p.avgPrice = price
	}
}
