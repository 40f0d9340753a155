package book

const volEps = 1e-9

// level is a single price point on one side of the book. It aggregates
// ownerless ambient volume (base) and a FIFO queue of resting orders.
// Displayed volume at the level is always base + manualVolume().
type level struct {
	side   Side
	price  float64
	base   float64
	orders []*Order
}

// manualVolume sums the displayed remainders of all resting orders.
func (l *level) manualVolume() float64 {
	var total float64
	for _, o := range l.orders {
		total += o.Remaining
	}
	return total
}

// totalVolume is ambient plus manual displayed volume.
func (l *level) totalVolume() float64 {
	return l.base + l.manualVolume()
}

// empty reports whether the level carries neither ambient nor manual volume.
func (l *level) empty() bool {
	return len(l.orders) == 0 && l.base <= volEps
}

// removeOrder takes one order out of the FIFO queue, preserving arrival order
// of the rest. Returns false if the id is not queued here.
func (l *level) removeOrder(id int64) bool {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// requeue moves an order to the back of the time-priority queue.
func (l *level) requeue(o *Order) {
	if l.removeOrder(o.ID) {
		l.orders = append(l.orders, o)
	}
}
