package num

import "math"

// QuantizePrice snaps a price to the nearest tick.
// Prices can never quantize below one tick.
func QuantizePrice(p, tick float64) float64 {
	if tick <= 0 {
		return p
	}
	q := math.Round(p/tick) * tick
	if q < tick {
		q = tick
	}
	return q
}

// PriceTicks returns the integer tick index for a price. Used as a map key so
// float rounding noise can never split one price level into two.
func PriceTicks(p, tick float64) int64 {
	if tick <= 0 {
		return int64(math.Round(p))
	}
	return int64(math.Round(p / tick))
}

// RoundLots rounds a quantity to the nearest whole lot.
// Negative quantities round symmetrically: RoundLots(-2.5) == -3.
func RoundLots(q float64) int64 {
	return int64(math.Round(q))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AbsInt returns |v| for int64.
func AbsInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// SignInt returns -1, 0 or +1.
func SignInt(v int64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// WeightedAvg blends an existing average over weight w with a new value over
// weight dw. Returns v when w is zero.
func WeightedAvg(avg, w, v, dw float64) float64 {
	if w+dw == 0 {
		return v
	}
	return (avg*w + v*dw) / (w + dw)
}
