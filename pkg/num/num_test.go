package num

import (
	"math"
	"testing"
)

func TestQuantizePrice(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		tick float64
		want float64
	}{
		{"on grid", 100.05, 0.05, 100.05},
		{"round up", 100.03, 0.05, 100.05},
		{"round down", 100.02, 0.05, 100.00},
		{"floor clamp to one tick", 0.001, 0.05, 0.05},
		{"negative clamps to one tick", -3, 0.05, 0.05},
		{"zero tick passes through", 12.34, 0, 12.34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuantizePrice(tt.p, tt.tick); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("QuantizePrice(%v, %v) = %v, want %v", tt.p, tt.tick, got, tt.want)
			}
		})
	}
}

func TestPriceTicksStableKeys(t *testing.T) {
	// 0.1+0.2 style float noise must not split a level into two keys.
	a := PriceTicks(100.35, 0.05)
	b := PriceTicks(QuantizePrice(100.34999999, 0.05), 0.05)
	if a != b {
		t.Errorf("tick keys differ: %d vs %d", a, b)
	}
}

func TestRoundLots(t *testing.T) {
	tests := []struct {
		q    float64
		want int64
	}{
		{2.4, 2},
		{2.5, 3},
		{-2.5, -3},
		{0.49, 0},
		{3, 3},
	}
	for _, tt := range tests {
		if got := RoundLots(tt.q); got != tt.want {
			t.Errorf("RoundLots(%v) = %d, want %d", tt.q, got, tt.want)
		}
	}
}

func TestWeightedAvg(t *testing.T) {
	if got := WeightedAvg(100, 2, 110, 2); math.Abs(got-105) > 1e-9 {
		t.Errorf("WeightedAvg = %v, want 105", got)
	}
	if got := WeightedAvg(0, 0, 99, 5); math.Abs(got-99) > 1e-9 {
		t.Errorf("WeightedAvg with zero prior weight = %v, want 99", got)
	}
}
