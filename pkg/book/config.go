package book

import "time"

// Config holds all order book tuning constants. All volumes are in lots.
type Config struct {
	// TickSize is the minimum price increment; every price in the book is
	// quantized to it.
	TickSize float64

	// Ambient baseline liquidity. Each maintenance pass targets LevelsPerSide
	// levels on each side of the (fair-nudged) center. The target volume of
	// level i decays geometrically with distance from the mid:
	// BaseDepth * e^(-DepthFalloff*(i-1)), clamped to [MinVolume, MaxVolume].
	LevelsPerSide int
	BaseDepth     float64
	DepthFalloff  float64
	MinVolume     float64
	MaxVolume     float64
	RegenRate     float64 // fraction moved toward target when below it
	ExcessDecay   float64 // fraction shed toward target when above it
	JitterFrac    float64 // uniform +/- perturbation applied to targets
	FairNudge     float64 // how far the maintenance center leans toward fair value

	// MaxLevelSize caps total manual (owned) volume resting at one level.
	MaxLevelSize float64

	// Iceberg display. Orders above IcebergMinParent lots display only
	// DisplayFraction of their size, at least MinClip, refreshing from the
	// hidden reserve every RefreshInterval or when nearly consumed.
	IcebergMinParent float64
	DisplayFraction  float64
	MinClip          float64
	RefreshInterval  time.Duration

	// Resting-liquidity aging. Once an order's age exceeds HalfLife/2 its
	// displayed remainder decays by PassiveDecay^(age/HalfLife) each pass,
	// modeling cancel/replace churn. Orders older than MaxAge are expired.
	PassiveDecay float64
	HalfLife     time.Duration
	MaxAge       time.Duration

	// SnapshotDepth is the number of levels per side captured in each
	// analytics snapshot.
	SnapshotDepth int
}

// DefaultConfig returns book constants calibrated for a ~100.00 instrument
// with a 0.05 tick.
func DefaultConfig() Config {
	return Config{
		TickSize:      0.05,
		LevelsPerSide: 12,
		BaseDepth:     60,
		DepthFalloff:  0.25,
		MinVolume:     5,
		MaxVolume:     120,
		RegenRate:     0.35,
		ExcessDecay:   0.20,
		JitterFrac:    0.15,
		FairNudge:     0.15,

		MaxLevelSize: 400,

		IcebergMinParent: 20,
		DisplayFraction:  0.25,
		MinClip:          5,
		RefreshInterval:  4 * time.Second,

		PassiveDecay: 0.55,
		HalfLife:     30 * time.Second,
		MaxAge:       2 * time.Minute,

		SnapshotDepth: 5,
	}
}
