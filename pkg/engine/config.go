package engine

// Config holds market engine tuning. Price-process constants are calibrated,
// not derived: the qualitative contract (damped pull toward fair, capped
// velocity, decaying post-sweep momentum) is what matters.
type Config struct {
	StartPrice  float64
	TickSize    float64
	MaxPosition int64 // absolute position cap per player, in lots
	Mode        Mode

	TradeTapeCap int
	NewsLogCap   int
	EventBuffer  int

	// Fair value process: each tick fair moves FairAdjustRate of the way
	// toward the pushed target, with the step capped at FairStepCapFrac of
	// the current fair value.
	FairAdjustRate  float64
	FairStepCapFrac float64

	// News-mode price process.
	Stiffness       float64 // acceleration toward fair per unit of gap
	Damping         float64 // velocity damping factor
	NoiseScale      float64 // gaussian noise stddev as a fraction of price
	MaxVelocityFrac float64 // |velocity| cap as a fraction of price

	// Sweep pressure: a trade of at least SweepMinLots, or one that walks
	// more than one level, adds signed pressure of size*SweepImpulse; the
	// pressure feeds news-mode acceleration via SweepImpact and decays by
	// SweepDecay per tick.
	SweepMinLots int64
	SweepImpulse float64
	SweepImpact  float64
	SweepDecay   float64
}

// DefaultConfig pairs with book.DefaultConfig for a ~100.00 instrument.
func DefaultConfig() Config {
	return Config{
		StartPrice:  100,
		TickSize:    0.05,
		MaxPosition: 500,
		Mode:        ModeOrderflow,

		TradeTapeCap: 2000,
		NewsLogCap:   200,
		EventBuffer:  1024,

		FairAdjustRate:  0.12,
		FairStepCapFrac: 0.02,

		Stiffness:       0.08,
		Damping:         0.35,
		NoiseScale:      0.0006,
		MaxVelocityFrac: 0.004,

		SweepMinLots: 5,
		SweepImpulse: 0.01,
		SweepImpact:  0.25,
		SweepDecay:   0.18,
	}
}
