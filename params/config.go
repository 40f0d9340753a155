package params

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Market holds instrument-level constants.
type Market struct {
	TickSize    float64 `env:"TICK_SIZE" envDefault:"0.05"`
	StartPrice  float64 `env:"START_PRICE" envDefault:"100"`
	MaxPosition int64   `env:"MAX_POSITION" envDefault:"500"`
	PriceMode   string  `env:"PRICE_MODE" envDefault:"orderflow"`
}

// Book holds order book liquidity constants. See book.Config for semantics.
type Book struct {
	LevelsPerSide int     `env:"LEVELS_PER_SIDE" envDefault:"12"`
	BaseDepth     float64 `env:"BASE_DEPTH" envDefault:"60"`
	DepthFalloff  float64 `env:"DEPTH_FALLOFF" envDefault:"0.25"`
	MinVolume     float64 `env:"MIN_VOLUME" envDefault:"5"`
	MaxVolume     float64 `env:"MAX_VOLUME" envDefault:"120"`
	RegenRate     float64 `env:"REGEN_RATE" envDefault:"0.35"`
	ExcessDecay   float64 `env:"EXCESS_DECAY" envDefault:"0.2"`
	JitterFrac    float64 `env:"JITTER_FRAC" envDefault:"0.15"`
	FairNudge     float64 `env:"FAIR_NUDGE" envDefault:"0.15"`
	MaxLevelSize  float64 `env:"MAX_LEVEL_SIZE" envDefault:"400"`

	IcebergMinParent float64       `env:"ICEBERG_MIN_PARENT" envDefault:"20"`
	DisplayFraction  float64       `env:"DISPLAY_FRACTION" envDefault:"0.25"`
	MinClip          float64       `env:"MIN_CLIP" envDefault:"5"`
	RefreshInterval  time.Duration `env:"REFRESH_INTERVAL" envDefault:"4s"`

	PassiveDecay float64       `env:"PASSIVE_DECAY" envDefault:"0.55"`
	HalfLife     time.Duration `env:"HALF_LIFE" envDefault:"30s"`
	MaxAge       time.Duration `env:"MAX_AGE" envDefault:"2m"`

	SnapshotDepth int `env:"SNAPSHOT_DEPTH" envDefault:"5"`
}

// Process holds price/fair process constants.
type Process struct {
	FairAdjustRate  float64 `env:"FAIR_ADJUST_RATE" envDefault:"0.12"`
	FairStepCapFrac float64 `env:"FAIR_STEP_CAP_FRAC" envDefault:"0.02"`
	Stiffness       float64 `env:"STIFFNESS" envDefault:"0.08"`
	Damping         float64 `env:"DAMPING" envDefault:"0.35"`
	NoiseScale      float64 `env:"NOISE_SCALE" envDefault:"0.0006"`
	MaxVelocityFrac float64 `env:"MAX_VELOCITY_FRAC" envDefault:"0.004"`
	SweepMinLots    int64   `env:"SWEEP_MIN_LOTS" envDefault:"5"`
	SweepImpulse    float64 `env:"SWEEP_IMPULSE" envDefault:"0.01"`
	SweepImpact     float64 `env:"SWEEP_IMPACT" envDefault:"0.25"`
	SweepDecay      float64 `env:"SWEEP_DECAY" envDefault:"0.18"`
}

// Node holds process-level knobs.
type Node struct {
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"250ms"`
	Seed         int64         `env:"SEED" envDefault:"0"` // 0 = time-based
	APIAddr      string        `env:"API_ADDR" envDefault:":8080"`
	LogFile      string        `env:"LOG_FILE" envDefault:"data/simd.log"`

	// Bot supervisor.
	NoiseTraders int `env:"NOISE_TRADERS" envDefault:"3"`
	MarketMakers int `env:"MARKET_MAKERS" envDefault:"1"`
}

type Config struct {
	Market  Market  `envPrefix:"MARKET_"`
	Book    Book    `envPrefix:"BOOK_"`
	Process Process `envPrefix:"PROC_"`
	Node    Node    `envPrefix:"NODE_"`
}

// Load reads configuration from a .env file (optional) and environment
// variables. Priority: ENV > .env file > struct defaults.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the config with no environment applied.
func Default() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(err)
	}
	return cfg
}
