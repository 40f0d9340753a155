package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/params"
	"github.com/pitsim/pitsim/pkg/api"
	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/bots"
	"github.com/pitsim/pitsim/pkg/engine"
	"github.com/pitsim/pitsim/pkg/util"
)

func main() {
	cfg, err := params.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	seed := cfg.Node.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sugar.Infow("sim_config",
		"tick_interval_ms", cfg.Node.TickInterval.Milliseconds(),
		"start_price", cfg.Market.StartPrice,
		"price_mode", cfg.Market.PriceMode,
		"seed", seed)

	eng, err := buildEngine(cfg, seed, sugar)
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API server ----
	apiServer := api.NewServer(eng, sugar)
	go func() {
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Bots ----
	sup := bots.NewSupervisor(eng, sugar)
	for i := 0; i < cfg.Node.NoiseTraders; i++ {
		sup.Launch(ctx, &bots.NoiseTrader{
			Name:     fmt.Sprintf("noise-%d", i+1),
			Interval: 4 * cfg.Node.TickInterval,
			MaxLots:  5,
			Rng:      rand.New(rand.NewSource(seed + int64(i) + 100)),
			Log:      sugar,
		})
	}
	for i := 0; i < cfg.Node.MarketMakers; i++ {
		sup.Launch(ctx, &bots.MarketMaker{
			Name:       fmt.Sprintf("maker-%d", i+1),
			Interval:   6 * cfg.Node.TickInterval,
			OffsetTick: 2 * cfg.Market.TickSize,
			QuoteLots:  10,
			Rng:        rand.New(rand.NewSource(seed + int64(i) + 500)),
			Log:        sugar,
		})
	}
	sugar.Infow("bots_started", "noise", cfg.Node.NoiseTraders, "makers", cfg.Node.MarketMakers)

	// ---- Tick loop ----
	ticker := time.NewTicker(cfg.Node.TickInterval)
	defer ticker.Stop()

	logEvery := int64(100)
	for {
		select {
		case <-ctx.Done():
			sugar.Info("shutting_down")
			sup.Wait()
			return
		case <-ticker.C:
			snap := eng.StepTick()
			apiServer.BroadcastTick(snap, cfg.Node.TickInterval.Milliseconds())
			if snap.Tick%logEvery == 0 {
				sugar.Infow("tick_progress",
					"tick", snap.Tick,
					"price", snap.Price,
					"fair", snap.Fair,
					"best_bid", snap.BestBid,
					"best_ask", snap.BestAsk,
					"players", len(snap.Players))
			}
		}
	}
}

func buildEngine(cfg params.Config, seed int64, sugar *zap.SugaredLogger) (*engine.Engine, error) {
	mode, err := engine.ParseMode(cfg.Market.PriceMode)
	if err != nil {
		return nil, err
	}

	bookCfg := book.Config{
		TickSize:         cfg.Market.TickSize,
		LevelsPerSide:    cfg.Book.LevelsPerSide,
		BaseDepth:        cfg.Book.BaseDepth,
		DepthFalloff:     cfg.Book.DepthFalloff,
		MinVolume:        cfg.Book.MinVolume,
		MaxVolume:        cfg.Book.MaxVolume,
		RegenRate:        cfg.Book.RegenRate,
		ExcessDecay:      cfg.Book.ExcessDecay,
		JitterFrac:       cfg.Book.JitterFrac,
		FairNudge:        cfg.Book.FairNudge,
		MaxLevelSize:     cfg.Book.MaxLevelSize,
		IcebergMinParent: cfg.Book.IcebergMinParent,
		DisplayFraction:  cfg.Book.DisplayFraction,
		MinClip:          cfg.Book.MinClip,
		RefreshInterval:  cfg.Book.RefreshInterval,
		PassiveDecay:     cfg.Book.PassiveDecay,
		HalfLife:         cfg.Book.HalfLife,
		MaxAge:           cfg.Book.MaxAge,
		SnapshotDepth:    cfg.Book.SnapshotDepth,
	}

	engCfg := engine.DefaultConfig()
	engCfg.StartPrice = cfg.Market.StartPrice
	engCfg.TickSize = cfg.Market.TickSize
	engCfg.MaxPosition = cfg.Market.MaxPosition
	engCfg.Mode = mode
	engCfg.FairAdjustRate = cfg.Process.FairAdjustRate
	engCfg.FairStepCapFrac = cfg.Process.FairStepCapFrac
	engCfg.Stiffness = cfg.Process.Stiffness
	engCfg.Damping = cfg.Process.Damping
	engCfg.NoiseScale = cfg.Process.NoiseScale
	engCfg.MaxVelocityFrac = cfg.Process.MaxVelocityFrac
	engCfg.SweepMinLots = cfg.Process.SweepMinLots
	engCfg.SweepImpulse = cfg.Process.SweepImpulse
	engCfg.SweepImpact = cfg.Process.SweepImpact
	engCfg.SweepDecay = cfg.Process.SweepDecay

	return engine.New(
		engCfg,
		bookCfg,
		util.RealClock{},
		rand.New(rand.NewSource(seed)),
		rand.New(rand.NewSource(seed+1)),
		sugar,
	), nil
}
