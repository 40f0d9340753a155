package bots

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/engine"
)

// Client is the minimal engine surface bots trade through. *engine.Engine
// satisfies it; bots never see engine internals.
type Client interface {
	RegisterPlayer(name string) engine.PlayerView
	SubmitOrder(ownerID string, spec engine.OrderSpec) engine.OrderResult
	CancelOrders(ownerID string, ids []int64) []book.CanceledOrder
	GetTopOfBook(depth int) engine.TopOfBook
	GetSnapshot() engine.EngineSnapshot
	GetPlayerOrders(ownerID string) []engine.OrderView
}

// Bot is a trading agent run under the supervisor.
type Bot interface {
	Run(ctx context.Context, client Client)
}

// Supervisor launches a fleet of bots and waits for them on shutdown.
type Supervisor struct {
	client Client
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
}

func NewSupervisor(client Client, log *zap.SugaredLogger) *Supervisor {
	return &Supervisor{client: client, log: log}
}

// Launch starts a bot in its own goroutine.
func (s *Supervisor) Launch(ctx context.Context, b Bot) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		b.Run(ctx, s.client)
	}()
}

// Wait blocks until every launched bot has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// sleep waits for d or until the context is done. Returns false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func jittered(rng *rand.Rand, base time.Duration) time.Duration {
	return base/2 + time.Duration(rng.Int63n(int64(base)))
}
