package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pitsim/pitsim/pkg/book"
	"github.com/pitsim/pitsim/pkg/num"
	"github.com/pitsim/pitsim/pkg/util"
)

// Engine is the single authoritative market instance. It owns the player
// registry, trade tape, news log and price/fair processes, and delegates all
// matching to the order book it holds by composition.
//
// Every public operation is synchronous and atomic relative to tick
// boundaries: one mutex serializes the tick driver and all client calls, so
// nothing can observe a half-applied fill.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	book  *book.OrderBook
	clock util.Clock
	rng   *rand.Rand
	log   *zap.SugaredLogger

	players   map[string]*Player
	playerSeq int64

	trades []Trade
	news   []NewsEvent

	tick       int64
	mode       Mode
	price      float64
	fair       float64
	fairTarget float64
	vel        float64
	sweep      float64 // signed post-sweep pressure, positive = buy side

	events chan Event
}

// New builds an engine around a fresh order book. Separate random sources are
// injected for the book (maintenance jitter) and the engine (price noise) so
// each path is reproducible on its own.
func New(cfg Config, bookCfg book.Config, clock util.Clock, engRng, bookRng *rand.Rand, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		cfg:        cfg,
		book:       book.New(bookCfg, clock, bookRng, log),
		clock:      clock,
		rng:        engRng,
		log:        log,
		players:    make(map[string]*Player),
		mode:       cfg.Mode,
		price:      cfg.StartPrice,
		fair:       cfg.StartPrice,
		fairTarget: cfg.StartPrice,
		events:     make(chan Event, cfg.EventBuffer),
	}
}

// Book exposes the order book for analytics reads (snapshot ring). Trading
// goes through SubmitOrder/CancelOrders only.
func (e *Engine) Book() *book.OrderBook {
	return e.book
}

// RegisterPlayer creates a new account with a flat position.
func (e *Engine) RegisterPlayer(name string) PlayerView {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playerSeq++
	p := &Player{
		ID:   fmt.Sprintf("p%d", e.playerSeq),
		Name: name,
	}
	p.markPnL(e.price)
	e.players[p.ID] = p
	e.log.Infow("player_registered", "id", p.ID, "name", name)
	return p.view()
}

func reject(reason string) OrderResult {
	return OrderResult{OK: false, Reason: reason}
}

// SubmitOrder validates, matches and applies one trading request. Rejections
// (unknown owner, non-positive quantity after rounding, position-cap breach,
// level capacity) come back as OK=false results; validation happens before any
// book or account mutation.
func (e *Engine) SubmitOrder(ownerID string, spec OrderSpec) OrderResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	pl, ok := e.players[ownerID]
	if !ok {
		return reject("unknown owner")
	}
	qty := num.RoundLots(spec.Quantity)
	if qty <= 0 {
		return reject("non-positive quantity")
	}
	if e.breachesCap(pl, spec.Side, qty) {
		return reject("position cap exceeded")
	}

	switch spec.Type {
	case Limit:
		if spec.Price <= 0 {
			return reject("non-positive limit price")
		}
		res, resting, err := e.book.PlaceLimitOrder(ownerID, spec.Side, spec.Price, float64(qty))
		out := e.applyResult(pl, spec.Side, res)
		out.OK = true
		if resting != nil {
			out.Resting = restingView(resting)
		}
		if err != nil {
			// Crossing fills already applied; only the resting part was refused.
			out.OK = false
			out.Reason = "level capacity exhausted"
		}
		return out

	case Market:
		res := e.book.ExecuteMarketOrder(spec.Side, float64(qty), nil)
		out := e.applyResult(pl, spec.Side, res)
		out.OK = true
		// The unfilled remainder rests at the current quantized price so later
		// opposing flow can consume it.
		if rem := num.RoundLots(res.Remainder); rem > 0 {
			_, resting, err := e.book.PlaceLimitOrder(ownerID, spec.Side, e.price, float64(rem))
			if err != nil {
				out.Reason = "remainder dropped: level capacity exhausted"
			} else if resting != nil {
				out.Resting = restingView(resting)
			}
		}
		return out

	default:
		return reject("unknown order type")
	}
}

func restingView(o *book.Order) *RestingView {
	return &RestingView{
		ID:             o.ID,
		Side:           o.Side.String(),
		Price:          o.Price,
		RemainingUnits: num.RoundLots(o.Remaining),
		HiddenUnits:    num.RoundLots(o.HiddenRemaining),
	}
}

// breachesCap projects the worst-case position (current position plus this
// order plus all same-side resting exposure, all filling) against the cap.
func (e *Engine) breachesCap(p *Player, side book.Side, qty int64) bool {
	var pending int64
	for _, o := range e.book.OrdersForOwner(p.ID) {
		if o.Side == side {
			pending += num.RoundLots(o.TotalRemaining())
		}
	}
	dir := int64(1)
	if side == book.Ask {
		dir = -1
	}
	projected := p.Position + dir*(qty+pending)
	return num.AbsInt(projected) > e.cfg.MaxPosition
}

// applyResult rounds every fill to whole lots and applies it to the taker's
// and maker's accounts and the trade tape. Fills that round to zero lots touch
// nothing. Large or multi-level one-sided executions add sweep pressure.
func (e *Engine) applyResult(taker *Player, side book.Side, res book.Result) OrderResult {
	now := e.clock.Now().UnixMilli()
	var out OrderResult
	var lots int64
	var notional float64
	levels := make(map[float64]struct{})

	for _, f := range res.Fills {
		size := num.RoundLots(f.Size)
		if size <= 0 {
			continue
		}
		taker.applyFill(side, f.Price, size)
		if f.Owner != "" {
			if maker := e.players[f.Owner]; maker != nil {
				maker.applyFill(side.Opposite(), f.Price, size)
			}
			e.publish(FillEvent{
				OwnerID:   f.Owner,
				OrderID:   f.OrderID,
				Price:     f.Price,
				Size:      size,
				Remaining: num.RoundLots(e.book.DisplayedRemaining(f.OrderID)),
			})
		}

		tr := Trade{
			TS:        now,
			Price:     f.Price,
			Size:      size,
			TakerSide: side,
			Side:      side.String(),
			TakerID:   taker.ID,
			MakerID:   f.Owner,
		}
		e.appendTrade(tr)
		e.publish(TradeEvent{Trade: tr})

		out.Fills = append(out.Fills, FillView{
			Price:        f.Price,
			Size:         size,
			MakerID:      f.Owner,
			MakerOrderID: f.OrderID,
		})
		lots += size
		notional += f.Price * float64(size)
		levels[f.Price] = struct{}{}
	}

	out.Filled = lots
	if lots > 0 {
		out.AvgPrice = notional / float64(lots)
	}

	if lots >= e.cfg.SweepMinLots || len(levels) > 1 {
		dir := 1.0
		if side == book.Ask {
			dir = -1.0
		}
		e.sweep += dir * float64(lots) * e.cfg.SweepImpulse
		e.log.Debugw("sweep_pressure", "side", side.String(), "lots", lots, "pressure", e.sweep)
	}
	return out
}

func (e *Engine) appendTrade(t Trade) {
	e.trades = append(e.trades, t)
	if e.cfg.TradeTapeCap > 0 && len(e.trades) > e.cfg.TradeTapeCap {
		e.trades = e.trades[len(e.trades)-e.cfg.TradeTapeCap:]
	}
}

// CancelOrders cancels the given resting orders, or every order the owner
// holds when ids is empty. Ids not owned by the caller are skipped. Unknown
// ids are a no-op, never an error.
func (e *Engine) CancelOrders(ownerID string, ids []int64) []book.CanceledOrder {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.players[ownerID]; !ok {
		return nil
	}

	var out []book.CanceledOrder
	if len(ids) == 0 {
		out = e.book.CancelAllForOwner(ownerID)
	} else {
		for _, id := range ids {
			if !e.book.OwnsOrder(ownerID, id) {
				continue
			}
			if c := e.book.Cancel(id); c != nil {
				out = append(out, *c)
			}
		}
	}
	for _, c := range out {
		e.publish(CancelEvent{OwnerID: c.Owner, OrderID: c.ID, Remaining: num.RoundLots(c.Remaining)})
	}
	return out
}

// GetPlayerOrders lists the owner's resting orders in whole lots.
func (e *Engine) GetPlayerOrders(ownerID string) []OrderView {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders := e.book.OrdersForOwner(ownerID)
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderView{
			ID:             o.ID,
			Side:           o.Side.String(),
			Price:          o.Price,
			RemainingUnits: num.RoundLots(o.Remaining),
			HiddenUnits:    num.RoundLots(o.HiddenRemaining),
			CreatedAt:      o.CreatedAt,
		})
	}
	return out
}

// GetTopOfBook returns the inside market with up to depth levels per side.
func (e *Engine) GetTopOfBook(depth int) TopOfBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topOfBookLocked(depth)
}

func (e *Engine) topOfBookLocked(depth int) TopOfBook {
	var top TopOfBook
	top.Bids, top.Asks = e.book.Depth(depth)
	if bid, ok := e.book.BestBid(); ok {
		top.BestBid = bid
	}
	if ask, ok := e.book.BestAsk(); ok {
		top.BestAsk = ask
	}
	if top.BestBid > 0 && top.BestAsk > 0 {
		top.Spread = top.BestAsk - top.BestBid
		top.Mid = (top.BestAsk + top.BestBid) / 2
	}
	return top
}

// OrderBookView is a deep-copied aggregate view of the book.
type OrderBookView struct {
	TS    int64             `json:"ts"`
	Tick  int64             `json:"tick"`
	Price float64           `json:"price"`
	Bids  []book.DepthLevel `json:"bids"`
	Asks  []book.DepthLevel `json:"asks"`
}

// GetOrderBookView returns up to depth aggregated levels per side.
func (e *Engine) GetOrderBookView(depth int) OrderBookView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := OrderBookView{TS: e.clock.Now().UnixMilli(), Tick: e.tick, Price: e.price}
	v.Bids, v.Asks = e.book.Depth(depth)
	return v
}

// GetRecentTrades returns tape entries newer than windowMs, oldest first.
func (e *Engine) GetRecentTrades(windowMs int64) []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.clock.Now().UnixMilli() - windowMs
	out := make([]Trade, 0)
	for _, t := range e.trades {
		if t.TS >= cutoff {
			out = append(out, t)
		}
	}
	return out
}

// PushNews shifts the fair-value target by delta and records the event. The
// fair value itself only moves tick by tick, never discontinuously.
func (e *Engine) PushNews(delta float64, text string) NewsEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.fairTarget += delta
	if e.fairTarget < e.cfg.TickSize {
		e.fairTarget = e.cfg.TickSize
	}
	sign := 1
	if delta < 0 {
		sign = -1
	}
	if text == "" {
		text = fmt.Sprintf("fair value shock %+.2f", delta)
	}
	ev := NewsEvent{TS: e.clock.Now().UnixMilli(), Delta: delta, Sign: sign, Text: text}
	e.news = append(e.news, ev)
	if e.cfg.NewsLogCap > 0 && len(e.news) > e.cfg.NewsLogCap {
		e.news = e.news[len(e.news)-e.cfg.NewsLogCap:]
	}
	e.publish(NewsPushedEvent{News: ev})
	e.log.Infow("news_pushed", "delta", delta, "fair_target", e.fairTarget)
	return ev
}

// GetNewsEvents returns news entries newer than lookbackMs, oldest first.
func (e *Engine) GetNewsEvents(lookbackMs int64) []NewsEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.clock.Now().UnixMilli() - lookbackMs
	out := make([]NewsEvent, 0)
	for _, n := range e.news {
		if n.TS >= cutoff {
			out = append(out, n)
		}
	}
	return out
}

// SetPriceMode switches the price process.
func (e *Engine) SetPriceMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	e.log.Infow("price_mode_set", "mode", m.String())
}

// GetSnapshot returns the current engine state without advancing the tick.
func (e *Engine) GetSnapshot() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() EngineSnapshot {
	snap := EngineSnapshot{
		Tick:              e.tick,
		TS:                e.clock.Now().UnixMilli(),
		Price:             e.price,
		Fair:              e.fair,
		FairTarget:        e.fairTarget,
		Mode:              e.mode.String(),
		LastSweepPressure: e.sweep,
	}
	if bid, ok := e.book.BestBid(); ok {
		snap.BestBid = bid
	}
	if ask, ok := e.book.BestAsk(); ok {
		snap.BestAsk = ask
	}
	snap.Players = make([]PlayerView, 0, len(e.players))
	for _, p := range e.players {
		snap.Players = append(snap.Players, p.view())
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].ID < snap.Players[j].ID })
	return snap
}
