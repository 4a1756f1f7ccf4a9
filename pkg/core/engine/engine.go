// Package engine implements price-time-priority matching over a single
// instrument's order book, with market, limit, immediate-or-cancel and
// fill-or-kill semantics.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradecore-io/matchd/pkg/core"
	"github.com/tradecore-io/matchd/pkg/core/orderbook"
)

// Engine owns one order book and an append-only trade log. It is the
// sole mutator of both: the mutex is held for the full duration of
// Submit, which also makes the fill-or-kill simulate-then-execute
// protocol atomic with respect to cancels and other submissions.
type Engine struct {
	mu     sync.Mutex
	symbol string
	book   *orderbook.OrderBook
	trades []core.Trade

	lastPrice int64 // price of the most recent fill

	// OnTrade, when set, is invoked once per execution after Submit
	// releases the engine lock. It must not call back into the engine's
	// mutating methods from the same goroutine chain.
	OnTrade func(core.Trade)
}

func NewEngine(symbol string) *Engine {
	return &Engine{
		symbol: symbol,
		book:   orderbook.NewOrderBook(),
	}
}

func (e *Engine) Symbol() string { return e.symbol }

// Submit matches an incoming order against resting liquidity and
// returns the trades it generated, in execution order. Depending on
// the order type any remainder rests (limit), is discarded (market,
// ioc), or causes the whole order to be rejected upfront (fok when the
// book cannot fully fill it). Validation failures reject the order
// before any book mutation.
func (e *Engine) Submit(o *core.Order) ([]core.Trade, error) {
	if err := core.ValidateOrder(o); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.book.Contains(o.ID) {
		// Reject before matching: a duplicate id could otherwise trade
		// first and only fail once its remainder tried to rest.
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: order %s already resting", core.ErrInvalidOrder, o.ID)
	}
	if o.Type == core.FOK && !e.fillableLocked(o) {
		// Insufficient liquidity at the limit: kill the entire order.
		// Defined outcome, not an error - no trades, no book mutation.
		e.mu.Unlock()
		return nil, nil
	}

	trades := matchLoop(e.book, o, e.makeTrade)

	if n := len(trades); n > 0 {
		e.lastPrice = trades[n-1].Price
		e.trades = append(e.trades, trades...)
	}

	var restErr error
	if o.Qty > 0 && o.Type == core.Limit {
		// Remainder rests at the order's own price, back of the queue.
		// Cannot fail for a validated order whose id was checked above,
		// but a silently vanished remainder would be the worst way to
		// find out.
		restErr = e.book.Add(o)
	}
	e.mu.Unlock()

	if e.OnTrade != nil {
		for _, t := range trades {
			e.OnTrade(t)
		}
	}
	return trades, restErr
}

// fillableLocked dry-runs the incoming order against a deep copy of
// the book and reports whether it would fill completely. No trades are
// recorded and the real book is untouched. Caller holds e.mu, so the
// book cannot change between this simulation and the real run.
func (e *Engine) fillableLocked(o *core.Order) bool {
	sim := *o
	matchLoop(e.book.Clone(), &sim, nil)
	return sim.Qty == 0
}

// makeTrade builds the immutable execution record for one match step.
// Price is the maker's resting price, never the taker's.
func (e *Engine) makeTrade(taker, maker *core.Order, price, qty int64) core.Trade {
	return core.Trade{
		ID:           uuid.NewString(),
		Symbol:       e.symbol,
		Price:        price,
		Qty:          qty,
		MakerOrderID: maker.ID,
		TakerOrderID: taker.ID,
		TakerSide:    taker.Side.String(),
		ExecutedAt:   time.Now().UnixMilli(),
	}
}

// matchLoop walks best opposing price levels, consuming resting orders
// in queue order, until the incoming qty is exhausted, the opposing
// side empties, or the price condition fails. Market orders match
// unconditionally; priced orders match while the maker price satisfies
// the limit. With record == nil the loop only mutates the book (used
// for simulation).
func matchLoop(ob *orderbook.OrderBook, o *core.Order, record func(taker, maker *core.Order, price, qty int64) core.Trade) []core.Trade {
	var trades []core.Trade
	for o.Qty > 0 {
		price, maker, ok := ob.BestOpposing(o.Side)
		if !ok {
			break
		}
		if o.Type != core.Market {
			if o.Side == core.Buy && price > o.Price {
				break
			}
			if o.Side == core.Sell && price < o.Price {
				break
			}
		}

		qty := min(o.Qty, maker.Qty)
		o.Qty -= qty
		maker.Qty -= qty
		if record != nil {
			trades = append(trades, record(o, maker, price, qty))
		}
		if maker.Qty == 0 {
			ob.Cancel(maker.ID)
		}
	}
	return trades
}

// Cancel removes a resting order by id. Unknown ids return false and
// are otherwise a no-op: the order may already have been fully matched,
// which is an expected race, not an error.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Cancel(id)
}

// TopLevels returns up to depth aggregated price levels for one side
// of the book, best price first.
func (e *Engine) TopLevels(s core.Side, depth int) []orderbook.PriceLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.TopLevels(s, depth)
}

// Depth returns both sides of the book in one consistent snapshot.
func (e *Engine) Depth(depth int) (bids, asks []orderbook.PriceLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.TopLevels(core.Buy, depth), e.book.TopLevels(core.Sell, depth)
}

// TradesSince returns a copy of the trade log entries from index n
// onward, in append order. Notifiers poll this for "new trades since
// N" delivery.
func (e *Engine) TradesSince(n int) []core.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(e.trades) {
		return nil
	}
	out := make([]core.Trade, len(e.trades)-n)
	copy(out, e.trades[n:])
	return out
}

// TradeCount returns the current length of the trade log.
func (e *Engine) TradeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.trades)
}

// LastPrice returns the price of the most recent fill, or 0 if no
// trade has executed yet.
func (e *Engine) LastPrice() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPrice
}

// RestingOrders returns the number of orders currently resting in the
// book, across both sides.
func (e *Engine) RestingOrders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Len()
}
