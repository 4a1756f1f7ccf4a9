// Package orderbook implements the resting-order side of price-time
// priority matching: two independent price-sorted collections (bids,
// asks) with a FIFO queue per price level.
//
// The book is a pure data structure with no internal locking. The
// matching engine is its single owner and serializes every access; see
// pkg/core/engine.
package orderbook

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/tradecore-io/matchd/pkg/core"
)

// PriceLevel summarizes one price level: total resting qty at Price.
type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

type OrderBook struct {
	// Heap-based best price tracking (O(1) peek)
	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// Price level queues (FIFO matching at each price)
	bids map[int64][]*core.Order // price -> FIFO slice
	asks map[int64][]*core.Order

	// Order index for O(1) cancellation: id -> resting price
	orderIndex map[string]int64
}

func NewOrderBook() *OrderBook {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		bidHeap:    bidHeap,
		askHeap:    askHeap,
		bids:       make(map[int64][]*core.Order),
		asks:       make(map[int64][]*core.Order),
		orderIndex: make(map[string]int64),
	}
}

// Len returns the number of resting orders across both sides.
func (ob *OrderBook) Len() int { return len(ob.orderIndex) }

// Contains reports whether an order with this id is resting.
func (ob *OrderBook) Contains(id string) bool {
	_, ok := ob.orderIndex[id]
	return ok
}

// BestBid returns the highest bid price, if any.
func (ob *OrderBook) BestBid() (int64, bool) {
	if ob.bidHeap.Len() == 0 {
		return 0, false
	}
	return ob.bidHeap.Peek(), true
}

// BestAsk returns the lowest ask price, if any.
func (ob *OrderBook) BestAsk() (int64, bool) {
	if ob.askHeap.Len() == 0 {
		return 0, false
	}
	return ob.askHeap.Peek(), true
}

// Add rests an order in its side's price-level queue, at the back
// (time priority). The book stores its own copy of the order; callers
// keep no alias to the resting record.
func (ob *OrderBook) Add(o *core.Order) error {
	if o == nil || o.Price <= 0 {
		return fmt.Errorf("%w: resting order requires a positive price", core.ErrInvalidOrder)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: resting order requires a positive qty", core.ErrInvalidOrder)
	}
	if _, dup := ob.orderIndex[o.ID]; dup {
		return fmt.Errorf("%w: order %s already resting", core.ErrInvalidOrder, o.ID)
	}

	cp := *o
	switch o.Side {
	case core.Buy:
		if len(ob.bids[cp.Price]) == 0 {
			heap.Push(ob.bidHeap, cp.Price)
		}
		ob.bids[cp.Price] = append(ob.bids[cp.Price], &cp)
	case core.Sell:
		if len(ob.asks[cp.Price]) == 0 {
			heap.Push(ob.askHeap, cp.Price)
		}
		ob.asks[cp.Price] = append(ob.asks[cp.Price], &cp)
	default:
		return fmt.Errorf("%w: side %d", core.ErrInvalidOrder, o.Side)
	}

	ob.orderIndex[cp.ID] = cp.Price
	return nil
}

// Cancel removes the order with this id from whichever side holds it
// and drops the price level if it becomes empty. Returns false if the
// id is not resting; callers treat that as a benign no-op since the
// order may simply have been fully matched already.
func (ob *OrderBook) Cancel(id string) bool {
	price, ok := ob.orderIndex[id]
	if !ok {
		return false
	}

	if arr, exists := ob.bids[price]; exists {
		for i, o := range arr {
			if o.ID == id {
				ob.bids[price] = append(arr[:i], arr[i+1:]...)
				if len(ob.bids[price]) == 0 {
					delete(ob.bids, price)
					ob.removeFromBidHeap(price)
				}
				delete(ob.orderIndex, id)
				return true
			}
		}
	}

	if arr, exists := ob.asks[price]; exists {
		for i, o := range arr {
			if o.ID == id {
				ob.asks[price] = append(arr[:i], arr[i+1:]...)
				if len(ob.asks[price]) == 0 {
					delete(ob.asks, price)
					ob.removeFromAskHeap(price)
				}
				delete(ob.orderIndex, id)
				return true
			}
		}
	}

	return false
}

// removeFromBidHeap removes a price level from the bid heap (O(N) worst case, but rare)
func (ob *OrderBook) removeFromBidHeap(price int64) {
	for i := 0; i < ob.bidHeap.Len(); i++ {
		if (*ob.bidHeap)[i] == price {
			heap.Remove(ob.bidHeap, i)
			return
		}
	}
}

// removeFromAskHeap removes a price level from the ask heap (O(N) worst case, but rare)
func (ob *OrderBook) removeFromAskHeap(price int64) {
	for i := 0; i < ob.askHeap.Len(); i++ {
		if (*ob.askHeap)[i] == price {
			heap.Remove(ob.askHeap, i)
			return
		}
	}
}

// BestOpposing returns the best price level an order of side s would
// match against (buy -> lowest ask, sell -> highest bid) and the order
// at the front of that level's queue. The returned order remains owned
// by the book; the engine mutates its Qty only transiently during a
// match step and removes it via Cancel when it reaches zero.
func (ob *OrderBook) BestOpposing(s core.Side) (int64, *core.Order, bool) {
	switch s {
	case core.Buy:
		p, ok := ob.BestAsk()
		if !ok {
			return 0, nil, false
		}
		return p, ob.asks[p][0], true
	case core.Sell:
		p, ok := ob.BestBid()
		if !ok {
			return 0, nil, false
		}
		return p, ob.bids[p][0], true
	default:
		return 0, nil, false
	}
}

// TopLevels returns up to depth price levels for the requested side
// (the side's own book, not the opposing one), best price first, with
// qty aggregated across all orders at each price. depth <= 0 returns
// every level.
func (ob *OrderBook) TopLevels(s core.Side, depth int) []PriceLevel {
	var book map[int64][]*core.Order
	if s == core.Buy {
		book = ob.bids
	} else {
		book = ob.asks
	}

	levels := make([]PriceLevel, 0, len(book))
	for price, orders := range book {
		var totalQty int64
		for _, o := range orders {
			totalQty += o.Qty
		}
		levels = append(levels, PriceLevel{Price: price, Qty: totalQty})
	}

	// Best price first: bids high to low, asks low to high.
	sort.Slice(levels, func(i, j int) bool {
		if s == core.Buy {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})

	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	return levels
}

// Clone produces a fully independent deep copy: every heap entry,
// level queue, and order record is duplicated, so mutating the clone
// never touches the original. Used for fill-or-kill dry runs.
func (ob *OrderBook) Clone() *OrderBook {
	bidHeap := make(MaxPriceHeap, len(*ob.bidHeap))
	copy(bidHeap, *ob.bidHeap)
	askHeap := make(MinPriceHeap, len(*ob.askHeap))
	copy(askHeap, *ob.askHeap)

	cl := &OrderBook{
		bidHeap:    &bidHeap,
		askHeap:    &askHeap,
		bids:       make(map[int64][]*core.Order, len(ob.bids)),
		asks:       make(map[int64][]*core.Order, len(ob.asks)),
		orderIndex: make(map[string]int64, len(ob.orderIndex)),
	}
	for price, orders := range ob.bids {
		arr := make([]*core.Order, len(orders))
		for i, o := range orders {
			cp := *o
			arr[i] = &cp
		}
		cl.bids[price] = arr
	}
	for price, orders := range ob.asks {
		arr := make([]*core.Order, len(orders))
		for i, o := range orders {
			cp := *o
			arr[i] = &cp
		}
		cl.asks[price] = arr
	}
	for id, price := range ob.orderIndex {
		cl.orderIndex[id] = price
	}
	return cl
}
