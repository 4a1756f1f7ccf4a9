// Package core defines the shared data model of the matching engine:
// orders, trades, and the validation contract callers must satisfy
// before an order reaches the book.
package core

import (
	"errors"
	"fmt"
)

// ErrInvalidOrder marks a malformed order that upstream validation
// should have caught. Check with errors.Is.
var ErrInvalidOrder = errors.New("invalid order")

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side an order of side s matches against.
func (s Side) Opposite() Side { return -s }

// ParseSide maps the wire representation ("buy"/"sell") to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: side %q", ErrInvalidOrder, s)
	}
}

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
	IOC    OrderType = "ioc" // immediate-or-cancel: fill what is possible, discard the rest
	FOK    OrderType = "fok" // fill-or-kill: fill fully or do nothing
)

// RequiresPrice reports whether orders of this type carry a limit price.
func (t OrderType) RequiresPrice() bool {
	switch t {
	case Limit, IOC, FOK:
		return true
	default:
		return false
	}
}

// Order is a request to trade. Prices are integer ticks and quantities
// integer lots; Qty is mutated down as fills execute and an order with
// Qty 0 never rests in the book.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     int64 // integer ticks; meaningful only when Type.RequiresPrice()
	Qty       int64 // integer lots, > 0 while resting
	CreatedAt int64 // unix milliseconds, audit only (priority is queue position)
}

// Trade records one execution between a resting maker order and an
// incoming taker order. Price is always the maker's price. Immutable
// once created.
type Trade struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Price        int64  `json:"price"`
	Qty          int64  `json:"qty"`
	MakerOrderID string `json:"makerOrderId"`
	TakerOrderID string `json:"takerOrderId"`
	TakerSide    string `json:"takerSide"` // aggressor side, "buy" or "sell"
	ExecutedAt   int64  `json:"executedAt"`
}

// ValidateOrder enforces the submission contract: known side and type,
// positive quantity, and a price present iff the type requires one.
// The transport layer validates before Submit; the engine revalidates
// defensively so a bad order can never partially mutate the book.
func ValidateOrder(o *Order) error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if o.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidOrder)
	}
	if o.Side != Buy && o.Side != Sell {
		return fmt.Errorf("%w: side %d", ErrInvalidOrder, o.Side)
	}
	switch o.Type {
	case Market, Limit, IOC, FOK:
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidOrder, o.Type)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: qty %d", ErrInvalidOrder, o.Qty)
	}
	if o.Type.RequiresPrice() && o.Price <= 0 {
		return fmt.Errorf("%w: %s order requires a positive price", ErrInvalidOrder, o.Type)
	}
	if !o.Type.RequiresPrice() && o.Price != 0 {
		return fmt.Errorf("%w: market order must not carry a price", ErrInvalidOrder)
	}
	return nil
}
