package api

// Request/response types for REST endpoints and WebSocket messages.

import (
	"github.com/tradecore-io/matchd/pkg/core"
	"github.com/tradecore-io/matchd/pkg/core/orderbook"
)

// SubmitOrderRequest is the payload for POST /api/v1/orders. Price is
// in integer ticks and quantity in integer lots; price must be present
// iff the order type requires one (enforced by core validation after
// the structural checks here).
type SubmitOrderRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	Side     string `json:"side" validate:"required,oneof=buy sell"`
	Type     string `json:"type" validate:"required,oneof=market limit ioc fok"`
	Price    int64  `json:"price" validate:"gte=0"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}

// SubmitOrderResponse carries the id assigned to the order and the
// trades it generated, in execution order. Trades is empty for a
// rejected fill-or-kill or any order that only rested.
type SubmitOrderResponse struct {
	OrderID string       `json:"orderId"`
	Trades  []core.Trade `json:"trades"`
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel.
type CancelOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// CancelOrderResponse reports whether the order was still resting.
// Found=false is not an error: the order may already have matched.
type CancelOrderResponse struct {
	Status  string `json:"status"` // always "ok"
	OrderID string `json:"orderId"`
	Found   bool   `json:"found"`
}

// OrderbookSnapshot is the depth view of both sides, best price first.
type OrderbookSnapshot struct {
	Symbol    string                 `json:"symbol"`
	Bids      []orderbook.PriceLevel `json:"bids"`      // sorted high to low
	Asks      []orderbook.PriceLevel `json:"asks"`      // sorted low to high
	Timestamp int64                  `json:"timestamp"` // unix milliseconds
}

// TradesResponse is the trade-log tail for incremental polling: all
// trades with log index >= Since, plus the index to poll from next.
type TradesResponse struct {
	Symbol string       `json:"symbol"`
	Since  int          `json:"since"`
	Next   int          `json:"next"`
	Trades []core.Trade `json:"trades"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to manage channel
// subscriptions, e.g. {"op":"subscribe","channels":["trades:BTC-USDT"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "trades:<symbol>", "orderbook:<symbol>"
}

// OrderbookUpdate is broadcast periodically on the orderbook channel.
type OrderbookUpdate struct {
	Type      string                 `json:"type"` // "orderbook"
	Symbol    string                 `json:"symbol"`
	Bids      []orderbook.PriceLevel `json:"bids"`
	Asks      []orderbook.PriceLevel `json:"asks"`
	Timestamp int64                  `json:"timestamp"`
}

// TradeUpdate is broadcast on the trades channel when a trade executes.
type TradeUpdate struct {
	Type  string     `json:"type"` // "trade"
	Trade core.Trade `json:"trade"`
}
