package api

import (
	"github.com/shopspring/decimal"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

// Request and response bodies for the REST and websocket endpoints.

// SubmitOrderRequest accepts prices and quantities as JSON strings or numbers.
type SubmitOrderRequest struct {
	UserID     string          `json:"userId"`
	PricePerKg decimal.Decimal `json:"pricePerKg"`
	QuantityKg decimal.Decimal `json:"quantityKg"`
	Side       string          `json:"side"` // "BUY" or "SELL"
}

type CancelOrderResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId"`
}

type LiveOrdersResponse struct {
	Side   string            `json:"side"`
	Orders []orderbook.Order `json:"orders"`
}

// SummaryResponse is the market-depth view of one side, best price first.
type SummaryResponse struct {
	Side      string                   `json:"side"`
	Rows      []orderbook.AggregateRow `json:"rows"`
	Timestamp int64                    `json:"timestamp"` // unix ms
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is sent by clients, e.g.
// {"op":"subscribe","channels":["summary:BUY"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// SummaryUpdate is pushed on "summary:<SIDE>" whenever that side changes.
type SummaryUpdate struct {
	Type      string                   `json:"type"` // always "summary"
	Side      string                   `json:"side"`
	Rows      []orderbook.AggregateRow `json:"rows"`
	Timestamp int64                    `json:"timestamp"`
}

func summaryChannel(side orderbook.Side) string {
	return "summary:" + side.String()
}
