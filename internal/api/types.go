package api

import (
	"time"

	"tradesim/pkg/types"
)

// OrderRequest is the decoded body of POST /orders.
type OrderRequest struct {
	Symbol    string   `json:"symbol"`
	Quantity  int      `json:"quantity"`
	Side      string   `json:"side"`       // "buy" or "sell"
	OrderType string   `json:"order_type"` // "market" or "limit"
	Price     *float64 `json:"price,omitempty"`
}

// OrderResponse is returned on a successful (possibly partial) submission.
type OrderResponse struct {
	OrderID             string  `json:"order_id"`
	Status              string  `json:"status"`
	ExecutionPrice      float64 `json:"execution_price"`
	UnprocessedQuantity int     `json:"unprocessed_quantity"`
}

// ErrorResponse is the body of every rejected request.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// OrderView is one entry in the GET /orders response: either a live
// resting order reflected straight from the book, or the last known
// snapshot of an order no longer resting there.
type OrderView struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Price        float64   `json:"price"`
	OriginalQty  int       `json:"original_quantity"`
	RemainingQty int       `json:"remaining_quantity"`
	Status       string    `json:"status"`
	AvgFillPrice float64   `json:"avg_fill_price"`
	CreatedAt    time.Time `json:"created_at"`
}

func orderViewFromOrder(o types.Order) OrderView {
	return OrderView{
		ID:           o.ID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Price:        o.Price,
		OriginalQty:  o.OriginalQty,
		RemainingQty: o.RemainingQty,
		Status:       string(o.Status),
		AvgFillPrice: o.AvgFillPrice,
		CreatedAt:    o.CreatedAt,
	}
}

// PositionView is one symbol's mark-to-mid position in a portfolio response.
type PositionView struct {
	Symbol        string  `json:"symbol"`
	Quantity      int     `json:"quantity"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// PortfolioResponse is the body of GET /portfolio.
type PortfolioResponse struct {
	UserID        string         `json:"user_id"`
	Cash          float64        `json:"cash"`
	Positions     []PositionView `json:"positions"`
	RealizedPnL   float64        `json:"realized_pnl"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
}

// AdminNewsRequest is the decoded body of POST /admin/news.
type AdminNewsRequest struct {
	NewsID int `json:"news_id"`
}

// pongMessage is the server's reply to a client "ping" text frame on
// /ws/market.
type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
