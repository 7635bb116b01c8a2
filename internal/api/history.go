package api

import (
	"sync"

	"tradesim/internal/book"
	"tradesim/pkg/types"
)

// orderHistory remembers every order id a user has ever submitted through
// the API, in submission order, so GET /orders can list terminal orders
// the book itself has already forgotten (it only keeps resting orders).
// Cancellation isn't exposed over this API, so an id that's no longer
// resting can only mean it was matched away in full.
type orderHistory struct {
	mu    sync.Mutex
	byUser map[string][]historyEntry
}

type historyEntry struct {
	orderID string
	last    types.Order
}

func newOrderHistory() *orderHistory {
	return &orderHistory{byUser: make(map[string][]historyEntry)}
}

// record appends a newly submitted order's initial snapshot.
func (h *orderHistory) record(userID string, o types.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byUser[userID] = append(h.byUser[userID], historyEntry{orderID: o.ID, last: o})
}

// list returns every order the user has submitted, most recent first,
// reflecting live book state where the order is still resting.
func (h *orderHistory) list(userID string, b *book.Book) []OrderView {
	h.mu.Lock()
	entries := append([]historyEntry(nil), h.byUser[userID]...)
	h.mu.Unlock()

	views := make([]OrderView, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if live, ok := b.OrderByID(e.orderID); ok {
			views = append(views, orderViewFromOrder(live))
			continue
		}
		terminal := e.last
		terminal.RemainingQty = 0
		terminal.Status = types.StatusFilled
		views = append(views, orderViewFromOrder(terminal))
	}
	return views
}
