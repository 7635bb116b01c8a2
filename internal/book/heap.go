package book

import (
	"container/heap"

	"tradesim/pkg/types"
)

// bidHeap is a max-priority queue by price, earliest arrival first on ties.
type bidHeap []*types.Order

func (h bidHeap) Len() int { return len(h) }
func (h bidHeap) Less(i, j int) bool {
	if h[i].Price != h[j].Price {
		return h[i].Price > h[j].Price
	}
	return h[i].CreatedAt.Before(h[j].CreatedAt)
}
func (h bidHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x any)   { *h = append(*h, x.(*types.Order)) }
func (h *bidHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// askHeap is a min-priority queue by price, earliest arrival first on ties.
type askHeap []*types.Order

func (h askHeap) Len() int { return len(h) }
func (h askHeap) Less(i, j int) bool {
	if h[i].Price != h[j].Price {
		return h[i].Price < h[j].Price
	}
	return h[i].CreatedAt.Before(h[j].CreatedAt)
}
func (h askHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *askHeap) Push(x any)   { *h = append(*h, x.(*types.Order)) }
func (h *askHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// lazyTopBid returns the best (highest price, earliest) live bid, discarding
// any removed orders found at the top along the way.
func lazyTopBid(h *bidHeap) *types.Order {
	for h.Len() > 0 {
		top := (*h)[0]
		if !top.IsRemoved() {
			return top
		}
		heap.Pop(h)
	}
	return nil
}

// lazyTopAsk returns the best (lowest price, earliest) live ask, discarding
// any removed orders found at the top along the way.
func lazyTopAsk(h *askHeap) *types.Order {
	for h.Len() > 0 {
		top := (*h)[0]
		if !top.IsRemoved() {
			return top
		}
		heap.Pop(h)
	}
	return nil
}

// sortedLiveBids returns every live bid sorted by price-time priority,
// best first. Used by the clamp calculation, which needs to walk past the
// true top until it finds an entry within the clamp radius.
func sortedLiveBids(h bidHeap) []*types.Order {
	out := make([]*types.Order, 0, len(h))
	for _, o := range h {
		if !o.IsRemoved() {
			out = append(out, o)
		}
	}
	sortOrders(out, func(a, b *types.Order) bool {
		if a.Price != b.Price {
			return a.Price > b.Price
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// sortedLiveAsks returns every live ask sorted by price-time priority, best first.
func sortedLiveAsks(h askHeap) []*types.Order {
	out := make([]*types.Order, 0, len(h))
	for _, o := range h {
		if !o.IsRemoved() {
			out = append(out, o)
		}
	}
	sortOrders(out, func(a, b *types.Order) bool {
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}
