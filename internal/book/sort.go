package book

import (
	"sort"

	"tradesim/pkg/types"
)

func sortOrders(orders []*types.Order, less func(a, b *types.Order) bool) {
	sort.Slice(orders, func(i, j int) bool { return less(orders[i], orders[j]) })
}
