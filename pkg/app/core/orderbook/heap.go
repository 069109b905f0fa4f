package orderbook

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// MaxPriceHeap implements heap.Interface for bid prices (highest price on top)
// Use container/heap package to manipulate this heap (Init, Push, Pop)
type MaxPriceHeap []decimal.Decimal

func (h MaxPriceHeap) Len() int           { return len(h) }
func (h MaxPriceHeap) Less(i, j int) bool { return h[i].GreaterThan(h[j]) }
func (h MaxPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *MaxPriceHeap) Push(x any) {
	*h = append(*h, x.(decimal.Decimal))
}

func (h *MaxPriceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// MinPriceHeap implements heap.Interface for ask prices (lowest price on top)
type MinPriceHeap []decimal.Decimal

func (h MinPriceHeap) Len() int           { return len(h) }
func (h MinPriceHeap) Less(i, j int) bool { return h[i].LessThan(h[j]) }
func (h MinPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *MinPriceHeap) Push(x any) {
	*h = append(*h, x.(decimal.Decimal))
}

func (h *MinPriceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// bestFirst returns prices in the side's priority: high to low for Buy, low to high for Sell.
func bestFirst(side Side, prices []decimal.Decimal) []decimal.Decimal {
	var h heap.Interface
	if side == Buy {
		mh := MaxPriceHeap(prices)
		h = &mh
	} else {
		mh := MinPriceHeap(prices)
		h = &mh
	}
	heap.Init(h)

	out := make([]decimal.Decimal, 0, len(prices))
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(decimal.Decimal))
	}
	return out
}
