package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator builds market-depth summaries from a Store snapshot.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

type level struct {
	price decimal.Decimal
	total decimal.Decimal
	count int
}

// Summarize groups the live orders on side by price and returns one row per
// distinct price, best price first.
//
// TotalValue is the sum of PricePerKg over the orders at that price, not a
// quantity total.
func (a *Aggregator) Summarize(side Side) ([]AggregateRow, error) {
	orders, err := a.store.Snapshot(side)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", side, err)
	}

	// String() trims trailing zeros, so 1.5 and 1.50 share a key.
	levels := make(map[string]*level, len(orders))
	prices := make([]decimal.Decimal, 0, len(orders))
	for _, o := range orders {
		key := o.PricePerKg.String()
		lvl, ok := levels[key]
		if !ok {
			lvl = &level{price: o.PricePerKg, total: decimal.Zero}
			levels[key] = lvl
			prices = append(prices, o.PricePerKg)
		}
		lvl.total = lvl.total.Add(o.PricePerKg)
		lvl.count++
	}

	rows := make([]AggregateRow, 0, len(prices))
	for _, p := range bestFirst(side, prices) {
		lvl := levels[p.String()]
		rows = append(rows, AggregateRow{
			PricePerKg: lvl.price,
			TotalValue: lvl.total,
			OrderCount: lvl.count,
			Side:       side,
		})
	}
	return rows, nil
}

// AllLive returns the raw live orders on side.
func (a *Aggregator) AllLive(side Side) ([]Order, error) {
	return a.store.Snapshot(side)
}
