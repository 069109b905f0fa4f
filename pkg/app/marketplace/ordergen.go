package marketplace

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

// OrderGenerator produces random silver orders for demos and load testing.
// It is not safe for concurrent use.
type OrderGenerator struct {
	users     []string
	basePrice decimal.Decimal
	tick      decimal.Decimal
	spread    int // price moves at most this many ticks away from basePrice
	rng       *rand.Rand

	placed []orderbook.Order // orders handed out and not yet picked for cancel
}

func NewOrderGenerator(numUsers int, basePrice decimal.Decimal, seed int64) *OrderGenerator {
	if numUsers < 1 {
		numUsers = 1
	}
	users := make([]string, numUsers)
	for i := range users {
		users[i] = fmt.Sprintf("user_%d", i+1)
	}
	return &OrderGenerator{
		users:     users,
		basePrice: basePrice,
		tick:      decimal.New(1, -2),
		spread:    50,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// NextOrder returns an order with a random user and side, a price within
// spread ticks of the base price and a quantity of 1 to 500 kg.
func (g *OrderGenerator) NextOrder(newOrder func(userID string, price, qty decimal.Decimal, side orderbook.Side) orderbook.Order) orderbook.Order {
	user := g.users[g.rng.Intn(len(g.users))]

	side := orderbook.Buy
	if g.rng.Intn(2) == 1 {
		side = orderbook.Sell
	}

	// buyers sit below the base price and sellers above it
	ticks := int64(g.rng.Intn(g.spread) + 1)
	offset := g.tick.Mul(decimal.NewFromInt(ticks))
	price := g.basePrice.Add(offset)
	if side == orderbook.Buy {
		price = g.basePrice.Sub(offset)
	}
	if !price.IsPositive() {
		price = g.tick
	}

	qty := decimal.NewFromInt(int64(g.rng.Intn(500) + 1))

	o := newOrder(user, price, qty, side)
	g.placed = append(g.placed, o)
	return o
}

// PickCancels removes up to n previously generated orders at random and returns them.
func (g *OrderGenerator) PickCancels(n int) []orderbook.Order {
	if n > len(g.placed) {
		n = len(g.placed)
	}
	out := make([]orderbook.Order, 0, n)
	for i := 0; i < n; i++ {
		j := g.rng.Intn(len(g.placed))
		out = append(out, g.placed[j])
		last := len(g.placed) - 1
		g.placed[j] = g.placed[last]
		g.placed = g.placed[:last]
	}
	return out
}

// Outstanding is the number of generated orders not yet picked for cancel.
func (g *OrderGenerator) Outstanding() int { return len(g.placed) }
