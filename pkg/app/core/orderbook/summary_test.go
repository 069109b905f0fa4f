package orderbook_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/app/core/orderbook/orderbooktest"
)

var createdAt = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func register(t *testing.T, s orderbook.Store, side orderbook.Side, pq ...[2]string) []orderbook.Order {
	t.Helper()
	var out []orderbook.Order
	for i, p := range pq {
		o := orderbooktest.NewOrder(fmt.Sprintf("user%d", i+1), p[0], p[1], side)
		if err := s.Register(o); err != nil {
			t.Fatalf("Register: %v", err)
		}
		out = append(out, o)
	}
	return out
}

func summarize(t *testing.T, a *orderbook.Aggregator, side orderbook.Side) []orderbook.AggregateRow {
	t.Helper()
	rows, err := a.Summarize(side)
	if err != nil {
		t.Fatalf("Summarize(%s): %v", side, err)
	}
	return rows
}

func assertPrices(t *testing.T, rows []orderbook.AggregateRow, want ...string) {
	t.Helper()
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %v", len(rows), len(want), rows)
	}
	for i, w := range want {
		if !rows[i].PricePerKg.Equal(decimal.RequireFromString(w)) {
			t.Errorf("row %d price = %s, want %s", i, rows[i].PricePerKg, w)
		}
	}
}

func assertBestFirst(t *testing.T, side orderbook.Side, rows []orderbook.AggregateRow) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].PricePerKg, rows[i].PricePerKg
		if side == orderbook.Buy && !prev.GreaterThan(cur) {
			t.Fatalf("BUY rows not strictly decreasing at %d: %s then %s", i, prev, cur)
		}
		if side == orderbook.Sell && !prev.LessThan(cur) {
			t.Fatalf("SELL rows not strictly increasing at %d: %s then %s", i, prev, cur)
		}
	}
}

func TestSummarizeSellScenario(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Sell,
		[2]string{"3.5", "306"},
		[2]string{"1.5", "307"},
		[2]string{"1.5", "307"},
		[2]string{"2.0", "306"},
		[2]string{"1.2", "310"},
	)

	rows := summarize(t, orderbook.NewAggregator(s), orderbook.Sell)
	assertPrices(t, rows, "1.2", "1.5", "2.0", "3.5")

	// the 1.5 level carries two orders: 1.5 + 1.5
	if !rows[1].TotalValue.Equal(decimal.RequireFromString("3.0")) {
		t.Errorf("1.5 row total = %s, want 3.0", rows[1].TotalValue)
	}
	if rows[1].OrderCount != 2 {
		t.Errorf("1.5 row order count = %d, want 2", rows[1].OrderCount)
	}
	for _, r := range rows {
		if r.Side != orderbook.Sell {
			t.Errorf("row side = %s, want SELL", r.Side)
		}
	}
	if !rows[0].TotalValue.Equal(decimal.RequireFromString("1.2")) {
		t.Errorf("1.2 row total = %s, want 1.2", rows[0].TotalValue)
	}
}

func TestSummarizeBuyScenario(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Buy,
		[2]string{"3.5", "306"},
		[2]string{"3.5", "306"},
		[2]string{"1.5", "307"},
		[2]string{"2.0", "306"},
		[2]string{"1.2", "310"},
	)

	rows := summarize(t, orderbook.NewAggregator(s), orderbook.Buy)
	assertPrices(t, rows, "3.5", "2.0", "1.5", "1.2")
	if !rows[0].TotalValue.Equal(decimal.NewFromInt(7)) {
		t.Errorf("3.5 row total = %s, want 7", rows[0].TotalValue)
	}
}

func TestSummarizeIgnoresOtherSide(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Buy, [2]string{"5", "1"})
	register(t, s, orderbook.Sell, [2]string{"6", "1"}, [2]string{"7", "1"})

	a := orderbook.NewAggregator(s)
	assertPrices(t, summarize(t, a, orderbook.Buy), "5")
	assertPrices(t, summarize(t, a, orderbook.Sell), "6", "7")
}

func TestSummarizeEmpty(t *testing.T) {
	a := orderbook.NewAggregator(orderbook.NewMemoryStore())
	for _, side := range orderbook.Sides {
		rows := summarize(t, a, side)
		if rows == nil || len(rows) != 0 {
			t.Errorf("Summarize(%s) on empty store = %#v, want empty non-nil slice", side, rows)
		}
	}
}

func TestSummarizeSingleLevel(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Buy, [2]string{"9.99", "1"}, [2]string{"9.99", "2"}, [2]string{"9.99", "3"})

	rows := summarize(t, orderbook.NewAggregator(s), orderbook.Buy)
	assertPrices(t, rows, "9.99")
	if !rows[0].TotalValue.Equal(decimal.RequireFromString("29.97")) {
		t.Errorf("total = %s, want 29.97", rows[0].TotalValue)
	}
}

func TestSummarizeGroupsEqualPricesAcrossScale(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Sell, [2]string{"1.5", "1"}, [2]string{"1.50", "1"}, [2]string{"1.500", "1"})

	rows := summarize(t, orderbook.NewAggregator(s), orderbook.Sell)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 for numerically equal prices: %v", len(rows), rows)
	}
	if !rows[0].TotalValue.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("total = %s, want 4.5", rows[0].TotalValue)
	}
}

func TestSummarizeNoTolerance(t *testing.T) {
	s := orderbook.NewMemoryStore()
	register(t, s, orderbook.Buy, [2]string{"1.5", "1"}, [2]string{"1.5000001", "1"})

	rows := summarize(t, orderbook.NewAggregator(s), orderbook.Buy)
	assertPrices(t, rows, "1.5000001", "1.5")
}

func TestSummarizeRowCountMatchesDistinctPrices(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := orderbook.NewMemoryStore()
	a := orderbook.NewAggregator(s)

	distinct := map[orderbook.Side]map[string]bool{orderbook.Buy: {}, orderbook.Sell: {}}
	for i := 0; i < 500; i++ {
		side := orderbook.Sides[rng.Intn(2)]
		price := decimal.NewFromInt(int64(2000 + rng.Intn(200))).Shift(-2)
		o := orderbook.NewOrder("user", price, decimal.NewFromInt(1), side, createdAt)
		if err := s.Register(o); err != nil {
			t.Fatalf("Register: %v", err)
		}
		distinct[side][price.String()] = true
	}

	for _, side := range orderbook.Sides {
		rows := summarize(t, a, side)
		if len(rows) != len(distinct[side]) {
			t.Errorf("%s: %d rows, want %d distinct prices", side, len(rows), len(distinct[side]))
		}
		assertBestFirst(t, side, rows)
	}
}

func TestCancelKeepsOrdering(t *testing.T) {
	s := orderbook.NewMemoryStore()
	a := orderbook.NewAggregator(s)
	orders := register(t, s, orderbook.Buy,
		[2]string{"3.5", "1"},
		[2]string{"3.5", "1"},
		[2]string{"1.5", "1"},
		[2]string{"2.0", "1"},
		[2]string{"1.2", "1"},
	)

	before, _ := a.AllLive(orderbook.Buy)
	if _, _, err := s.Cancel(orders[3]); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	after, _ := a.AllLive(orderbook.Buy)
	if len(after) != len(before)-1 {
		t.Fatalf("live BUY count %d -> %d, want a drop of exactly 1", len(before), len(after))
	}

	rows := summarize(t, a, orderbook.Buy)
	assertBestFirst(t, orderbook.Buy, rows)
	assertPrices(t, rows, "3.5", "1.5", "1.2")
}

func TestRoundTripSummaryEmpty(t *testing.T) {
	s := orderbook.NewMemoryStore()
	a := orderbook.NewAggregator(s)
	var all []orderbook.Order
	all = append(all, register(t, s, orderbook.Buy, [2]string{"1", "1"}, [2]string{"2", "1"})...)
	all = append(all, register(t, s, orderbook.Sell, [2]string{"3", "1"}, [2]string{"3", "1"})...)

	for _, o := range all {
		_, _, _ = s.Cancel(o)
	}
	for _, side := range orderbook.Sides {
		if rows := summarize(t, a, side); len(rows) != 0 {
			t.Errorf("%s summary = %v, want empty", side, rows)
		}
		if live, _ := a.AllLive(side); len(live) != 0 {
			t.Errorf("%s live = %v, want empty", side, live)
		}
	}
}

func BenchmarkSummarize(b *testing.B) {
	s := orderbook.NewMemoryStore()

	// 10k resting orders over 100 price levels per side
	for i := 0; i < 10000; i++ {
		price := decimal.NewFromInt(int64(2500 + i%100)).Shift(-2)
		side := orderbook.Buy
		if i%2 == 0 {
			side = orderbook.Sell
		}
		_ = s.Register(orderbook.NewOrder(fmt.Sprintf("user%d", i%50), price, decimal.NewFromInt(10), side, createdAt))
	}
	a := orderbook.NewAggregator(s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := orderbook.Buy
		if i%2 == 0 {
			side = orderbook.Sell
		}
		if _, err := a.Summarize(side); err != nil {
			b.Fatal(err)
		}
	}
}
