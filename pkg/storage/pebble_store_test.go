package storage

import (
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/shopspring/decimal"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/app/core/orderbook/orderbooktest"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore("orders", vfs.NewMem())
	if err != nil {
		t.Fatalf("NewPebbleStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPebbleStore(t *testing.T) {
	orderbooktest.TestStore(t, func(t *testing.T) orderbook.Store {
		return newTestStore(t)
	})
}

func TestPebbleStoreSummaries(t *testing.T) {
	s := newTestStore(t)
	for _, p := range []string{"3.5", "1.5", "1.5", "2.0", "1.2"} {
		if err := s.Register(orderbooktest.NewOrder("user1", p, "306", orderbook.Sell)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	rows, err := orderbook.NewAggregator(s).Summarize(orderbook.Sell)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := []string{"1.2", "1.5", "2.0", "3.5"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if !rows[i].PricePerKg.Equal(decimal.RequireFromString(w)) {
			t.Errorf("row %d price = %s, want %s", i, rows[i].PricePerKg, w)
		}
	}
	if !rows[1].TotalValue.Equal(decimal.NewFromInt(3)) {
		t.Errorf("1.5 row total = %s, want 3", rows[1].TotalValue)
	}
}

func TestPebbleStoreRegisterMovesSide(t *testing.T) {
	s := newTestStore(t)
	o := orderbooktest.NewOrder("user1", "2.0", "1", orderbook.Buy)
	_ = s.Register(o)

	moved := o
	moved.Side = orderbook.Sell
	if err := s.Register(moved); err != nil {
		t.Fatalf("Register: %v", err)
	}

	buys, _ := s.Snapshot(orderbook.Buy)
	sells, _ := s.Snapshot(orderbook.Sell)
	if len(buys) != 0 || len(sells) != 1 {
		t.Fatalf("after moving sides: %d buys, %d sells; want 0 and 1", len(buys), len(sells))
	}
}

func TestOrderKeys(t *testing.T) {
	if got := string(orderKey(orderbook.Buy, "abc")); got != "o:B:abc" {
		t.Errorf("orderKey(BUY) = %s", got)
	}
	if got := string(sidePrefix(orderbook.Sell)); got != "o:S:" {
		t.Errorf("sidePrefix(SELL) = %s", got)
	}
	if got := string(keyUpperBound([]byte("o:S:"))); got != "o:S;" {
		t.Errorf("keyUpperBound = %s", got)
	}
}
