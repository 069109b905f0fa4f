package orderbook_test

import (
	"testing"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/app/core/orderbook/orderbooktest"
)

func TestMemoryStore(t *testing.T) {
	orderbooktest.TestStore(t, func(t *testing.T) orderbook.Store {
		return orderbook.NewMemoryStore()
	})
}

func TestMemoryStoreLen(t *testing.T) {
	s := orderbook.NewMemoryStore()
	a := orderbooktest.NewOrder("user1", "1.5", "307", orderbook.Sell)
	b := orderbooktest.NewOrder("user2", "1.5", "307", orderbook.Buy)
	_ = s.Register(a)
	_ = s.Register(b)

	if got := s.Len(orderbook.Sell); got != 1 {
		t.Errorf("Len(SELL) = %d, want 1", got)
	}
	_, _, _ = s.Cancel(a)
	if got := s.Len(orderbook.Sell); got != 0 {
		t.Errorf("Len(SELL) after cancel = %d, want 0", got)
	}
	if got := s.Len(orderbook.Buy); got != 1 {
		t.Errorf("Len(BUY) = %d, want 1", got)
	}
}

func TestMemoryStoreReRegisterOnOtherSide(t *testing.T) {
	s := orderbook.NewMemoryStore()
	o := orderbooktest.NewOrder("user1", "2.0", "1", orderbook.Buy)
	_ = s.Register(o)

	moved := o
	moved.Side = orderbook.Sell
	_ = s.Register(moved)

	if got := s.Len(orderbook.Buy); got != 0 {
		t.Errorf("Len(BUY) = %d, want 0 after the id moved sides", got)
	}
	if got := s.Len(orderbook.Sell); got != 1 {
		t.Errorf("Len(SELL) = %d, want 1", got)
	}
}
