// Package orderbooktest checks that an orderbook.Store behaves like the live order set.
package orderbooktest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

// NewOrder builds a valid order with a fresh id.
func NewOrder(user string, price, qty string, side orderbook.Side) orderbook.Order {
	return orderbook.NewOrder(user,
		decimal.RequireFromString(price),
		decimal.RequireFromString(qty),
		side,
		time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	)
}

// TestStore runs the Store contract against stores built by newStore.
// Each subtest gets its own store.
func TestStore(t *testing.T, newStore func(t *testing.T) orderbook.Store) {
	t.Run("SnapshotFiltersBySide", func(t *testing.T) {
		testSnapshotFiltersBySide(t, newStore(t))
	})
	t.Run("CancelIsIdempotent", func(t *testing.T) {
		testCancelIsIdempotent(t, newStore(t))
	})
	t.Run("CancelUsesIdentityOnly", func(t *testing.T) {
		testCancelUsesIdentityOnly(t, newStore(t))
	})
	t.Run("CancelAbsentIsNoop", func(t *testing.T) {
		testCancelAbsentIsNoop(t, newStore(t))
	})
	t.Run("RegisterSameIDReplaces", func(t *testing.T) {
		testRegisterSameIDReplaces(t, newStore(t))
	})
	t.Run("RoundTripEmpties", func(t *testing.T) {
		testRoundTripEmpties(t, newStore(t))
	})
	t.Run("SnapshotIsIndependentCopy", func(t *testing.T) {
		testSnapshotIsIndependentCopy(t, newStore(t))
	})
	t.Run("ConcurrentRegisterAndCancel", func(t *testing.T) {
		testConcurrentRegisterAndCancel(t, newStore(t))
	})
}

func mustRegister(t *testing.T, s orderbook.Store, orders ...orderbook.Order) {
	t.Helper()
	for _, o := range orders {
		if err := s.Register(o); err != nil {
			t.Fatalf("Register(%s): %v", o.ID, err)
		}
	}
}

func mustSnapshot(t *testing.T, s orderbook.Store, side orderbook.Side) []orderbook.Order {
	t.Helper()
	got, err := s.Snapshot(side)
	if err != nil {
		t.Fatalf("Snapshot(%s): %v", side, err)
	}
	return got
}

func ids(orders []orderbook.Order) map[string]bool {
	out := make(map[string]bool, len(orders))
	for _, o := range orders {
		out[o.ID] = true
	}
	return out
}

func testSnapshotFiltersBySide(t *testing.T, s orderbook.Store) {
	buys := []orderbook.Order{
		NewOrder("user1", "3.5", "10", orderbook.Buy),
		NewOrder("user2", "3.5", "20", orderbook.Buy),
		NewOrder("user3", "1.2", "30", orderbook.Buy),
	}
	sells := []orderbook.Order{
		NewOrder("user1", "4.0", "5", orderbook.Sell),
		NewOrder("user4", "4.1", "6", orderbook.Sell),
	}
	// interleave sides
	mustRegister(t, s, buys[0], sells[0], buys[1], sells[1], buys[2])

	gotBuys := mustSnapshot(t, s, orderbook.Buy)
	if len(gotBuys) != len(buys) {
		t.Fatalf("buy snapshot has %d orders, want %d", len(gotBuys), len(buys))
	}
	want := ids(buys)
	for _, o := range gotBuys {
		if !want[o.ID] {
			t.Errorf("unexpected order %s in buy snapshot", o.ID)
		}
		if o.Side != orderbook.Buy {
			t.Errorf("order %s has side %s in buy snapshot", o.ID, o.Side)
		}
	}

	gotSells := mustSnapshot(t, s, orderbook.Sell)
	if len(gotSells) != len(sells) {
		t.Fatalf("sell snapshot has %d orders, want %d", len(gotSells), len(sells))
	}
	want = ids(sells)
	for _, o := range gotSells {
		if !want[o.ID] {
			t.Errorf("unexpected order %s in sell snapshot", o.ID)
		}
	}

	// fields survive the store
	for _, o := range gotSells {
		if o.ID != sells[0].ID {
			continue
		}
		if o.UserID != "user1" || !o.PricePerKg.Equal(decimal.RequireFromString("4.0")) || !o.QuantityKg.Equal(decimal.NewFromInt(5)) {
			t.Errorf("stored order = %+v, want %+v", o, sells[0])
		}
		if !o.CreatedAt.Equal(sells[0].CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", o.CreatedAt, sells[0].CreatedAt)
		}
	}
}

func testCancelIsIdempotent(t *testing.T, s orderbook.Store) {
	a := NewOrder("user1", "2.0", "1", orderbook.Buy)
	b := NewOrder("user2", "2.0", "1", orderbook.Buy)
	mustRegister(t, s, a, b)

	removed, ok, err := s.Cancel(a)
	if err != nil || !ok {
		t.Fatalf("first Cancel = (%v, %v), want (true, nil)", ok, err)
	}
	if removed.ID != a.ID || removed.UserID != a.UserID {
		t.Fatalf("first Cancel removed %+v, want %s", removed, a.ID)
	}
	_, ok, err = s.Cancel(a)
	if err != nil || ok {
		t.Fatalf("second Cancel = (%v, %v), want (false, nil)", ok, err)
	}

	got := mustSnapshot(t, s, orderbook.Buy)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("after cancel snapshot = %v, want only %s", got, b.ID)
	}
}

func testCancelUsesIdentityOnly(t *testing.T, s orderbook.Store) {
	a := NewOrder("user1", "2.0", "1", orderbook.Buy)
	twin := NewOrder("user1", "2.0", "1", orderbook.Buy) // equal fields, different id
	mustRegister(t, s, a, twin)

	// identity-only handle, as an API caller would build it
	removed, ok, err := s.Cancel(orderbook.Order{ID: a.ID})
	if err != nil || !ok {
		t.Fatalf("Cancel by id = (%v, %v), want (true, nil)", ok, err)
	}
	// the stored order comes back, so callers learn its side
	if removed.Side != orderbook.Buy || !removed.PricePerKg.Equal(a.PricePerKg) {
		t.Fatalf("Cancel by id removed %+v, want the live order %s", removed, a.ID)
	}

	got := mustSnapshot(t, s, orderbook.Buy)
	if len(got) != 1 || got[0].ID != twin.ID {
		t.Fatalf("snapshot = %v, want only the twin %s", got, twin.ID)
	}
}

func testCancelAbsentIsNoop(t *testing.T, s orderbook.Store) {
	a := NewOrder("user1", "2.0", "1", orderbook.Sell)
	mustRegister(t, s, a)

	never := NewOrder("user1", "2.0", "1", orderbook.Sell)
	_, ok, err := s.Cancel(never)
	if err != nil || ok {
		t.Fatalf("Cancel(absent) = (%v, %v), want (false, nil)", ok, err)
	}
	if got := mustSnapshot(t, s, orderbook.Sell); len(got) != 1 {
		t.Fatalf("snapshot has %d orders, want 1", len(got))
	}
}

func testRegisterSameIDReplaces(t *testing.T, s orderbook.Store) {
	a := NewOrder("user1", "2.0", "1", orderbook.Buy)
	mustRegister(t, s, a, a)

	if got := mustSnapshot(t, s, orderbook.Buy); len(got) != 1 {
		t.Fatalf("snapshot has %d orders after registering the same order twice, want 1", len(got))
	}
}

func testRoundTripEmpties(t *testing.T, s orderbook.Store) {
	var all []orderbook.Order
	for i := 0; i < 20; i++ {
		side := orderbook.Buy
		if i%2 == 1 {
			side = orderbook.Sell
		}
		o := NewOrder(fmt.Sprintf("user%d", i), fmt.Sprintf("%d.25", i%5+1), "10", side)
		all = append(all, o)
	}
	mustRegister(t, s, all...)

	for _, o := range all {
		if _, _, err := s.Cancel(o); err != nil {
			t.Fatalf("Cancel(%s): %v", o.ID, err)
		}
	}
	for _, side := range orderbook.Sides {
		if got := mustSnapshot(t, s, side); len(got) != 0 {
			t.Errorf("%s snapshot has %d orders after cancelling all, want 0", side, len(got))
		}
	}
}

func testSnapshotIsIndependentCopy(t *testing.T, s orderbook.Store) {
	a := NewOrder("user1", "2.0", "1", orderbook.Buy)
	mustRegister(t, s, a)

	snap := mustSnapshot(t, s, orderbook.Buy)
	mustRegister(t, s, NewOrder("user2", "2.5", "1", orderbook.Buy))
	if _, _, err := s.Cancel(a); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if len(snap) != 1 || snap[0].ID != a.ID {
		t.Fatalf("earlier snapshot changed to %v", snap)
	}
	snap[0].UserID = "mutated"
	for _, o := range mustSnapshot(t, s, orderbook.Buy) {
		if o.UserID == "mutated" {
			t.Fatal("mutating a snapshot leaked into the store")
		}
	}
}

func testConcurrentRegisterAndCancel(t *testing.T, s orderbook.Store) {
	const workers = 8
	const perWorker = 50

	orders := make([][]orderbook.Order, workers)
	for w := range orders {
		for i := 0; i < perWorker; i++ {
			side := orderbook.Buy
			if (w+i)%2 == 0 {
				side = orderbook.Sell
			}
			orders[w] = append(orders[w], NewOrder(fmt.Sprintf("user%d", w), fmt.Sprintf("%d.5", i%7+1), "1", side))
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker*2)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(batch []orderbook.Order) {
			defer wg.Done()
			for i, o := range batch {
				if err := s.Register(o); err != nil {
					errs <- err
				}
				// readers run alongside writers
				if _, err := s.Snapshot(o.Side); err != nil {
					errs <- err
				}
				// cancel every third order this worker placed
				if i%3 == 0 {
					if _, _, err := s.Cancel(o); err != nil {
						errs <- err
					}
				}
			}
		}(orders[w])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent op failed: %v", err)
	}

	want := map[orderbook.Side]map[string]bool{orderbook.Buy: {}, orderbook.Sell: {}}
	for _, batch := range orders {
		for i, o := range batch {
			if i%3 != 0 {
				want[o.Side][o.ID] = true
			}
		}
	}
	for _, side := range orderbook.Sides {
		got := mustSnapshot(t, s, side)
		if len(got) != len(want[side]) {
			t.Fatalf("%s snapshot has %d orders, want %d", side, len(got), len(want[side]))
		}
		seen := make(map[string]bool)
		for _, o := range got {
			if !want[side][o.ID] {
				t.Errorf("unexpected %s order %s", side, o.ID)
			}
			if seen[o.ID] {
				t.Errorf("duplicate %s order %s", side, o.ID)
			}
			seen[o.ID] = true
		}
	}
}
