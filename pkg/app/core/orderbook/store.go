package orderbook

import "sync"

// Store holds the live order set.
//
// Implementations must make every call atomic with respect to the others;
// Snapshot returns a copy the caller owns.
type Store interface {
	// Register adds o to the live set. An order whose ID is already live replaces it.
	Register(o Order) error
	// Cancel removes the live order with o.ID and returns it. ok is false when
	// no such order was live, which is not an error.
	Cancel(o Order) (removed Order, ok bool, err error)
	// Snapshot returns every live order on side, in no particular order.
	Snapshot(side Side) ([]Order, error)
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu sync.RWMutex // writers: Register/Cancel, readers: Snapshot/Len

	orders map[string]Order              // id -> order
	bySide map[Side]map[string]struct{} // side -> ids resting on it
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]Order),
		bySide: map[Side]map[string]struct{}{
			Buy:  make(map[string]struct{}),
			Sell: make(map[string]struct{}),
		},
	}
}

func (s *MemoryStore) Register(o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.orders[o.ID]; ok {
		delete(s.bySide[prev.Side], prev.ID)
	}
	s.orders[o.ID] = o

	ids, ok := s.bySide[o.Side]
	if !ok {
		ids = make(map[string]struct{})
		s.bySide[o.Side] = ids
	}
	ids[o.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) Cancel(o Order) (Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// O(1) lookup by identity; the caller's copy of the other fields is ignored
	live, ok := s.orders[o.ID]
	if !ok {
		return Order{}, false, nil
	}
	delete(s.orders, o.ID)
	delete(s.bySide[live.Side], o.ID)
	return live, true, nil
}

func (s *MemoryStore) Snapshot(side Side) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySide[side]
	out := make([]Order, 0, len(ids))
	for id := range ids {
		out = append(out, s.orders[id])
	}
	return out, nil
}

// Len returns the number of live orders on side.
func (s *MemoryStore) Len(side Side) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySide[side])
}

var _ Store = (*MemoryStore)(nil)
