package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

// PebbleStore keeps the live order set in a pebble LSM.
//
// Writes are serialized so Cancel can report whether it removed anything;
// Snapshot reads a pebble snapshot and never takes the write lock.
type PebbleStore struct {
	wmu sync.Mutex
	db  *pebble.DB
}

// NewPebbleStore opens a store on fs. Pass vfs.NewMem() to keep the
// order set in memory only.
func NewPebbleStore(path string, fs vfs.FS) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{FS: fs})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %q: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

// NewInMemoryPebbleStore opens a store backed by an in-memory filesystem.
func NewInMemoryPebbleStore() (*PebbleStore, error) {
	return NewPebbleStore("orders", vfs.NewMem())
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) Register(o orderbook.Order) error {
	val, err := encodeOrder(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}

	other := orderbook.Sell
	if o.Side == orderbook.Sell {
		other = orderbook.Buy
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	// drop a same-id entry left on the other side, then write
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(orderKey(other, o.ID), nil); err != nil {
		return fmt.Errorf("stage delete %s: %w", o.ID, err)
	}
	if err := b.Set(orderKey(o.Side, o.ID), val, nil); err != nil {
		return fmt.Errorf("stage set %s: %w", o.ID, err)
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("register order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PebbleStore) Cancel(o orderbook.Order) (orderbook.Order, bool, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	// identity is the id alone, so look on both sides
	for _, side := range orderbook.Sides {
		key := orderKey(side, o.ID)
		live, found, err := s.get(key)
		if err != nil {
			return orderbook.Order{}, false, err
		}
		if !found {
			continue
		}
		if err := s.db.Delete(key, pebble.NoSync); err != nil {
			return orderbook.Order{}, false, fmt.Errorf("cancel order %s: %w", o.ID, err)
		}
		return live, true, nil
	}
	return orderbook.Order{}, false, nil
}

func (s *PebbleStore) get(key []byte) (orderbook.Order, bool, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return orderbook.Order{}, false, nil
	}
	if err != nil {
		return orderbook.Order{}, false, fmt.Errorf("get %q: %w", key, err)
	}
	defer closer.Close()

	o, err := decodeOrder(val)
	if err != nil {
		return orderbook.Order{}, false, fmt.Errorf("decode order at %q: %w", key, err)
	}
	return o, true, nil
}

func (s *PebbleStore) Snapshot(side orderbook.Side) ([]orderbook.Order, error) {
	snap := s.db.NewSnapshot()
	defer snap.Close()

	prefix := sidePrefix(side)
	iter, err := snap.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate %s orders: %w", side, err)
	}
	defer iter.Close()

	out := make([]orderbook.Order, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		o, err := decodeOrder(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decode order at %q: %w", iter.Key(), err)
		}
		out = append(out, o)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate %s orders: %w", side, err)
	}
	return out, nil
}

var _ orderbook.Store = (*PebbleStore)(nil)
