// Package events publishes order lifecycle changes to downstream consumers.
package events

import (
	"time"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

type Type string

const (
	OrderRegistered Type = "order_registered"
	OrderCancelled  Type = "order_cancelled"
)

// Event is one change to the live order set.
type Event struct {
	Type  Type            `json:"type"`
	Order orderbook.Order `json:"order"`
	At    time.Time       `json:"at"`
}

// Publisher must not block the caller.
type Publisher interface {
	Publish(e Event)
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
func (NopPublisher) Close() error  { return nil }
