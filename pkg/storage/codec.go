package storage

import (
	"encoding/json"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
)

func encodeOrder(o orderbook.Order) ([]byte, error) {
	return json.Marshal(o)
}

func decodeOrder(b []byte) (orderbook.Order, error) {
	var o orderbook.Order
	err := json.Unmarshal(b, &o)
	return o, err
}
