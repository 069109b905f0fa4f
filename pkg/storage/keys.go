package storage

import "github.com/silverbars/marketplace/pkg/app/core/orderbook"

// Key schema for the live order set:
//
//	o:B:<orderID> -> Order (BUY)
//	o:S:<orderID> -> Order (SELL)
//
// Grouping by side first lets a snapshot be a single prefix scan.
const prefixOrder = "o:"

func sideTag(side orderbook.Side) string {
	if side == orderbook.Buy {
		return "B"
	}
	return "S"
}

// orderKey returns the key for an order
// Format: "o:{B|S}:{orderID}"
func orderKey(side orderbook.Side, orderID string) []byte {
	return []byte(prefixOrder + sideTag(side) + ":" + orderID)
}

// sidePrefix returns the prefix for all orders on a side
// Format: "o:{B|S}:"
func sidePrefix(side orderbook.Side) []byte {
	return []byte(prefixOrder + sideTag(side) + ":")
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
