package orderbook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice    = errors.New("price per kg must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUnknownSide     = errors.New("unknown order side")
	ErrMissingUser     = errors.New("user id is required")
	ErrMissingID       = errors.New("order id is required")
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

// Sides lists both sides in display order.
var Sides = []Side{Buy, Sell}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// ParseSide accepts "BUY"/"SELL" in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSide, v)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSide, int8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Order is a live bid or offer for silver, priced per kilogram.
// Orders are values: once created nothing mutates them.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	PricePerKg decimal.Decimal `json:"pricePerKg"`
	QuantityKg decimal.Decimal `json:"quantityKg"`
	Side       Side            `json:"side"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewOrder stamps a fresh id and creation time. It does not validate.
func NewOrder(userID string, price, qty decimal.Decimal, side Side, now time.Time) Order {
	return Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		PricePerKg: price,
		QuantityKg: qty,
		Side:       side,
		CreatedAt:  now,
	}
}

// Validate reports the first rule the order breaks.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(o.UserID) == "" {
		return ErrMissingUser
	}
	if !o.Side.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSide, int8(o.Side))
	}
	if !o.PricePerKg.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidPrice, o.PricePerKg)
	}
	if !o.QuantityKg.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, o.QuantityKg)
	}
	return nil
}

// AggregateRow is one price level of a market-depth summary.
type AggregateRow struct {
	PricePerKg decimal.Decimal `json:"pricePerKg"`
	// TotalValue adds PricePerKg once per order resting at this price.
	TotalValue decimal.Decimal `json:"totalValue"`
	OrderCount int             `json:"orderCount"`
	Side       Side            `json:"side"`
}
