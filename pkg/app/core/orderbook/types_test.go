package orderbook

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "BUY", want: Buy},
		{in: "buy", want: Buy},
		{in: " Sell ", want: Sell},
		{in: "SELL", want: Sell},
		{in: "hold", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSide) {
					t.Fatalf("ParseSide(%q) err = %v, want ErrUnknownSide", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSide(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrderValidate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	price := decimal.RequireFromString("21.50")
	qty := decimal.RequireFromString("3.5")

	tests := []struct {
		name    string
		order   Order
		wantErr error
	}{
		{
			name:  "valid order",
			order: NewOrder("user1", price, qty, Buy, now),
		},
		{
			name:    "missing id",
			order:   Order{UserID: "user1", PricePerKg: price, QuantityKg: qty, Side: Buy},
			wantErr: ErrMissingID,
		},
		{
			name:    "missing user",
			order:   NewOrder("  ", price, qty, Buy, now),
			wantErr: ErrMissingUser,
		},
		{
			name:    "zero price",
			order:   NewOrder("user1", decimal.Zero, qty, Sell, now),
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "negative price",
			order:   NewOrder("user1", decimal.NewFromInt(-1), qty, Sell, now),
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "zero quantity",
			order:   NewOrder("user1", price, decimal.Zero, Buy, now),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "unknown side",
			order:   NewOrder("user1", price, qty, Side(0), now),
			wantErr: ErrUnknownSide,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewOrderAssignsUniqueIDs(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		o := NewOrder("user1", decimal.NewFromInt(1), decimal.NewFromInt(1), Buy, now)
		if o.ID == "" {
			t.Fatal("empty order id")
		}
		if seen[o.ID] {
			t.Fatalf("duplicate order id %s", o.ID)
		}
		seen[o.ID] = true
		if !o.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", o.CreatedAt, now)
		}
	}
}

func TestOrderJSON(t *testing.T) {
	o := NewOrder("user1", decimal.RequireFromString("1.5"), decimal.RequireFromString("307"), Sell, time.Unix(0, 0).UTC())

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if fields["side"] != "SELL" {
		t.Errorf("side = %v, want SELL", fields["side"])
	}
	if fields["pricePerKg"] != "1.5" {
		t.Errorf("pricePerKg = %v, want \"1.5\"", fields["pricePerKg"])
	}

	var back Order
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if back.ID != o.ID || back.Side != Sell || !back.QuantityKg.Equal(o.QuantityKg) {
		t.Errorf("decoded order = %+v, want %+v", back, o)
	}
}

func TestSideUnmarshalRejectsUnknown(t *testing.T) {
	var s Side
	if err := json.Unmarshal([]byte(`"HOLD"`), &s); !errors.Is(err, ErrUnknownSide) {
		t.Fatalf("err = %v, want ErrUnknownSide", err)
	}
}
