package core

import (
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("buy"); err != nil || s != Buy {
		t.Errorf("ParseSide(buy) = %v, %v", s, err)
	}
	if s, err := ParseSide("sell"); err != nil || s != Sell {
		t.Errorf("ParseSide(sell) = %v, %v", s, err)
	}
	if _, err := ParseSide("BUY"); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("ParseSide(BUY) err = %v, want ErrInvalidOrder", err)
	}
}

func TestSideOpposite(t *testing.T) {
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Error("Opposite() does not flip sides")
	}
}

func TestValidateOrder(t *testing.T) {
	valid := func() *Order {
		return &Order{ID: "o1", Symbol: "BTC-USDT", Side: Buy, Type: Limit, Price: 30000, Qty: 1}
	}

	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr bool
	}{
		{"valid limit", func(o *Order) {}, false},
		{"valid market", func(o *Order) { o.Type = Market; o.Price = 0 }, false},
		{"valid ioc", func(o *Order) { o.Type = IOC }, false},
		{"valid fok", func(o *Order) { o.Type = FOK }, false},
		{"missing id", func(o *Order) { o.ID = "" }, true},
		{"bad side", func(o *Order) { o.Side = 2 }, true},
		{"bad type", func(o *Order) { o.Type = "stop" }, true},
		{"zero qty", func(o *Order) { o.Qty = 0 }, true},
		{"negative qty", func(o *Order) { o.Qty = -3 }, true},
		{"limit without price", func(o *Order) { o.Price = 0 }, true},
		{"ioc without price", func(o *Order) { o.Type = IOC; o.Price = 0 }, true},
		{"fok without price", func(o *Order) { o.Type = FOK; o.Price = 0 }, true},
		{"market with price", func(o *Order) { o.Type = Market }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			err := ValidateOrder(o)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateOrder() err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
		})
	}

	if err := ValidateOrder(nil); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("ValidateOrder(nil) err = %v, want ErrInvalidOrder", err)
	}
}
