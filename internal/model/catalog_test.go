package model

import (
	"encoding/json"
	"testing"
)

func TestMoney_String(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{4599, "45.99"},
		{10198, "101.98"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.m), got, tt.want)
		}
	}
}

func TestMoney_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: 10198})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"total":101.98}` {
		t.Errorf("json = %s", b)
	}
}

func TestSummarize_TwoMonsterasAndAPothos(t *testing.T) {
	lines := []CartLine{
		{CartEntry: CartEntry{Quantity: 2}, UnitPrice: 4599},
		{CartEntry: CartEntry{Quantity: 1}, UnitPrice: 1000},
	}
	s := Summarize(lines)
	if s.TotalPrice.String() != "101.98" {
		t.Errorf("TotalPrice = %s, want 101.98", s.TotalPrice)
	}
	if s.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", s.TotalItems)
	}
}

func TestAPIError_Is_ComparesCode(t *testing.T) {
	a := NewCartEntryNotFoundError("a")
	b := NewCartEntryNotFoundError("b")
	if !a.Is(b) {
		t.Error("errors with same code should match")
	}
	if a.Is(NewItemNotFoundError("a")) {
		t.Error("errors with different codes should not match")
	}
}
