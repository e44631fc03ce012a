package stream

import (
	"testing"
	"time"
)

func TestTickFromTrade(t *testing.T) {
	tick := tickFromTrade(wsTrade{
		Symbol:    "BTC/USD",
		Side:      "sell",
		Price:     64250.1,
		Qty:       0.025,
		Timestamp: "2024-03-10T14:30:02.123456Z",
	})
	if tick == nil {
		t.Fatal("tick dropped")
	}
	if tick.Symbol != "BTC" {
		t.Fatalf("symbol = %q, want base without quote", tick.Symbol)
	}
	if tick.Side != "sell" || tick.Source != "kraken" {
		t.Fatalf("side/source = %q/%q", tick.Side, tick.Source)
	}
	want := time.Date(2024, 3, 10, 14, 30, 2, 0, time.UTC).Unix()
	if tick.Timestamp != want {
		t.Fatalf("timestamp = %d, want %d", tick.Timestamp, want)
	}
}

func TestTickFromTradeDropsInvalid(t *testing.T) {
	if tick := tickFromTrade(wsTrade{Symbol: "/USD", Price: 10}); tick != nil {
		t.Fatalf("empty base should be dropped, got %+v", tick)
	}
	if tick := tickFromTrade(wsTrade{Symbol: "ETH/USD", Price: 0}); tick != nil {
		t.Fatalf("zero price should be dropped, got %+v", tick)
	}
}

func TestTickFromTradeBadTimestampFallsBackToNow(t *testing.T) {
	before := time.Now().Unix()
	tick := tickFromTrade(wsTrade{Symbol: "ETH/USD", Price: 3000, Timestamp: "not-a-time"})
	if tick == nil {
		t.Fatal("tick dropped")
	}
	if tick.Timestamp < before {
		t.Fatalf("timestamp %d predates call", tick.Timestamp)
	}
}
