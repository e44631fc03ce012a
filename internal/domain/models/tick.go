package models

// Tick is a single trade print from the exchange stream.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
	Side      string // "buy" or "sell" when the venue reports it
	Source    string // venue that produced the print, e.g. "kraken"
}

// TickMessage is the wire form ticks travel in on the kafka topic. The
// short keys are shared with the pre-rewrite feed, so consumers of either
// era decode the same payload.
type TickMessage struct {
	Symbol string  `json:"symbol"`
	T      int64   `json:"t"` // event time, unix seconds (ms tolerated on decode)
	C      float64 `json:"c"` // trade price
	V      float64 `json:"v"` // trade volume
}
