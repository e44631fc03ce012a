package repository

// Metrics records operational counters without binding the pipeline to a
// particular backend. The prometheus recorder in pkg/metrics implements it.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
