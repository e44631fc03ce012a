package models

import "time"

// BlockSummary is the chain-production group of an on-chain snapshot.
type BlockSummary struct {
	Height       int64   `json:"height"`
	BlockTimeAvg float64 `json:"block_time_avg"`
}

// TransactionMetrics is the throughput group of an on-chain snapshot.
type TransactionMetrics struct {
	Count     int64   `json:"count"`
	VolumeUSD float64 `json:"volume_usd"`
	AvgFeeUSD float64 `json:"avg_fee_usd"`
}

// NetworkActivity is the address-activity group of an on-chain snapshot.
type NetworkActivity struct {
	ActiveAddresses int64 `json:"active_addresses"`
	NewAddresses    int64 `json:"new_addresses"`
}

// ValuationMetrics is the valuation group of an on-chain snapshot.
type ValuationMetrics struct {
	UTXORealizedPrice float64 `json:"utxo_realized_price"`
}

// SupplyDistribution is the holder-concentration group of an on-chain snapshot.
type SupplyDistribution struct {
	WhaleAggregateBalance float64 `json:"whale_aggregate_balance"`
}

// ChainSnapshot is one on-chain sample for a symbol.
type ChainSnapshot struct {
	Timestamp          time.Time          `json:"timestamp"`
	BlockSummary       BlockSummary       `json:"block_summary"`
	TransactionMetrics TransactionMetrics `json:"transaction_metrics"`
	NetworkActivity    NetworkActivity    `json:"network_activity"`
	ValuationMetrics   ValuationMetrics   `json:"valuation_metrics"`
	SupplyDistribution SupplyDistribution `json:"supply_distribution"`
}

// ChainDocument is the on-disk on-chain resource for one symbol.
type ChainDocument struct {
	Symbol    string            `json:"symbol"`
	Source    string            `json:"source"`
	Meta      map[string]string `json:"meta,omitempty"`
	ChainData []ChainSnapshot   `json:"chain_data"`
}
