package models

// Requests for the public HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=5000"`
}

// MarketAnalysisRequest adds the market-only knobs: column set and bar origin.
type MarketAnalysisRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=5000"`
	Mode   string `query:"mode" json:"mode" default:"concise" validate:"oneof=concise full"`
	Source string `query:"source" json:"source" default:"file" validate:"oneof=file store"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=2000"`
	TF     string `query:"tf" json:"tf" default:"30m" validate:"oneof=1m 5m 30m"`
	From   string `query:"from" json:"from" validate:"omitempty"`
	To     string `query:"to" json:"to" validate:"omitempty"`
}

type AdviseRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type AttentionRequest struct {
	Symbols []string `query:"symbols" json:"symbols" validate:"omitempty,max=50,dive,required"`
}
