package models

// Advice is a stored trading recommendation for one symbol. Action is one
// of buy|hold|sell and Strength one of high|medium|low, enforced where the
// model output is decoded. JSON names match both the persisted row and the
// public contract; optional fields are dropped from responses when unset.
type Advice struct {
	ID          int64    `json:"id,omitempty"`
	Symbol      string   `json:"symbol"`
	Action      string   `json:"advice_action"`
	Strength    string   `json:"advice_strength"`
	Reason      string   `json:"reason,omitempty"`
	PredictedAt int64    `json:"predicted_at,omitempty"`
	CreatedAt   int64    `json:"created_at,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// AttentionPick is the single symbol highlighted for reviewer attention.
// The score is clamped to [0, 1] and at most five reasons are kept.
type AttentionPick struct {
	Symbol         string   `json:"symbol"`
	AttentionScore float64  `json:"attention_score"`
	Reasons        []string `json:"reasons,omitempty"`
}

// AttentionResult wraps a pick with its generation timestamp.
type AttentionResult struct {
	Selected    *AttentionPick `json:"selected"`
	GeneratedAt int64          `json:"generated_at"`
}
