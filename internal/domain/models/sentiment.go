package models

import "time"

// SocialPost is one social-media item collected for sentiment scoring.
// Sentiment is filled by the scorer; nil means not yet scored.
type SocialPost struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Sentiment *float64  `json:"sentiment,omitempty"`
}

// SocialDocument is the on-disk social resource for one symbol.
type SocialDocument struct {
	Symbol string       `json:"symbol"`
	Posts  []SocialPost `json:"posts"`
}
