package analysis

import (
	"math"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
	ts "CoinScope/internal/timeseries"
)

func TestAggregateSentimentWeightedBucket(t *testing.T) {
	at := time.Date(2025, 7, 1, 0, 10, 0, 0, time.UTC)
	posts := []models.SocialPost{
		{Content: "up only", Timestamp: at},                          // weight 1
		{Content: "down bad", Timestamp: at.Add(time.Minute), Likes: 9}, // weight ln(10)
	}
	scores := []float64{1, -1}
	tab := AggregateSentiment(posts, scores, 30*time.Minute)

	if tab.Len() != 1 {
		t.Fatalf("rows = %d, want 1", tab.Len())
	}
	got, _ := tab.Column("Sentiment_Score")
	w2 := math.Log1p(9)
	want := (1 - w2) / (1 + w2)
	if math.Abs(got[0]-want) > 1e-12 {
		t.Fatalf("bucket score = %v, want %v", got[0], want)
	}
	if !tab.Timestamps()[0].Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket should align to the half hour, got %v", tab.Timestamps()[0])
	}
}

func TestAggregateSentimentEmptyBucketNeutral(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	posts := []models.SocialPost{
		{Content: "a", Timestamp: base},
		{Content: "b", Timestamp: base.Add(time.Hour)}, // skips one bucket
	}
	tab := AggregateSentiment(posts, []float64{0.8, -0.4}, 30*time.Minute)
	if tab.Len() != 3 {
		t.Fatalf("rows = %d, want contiguous 3", tab.Len())
	}
	got, _ := tab.Column("Sentiment_Score")
	if got[0] != 0.8 || got[1] != 0 || got[2] != -0.4 {
		t.Fatalf("series = %v, want [0.8 0 -0.4]", got)
	}
}

func TestAggregateSentimentDegenerateInputs(t *testing.T) {
	if tab := AggregateSentiment(nil, nil, 30*time.Minute); !tab.IsEmpty() {
		t.Fatalf("no posts should yield an empty table")
	}
	posts := []models.SocialPost{{Content: "x", Timestamp: time.Now()}}
	if tab := AggregateSentiment(posts, []float64{1, 2}, 30*time.Minute); !tab.IsEmpty() {
		t.Fatalf("misaligned scores should yield an empty table")
	}
}

func TestBuildSentimentZScoreAndExtreme(t *testing.T) {
	n := 49
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	vals := make([]float64, n)
	for i := range index {
		index[i] = base.Add(time.Duration(i) * 30 * time.Minute)
	}
	vals[n-1] = 10 // lone spike after a flat window

	tab := ts.New(index)
	if err := tab.Set("Sentiment_Score", vals); err != nil {
		t.Fatalf("set score: %v", err)
	}
	out, err := BuildSentiment(tab, DefaultWindows())
	if err != nil {
		t.Fatalf("BuildSentiment: %v", err)
	}

	z, _ := out.Column("Sentiment_ZScore")
	extreme, _ := out.Column("Extreme_Sentiment")

	// Flat window: zero deviation, no z-score, extreme reads neutral.
	if !ts.IsMissing(z[47]) || extreme[47] != 0 {
		t.Fatalf("flat window: z=%v extreme=%v, want missing and 0", z[47], extreme[47])
	}
	if ts.IsMissing(z[48]) || z[48] < extremeZ {
		t.Fatalf("spike z = %v, want defined and beyond %v", z[48], extremeZ)
	}
	if extreme[48] != z[48] {
		t.Fatalf("extreme = %v, want the z value %v", extreme[48], z[48])
	}

	ma, _ := out.Column("Sentiment_MA_8")
	if !ts.IsMissing(ma[6]) || ts.IsMissing(ma[7]) {
		t.Fatalf("MA warmup boundary wrong: %v %v", ma[6], ma[7])
	}
	if !out.Has("Sentiment_Mean") || !out.Has("Sentiment_Std") {
		t.Fatalf("mean and std stay as columns, got %v", out.Columns())
	}
}
