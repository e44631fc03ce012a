package analysis

import (
	"math"
	"time"

	"CoinScope/internal/domain/models"
	"CoinScope/internal/timeseries"
)

// extremeZ is the z-score magnitude beyond which sentiment counts as
// extreme.
const extremeZ = 2.0

// postWeight is log1p of the engagement count; an unengaged post still
// carries unit weight.
func postWeight(p models.SocialPost) float64 {
	engagement := p.Likes + p.Comments
	if engagement <= 0 {
		return 1
	}
	return math.Log1p(float64(engagement))
}

// AggregateSentiment buckets scored posts into a Sentiment_Score series at
// the given granularity. The index spans the contiguous bucket range from
// first to last post; buckets without posts, and buckets whose weighted
// mean is not finite, score 0 (neutral). scores must align with posts.
func AggregateSentiment(posts []models.SocialPost, scores []float64, granularity time.Duration) *timeseries.Table {
	if len(posts) == 0 || len(posts) != len(scores) || granularity <= 0 {
		return timeseries.New(nil)
	}

	type accum struct {
		weighted float64
		weight   float64
	}
	buckets := make(map[time.Time]*accum)
	var first, last time.Time
	for i, p := range posts {
		b := p.Timestamp.UTC().Truncate(granularity)
		if first.IsZero() || b.Before(first) {
			first = b
		}
		if last.IsZero() || b.After(last) {
			last = b
		}
		a := buckets[b]
		if a == nil {
			a = &accum{}
			buckets[b] = a
		}
		w := postWeight(p)
		a.weighted += scores[i] * w
		a.weight += w
	}

	n := int(last.Sub(first)/granularity) + 1
	index := make([]time.Time, n)
	values := make([]float64, n)
	for i := range index {
		b := first.Add(time.Duration(i) * granularity)
		index[i] = b
		if a, ok := buckets[b]; ok && a.weight > 0 {
			v := a.weighted / a.weight
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i] = v
			}
		}
	}

	t := timeseries.New(index)
	_ = t.Set("Sentiment_Score", values)
	return t
}

// BuildSentiment derives the smoothed and normalized sentiment columns
// over an aggregated score series.
func BuildSentiment(t *timeseries.Table, w Windows) (*timeseries.Table, error) {
	if t.IsEmpty() {
		return t, nil
	}
	score, ok := t.Column("Sentiment_Score")
	if !ok {
		return t, nil
	}
	cw := &columnWriter{t: t}

	cw.set("Sentiment_MA_8", timeseries.Mean(score, w.SentimentSmooth))

	mean := timeseries.Mean(score, w.Daily)
	std := timeseries.Std(score, w.Daily)
	cw.set("Sentiment_Mean", mean)
	cw.set("Sentiment_Std", std)

	z := timeseries.Div(timeseries.Sub(score, mean), std)
	cw.set("Sentiment_ZScore", z)

	extreme := make([]float64, len(z))
	for i, v := range z {
		if math.Abs(v) > extremeZ { // NaN compares false
			extreme[i] = v
		}
	}
	cw.set("Extreme_Sentiment", extreme)

	if cw.err != nil {
		return nil, cw.err
	}
	return t, nil
}
