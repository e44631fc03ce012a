package usecase

import (
	"strings"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
	"CoinScope/internal/timeseries"
)

func TestPromptSectionsDistinguishFailureFromNoData(t *testing.T) {
	uc := &AdvisoryUseCase{}

	idx := []time.Time{time.Unix(1700000000, 0).UTC(), time.Unix(1700001800, 0).UTC()}
	market := timeseries.New(idx)
	if err := market.Set("Close_Price", []float64{100, 101}); err != nil {
		t.Fatal(err)
	}

	bundle := &models.AnalysisBundle{
		Symbol: "BTC",
		Market: market,
		Chain:  timeseries.New(nil),
		Errors: map[string]string{"sentiment": "scorer unreachable"},
	}

	sections := uc.promptSections(bundle)

	if got := sections["sentiment"]; got != "error: scorer unreachable" {
		t.Fatalf("sentiment section = %q", got)
	}
	// an empty table and an absent one both read "no data", distinct from
	// a failure
	if got := sections["chain"]; got != "no data" {
		t.Fatalf("chain section = %q, want no data", got)
	}
	if got := sections["dev"]; got != "no data" {
		t.Fatalf("dev section = %q, want no data", got)
	}
	m := sections["market"]
	if !strings.HasPrefix(m, "rows=2 cols=Close_Price tail=") {
		t.Fatalf("market section = %q", m)
	}
	if !strings.Contains(m, "101") {
		t.Fatalf("market tail missing last close: %q", m)
	}
	if _, ok := sections["social"]; ok {
		t.Fatal("social section present without a configured social dir")
	}
}
