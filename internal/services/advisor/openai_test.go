package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CoinScope/internal/domain/models"
	domservice "CoinScope/internal/domain/service"
	"CoinScope/pkg/config"
)

func fakeOpenAI(t *testing.T, content string, gotReq *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decode chat request: %v", err)
			}
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testAdvisor(t *testing.T, baseURL string) *OpenAIAdvisor {
	t.Helper()
	cfg := &config.Config{}
	cfg.Advisory.BaseURL = baseURL
	cfg.Advisory.Model = "gpt-4o"
	cfg.Advisory.APIKey = "test-key"
	cfg.Advisory.MaxTokens = 512
	cfg.Advisory.Timeout = 5 * time.Second
	return NewOpenAIAdvisor(cfg)
}

func adviseInput(stats *models.Stats24h, last *models.ResourceBar) domservice.AdvisoryInput {
	return domservice.AdvisoryInput{
		Symbol:   "BTC",
		Summary:  "market: rows=48 cols=Close_Price,RSI_14",
		Analyses: map[string]string{"market": "tail..."},
		Stats:    stats,
		LastBar:  last,
	}
}

func TestAdviseHappyPath(t *testing.T) {
	content := `{"symbol":"BTC","advice_action":"buy","advice_strength":"high","reason":"momentum confirmed","predicted_at":1700000000}`
	var req chatRequest
	srv := fakeOpenAI(t, content, &req)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	adv, err := a.Advise(context.Background(), adviseInput(&models.Stats24h{CloseLatest: 64000.5}, &models.ResourceBar{Close: 63999}))
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if req.Model != "gpt-4o" || req.Temperature != 0 || len(req.Messages) != 2 {
		t.Fatalf("chat request = %+v", req)
	}
	if !strings.Contains(req.Messages[1].Content, `"decision_policy"`) {
		t.Fatal("user payload missing decision policy")
	}
	if adv.Action != "buy" || adv.Strength != "high" || adv.Symbol != "BTC" {
		t.Fatalf("advice = %+v", adv)
	}
	if adv.PredictedAt != 1700000000 {
		t.Fatalf("predicted_at = %d", adv.PredictedAt)
	}
	if adv.Price == nil || *adv.Price != 64000.5 {
		t.Fatalf("price should come from stats.close_latest, got %v", adv.Price)
	}
}

func TestAdvisePriceFallsBackToLastBar(t *testing.T) {
	content := `{"symbol":"BTC","advice_action":"hold","advice_strength":"low","reason":"thin data"}`
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	adv, err := a.Advise(context.Background(), adviseInput(nil, &models.ResourceBar{Close: 123.45}))
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if adv.Price == nil || *adv.Price != 123.45 {
		t.Fatalf("price = %v, want last bar close", adv.Price)
	}
	if adv.PredictedAt != fixed.Unix() {
		t.Fatalf("predicted_at = %d, want now fallback %d", adv.PredictedAt, fixed.Unix())
	}
}

func TestAdviseNoPriceIsError(t *testing.T) {
	content := `{"symbol":"BTC","advice_action":"hold","advice_strength":"low"}`
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	if _, err := a.Advise(context.Background(), adviseInput(nil, nil)); err == nil {
		t.Fatal("want error when no price source exists")
	}
}

func TestAdviseRejectsInvalidOutput(t *testing.T) {
	cases := map[string]string{
		"bad action":      `{"symbol":"BTC","advice_action":"yolo","advice_strength":"high"}`,
		"bad strength":    `{"symbol":"BTC","advice_action":"buy","advice_strength":"extreme"}`,
		"symbol mismatch": `{"symbol":"ETH","advice_action":"buy","advice_strength":"high"}`,
		"not json":        `the market looks great`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			srv := fakeOpenAI(t, content, nil)
			defer srv.Close()
			a := testAdvisor(t, srv.URL)
			if _, err := a.Advise(context.Background(), adviseInput(&models.Stats24h{CloseLatest: 1}, nil)); err == nil {
				t.Fatal("want validation error")
			}
		})
	}
}

func TestAdviseStripsCodeFences(t *testing.T) {
	content := "```json\n{\"symbol\":\"BTC\",\"advice_action\":\"sell\",\"advice_strength\":\"medium\",\"reason\":\"r\",\"predicted_at\":5}\n```"
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	adv, err := a.Advise(context.Background(), adviseInput(&models.Stats24h{CloseLatest: 2}, nil))
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if adv.Action != "sell" {
		t.Fatalf("action = %q", adv.Action)
	}
}

func TestSelectAttentionClampsAndTruncates(t *testing.T) {
	content := `{"selected":[{"symbol":"eth","attention_score":1.7,"reasons":["a","b","c","d","e","f","g"]}],"generated_at":1}`
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	pick, err := a.SelectAttention(context.Background(), []string{"BTC", "ETH"}, map[string]string{"ETH": "volume spike"})
	if err != nil {
		t.Fatalf("SelectAttention: %v", err)
	}
	if pick.Symbol != "ETH" {
		t.Fatalf("symbol = %q", pick.Symbol)
	}
	if pick.AttentionScore != 1.0 {
		t.Fatalf("score = %v, want clamp to 1", pick.AttentionScore)
	}
	if len(pick.Reasons) != 5 {
		t.Fatalf("reasons = %d, want 5", len(pick.Reasons))
	}
}

func TestSelectAttentionAcceptsBareObject(t *testing.T) {
	content := `{"selected":{"symbol":"BTC","attention_score":-0.2,"reasons":[]}}`
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	pick, err := a.SelectAttention(context.Background(), []string{"BTC"}, nil)
	if err != nil {
		t.Fatalf("SelectAttention: %v", err)
	}
	if pick.AttentionScore != 0 {
		t.Fatalf("score = %v, want clamp to 0", pick.AttentionScore)
	}
}

func TestSelectAttentionRejectsForeignSymbol(t *testing.T) {
	content := `{"selected":[{"symbol":"DOGE","attention_score":0.9,"reasons":["hype"]}]}`
	srv := fakeOpenAI(t, content, nil)
	defer srv.Close()

	a := testAdvisor(t, srv.URL)
	if _, err := a.SelectAttention(context.Background(), []string{"BTC", "ETH"}, nil); err == nil {
		t.Fatal("want error for symbol outside candidate set")
	}
}
