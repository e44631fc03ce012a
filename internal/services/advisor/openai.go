package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"CoinScope/internal/domain/models"
	domservice "CoinScope/internal/domain/service"
	"CoinScope/pkg/config"
	xhttp "CoinScope/pkg/http"
)

const (
	adviseSystemPrompt = "You are an investment analysis assistant. " +
		"Only use the provided structured signals and summaries. " +
		"If key data is missing or conflicting, prefer HOLD with low strength. " +
		"Return a single JSON object with keys: symbol, advice_action (buy|hold|sell), " +
		"advice_strength (high|medium|low), reason, predicted_at (unix seconds). " +
		"Do not include any text outside the JSON."

	attentionSystemPrompt = "You are a crypto market analyst. " +
		"Review the market context and pick exactly ONE symbol from the candidates " +
		"that needs the most immediate attention (opportunity or risk). " +
		"Return ONLY a JSON object with keys: selected (list with 1 item), generated_at. " +
		"Each item: {symbol, attention_score (0..1), reasons (array of strings)}."

	maxContextChars = 5000
)

// OpenAIAdvisor produces advices and attention picks through the OpenAI chat
// completions API. Temperature is pinned to zero and the model is instructed
// to emit strict JSON; anything that fails validation is an error rather than
// a coerced value, so the queue's retry policy decides what happens next.
type OpenAIAdvisor struct {
	baseURL   string
	model     string
	apiKey    string
	maxTokens int
	client    *xhttp.Client
	validate  *validator.Validate
	now       func() time.Time
}

var (
	_ domservice.Advisor           = (*OpenAIAdvisor)(nil)
	_ domservice.AttentionSelector = (*OpenAIAdvisor)(nil)
)

func NewOpenAIAdvisor(cfg *config.Config) *OpenAIAdvisor {
	timeout := cfg.Advisory.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.Advisory.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &OpenAIAdvisor{
		baseURL:   strings.TrimRight(cfg.Advisory.BaseURL, "/"),
		model:     cfg.Advisory.Model,
		apiKey:    cfg.Advisory.APIKey,
		maxTokens: maxTokens,
		client:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		validate:  validator.New(),
		now:       time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// completeJSON runs one chat completion and decodes the returned content as a
// JSON document into dest.
func (a *OpenAIAdvisor) completeJSON(ctx context.Context, system, user string, dest interface{}) error {
	if a.apiKey == "" {
		return fmt.Errorf("advisory api key not configured")
	}
	var resp chatResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    a.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + a.apiKey,
		},
		Body: chatRequest{
			Model: a.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: 0,
			MaxTokens:   a.maxTokens,
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion: empty choices")
	}
	content := trimJSONFences(resp.Choices[0].Message.Content)
	if content == "" {
		return fmt.Errorf("chat completion: empty content")
	}
	if err := json.Unmarshal([]byte(content), dest); err != nil {
		return fmt.Errorf("chat completion: content is not valid JSON: %w", err)
	}
	return nil
}

type adviceResponse struct {
	Symbol      string `json:"symbol" validate:"required"`
	Action      string `json:"advice_action" validate:"required,oneof=buy hold sell"`
	Strength    string `json:"advice_strength" validate:"required,oneof=high medium low"`
	Reason      string `json:"reason"`
	PredictedAt int64  `json:"predicted_at"`
}

func (a *OpenAIAdvisor) Advise(ctx context.Context, in domservice.AdvisoryInput) (*models.Advice, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("advise: empty symbol")
	}

	marketData := map[string]interface{}{}
	if in.Stats != nil {
		marketData["stats"] = in.Stats
	}
	if in.LastBar != nil {
		marketData["last_bar"] = in.LastBar
	}
	payload := map[string]interface{}{
		"symbol":           symbol,
		"summary":          in.Summary,
		"market_data":      marketData,
		"analysis_results": in.Analyses,
		"decision_policy": map[string]string{
			"strong_consensus":  "Multiple independent signals strongly agree -> buy/sell with high.",
			"mixed_signals":     "Signals conflict or are weak -> medium.",
			"insufficient_data": "Missing key signals/data -> hold with low.",
		},
	}
	user, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("advise: marshal payload: %w", err)
	}

	var out adviceResponse
	if err := a.completeJSON(ctx, adviseSystemPrompt, string(user), &out); err != nil {
		return nil, fmt.Errorf("advise %s: %w", symbol, err)
	}
	if err := a.validate.StructCtx(ctx, out); err != nil {
		return nil, fmt.Errorf("advise %s: invalid model output: %w", symbol, err)
	}
	if !strings.EqualFold(out.Symbol, symbol) {
		return nil, fmt.Errorf("advise %s: model answered for %q", symbol, out.Symbol)
	}

	predictedAt := out.PredictedAt
	if predictedAt <= 0 {
		predictedAt = a.now().Unix()
	}

	// Price attribution stays on our side of the fence: the resource stats
	// win, then the last bar close; a model-invented price is never trusted.
	var price float64
	switch {
	case in.Stats != nil && in.Stats.CloseLatest != 0:
		price = in.Stats.CloseLatest
	case in.LastBar != nil && in.LastBar.Close != 0:
		price = in.LastBar.Close
	default:
		return nil, fmt.Errorf("advise %s: no price available", symbol)
	}

	return &models.Advice{
		Symbol:      symbol,
		Action:      out.Action,
		Strength:    out.Strength,
		Reason:      strings.TrimSpace(out.Reason),
		PredictedAt: predictedAt,
		Price:       &price,
	}, nil
}

type attentionItem struct {
	Symbol         string   `json:"symbol"`
	AttentionScore float64  `json:"attention_score"`
	Reasons        []string `json:"reasons"`
}

type attentionResponse struct {
	Selected json.RawMessage `json:"selected"`
}

func (a *OpenAIAdvisor) SelectAttention(ctx context.Context, candidates []string, summaries map[string]string) (*models.AttentionPick, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("select attention: no candidates")
	}

	var sb strings.Builder
	for _, sym := range candidates {
		if txt, ok := summaries[sym]; ok && txt != "" {
			fmt.Fprintf(&sb, "%s: %s\n", sym, txt)
		}
	}
	contextText := sb.String()
	if len(contextText) > maxContextChars {
		contextText = contextText[:maxContextChars]
	}

	user, err := json.Marshal(map[string]interface{}{
		"candidates":       candidates,
		"market_data":      contextText,
		"score_definition": "0 (no attention) .. 1 (critical attention)",
	})
	if err != nil {
		return nil, fmt.Errorf("select attention: marshal payload: %w", err)
	}

	var out attentionResponse
	if err := a.completeJSON(ctx, attentionSystemPrompt, string(user), &out); err != nil {
		return nil, fmt.Errorf("select attention: %w", err)
	}
	item, err := decodeSelected(out.Selected)
	if err != nil {
		return nil, fmt.Errorf("select attention: %w", err)
	}

	sym := strings.ToUpper(strings.TrimSpace(item.Symbol))
	if sym == "" {
		return nil, fmt.Errorf("select attention: selected item missing symbol")
	}
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[strings.ToUpper(c)] = true
	}
	if !allowed[sym] {
		return nil, fmt.Errorf("select attention: %q not in candidates %v", sym, candidates)
	}

	score := item.AttentionScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	reasons := item.Reasons
	if len(reasons) > 5 {
		reasons = reasons[:5]
	}

	return &models.AttentionPick{
		Symbol:         sym,
		AttentionScore: score,
		Reasons:        reasons,
	}, nil
}

// decodeSelected accepts both a one-item list and a bare object, which models
// produce interchangeably.
func decodeSelected(raw json.RawMessage) (*attentionItem, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("selected is missing")
	}
	var list []attentionItem
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("selected is empty")
		}
		return &list[0], nil
	}
	var single attentionItem
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("selected has unexpected shape")
	}
	return &single, nil
}

// trimJSONFences strips a markdown code fence wrapper when present.
func trimJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
