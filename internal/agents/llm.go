package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "tradebot/internal/errors"
	"tradebot/internal/models"
)

const llmSystemPrompt = `You are a trading decision engine. Given a symbol, its signal score,
the current price and recent OHLCV candles, respond with a single JSON object:
{"action":"BUY"|"SELL"|"HOLD","confidence":0.0-1.0,"stop_loss_pct":0.0-1.0,"position_size_pct":0.0-1.0,"take_profit_pct":0.0-1.0,"reasoning":"..."}
All *_pct values are fractions of price or equity (0.05 means 5%). Respond with JSON only.`

// LLMSource asks an OpenAI chat model for a trade decision. Responses
// that cannot be parsed into a decision are reported as AgentErrors so
// the caller falls through to no-trade.
type LLMSource struct {
	client *openai.Client
	model  string
}

// NewLLMSource creates an LLM-backed decision source.
func NewLLMSource(apiKey, model string) *LLMSource {
	return &LLMSource{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// llmDecision is the JSON shape the model is instructed to return.
type llmDecision struct {
	Action          string  `json:"action"`
	Confidence      float64 `json:"confidence"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	PositionSizePct float64 `json:"position_size_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	Reasoning       string  `json:"reasoning"`
}

// Decide sends the market context to the model and parses its reply.
func (l *LLMSource) Decide(ctx context.Context, mc MarketContext) (*models.Decision, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(mc)},
		},
	})
	if err != nil {
		return nil, apperrors.NewAgentError("llm", "complete", fmt.Errorf("openai completion failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewAgentError("llm", "complete", fmt.Errorf("no response from openai"))
	}

	return parseDecision(mc, resp.Choices[0].Message.Content)
}

func buildPrompt(mc MarketContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nSignal score: %.4f\nCurrent price: %.2f\n", mc.Signal.Symbol, mc.Signal.Score, mc.Price)
	if mc.Signal.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", mc.Signal.Sector)
	}
	if len(mc.Candles) > 0 {
		b.WriteString("Recent candles (time open high low close volume):\n")
		for _, c := range mc.Candles {
			fmt.Fprintf(&b, "%s %.2f %.2f %.2f %.2f %d\n",
				c.Timestamp.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
		}
	}
	return b.String()
}

// parseDecision extracts the JSON object from the model reply. Models
// sometimes wrap JSON in code fences, so strip those before decoding.
func parseDecision(mc MarketContext, raw string) (*models.Decision, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed llmDecision
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, apperrors.NewAgentError("llm", "parse", fmt.Errorf("malformed decision json: %w", err))
	}

	var action models.Action
	switch strings.ToUpper(parsed.Action) {
	case "BUY":
		action = models.ActionBuy
	case "SELL":
		action = models.ActionSell
	case "HOLD":
		action = models.ActionHold
	default:
		return nil, apperrors.NewAgentError("llm", "parse", fmt.Errorf("unknown action %q", parsed.Action))
	}

	return &models.Decision{
		Symbol:                   mc.Signal.Symbol,
		Timestamp:                mc.Signal.Timestamp,
		Action:                   action,
		Confidence:               parsed.Confidence,
		SuggestedStopLossPct:     parsed.StopLossPct,
		SuggestedPositionSizePct: parsed.PositionSizePct,
		SuggestedTakeProfitPct:   parsed.TakeProfitPct,
		Reasoning:                parsed.Reasoning,
	}, nil
}
