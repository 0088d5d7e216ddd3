// Package advisor is the AI collaborator: free-form market chat and
// portfolio risk reports backed by Gemini.
//
// Every failure degrades to fixed placeholder output; callers never see an error.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Placeholder replies.
const (
	MissingKeyReply = "API Key is missing. Please verify your environment configuration."
	EmptyReply      = "I couldn't generate a response at this time."
	ErrorReply      = "I encountered an error analyzing the financial data. Please try again."
)

const systemInstruction = `You are a personal finance assistant on a live market board.
Your persona is professional, analytical, yet accessible.
You can look up real-time market data with Google Search.
When asked about current prices, always verify them with the search tool.
You help with organizing watchlists, explaining market trends in simple terms,
and assessing risk (volatility, drawdown).
Answer concisely. Use Markdown for formatting.`

// Role of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior chat turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// RiskReport is the structured portfolio analysis. The zero value means "no analysis".
type RiskReport struct {
	RiskScore       float64  `json:"riskScore"`   // 0-100, 100 is highest risk
	Volatility      string   `json:"volatility"`  // Low, Medium or High
	MaxDrawdown     string   `json:"maxDrawdown"` // e.g. "-18%"
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// Advisor talks to Gemini. A nil client is valid and yields placeholders.
type Advisor struct {
	client *genai.Client
	model  string
}

// New creates an advisor. An empty apiKey returns an advisor without a client.
func New(ctx context.Context, apiKey, model string) (*Advisor, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		slog.Warn("Gemini API key missing, advisor disabled")
		return &Advisor{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Advisor{client: client, model: model}, nil
}

// Enabled reports whether a client is configured.
func (a *Advisor) Enabled() bool {
	return a != nil && a.client != nil
}

// Chat answers message in the context of history, with search grounding.
func (a *Advisor) Chat(ctx context.Context, history []Message, message string) string {
	if !a.Enabled() {
		return MissingKeyReply
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	chat, err := a.client.Chats.Create(ctx, a.model, config, toContents(history))
	if err != nil {
		slog.Error("Gemini chat create failed", slog.Any("error", err))
		return ErrorReply
	}

	resp, err := chat.Send(ctx, &genai.Part{Text: message})
	if err != nil {
		slog.Error("Gemini chat failed", slog.Any("error", err))
		return ErrorReply
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return EmptyReply
	}
	return text
}

// AnalyzeRisk asks for a structured risk report on assetsJSON.
func (a *Advisor) AnalyzeRisk(ctx context.Context, assetsJSON string) RiskReport {
	if !a.Enabled() {
		return RiskReport{}
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reportSchema,
	}
	prompt := "Analyze the following portfolio for risk, volatility, and diversification. JSON format: " + assetsJSON

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), config)
	if err != nil {
		slog.Error("Gemini risk analysis failed", slog.Any("error", err))
		return RiskReport{}
	}
	return parseReport(resp.Text())
}

var reportSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"riskScore":   {Type: genai.TypeNumber, Description: "0-100 score, 100 being highest risk"},
		"volatility":  {Type: genai.TypeString, Description: "Low, Medium, or High"},
		"maxDrawdown": {Type: genai.TypeString, Description: "Estimated max drawdown percentage"},
		"summary":     {Type: genai.TypeString, Description: "A brief analysis paragraph"},
		"recommendations": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "3 actionable bullet points",
		},
	},
}

func toContents(history []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleModel {
			role = RoleModel
		}
		out = append(out, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	return out
}

// parseReport decodes a model reply, tolerating a Markdown code fence.
// Anything unparsable yields the zero report.
func parseReport(text string) RiskReport {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var r RiskReport
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &r); err != nil {
		slog.Warn("Unparsable risk report", slog.Any("error", err))
		return RiskReport{}
	}
	if r.RiskScore < 0 {
		r.RiskScore = 0
	}
	if r.RiskScore > 100 {
		r.RiskScore = 100
	}
	return r
}

type holding struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Class     string          `json:"class"`
	Price     decimal.Decimal `json:"price"`
	ChangePct decimal.Decimal `json:"changePct"`
	Trend     string          `json:"trend"` // positive, negative or neutral
	Volume    string          `json:"volume"`
}

// PortfolioJSON renders the board as the compact JSON the risk prompt expects.
// Histories are left out.
func PortfolioJSON(table []domain.Instrument) string {
	rows := make([]holding, 0, len(table))
	for _, inst := range table {
		rows = append(rows, holding{
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			Class:     string(inst.Class),
			Price:     inst.Price,
			ChangePct: inst.ChangePct.Round(2),
			Trend:     inst.ChangeDirection(),
			Volume:    inst.Volume,
		})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(b)
}
