// Package aiport adapts Google's genai SDK to the ports.AICategorizationPort
// contract (C14), grounded on the teacher's chatbot genai provider but
// restructured around a single structured-output batch call instead of a
// conversational chat loop.
package aiport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"txledger/internal/module/ingest/ports"
)

// Config mirrors the teacher's GenAIConfig shape, extended with the
// categorization-specific temperature knob spec section 6 requires
// (<= 0.3).
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Port implements ports.AICategorizationPort over the Gemini API.
type Port struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewPort(ctx context.Context, cfg Config) (*Port, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("aiport: genai API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("aiport: failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	temp := cfg.Temperature
	if temp <= 0 || temp > 0.3 {
		temp = 0.2
	}

	return &Port{client: client, model: model, temperature: float32(temp)}, nil
}

type wireTransaction struct {
	ID              string  `json:"id"`
	Description     string  `json:"description"`
	GBPAmount       string  `json:"gbp_amount"`
	TransactionDate string  `json:"transaction_date"`
}

type wireCategory struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

type wireContextEntry struct {
	Description      string   `json:"description"`
	CategoryID       string   `json:"category_id"`
	CategoryName     string   `json:"category_name"`
	WasManualOverride bool    `json:"was_manual_override"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`
}

type wireResult struct {
	TransactionID   string  `json:"transaction_id"`
	CategoryID      string  `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// CategorizeBatch implements the AI Port payload contract from spec
// section 6: request {transactions, categories, context?}, response
// [{transaction_id, category_id, category_name, confidence_score}].
func (p *Port) CategorizeBatch(ctx context.Context, transactions []ports.AITransactionInput, categories []ports.AICategoryInfo, historicalContext []ports.AIContextEntry) ([]ports.AICategorizationResult, error) {
	prompt, err := buildPrompt(transactions, categories, historicalContext)
	if err != nil {
		return nil, err
	}

	temp := p.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"transaction_id":   {Type: genai.TypeString},
					"category_id":      {Type: genai.TypeString},
					"category_name":    {Type: genai.TypeString},
					"confidence_score": {Type: genai.TypeNumber},
				},
				Required: []string{"transaction_id", "category_id", "category_name", "confidence_score"},
			},
		},
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}

	text := extractText(resp)
	var wireResults []wireResult
	if err := json.Unmarshal([]byte(text), &wireResults); err != nil {
		return nil, fmt.Errorf("aiport: malformed categorization response: %w", err)
	}

	out := make([]ports.AICategorizationResult, 0, len(wireResults))
	for _, r := range wireResults {
		txID, err := uuid.Parse(r.TransactionID)
		if err != nil {
			continue
		}
		catID, err := uuid.Parse(r.CategoryID)
		if err != nil {
			continue
		}
		out = append(out, ports.AICategorizationResult{
			TransactionID:   txID,
			CategoryID:      catID,
			CategoryName:    r.CategoryName,
			ConfidenceScore: r.ConfidenceScore,
		})
	}
	return out, nil
}

func buildPrompt(transactions []ports.AITransactionInput, categories []ports.AICategoryInfo, historicalContext []ports.AIContextEntry) (string, error) {
	wireTx := make([]wireTransaction, len(transactions))
	for i, t := range transactions {
		wireTx[i] = wireTransaction{
			ID:              t.ID.String(),
			Description:     t.Description,
			GBPAmount:       t.GBPAmount.String(),
			TransactionDate: t.TransactionDate.Format("2006-01-02"),
		}
	}
	wireCat := make([]wireCategory, len(categories))
	for i, c := range categories {
		wireCat[i] = wireCategory{ID: c.ID.String(), Name: c.Name, Description: c.Description, Examples: c.Examples}
	}
	wireCtx := make([]wireContextEntry, len(historicalContext))
	for i, c := range historicalContext {
		wireCtx[i] = wireContextEntry{
			Description:       c.Description,
			CategoryID:        c.CategoryID.String(),
			CategoryName:      c.CategoryName,
			WasManualOverride: c.WasManualOverride,
			ConfidenceScore:   c.ConfidenceScore,
		}
	}

	payload := struct {
		Transactions []wireTransaction  `json:"transactions"`
		Categories   []wireCategory     `json:"categories"`
		Context      []wireContextEntry `json:"context,omitempty"`
	}{Transactions: wireTx, Categories: wireCat, Context: wireCtx}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("aiport: failed to encode request: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Assign the most fitting category_id from `categories` to each transaction in `transactions`. ")
	sb.WriteString("Use `context` (past categorization decisions) as guidance when relevant. ")
	sb.WriteString("Respond with a JSON array of {transaction_id, category_id, category_name, confidence_score} ")
	sb.WriteString("where confidence_score is in [0,100]. Never return a category_id absent from `categories`.\n\n")
	sb.Write(body)
	return sb.String(), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// RetryableError marks a genai call failure as retryable for C13: network
// errors and provider 5xx/rate-limit responses all surface through the SDK
// as opaque errors, so the whole class is treated as transient here.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string   { return fmt.Sprintf("aiport: %v", e.Err) }
func (e *RetryableError) Unwrap() error   { return e.Err }
func (e *RetryableError) Retryable() bool { return true }
