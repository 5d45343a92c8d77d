package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ckocyigit/duoledger/internal/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini classifies messages with the Google Gemini generateContent API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a Gemini classifier.
type GeminiOption func(*Gemini)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = url }
}

// WithTimeout bounds each classification call. The model call has no
// cancellation contract of its own; a timeout counts as a classifier failure
// and degrades to the normal fallback.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) { g.client.Timeout = d }
}

// NewGemini creates a Gemini classifier for the given API key and model name
// (e.g. "gemini-pro").
func NewGemini(apiKey, model string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Classify implements Classifier. It never returns an error: any failure is
// logged and mapped to the normal/zero-confidence fallback so the message is
// still delivered as plain chat.
func (g *Gemini) Classify(ctx context.Context, text, senderName, receiverName string) models.Classification {
	c, err := g.classify(ctx, text, senderName, receiverName)
	if err != nil {
		slog.Warn("classification unavailable, falling back to normal", "error", err)
		return models.Fallback()
	}
	return c
}

func (g *Gemini) classify(ctx context.Context, text, senderName, receiverName string) (models.Classification, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(text, senderName, receiverName)}}}},
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.Classification{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.Classification{}, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Classification{}, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Classification{}, fmt.Errorf("read response: %w", err)
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return models.Classification{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return models.Classification{}, fmt.Errorf("empty model response")
	}

	c, ok := Parse(gr.Candidates[0].Content.Parts[0].Text)
	if !ok {
		return models.Classification{}, fmt.Errorf("unparseable model output")
	}
	return c, nil
}

func buildPrompt(text, senderName, receiverName string) string {
	return fmt.Sprintf(`Analyze the user message and categorize it into one of the following types:
1. TASK: Something that needs to be acquired or done (future tense, implies an action).
2. EXPENSE: Something was acquired or done, and a cost is mentioned (past tense, implies a transaction).
3. PAYMENT: The sender is paying back a debt to the receiver.
4. NORMAL: A regular conversational message.

Consider the context of a two-person household or shared expense scenario.

Sender: %s
Receiver: %s
Message: %q

Return the analysis in JSON format. Ensure the JSON is valid and contains only the specified fields.

Example for TASK:
Message: "mop alinacak"
Output: {"type": "task", "item": "mop", "amount": null, "confidence": 0.95}

Example for EXPENSE:
Message: "mop aldim 300tl"
Output: {"type": "expense", "item": "mop", "amount": 300, "confidence": 0.98}

Example for PAYMENT:
Message: "sana 100tl gonderdim"
Output: {"type": "payment", "item": null, "amount": 100, "confidence": 0.9}

Example for NORMAL:
Message: "Merhaba nasilsin?"
Output: {"type": "normal", "item": null, "amount": null, "confidence": 1.0}

If an item or amount cannot be clearly extracted for TASK or EXPENSE, set them to null.
Confidence should be a float between 0 and 1.`, senderName, receiverName, text)
}
