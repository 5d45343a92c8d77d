// Package classifier infers the intent of a chat message.
//
// The external model is a black box; this package owns the boundary: raw,
// loosely-shaped model output is normalized into the closed
// models.Classification variant here, and every failure mode (transport
// error, timeout, malformed JSON, unknown kind, missing required fields)
// degrades to the normal/zero-confidence fallback instead of surfacing an
// error. Callers never see a classification failure.
package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
)

// Classifier maps raw message text and participant names to a classification.
// Implementations must not return errors; they fall back to
// models.Fallback() internally.
type Classifier interface {
	Classify(ctx context.Context, text, senderName, receiverName string) models.Classification
}

// Func adapts a plain function to the Classifier interface. Used in tests.
type Func func(ctx context.Context, text, senderName, receiverName string) models.Classification

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, text, senderName, receiverName string) models.Classification {
	return f(ctx, text, senderName, receiverName)
}

// rawResult is the shape the model is prompted to emit.
type rawResult struct {
	Type       string           `json:"type"`
	Item       *string          `json:"item"`
	Amount     *json.Number     `json:"amount"`
	Confidence *json.RawMessage `json:"confidence"`
}

// Parse decodes raw model output into a Classification, enforcing the closed
// variant. Markdown code fences around the JSON are tolerated. Any input that
// cannot be turned into a valid variant yields the fallback and ok=false.
func Parse(raw string) (models.Classification, bool) {
	raw = stripFences(raw)

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var r rawResult
	if err := dec.Decode(&r); err != nil {
		return models.Fallback(), false
	}

	kind := models.Kind(strings.ToLower(strings.TrimSpace(r.Type)))
	if !kind.Valid() {
		return models.Fallback(), false
	}

	c := models.Classification{Kind: kind}

	if r.Item != nil {
		c.Item = strings.TrimSpace(*r.Item)
	}
	if r.Amount != nil {
		amount, err := decimal.NewFromString(r.Amount.String())
		if err != nil || amount.Sign() <= 0 {
			return models.Fallback(), false
		}
		c.Amount = &amount
	}
	if r.Confidence != nil {
		var conf float64
		if err := json.Unmarshal(*r.Confidence, &conf); err == nil {
			c.Confidence = clamp01(conf)
		}
	}

	// Per-variant required fields.
	switch kind {
	case models.KindTask:
		if c.Item == "" {
			return models.Fallback(), false
		}
		c.Amount = nil
	case models.KindExpense:
		if c.Item == "" || c.Amount == nil {
			return models.Fallback(), false
		}
	case models.KindPayment:
		c.Item = ""
	case models.KindNormal:
		c.Item = ""
		c.Amount = nil
	}

	return c, true
}

// stripFences removes a surrounding markdown code fence, which some models
// wrap around their JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
