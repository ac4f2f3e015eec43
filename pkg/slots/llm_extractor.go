package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/llm"
)

const extractorSystemPrompt = `You are a slot extractor for a banking chatbot.
Extract the following information from the CURRENT USER MESSAGE ONLY:
%s

CRITICAL RULES:
1. ONLY extract values from the user's current message, NOT from the assistant's questions.
2. Never extract example values that the assistant mentioned (like "USD/EUR/GBP" from the question).
3. If the assistant asked "Which currency? (USD/EUR/GBP)" and user said "i want forex card", return null for currency.
4. Only extract if the user EXPLICITLY provided the information in their current message.
5. Use EXACT slot names from the list above.

Return ONLY a JSON object with extracted values. Use null if NOT found in current user message.
Examples:
- Slots: currency, amount
  User: "I need USD for my trip" -> {"currency": "USD", "amount": null}
- Slots: currency, amount
  User: "EUR" -> {"currency": "EUR", "amount": null}
- Slots: currency, amount
  User: "i want forex card" -> {"currency": null, "amount": null}
- Slots: loan_type
  User: "personal loan" -> {"loan_type": "personal"}`

// LLMExtractor asks an LLM for pending-slot values and falls back to the
// regex patterns when the model finds nothing.
type LLMExtractor struct {
	provider llm.LLMProvider
}

var _ Extractor = &LLMExtractor{}

func NewLLMExtractor(provider llm.LLMProvider) *LLMExtractor {
	return &LLMExtractor{provider: provider}
}

func (e *LLMExtractor) Extract(ctx context.Context, utterance string, pending []string, filled map[string]string) (map[string]ExtractedValue, error) {
	known := make(map[string]bool, len(pending)+len(filled))
	for _, slot := range pending {
		known[slot] = true
	}
	for slot := range filled {
		known[slot] = true
	}

	// Corrections use an explicit protocol; they are the only path that may
	// touch an already-filled slot.
	corrections := ParseCorrections(utterance, known)

	result := make(map[string]ExtractedValue)
	for slot, value := range corrections {
		result[slot] = ExtractedValue{Value: value, Corrected: filled[slot] != ""}
	}

	if len(pending) == 0 {
		return result, nil
	}

	extracted, err := e.askModel(ctx, utterance, pending)
	if err != nil {
		return nil, err
	}

	if len(extracted) == 0 {
		extracted = ExtractPatterns(utterance, pending)
	}

	pendingSet := make(map[string]bool, len(pending))
	for _, slot := range pending {
		pendingSet[slot] = true
	}
	for slot, value := range extracted {
		// the model may only fill pending slots
		if !pendingSet[slot] {
			continue
		}
		if _, exists := result[slot]; exists {
			continue
		}
		result[slot] = ExtractedValue{Value: value}
	}

	return result, nil
}

func (e *LLMExtractor) askModel(ctx context.Context, utterance string, pending []string) (map[string]string, error) {
	history := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(extractorSystemPrompt, strings.Join(pending, ", "))},
		{Role: "user", Content: utterance},
	}

	raw, err := e.provider.Chat(ctx, history, llm.WithTemperature(0), llm.WithJSONMode())
	if err != nil {
		return nil, err
	}

	parsed, err := parseExtraction(raw)
	if err != nil {
		// Malformed model output is a failed extraction, not a capability
		// failure: the caller falls back and re-asks.
		return nil, nil
	}
	return parsed, nil
}

// parseExtraction decodes the model's JSON object, tolerating markdown code
// fences and numeric values. Nulls are dropped.
func parseExtraction(raw string) (map[string]string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for slot, value := range decoded {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" && !strings.EqualFold(trimmed, "null") {
				values[slot] = trimmed
			}
		case float64:
			if v == float64(int64(v)) {
				values[slot] = strconv.FormatInt(int64(v), 10)
			} else {
				values[slot] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case bool:
			values[slot] = strconv.FormatBool(v)
		}
	}
	return values, nil
}
