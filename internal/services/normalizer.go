package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/aideas-relay/internal/llm"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
)

// Normalize converts a raw provider answer to a token sequence.
//
// Pre-parsed output keeps its elements, one token each. Text output is read as a
// bracketed, comma-separated list: one leading "[" and one trailing "]" are dropped,
// the rest is split on "," and every piece is trimmed. Tokens are never validated
// against a musical vocabulary.
func Normalize(resp *llm.CompletionResponse) models.TokenSequence {
	if resp == nil {
		return models.TokenSequence{}
	}
	if resp.Structured {
		return normalizeItems(resp.Items)
	}
	return NormalizeText(resp.Text)
}

// NormalizeText splits bracketed, comma-separated text into tokens
func NormalizeText(text string) models.TokenSequence {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")

	if strings.TrimSpace(body) == "" {
		return models.TokenSequence{}
	}

	parts := strings.Split(body, ",")
	tokens := make(models.TokenSequence, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, strings.TrimSpace(part))
	}
	return tokens
}

func normalizeItems(items []any) models.TokenSequence {
	tokens := make(models.TokenSequence, 0, len(items))
	for _, item := range items {
		tokens = append(tokens, tokenString(item))
	}
	return tokens
}

// tokenString renders one decoded element in the form a client would see it in the JSON source
func tokenString(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return "null"
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
