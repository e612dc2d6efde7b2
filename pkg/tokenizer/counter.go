// Package tokenizer estimates token counts for raw text, used by the
// record command when a producer supplies text instead of counts.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// codecForModel maps OpenAI model names to their tiktoken encodings.
// Unlisted OpenAI models fall back to cl100k_base.
var codecForModel = map[string]tokenizer.Encoding{
	"gpt-4o":        tokenizer.O200kBase,
	"gpt-4o-mini":   tokenizer.O200kBase,
	"o1":            tokenizer.O200kBase,
	"o1-mini":       tokenizer.O200kBase,
	"o3-mini":       tokenizer.O200kBase,
	"gpt-4-turbo":   tokenizer.Cl100kBase,
	"gpt-4":         tokenizer.Cl100kBase,
	"gpt-3.5-turbo": tokenizer.Cl100kBase,
}

// CountTokens returns the token count for the given text. OpenAI models
// are counted with tiktoken; everything else uses character-based
// estimation.
func CountTokens(text, provider, model string) (int64, error) {
	if provider != "openai" {
		return EstimateTokens(text), nil
	}

	encoding, ok := codecForModel[model]
	if !ok {
		encoding = tokenizer.Cl100kBase
	}
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return 0, fmt.Errorf("load encoding for %s: %w", model, err)
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return int64(len(ids)), nil
}

// EstimateTokens approximates the token count of text at four characters
// per token, rounding up.
func EstimateTokens(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
