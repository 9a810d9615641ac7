package mls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// Scorer rates how well a free-text value matches one of a fixed option set.
type Scorer interface {
	Score(ctx context.Context, value string, options []string) (best string, score float64, err error)
}

const scorerPrompt = `You match a real estate listing value to the closest option from an MLS form's dropdown.

Value: %q
Options:
%s

Pick the single option that means the same thing as the value. Respond with ONLY a JSON object:
{"option": "<exact option text>", "score": <0.0-1.0 similarity>}

Score 1.0 means identical meaning, 0.0 means unrelated. If nothing fits, pick the least-wrong option with a low score.`

// LLMScorer asks the model which option is semantically closest.
type LLMScorer struct {
	ai    anthropic.Client
	model string
}

func NewLLMScorer(ai anthropic.Client, model string) *LLMScorer {
	return &LLMScorer{ai: ai, model: model}
}

func (s *LLMScorer) Score(ctx context.Context, value string, options []string) (string, float64, error) {
	var sb strings.Builder
	for _, opt := range options {
		sb.WriteString("- ")
		sb.WriteString(opt)
		sb.WriteString("\n")
	}
	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: 256,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(scorerPrompt, value, sb.String())},
		},
	})
	if err != nil {
		return "", 0, eris.Wrap(err, "mls: enum scorer")
	}

	obj, ok := jsonObject(resp.Text())
	if !ok {
		return "", 0, eris.New("mls: enum scorer returned no JSON")
	}
	var parsed struct {
		Option string  `json:"option"`
		Score  float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return "", 0, eris.Wrap(err, "mls: enum scorer response")
	}

	// The model must name a real option; normalize case to the schema's copy.
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(parsed.Option), opt) {
			return opt, parsed.Score, nil
		}
	}
	return "", 0, eris.Errorf("mls: scorer picked unknown option %q", parsed.Option)
}

// resolveEnum matches value against the option set. Exact case-insensitive
// matches score 1.0; containment matches score 0.8; anything else goes to
// the similarity scorer.
func resolveEnum(ctx context.Context, scorer Scorer, value string, options []string) (string, float64, error) {
	trimmed := strings.TrimSpace(value)
	for _, opt := range options {
		if strings.EqualFold(trimmed, opt) {
			return opt, 1.0, nil
		}
	}
	lower := strings.ToLower(trimmed)
	for _, opt := range options {
		optLower := strings.ToLower(opt)
		if strings.Contains(optLower, lower) || strings.Contains(lower, optLower) {
			return opt, 0.8, nil
		}
	}
	if scorer == nil {
		return "", 0, eris.Errorf("mls: %q matches no option and no scorer is configured", value)
	}
	return scorer.Score(ctx, trimmed, options)
}

// jsonObject extracts the first balanced JSON object from text, tolerating
// markdown fences and surrounding prose.
func jsonObject(s string) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
