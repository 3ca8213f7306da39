package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// LLMClient abstracts the text-generation provider so tests can
// substitute a deterministic double.
type LLMClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int64) (string, error)
}

// RawResult is the generation output exactly as decoded from the
// provider. It may violate the output contract; the validator repairs it.
type RawResult struct {
	Title           string `json:"title"`
	PolishedContent string `json:"polished_content"`
	Feedback        string `json:"feedback"`
}

type Generator struct {
	llm LLMClient
}

func NewGenerator(llm LLMClient) *Generator {
	return &Generator{llm: llm}
}

// systemContract is the fixed part of the prompt. The generative step
// is unreliable, so the hard constraints are stated here and restated
// per call in the user message.
const systemContract = `You are a careful journaling assistant. The user gives you one diary entry.
Reply with exactly one JSON object containing exactly three string fields:
"title", "polished_content", "feedback". No other keys, no markdown fences, no commentary.

Rules:
- Never translate. Write every field in the same language as the entry.
- "polished_content" is the entry with light grammar and punctuation fixes only.
  Keep the author's voice and meaning. Do not expand, summarize or embellish.
- "title" is a short plain title for the entry.
- "feedback" is a warm, encouraging response to the author.
  A short entry gets 1-2 sentences, a medium entry 2-3, a long entry 2-3 slightly longer ones.
- Do not use emoji. Do not use exclamation marks.`

// feedback length guidance thresholds, in runes of source text
const (
	shortEntryRunes  = 80
	mediumEntryRunes = 400
)

func languageName(prof Profile) string {
	if prof.CJK {
		return "Chinese"
	}
	return "English"
}

func buildInstruction(text string, prof Profile) string {
	lang := languageName(prof)

	var guidance string
	switch n := utf8.RuneCountInString(text); {
	case n < shortEntryRunes:
		guidance = "This is a short entry: keep the feedback to 1-2 sentences."
	case n < mediumEntryRunes:
		guidance = "This is a medium entry: keep the feedback to 2-3 sentences."
	default:
		guidance = "This is a long entry: write 2-3 slightly longer feedback sentences."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The entry is written in %s. Every field must be in %s; do not translate.\n", lang, lang))
	sb.WriteString(guidance)
	sb.WriteString("\nNo emoji, no exclamation marks.\n\nEntry:\n")
	sb.WriteString(text)
	return sb.String()
}

// Generate invokes the provider once. A parse failure is not retried:
// it falls through to the fallback synthesizer via ErrMalformedOutput.
func (g *Generator) Generate(ctx context.Context, text string, prof Profile, budget int64) (*RawResult, error) {
	raw, err := g.llm.Complete(ctx, systemContract, buildInstruction(text, prof), budget)
	if err != nil {
		return nil, classifyLLMError(err)
	}
	return decodeResult(raw)
}

// decodeResult extracts the three required fields from the provider's
// output, tolerating markdown fences and surrounding prose.
func decodeResult(raw string) (*RawResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output: %w", ErrMalformedOutput)
	}

	var res RawResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return nil, fmt.Errorf("decode model output: %v: %w", err, ErrMalformedOutput)
	}

	if strings.TrimSpace(res.Title) == "" &&
		strings.TrimSpace(res.PolishedContent) == "" &&
		strings.TrimSpace(res.Feedback) == "" {
		return nil, fmt.Errorf("model output has no usable fields: %w", ErrMalformedOutput)
	}

	return &res, nil
}

func classifyLLMError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("generation: %w", ErrProviderTimeout)
	}
	return fmt.Errorf("generation: %v: %w", err, ErrProviderUnavailable)
}
