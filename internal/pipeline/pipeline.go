// Package pipeline normalizes raw journal entries. It wraps the
// non-deterministic generative step in a deterministic
// contract-enforcement layer: the output is always language-consistent
// with the input and within fixed length bounds, degrading to a safe
// default instead of surfacing generation failures.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"reverie/pkg/logger"

	"go.uber.org/zap"
)

// minEntryRunes is the minimum trimmed length of a text entry.
const minEntryRunes = 5

// Pipeline sequences detection, budgeting, generation and repair for
// both the text-only and audio-origin flows. Invocations are
// independent and share no mutable state, so one Pipeline serves any
// number of concurrent entries.
type Pipeline struct {
	gen   *Generator
	trans *Transcriber
}

func New(llm LLMClient, speech SpeechClient) *Pipeline {
	return &Pipeline{
		gen:   NewGenerator(llm),
		trans: NewTranscriber(speech),
	}
}

// NormalizeText runs the text flow. Only ErrInputTooShort crosses the
// boundary as an error; generation failures degrade to the fallback
// result so the user always gets a usable artifact.
func (p *Pipeline) NormalizeText(ctx context.Context, text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minEntryRunes {
		return nil, fmt.Errorf("%d chars after trim: %w", utf8.RuneCountInString(trimmed), ErrInputTooShort)
	}

	prof := Detect(trimmed)
	budget := EstimateBudget(trimmed, prof)

	raw, err := p.gen.Generate(ctx, trimmed, prof, budget)
	if err != nil {
		logger.Warn("generation failed, synthesizing fallback",
			zap.String("language", prof.Code),
			zap.Error(err))
		res := Synthesize(trimmed, prof)
		res.SourceText = trimmed
		return &res, nil
	}

	res := Repair(*raw, trimmed, prof)
	res.SourceText = trimmed
	return &res, nil
}

// NormalizeAudio runs the audio flow: transcription, then the text
// flow. A transcription failure is terminal - there is no source text
// to fall back on.
func (p *Pipeline) NormalizeAudio(ctx context.Context, data []byte, filename string) (*Result, error) {
	text, err := p.trans.Transcribe(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	logger.Debug("transcription completed",
		zap.String("filename", filename),
		zap.Int("chars", utf8.RuneCountInString(text)))

	return p.NormalizeText(ctx, text)
}
