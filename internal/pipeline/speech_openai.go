package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISpeech implements SpeechClient using the OpenAI audio
// transcription API. No language hint is sent; the provider
// auto-detects.
type OpenAISpeech struct {
	model string
	opts  []option.RequestOption
}

func NewOpenAISpeech(apiKey, baseURL, model string) (*OpenAISpeech, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("openai transcribe model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAISpeech{model: model, opts: opts}, nil
}

func (s *OpenAISpeech) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open staged audio: %w", err)
	}
	defer f.Close()

	client := openai.NewClient(s.opts...)

	resp, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(s.model),
		File:  f,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
