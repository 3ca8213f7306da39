package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	openai "github.com/openai/openai-go"
)

// SpeechClient abstracts the speech-to-text provider. It receives the
// path of a staged audio file and returns the plain transcript.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

const (
	// payloads below this are treated as noise, not speech
	minAudioBytes = 1 << 10

	// transcripts below this mean the provider heard nothing usable
	minTranscriptRunes = 3
)

// Transcriber validates audio input, stages it for the provider and
// translates provider errors into the pipeline's fixed taxonomy.
type Transcriber struct {
	speech SpeechClient
}

func NewTranscriber(speech SpeechClient) *Transcriber {
	return &Transcriber{speech: speech}
}

// Transcribe converts raw audio bytes into a plain-text transcript.
// The scratch file staged for the provider is removed on every exit path.
func (t *Transcriber) Transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) < minAudioBytes {
		return "", fmt.Errorf("%d bytes: %w", len(data), ErrAudioTooSmall)
	}

	audioPath, cleanup, err := stageAudio(data, filename)
	if err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}
	defer cleanup()

	text, err := t.speech.Transcribe(ctx, audioPath)
	if err != nil {
		return "", classifySpeechError(err)
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minTranscriptRunes {
		return "", ErrEmptyTranscript
	}

	return text, nil
}

// stageAudio writes the payload to a temp file keeping the original
// extension, since the provider derives the container from the name.
func stageAudio(data []byte, filename string) (string, func(), error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".ogg"
	}

	f, err := os.CreateTemp("", "entry-*"+ext)
	if err != nil {
		return "", nil, err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}

	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// classifySpeechError maps provider errors onto the fixed taxonomy so
// callers never see a provider-native error.
func classifySpeechError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("transcription: %w", ErrProviderTimeout)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrUnsupportedFormat)
		case http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrPayloadTooLarge)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrProviderTimeout)
		}
		return fmt.Errorf("%s: %w", apiErr.Message, ErrProviderUnavailable)
	}

	return fmt.Errorf("transcription: %v: %w", err, ErrProviderUnavailable)
}
