package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverie/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestNormalizeText_EnglishEntry(t *testing.T) {
	llm := &fakeLLM{response: `{"title":"Feeling Drained","polished_content":"I feel tired.","feedback":"Being able to say you are tired is already a form of self-care. Rest well tonight."}`}
	p := New(llm, &fakeSpeech{})

	res, err := p.NormalizeText(context.Background(), "I feel tired")
	require.NoError(t, err)

	assert.Equal(t, "en", res.DetectedLanguage)
	assert.Equal(t, "Feeling Drained", res.Title)
	// 12-rune source allows at most 14 runes of polished content
	assert.LessOrEqual(t, utf8.RuneCountInString(res.PolishedContent), 14)
	assert.GreaterOrEqual(t, utf8.RuneCountInString(res.Feedback), feedbackMinRunes)
}

func TestNormalizeText_ChineseEntry(t *testing.T) {
	llm := &fakeLLM{response: `{"title":"公园散步","polished_content":"今天天气很好，我去了公园。","feedback":"天气好的时候出门走走真的很治愈，希望这样的好心情可以一直陪着你。"}`}
	p := New(llm, &fakeSpeech{})

	res, err := p.NormalizeText(context.Background(), "今天天气很好，我去了公园。")
	require.NoError(t, err)

	assert.Equal(t, "zh", res.DetectedLanguage)
	assert.True(t, Detect(res.Title).CJK)
	assert.True(t, Detect(res.Feedback).CJK)
	// 13-rune source allows at most 15 runes of polished content
	assert.LessOrEqual(t, utf8.RuneCountInString(res.PolishedContent), 15)
}

func TestNormalizeText_GenerationFailureDegradesToFallback(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"provider unavailable", &fakeLLM{err: errors.New("connection refused")}},
		{"provider timeout", &fakeLLM{err: context.DeadlineExceeded}},
		{"garbage output", &fakeLLM{response: "I'd be happy to help with your journal."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.llm, &fakeSpeech{})

			source := "worked late again and skipped dinner"
			res, err := p.NormalizeText(context.Background(), source)
			require.NoError(t, err, "generation failures must not cross the boundary")

			assert.Equal(t, source, res.PolishedContent)
			assert.Equal(t, defaultsByLang["en"].Title, res.Title)
			assert.Equal(t, defaultsByLang["en"].Feedback, res.Feedback)
		})
	}
}

func TestNormalizeText_RejectsShortInput(t *testing.T) {
	llm := &fakeLLM{}
	p := New(llm, &fakeSpeech{})

	for _, text := range []string{"", "   ", "hi", " 累 \n"} {
		res, err := p.NormalizeText(context.Background(), text)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInputTooShort)
		assert.True(t, IsInputError(err))
	}
	assert.Equal(t, 0, llm.calls, "short input must not reach the provider")
}

func TestNormalizeAudio_FullFlow(t *testing.T) {
	speech := &fakeSpeech{transcript: "Today I finally cleaned the whole apartment."}
	llm := &fakeLLM{response: `{"title":"A Fresh Start at Home","polished_content":"Today I finally cleaned the whole apartment.","feedback":"A clear space often brings a clear mind, enjoy the feeling of it."}`}
	p := New(llm, speech)

	res, err := p.NormalizeAudio(context.Background(), make([]byte, 4096), "voice.ogg")
	require.NoError(t, err)

	assert.Equal(t, 1, speech.calls)
	assert.Equal(t, "A Fresh Start at Home", res.Title)
	assert.Equal(t, "en", res.DetectedLanguage)
	assert.Contains(t, llm.lastUser, speech.transcript)
}

func TestNormalizeAudio_TranscriptionFailureIsTerminal(t *testing.T) {
	speech := &fakeSpeech{err: context.DeadlineExceeded}
	llm := &fakeLLM{}
	p := New(llm, speech)

	res, err := p.NormalizeAudio(context.Background(), make([]byte, 4096), "voice.ogg")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Equal(t, 0, llm.calls, "no generation without a transcript")
}

func TestNormalizeAudio_TinyPayload(t *testing.T) {
	speech := &fakeSpeech{}
	p := New(&fakeLLM{}, speech)

	_, err := p.NormalizeAudio(context.Background(), make([]byte, 100), "voice.ogg")
	assert.ErrorIs(t, err, ErrAudioTooSmall)
	assert.Equal(t, 0, speech.calls)
}
