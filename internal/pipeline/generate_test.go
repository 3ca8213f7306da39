package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM records the last call and replays a canned response.
type fakeLLM struct {
	response string
	err      error

	calls      int
	lastSystem string
	lastUser   string
	lastBudget int64
}

func (f *fakeLLM) Complete(_ context.Context, system, user string, maxTokens int64) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	f.lastBudget = maxTokens
	return f.response, f.err
}

func TestGenerate_DecodesCleanJSON(t *testing.T) {
	llm := &fakeLLM{response: `{"title":"A Quiet Day","polished_content":"Today was quiet.","feedback":"Quiet days are worth noticing too."}`}
	gen := NewGenerator(llm)

	res, err := gen.Generate(context.Background(), "today was quiet", Profile{Code: "en"}, 400)
	require.NoError(t, err)
	assert.Equal(t, "A Quiet Day", res.Title)
	assert.Equal(t, "Today was quiet.", res.PolishedContent)
	assert.Equal(t, "Quiet days are worth noticing too.", res.Feedback)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, int64(400), llm.lastBudget)
}

func TestGenerate_ToleratesMarkdownFences(t *testing.T) {
	llm := &fakeLLM{response: "```json\n{\"title\":\"Fenced\",\"polished_content\":\"Body.\",\"feedback\":\"Noted.\"}\n```"}
	gen := NewGenerator(llm)

	res, err := gen.Generate(context.Background(), "some entry text", Profile{Code: "en"}, 400)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", res.Title)
}

func TestGenerate_MalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json at all", "Sorry, I cannot help with that."},
		{"broken json", `{"title": "unterminated`},
		{"all fields empty", `{"title":"","polished_content":" ","feedback":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(&fakeLLM{response: tt.response})
			res, err := gen.Generate(context.Background(), "some entry text", Profile{Code: "en"}, 400)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrMalformedOutput)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestGenerate_ClassifiesProviderErrors(t *testing.T) {
	t.Run("deadline exceeded", func(t *testing.T) {
		gen := NewGenerator(&fakeLLM{err: context.DeadlineExceeded})
		_, err := gen.Generate(context.Background(), "some entry text", Profile{Code: "en"}, 400)
		assert.ErrorIs(t, err, ErrProviderTimeout)
		assert.True(t, IsRetryable(err))
	})

	t.Run("other provider failure", func(t *testing.T) {
		gen := NewGenerator(&fakeLLM{err: errors.New("connection refused")})
		_, err := gen.Generate(context.Background(), "some entry text", Profile{Code: "en"}, 400)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.True(t, IsRetryable(err))
	})
}

func TestGenerate_PromptCarriesLanguageAndEntry(t *testing.T) {
	llm := &fakeLLM{response: `{"title":"标题","polished_content":"正文。","feedback":"反馈。"}`}
	gen := NewGenerator(llm)

	entry := "今天天气很好，我去了公园。"
	_, err := gen.Generate(context.Background(), entry, Profile{Code: "zh", CJK: true}, 500)
	require.NoError(t, err)

	assert.Contains(t, llm.lastUser, "Chinese")
	assert.Contains(t, llm.lastUser, entry)
	assert.NotContains(t, llm.lastUser, "English")
	assert.Contains(t, llm.lastSystem, "Never translate")
}

func TestBuildInstruction_FeedbackGuidanceScalesWithLength(t *testing.T) {
	short := buildInstruction("Tired today.", Profile{Code: "en"})
	assert.Contains(t, short, "short entry")

	medium := buildInstruction(genText(200), Profile{Code: "en"})
	assert.Contains(t, medium, "medium entry")

	long := buildInstruction(genText(900), Profile{Code: "en"})
	assert.Contains(t, long, "long entry")
}

func genText(runes int) string {
	b := make([]rune, runes)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
