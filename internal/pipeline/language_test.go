package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		code string
		cjk  bool
	}{
		{
			name: "plain english",
			text: "Today was a long day at work but it ended well.",
			code: "en",
			cjk:  false,
		},
		{
			name: "plain chinese",
			text: "今天天气很好，我去了公园。",
			code: "zh",
			cjk:  true,
		},
		{
			name: "chinese with latin loanwords stays chinese",
			text: "今天开了一个 sprint planning 会议，有点累。",
			code: "zh",
			cjk:  true,
		},
		{
			name: "english with a single ideograph stays english",
			text: "I learned the character 爱 today and practiced writing it many times.",
			code: "en",
			cjk:  false,
		},
		{
			name: "empty string defaults to english",
			text: "",
			code: "en",
			cjk:  false,
		},
		{
			name: "whitespace only defaults to english",
			text: "   \n\t ",
			code: "en",
			cjk:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prof := Detect(tt.text)
			assert.Equal(t, tt.code, prof.Code)
			assert.Equal(t, tt.cjk, prof.CJK)
		})
	}
}

func TestDetect_SpacesDoNotDilute(t *testing.T) {
	// Wide spacing around ideographs must not push the ratio under the
	// threshold.
	prof := Detect("很  好  的  一  天")
	assert.Equal(t, "zh", prof.Code)
	assert.True(t, prof.CJK)
}
