package pipeline

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_SatisfyOutputContract(t *testing.T) {
	for lang, d := range defaultsByLang {
		t.Run(lang, func(t *testing.T) {
			title := utf8.RuneCountInString(d.Title)
			assert.GreaterOrEqual(t, title, titleMinRunes)
			assert.LessOrEqual(t, title, titleMaxRunes)

			feedback := utf8.RuneCountInString(d.Feedback)
			assert.GreaterOrEqual(t, feedback, feedbackMinRunes)
			assert.LessOrEqual(t, feedback, feedbackMaxRunes)
		})
	}
}

func TestDefaultsFor_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	d := defaultsFor(Profile{Code: "fr"})
	assert.Equal(t, defaultsByLang["en"], d)
}

func TestSynthesize(t *testing.T) {
	source := "今天加班到很晚，有点累。"
	prof := Profile{Code: "zh", CJK: true}

	res := Synthesize(source, prof)
	assert.Equal(t, defaultsByLang["zh"].Title, res.Title)
	assert.Equal(t, source, res.PolishedContent)
	assert.Equal(t, defaultsByLang["zh"].Feedback, res.Feedback)
	assert.Equal(t, "zh", res.DetectedLanguage)

	// Deterministic: same input, same output.
	assert.Equal(t, res, Synthesize(source, prof))
}
