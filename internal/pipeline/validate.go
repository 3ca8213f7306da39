package pipeline

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Result is the normalized artifact returned to callers. Every field
// is non-empty, within bounds and in the entry's language. SourceText
// is the trimmed input the result was produced from; for audio entries
// it is the transcript.
type Result struct {
	Title            string `json:"title"`
	PolishedContent  string `json:"polished_content"`
	Feedback         string `json:"feedback"`
	DetectedLanguage string `json:"detected_language"`
	SourceText       string `json:"source_text"`
}

// Output contract bounds, in runes.
const (
	titleMinRunes    = 4
	titleMaxRunes    = 60
	feedbackMinRunes = 30
	feedbackMaxRunes = 250

	// polished content may not grow more than 15% over the source
	polishedGrowthRatio = 1.15

	// a space-boundary title cut must keep at least this share of the max
	titleKeepRatio = 0.6
)

// Repair enforces the output contract on a raw generation result. It
// is a pure repair function: every input terminates in a compliant
// Result, and an already-compliant input passes through unchanged.
func Repair(raw RawResult, source string, prof Profile) Result {
	d := defaultsFor(prof)

	title := scrub(raw.Title, prof)
	polished := scrub(raw.PolishedContent, prof)
	feedback := scrub(raw.Feedback, prof)

	// A field that switched script family relative to the source is
	// unusable: the model translated despite the contract. Replace it
	// with the language-correct default, which satisfies the length
	// bounds by construction.
	titleReplaced := false
	if title != "" && Detect(title).CJK != prof.CJK {
		title = d.Title
		titleReplaced = true
	}
	feedbackReplaced := false
	if feedback != "" && Detect(feedback).CJK != prof.CJK {
		feedback = d.Feedback
		feedbackReplaced = true
	}
	if polished != "" && Detect(polished).CJK != prof.CJK {
		// A translated body cannot be repaired; the author's own words
		// are the only safe substitute.
		polished = source
	}

	if !titleReplaced {
		title = repairTitle(title, d)
	}

	maxPolished := int(math.Ceil(polishedGrowthRatio * float64(utf8.RuneCountInString(source))))
	polished = truncateAtSentence(polished, maxPolished)
	if polished == "" {
		polished = source
	}

	if !feedbackReplaced {
		switch n := utf8.RuneCountInString(feedback); {
		case n < feedbackMinRunes:
			feedback = d.Feedback
		case n > feedbackMaxRunes:
			feedback = truncateAtSentence(feedback, feedbackMaxRunes)
			if utf8.RuneCountInString(feedback) < feedbackMinRunes {
				feedback = d.Feedback
			}
		}
	}

	return Result{
		Title:            title,
		PolishedContent:  polished,
		Feedback:         feedback,
		DetectedLanguage: prof.Code,
	}
}

// scrub trims, strips emoji and rewrites exclamation marks into the
// language's sentence-terminal punctuation.
func scrub(s string, prof Profile) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '!' || r == '！':
			if prof.CJK {
				b.WriteRune('。')
			} else {
				b.WriteRune('.')
			}
		case isEmoji(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows and stars used as emoji
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, ZWJ
		return true
	}
	return false
}

func repairTitle(title string, d langDefaults) string {
	n := utf8.RuneCountInString(title)
	if n < titleMinRunes {
		return d.Title
	}
	if n <= titleMaxRunes {
		return title
	}

	runes := []rune(title)
	cut := runes[:titleMaxRunes]
	if i := lastSpaceIndex(cut); i >= int(float64(titleMaxRunes)*titleKeepRatio) {
		return strings.TrimSpace(string(cut[:i]))
	}
	return string(cut)
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// sentence-terminal runes recognized as truncation boundaries
func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '．', '.', '？', '?', '；', ';', '\n':
		return true
	}
	return false
}

// truncateAtSentence caps s at max runes, preferring the nearest
// preceding sentence boundary. A boundary in the first half of the
// budget is not considered good; the fallback is a hard cut marked
// with an ellipsis.
func truncateAtSentence(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < 1 {
		return ""
	}

	cut := runes[:max]
	for i := len(cut) - 1; i >= max/2; i-- {
		if isSentenceEnd(cut[i]) {
			return strings.TrimSpace(string(cut[:i+1]))
		}
	}

	return string(runes[:max-1]) + "…"
}
