package pipeline

import "unicode"

// Profile describes the dominant script of a text fragment. The output
// contract is defined relative to what the user wrote, so the profile
// is computed once per invocation from the original input and threaded
// through every downstream step.
type Profile struct {
	Code string // "zh" or "en"
	CJK  bool
}

// cjkDominanceRatio is the share of Han ideographs above which a
// fragment counts as Chinese-dominant.
const cjkDominanceRatio = 0.20

// Detect classifies a fragment as CJK-dominant or Latin. It is a
// binary classifier backing the language-consistency invariant, not a
// general language identifier.
func Detect(text string) Profile {
	var total, han int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}

	if total > 0 && float64(han)/float64(total) > cjkDominanceRatio {
		return Profile{Code: "zh", CJK: true}
	}
	return Profile{Code: "en", CJK: false}
}
