package pipeline

import "unicode/utf8"

// Output budget sizing. An under-provisioned budget truncates the
// structured response mid-object, which the decoder cannot repair, so
// the floor must always cover a full title + polished content +
// feedback for a small entry.
const (
	budgetFloor    = 400
	budgetCap      = 1800
	budgetOverhead = 220 // title, feedback and JSON scaffolding

	tokensPerRuneLatin = 0.45
	tokensPerRuneCJK   = 1.6

	// headroom above the allowed polished-content growth, so the budget
	// never truncates a result the repair step would have accepted
	budgetGrowth = 1.3
)

// EstimateBudget computes the max completion tokens for one entry.
func EstimateBudget(text string, prof Profile) int64 {
	runes := utf8.RuneCountInString(text)

	perRune := tokensPerRuneLatin
	if prof.CJK {
		perRune = tokensPerRuneCJK
	}

	est := int(float64(runes)*perRune*budgetGrowth) + budgetOverhead
	if est < budgetFloor {
		est = budgetFloor
	}
	if est > budgetCap {
		est = budgetCap
	}
	return int64(est)
}
