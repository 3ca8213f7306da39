package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateBudget_FloorForShortEntries(t *testing.T) {
	got := EstimateBudget("I feel tired", Profile{Code: "en"})
	assert.Equal(t, int64(budgetFloor), got)
}

func TestEstimateBudget_CapForLongEntries(t *testing.T) {
	long := strings.Repeat("今天发生了很多事情。", 500)
	got := EstimateBudget(long, Profile{Code: "zh", CJK: true})
	assert.Equal(t, int64(budgetCap), got)
}

func TestEstimateBudget_CJKCostsMoreThanLatin(t *testing.T) {
	// Same rune count, different script density.
	latin := strings.Repeat("a", 1000)
	cjk := strings.Repeat("天", 1000)

	l := EstimateBudget(latin, Profile{Code: "en"})
	c := EstimateBudget(cjk, Profile{Code: "zh", CJK: true})
	assert.Greater(t, c, l)
}

func TestEstimateBudget_GrowsWithLength(t *testing.T) {
	short := EstimateBudget(strings.Repeat("a", 800), Profile{Code: "en"})
	long := EstimateBudget(strings.Repeat("a", 1600), Profile{Code: "en"})
	assert.Greater(t, long, short)
	assert.LessOrEqual(t, long, int64(budgetCap))
	assert.GreaterOrEqual(t, short, int64(budgetFloor))
}
