package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWasteType_EveryTypeHasCategory(t *testing.T) {
	for _, w := range WasteTypes() {
		c, ok := w.Category()
		require.True(t, ok, "waste type %s has no category", w)
		assert.Contains(t, []Category{CategoryFood, CategoryYard, CategoryPaper}, c)
	}
}

func TestWasteType_CO2Avoided(t *testing.T) {
	assert.InDelta(t, 1.5, WasteFruits.CO2Avoided(10), 1e-9)
	assert.InDelta(t, 0.8, WasteLeaves.CO2Avoided(10), 1e-9)

	// tea-bags is a valid type without a mapped factor
	assert.Equal(t, DefaultEmissionFactor, WasteTeaBags.EmissionFactor())
	assert.Equal(t, DefaultEmissionFactor, WasteType("legacy-scraps").EmissionFactor())
}

func TestParseWasteType(t *testing.T) {
	w, err := ParseWasteType("coffee-grounds")
	require.NoError(t, err)
	assert.Equal(t, WasteCoffeeGrounds, w)

	_, err = ParseWasteType("plastic")
	assert.Error(t, err)
	_, err = ParseWasteType("")
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMethod("incinerator")
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodAllTime, p)

	for _, want := range Periods() {
		got, err := ParsePeriod(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParsePeriod("daily")
	assert.Error(t, err)
}

func TestAchievementCatalog_Order(t *testing.T) {
	defs := AchievementCatalog()
	require.Len(t, defs, len(Achievements))
	assert.Equal(t, AchievementFirstCompost, defs[0].ID)
	assert.Equal(t, AchievementCommunityHero, defs[len(defs)-1].ID)
	for _, d := range defs {
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Icon)
	}
}

func TestCategoryTotals_AddIgnoresUnknown(t *testing.T) {
	var totals CategoryTotals
	totals.Add(CategoryFood, 2)
	totals.Add(CategoryYard, 3)
	totals.Add(CategoryPaper, 4)
	totals.Add(Category("glass"), 100)
	assert.Equal(t, CategoryTotals{Food: 2, Yard: 3, Paper: 4}, totals)
	assert.Equal(t, 9.0, totals.Sum())
}
