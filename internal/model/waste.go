package model

import "fmt"

// WasteType is the closed set of compostable material tags.
type WasteType string

const (
	WasteFruits         WasteType = "fruits"
	WasteVegetables     WasteType = "vegetables"
	WasteCoffeeGrounds  WasteType = "coffee-grounds"
	WasteEggshells      WasteType = "eggshells"
	WasteTeaBags        WasteType = "tea-bags"
	WasteLeaves         WasteType = "leaves"
	WasteGrassClippings WasteType = "grass-clippings"
	WasteBranches       WasteType = "branches"
	WasteCardboard      WasteType = "cardboard"
	WasteNewspaper      WasteType = "newspaper"
	WastePaperTowels    WasteType = "paper-towels"
)

// Category groups waste types for the per-category breakdown.
type Category string

const (
	CategoryFood  Category = "food"
	CategoryYard  Category = "yard"
	CategoryPaper Category = "paper"
)

// Method is the closed set of disposal methods.
type Method string

const (
	MethodBackyardBin  Method = "backyard-bin"
	MethodTumbler      Method = "tumbler"
	MethodPile         Method = "pile"
	MethodVermicompost Method = "vermicompost"
	MethodBokashi      Method = "bokashi"
	MethodMunicipal    Method = "municipal"
)

// DefaultEmissionFactor is used for waste types with no mapped factor.
const DefaultEmissionFactor = 0.1

var wasteCategories = map[WasteType]Category{
	WasteFruits:         CategoryFood,
	WasteVegetables:     CategoryFood,
	WasteCoffeeGrounds:  CategoryFood,
	WasteEggshells:      CategoryFood,
	WasteTeaBags:        CategoryFood,
	WasteLeaves:         CategoryYard,
	WasteGrassClippings: CategoryYard,
	WasteBranches:       CategoryYard,
	WasteCardboard:      CategoryPaper,
	WasteNewspaper:      CategoryPaper,
	WastePaperTowels:    CategoryPaper,
}

// kg CO2e avoided per kg composted. Not every waste type has a factor;
// those fall back to DefaultEmissionFactor.
var emissionFactors = map[WasteType]float64{
	WasteFruits:         0.15,
	WasteVegetables:     0.15,
	WasteCoffeeGrounds:  0.12,
	WasteEggshells:      0.10,
	WasteLeaves:         0.08,
	WasteGrassClippings: 0.09,
	WasteBranches:       0.07,
	WasteCardboard:      0.11,
	WasteNewspaper:      0.10,
	WastePaperTowels:    0.09,
}

var methods = map[Method]struct{}{
	MethodBackyardBin:  {},
	MethodTumbler:      {},
	MethodPile:         {},
	MethodVermicompost: {},
	MethodBokashi:      {},
	MethodMunicipal:    {},
}

// ParseWasteType validates s against the known waste types.
func ParseWasteType(s string) (WasteType, error) {
	w := WasteType(s)
	if _, ok := wasteCategories[w]; !ok {
		return "", fmt.Errorf("unknown waste type %q", s)
	}
	return w, nil
}

// ParseMethod validates s against the known disposal methods.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := methods[m]; !ok {
		return "", fmt.Errorf("unknown method %q", s)
	}
	return m, nil
}

// Category returns the category the waste type belongs to.
func (w WasteType) Category() (Category, bool) {
	c, ok := wasteCategories[w]
	return c, ok
}

// EmissionFactor returns the CO2 factor for w or DefaultEmissionFactor.
func (w WasteType) EmissionFactor() float64 {
	if f, ok := emissionFactors[w]; ok {
		return f
	}
	return DefaultEmissionFactor
}

// CO2Avoided estimates the CO2 avoided by composting weight kg of w.
func (w WasteType) CO2Avoided(weight float64) float64 {
	return weight * w.EmissionFactor()
}

// WasteTypes returns all waste types in display order.
func WasteTypes() []WasteType {
	return []WasteType{
		WasteFruits, WasteVegetables, WasteCoffeeGrounds, WasteEggshells, WasteTeaBags,
		WasteLeaves, WasteGrassClippings, WasteBranches,
		WasteCardboard, WasteNewspaper, WastePaperTowels,
	}
}

// Methods returns all disposal methods in display order.
func Methods() []Method {
	return []Method{
		MethodBackyardBin, MethodTumbler, MethodPile,
		MethodVermicompost, MethodBokashi, MethodMunicipal,
	}
}
