package constants

import (
	"strings"
)

type Category string

const (
	Furniture            Category = "Furniture"
	ArtDecor             Category = "Art & Decor"
	Electronics          Category = "Electronics"
	JewelryWatches       Category = "Jewelry & Watches"
	Kitchenware          Category = "Kitchenware"
	ToolsEquipment       Category = "Tools & Equipment"
	ClothingTextiles     Category = "Clothing & Textiles"
	BooksMedia           Category = "Books & Media"
	CollectiblesAntiques Category = "Collectibles & Antiques"
	VehiclesOutdoor      Category = "Vehicles & Outdoor"
	MusicalInstruments   Category = "Musical Instruments"
	SportingGoods        Category = "Sporting Goods"
	Miscellaneous        Category = "Miscellaneous"
)

var allCategories = []Category{
	Furniture,
	ArtDecor,
	Electronics,
	JewelryWatches,
	Kitchenware,
	ToolsEquipment,
	ClothingTextiles,
	BooksMedia,
	CollectiblesAntiques,
	VehiclesOutdoor,
	MusicalInstruments,
	SportingGoods,
	Miscellaneous,
}

// AllCategories returns the fixed category set in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func IsCategory(s string) bool {
	for _, cat := range allCategories {
		if string(cat) == s {
			return true
		}
	}
	return false
}

// Canonicalize maps a model or operator supplied label onto the fixed set.
// Unknown labels fall back to Miscellaneous with ok=false.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Miscellaneous, false
	}

	// synonyms map
	synonyms := map[string]Category{
		"art":                 ArtDecor,
		"decor":               ArtDecor,
		"art and decor":       ArtDecor,
		"home decor":          ArtDecor,
		"lighting":            ArtDecor,
		"jewelry":             JewelryWatches,
		"jewellery":           JewelryWatches,
		"watches":             JewelryWatches,
		"jewelry and watches": JewelryWatches,
		"kitchen":             Kitchenware,
		"dishes":              Kitchenware,
		"cookware":            Kitchenware,
		"tools":               ToolsEquipment,
		"equipment":           ToolsEquipment,
		"tools and equipment": ToolsEquipment,
		"clothing":            ClothingTextiles,
		"textiles":            ClothingTextiles,
		"linens":              ClothingTextiles,
		"rugs":                ClothingTextiles,
		"books":               BooksMedia,
		"media":               BooksMedia,
		"records":             BooksMedia,
		"collectibles":        CollectiblesAntiques,
		"antiques":            CollectiblesAntiques,
		"antique":             CollectiblesAntiques,
		"vehicles":            VehiclesOutdoor,
		"outdoor":             VehiclesOutdoor,
		"garden":              VehiclesOutdoor,
		"instruments":         MusicalInstruments,
		"musical instrument":  MusicalInstruments,
		"sports":              SportingGoods,
		"sporting":            SportingGoods,
		"misc":                Miscellaneous,
		"other":               Miscellaneous,
		"electronic":          Electronics,
		"appliances":          Electronics,
		"furnishings":         Furniture,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Miscellaneous, false
}
