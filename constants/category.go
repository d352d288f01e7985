package constants

import (
	"strings"
)

type Category string

const (
	Proteins         Category = "Proteins"
	Vegetables       Category = "Vegetables"
	Fruits           Category = "Fruits"
	Dairy            Category = "Dairy"
	DryFood          Category = "Dry Food"
	Snacks           Category = "Snacks"
	Hygiene          Category = "Hygiene"
	CleaningSupplies Category = "Cleaning Supplies"
	PetSupplies      Category = "Pet Supplies"
	Frozen           Category = "Frozen"
	Drinks           Category = "Drinks"
	CannedGoods      Category = "Canned Goods"
	Bakery           Category = "Bakery"
	Baby             Category = "Baby"
	Cereals          Category = "Cereals"
	Sauces           Category = "Sauces"
	Other            Category = "Other"
)

// Uncategorized is the aggregation key for items that never received a category.
const Uncategorized = "Uncategorized"

// UnknownProvider is the aggregation key for invoices with no detected provider.
const UnknownProvider = "Unknown"

// allCategories is the closed label set offered to the AI categorizer, in prompt order.
var allCategories = []Category{
	Proteins,
	Vegetables,
	Fruits,
	Dairy,
	DryFood,
	Snacks,
	Hygiene,
	CleaningSupplies,
	PetSupplies,
	Frozen,
	Drinks,
	CannedGoods,
	Bakery,
	Baby,
	Cereals,
	Sauces,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form model output onto the closed label set.
// The bool is false when the input had to be coerced to Other.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.Trim(normalized, "\"'.` ")
	if normalized == "" {
		return Other, false
	}

	synonyms := map[string]Category{
		"protein":         Proteins,
		"meat":            Proteins,
		"vegetable":       Vegetables,
		"fruit":           Fruits,
		"dry goods":       DryFood,
		"snack":           Snacks,
		"cleaning":        CleaningSupplies,
		"cleaning supply": CleaningSupplies,
		"pet supply":      PetSupplies,
		"pet":             PetSupplies,
		"drink":           Drinks,
		"beverages":       Drinks,
		"canned":          CannedGoods,
		"canned good":     CannedGoods,
		"cereal":          Cereals,
		"sauce":           Sauces,
		"condiments":      Sauces,
		"frozen food":     Frozen,
		"personal care":   Hygiene,
		"baby products":   Baby,
		"bread":           Bakery,
		"uncategorized":   Other,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
