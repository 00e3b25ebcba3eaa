package models

import "strings"

// ItemCategory es la categoría semántica de una línea, derivada en cada acceso.
type ItemCategory string

const (
	CategoryFood      ItemCategory = "Food"
	CategoryBeverages ItemCategory = "Beverages"
	CategoryDesserts  ItemCategory = "Desserts"
	CategorySides     ItemCategory = "Sides"
	CategoryUnknown   ItemCategory = "Unknown"
)

var itemCategories = []ItemCategory{
	CategoryFood,
	CategoryBeverages,
	CategoryDesserts,
	CategorySides,
	CategoryUnknown,
}

// ParseItemCategory resuelve el nombre sin distinguir mayúsculas.
func ParseItemCategory(raw string) (ItemCategory, bool) {
	for _, c := range itemCategories {
		if strings.EqualFold(string(c), strings.TrimSpace(raw)) {
			return c, true
		}
	}
	return "", false
}
