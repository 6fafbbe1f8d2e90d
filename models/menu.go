package models

import "github.com/shopspring/decimal"

// FoodItem is a catalog entry as served by GET /foods.
type FoodItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
}

// Region is one entry of the static province list used by the checkout form.
type Region struct {
	ID     int    `json:"id"`
	NameTH string `json:"name_th"`
	NameEN string `json:"name_en"`
}

// CategoryAll disables the category filter when browsing the menu.
const CategoryAll = "All"

// QuantityMap maps food id to a positive quantity.
type QuantityMap map[string]int
