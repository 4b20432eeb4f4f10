package domain

import "strings"

// Category is the collectible taxonomy used across classification, grading and fusion.
type Category string

const (
	CategoryCards            Category = "cards"
	CategoryPorcelain        Category = "porcelain"
	CategoryCoin             Category = "coin"
	CategoryStamp            Category = "stamp"
	CategoryToy              Category = "toy"
	CategoryComic            Category = "comic"
	CategoryRetroElectronics Category = "retro_electronics"
)

// BaseCategories are the categories a fallback classification may pick from.
var BaseCategories = []Category{
	CategoryCards,
	CategoryPorcelain,
	CategoryCoin,
	CategoryStamp,
	CategoryToy,
}

var knownCategories = map[Category]struct{}{
	CategoryCards:            {},
	CategoryPorcelain:        {},
	CategoryCoin:             {},
	CategoryStamp:            {},
	CategoryToy:              {},
	CategoryComic:            {},
	CategoryRetroElectronics: {},
}

func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownCategories[c]
	return c, ok
}

func (c Category) String() string {
	return string(c)
}
