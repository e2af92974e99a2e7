// Package models defines the core data structures of the food diary:
// entries, edit sessions, mirror connection settings and statistics.
package models

import (
	"slices"
	"strings"
	"time"
)

// Entry is a single diary record.
type Entry struct {
	// ID is the unique identifier of the entry, assigned at creation.
	ID string
	// Products lists the eaten products in the order they were added.
	Products []string
	// Date is the creation time of the entry. Edits never change it.
	Date time.Time
	// HasAllergy reports whether an allergic reaction followed the meal.
	HasAllergy bool
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	e.Products = slices.Clone(e.Products)
	return e
}

// HasProduct reports whether the entry contains the given product.
func (e Entry) HasProduct(product string) bool {
	return slices.Contains(e.Products, product)
}

// EditingEntry holds the state of an entry while it is being edited.
// It is owned by the caller and is never persisted.
type EditingEntry struct {
	// ID identifies the entry being edited.
	ID string `json:"id"`
	// Products is a private copy of the entry's products.
	Products []string `json:"products"`
	// HasAllergy is the edited allergy flag.
	HasAllergy bool `json:"hasAllergy"`
}

// NewEditingEntry starts an edit session for e.
func NewEditingEntry(e Entry) EditingEntry {
	return EditingEntry{
		ID:         e.ID,
		Products:   slices.Clone(e.Products),
		HasAllergy: e.HasAllergy,
	}
}

// AddProduct appends a trimmed product name. Empty names and names that are
// already present are ignored; the return value reports whether the list changed.
func (e *EditingEntry) AddProduct(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || slices.Contains(e.Products, trimmed) {
		return false
	}
	e.Products = append(e.Products, trimmed)
	return true
}

// RemoveProduct drops the product from the list if present.
func (e *EditingEntry) RemoveProduct(name string) {
	e.Products = slices.DeleteFunc(e.Products, func(p string) bool { return p == name })
}

// NormalizeProducts trims every name, drops empty ones and removes
// duplicates while keeping the first occurrence order.
func NormalizeProducts(products []string) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || slices.Contains(out, trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// AllergyFilter selects which entries the history shows.
type AllergyFilter string

const (
	// FilterAll shows every entry.
	FilterAll AllergyFilter = "all"
	// FilterAllergy shows only entries followed by a reaction.
	FilterAllergy AllergyFilter = "allergy"
	// FilterSafe shows only entries without a reaction.
	FilterSafe AllergyFilter = "safe"
)

// ParseAllergyFilter converts s into a filter, defaulting to FilterAll.
func ParseAllergyFilter(s string) AllergyFilter {
	switch AllergyFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterAllergy:
		return FilterAllergy
	case FilterSafe:
		return FilterSafe
	default:
		return FilterAll
	}
}

// Match reports whether e passes the filter.
func (f AllergyFilter) Match(e Entry) bool {
	switch f {
	case FilterAllergy:
		return e.HasAllergy
	case FilterSafe:
		return !e.HasAllergy
	default:
		return true
	}
}

// AllergyStat describes how often a product was followed by a reaction.
type AllergyStat struct {
	// Product is the product name.
	Product string `json:"product"`
	// Frequency is the number of entries with this product and a reaction.
	Frequency int `json:"frequency"`
	// Percentage is the rounded share of such entries among all entries with the product.
	Percentage int `json:"percentage"`
}
