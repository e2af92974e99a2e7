// Package stats computes per-product allergy statistics over diary entries.
package stats

import (
	"math"
	"slices"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// Summary holds the diary totals shown next to the per-product statistics.
type Summary struct {
	Entries   int                  `json:"entries"`
	Allergies int                  `json:"allergies"`
	Products  []models.AllergyStat `json:"products"`
}

type counter struct {
	total     int
	allergies int
}

// Aggregate returns one stat per product that was followed by a reaction at
// least once, ordered by frequency descending. Products with equal frequency
// keep the order in which they were first seen.
func Aggregate(entries []models.Entry) []models.AllergyStat {
	var order []string
	counts := make(map[string]*counter)

	for _, e := range entries {
		for _, p := range e.Products {
			c, ok := counts[p]
			if !ok {
				c = &counter{}
				counts[p] = c
				order = append(order, p)
			}
			c.total++
			if e.HasAllergy {
				c.allergies++
			}
		}
	}

	out := make([]models.AllergyStat, 0, len(order))
	for _, p := range order {
		c := counts[p]
		if c.allergies == 0 {
			continue
		}
		out = append(out, models.AllergyStat{
			Product:    p,
			Frequency:  c.allergies,
			Percentage: int(math.Round(100 * float64(c.allergies) / float64(c.total))),
		})
	}

	slices.SortStableFunc(out, func(a, b models.AllergyStat) int {
		return b.Frequency - a.Frequency
	})
	return out
}

// Summarize returns the totals and the aggregated product stats.
func Summarize(entries []models.Entry) Summary {
	s := Summary{Entries: len(entries), Products: Aggregate(entries)}
	for _, e := range entries {
		if e.HasAllergy {
			s.Allergies++
		}
	}
	return s
}
