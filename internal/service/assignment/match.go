// Package assignment picks rental units for the rental-unit lines of a group and keeps
// the sojourn product model assignments in sync.
package assignment

import (
	"sort"

	"github.com/Domenick1991/discope/internal/domain"
)

// DefaultMaxCombinations bounds the exact-sum search.
const DefaultMaxCombinations = 1000

// Match selects units whose capacities cover need. The second result is false when the
// candidates cannot cover need at all; the selection then holds every candidate.
func Match(units []domain.RentalUnit, need, maxCombinations int) ([]domain.RentalUnit, bool) {
	if need <= 0 {
		return nil, true
	}
	if len(units) == 0 {
		return nil, false
	}
	if maxCombinations <= 0 {
		maxCombinations = DefaultMaxCombinations
	}

	asc := append([]domain.RentalUnit(nil), units...)
	sort.SliceStable(asc, func(i, j int) bool {
		if asc[i].Capacity != asc[j].Capacity {
			return asc[i].Capacity < asc[j].Capacity
		}
		return asc[i].ID < asc[j].ID
	})

	for _, u := range asc {
		if u.Capacity == need {
			return []domain.RentalUnit{u}, true
		}
	}
	if asc[0].Capacity > need {
		return []domain.RentalUnit{asc[0]}, true
	}

	var alternate *domain.RentalUnit
	total := 0
	for i := range asc {
		total += asc[i].Capacity
		if alternate == nil && asc[i].Capacity > need {
			alternate = &asc[i]
		}
	}
	if total < need {
		return asc, false
	}

	desc := make([]domain.RentalUnit, len(asc))
	for i := range asc {
		desc[len(asc)-1-i] = asc[i]
	}

	combos := Combinations(desc, need, maxCombinations)
	if len(combos) > 0 {
		best := combos[0]
		for _, c := range combos[1:] {
			if len(c) < len(best) {
				best = c
			}
		}
		// A single bigger unit wins over a combination with too many units for the spare beds.
		if alternate != nil && float64(len(best)) > float64(alternate.Capacity-need)/2 {
			return []domain.RentalUnit{*alternate}, true
		}
		return best, true
	}
	if alternate != nil {
		return []domain.RentalUnit{*alternate}, true
	}
	return cover(desc, need), true
}

// Combinations lists the subsets of units (sorted by descending capacity) whose capacities
// add up to target. Equal capacities at the same depth are only tried once.
func Combinations(units []domain.RentalUnit, target, limit int) [][]domain.RentalUnit {
	var (
		out  [][]domain.RentalUnit
		path []domain.RentalUnit
		walk func(start, sum int)
	)
	walk = func(start, sum int) {
		if len(out) >= limit {
			return
		}
		if sum == target {
			out = append(out, append([]domain.RentalUnit(nil), path...))
			return
		}
		for i := start; i < len(units); i++ {
			if i > start && units[i].Capacity == units[i-1].Capacity {
				continue
			}
			if units[i].Capacity <= 0 || sum+units[i].Capacity > target {
				continue
			}
			path = append(path, units[i])
			walk(i+1, sum+units[i].Capacity)
			path = path[:len(path)-1]
		}
	}
	walk(0, 0)
	return out
}

// cover takes the biggest units until need is reached, then swaps the last one for the
// smallest unit that still covers.
func cover(desc []domain.RentalUnit, need int) []domain.RentalUnit {
	var picked []domain.RentalUnit
	sum := 0
	last := -1
	for i, u := range desc {
		if sum >= need {
			break
		}
		picked = append(picked, u)
		sum += u.Capacity
		last = i
	}
	if last < 0 {
		return picked
	}
	base := sum - desc[last].Capacity
	for j := len(desc) - 1; j > last; j-- {
		if base+desc[j].Capacity >= need {
			picked[len(picked)-1] = desc[j]
			break
		}
	}
	return picked
}
