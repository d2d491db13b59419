// Package quantity computes line quantities from accounting method, duration and occupancy.
package quantity

import (
	"github.com/Domenick1991/discope/internal/domain"
)

// ComputeLineQty is the base quantity of a line before day-by-day variations.
// A capacity of 0 means unlimited.
func ComputeLineQty(method domain.QtyAccountingMethod, nbRepeat, nbPers int, isRepeatable, isAccomodation bool, capacity int) int {
	switch method {
	case domain.QtyAccountingAccomodation:
		if isRepeatable {
			if capacity > 0 && capacity < nbPers {
				return nbRepeat * ceilDiv(nbPers, capacity)
			}
			return nbRepeat
		}
		if capacity > 0 {
			if n := ceilDiv(nbPers, capacity); n > 0 {
				return n
			}
		}
		return 1
	case domain.QtyAccountingPerson:
		if isRepeatable {
			if isAccomodation && capacity > 0 {
				return nbRepeat * ceilDiv(nbPers, capacity)
			}
			return nbPers * nbRepeat
		}
		return nbPers
	default:
		return nbRepeat
	}
}

// NbRepeat is the number of times a product is delivered over a group.
func NbRepeat(product *domain.Product, group *domain.Group) int {
	if product != nil {
		if d, ok := product.FixedDuration(); ok {
			return d
		}
	}
	switch {
	case group.IsSojourn:
		if n := group.NbNights(); n > 1 {
			return n
		}
		return 1
	case group.IsEvent:
		return group.NbNights() + 1
	default:
		return 1
	}
}

// SyncQtyVars pads with zeros or truncates so that len(vars) == nbRepeat.
// An empty slice stays empty: no variation was ever recorded.
func SyncQtyVars(vars domain.QtyVars, nbRepeat int) domain.QtyVars {
	if len(vars) == 0 || len(vars) == nbRepeat {
		return vars
	}
	if nbRepeat <= 0 {
		return domain.QtyVars{}
	}
	out := make(domain.QtyVars, nbRepeat)
	copy(out, vars)
	return out
}

// ApplyQtyVars adds the per-day deltas on top of the base quantity.
func ApplyQtyVars(base int, vars domain.QtyVars) int {
	qty := base + vars.Sum()
	if qty < 0 {
		return 0
	}
	return qty
}

// Occupancy is the headcount a line applies to: the age range qty when the product
// targets one, the group nb_pers otherwise.
func Occupancy(product *domain.Product, group *domain.Group) int {
	if product != nil && product.AgeRangeID != nil {
		if qty, ok := group.AgeRangeQty(*product.AgeRangeID); ok {
			return qty
		}
	}
	return group.NbPers
}

// LineQty recomputes the quantity of a line, leaving manually fixed quantities alone.
func LineQty(line *domain.Line, product *domain.Product, model *domain.ProductModel, group *domain.Group) int {
	if line.HasOwnQty {
		return line.Qty
	}
	nbRepeat := NbRepeat(product, group)
	method := domain.QtyAccountingUnit
	var repeatable, accomodation bool
	var capacity int
	if model != nil {
		method = model.QtyAccountingMethod
		repeatable = model.IsRepeatable
		accomodation = model.IsAccomodation
		capacity = model.Capacity
	}
	base := ComputeLineQty(method, nbRepeat, Occupancy(product, group), repeatable, accomodation, capacity)
	return ApplyQtyVars(base, line.QtyVars)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
