package pricing

import (
	"github.com/Domenick1991/discope/internal/domain"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

type reduction struct {
	rate    decimal.Decimal
	amount  decimal.Decimal
	freebie decimal.Decimal
}

func collect(adapters []*domain.PriceAdapter, match func(*domain.PriceAdapter) bool) reduction {
	var r reduction
	for _, a := range adapters {
		if !match(a) {
			continue
		}
		switch a.Type {
		case domain.AdapterTypePercent:
			r.rate = r.rate.Add(a.Value)
		case domain.AdapterTypeAmount:
			r.amount = r.amount.Add(a.Value)
		case domain.AdapterTypeFreebie:
			r.freebie = r.freebie.Add(a.Value)
		}
	}
	if r.rate.GreaterThan(one) {
		r.rate = one
	}
	return r
}

// apply returns the discounted total of unitPrice x qty.
func (r reduction) apply(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	billable := decimal.NewFromInt(int64(qty)).Sub(r.freebie)
	if billable.IsNegative() {
		billable = decimal.Zero
	}
	total := unitPrice.Mul(billable).Mul(one.Sub(r.rate)).Sub(r.amount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// ComputeLine sets total (VAT excluded) and price (VAT included) of a line from its
// own adapters.
func ComputeLine(group *domain.Group, line *domain.Line) {
	r := collect(group.Adapters, func(a *domain.PriceAdapter) bool { return a.AppliesTo(line.ID) })
	total := r.apply(line.UnitPrice, line.Qty)
	line.Total = total.Round(2)
	line.Price = total.Mul(one.Add(line.VatRate)).Round(2)
}

// ComputeGroup prices every line then the group. A locked group with a pack is priced
// from the pack; otherwise the group sums its lines. Group level adapters apply once on
// the result; freebies only make sense against the pack quantity.
func ComputeGroup(group *domain.Group) {
	groupLevel := collect(group.Adapters, func(a *domain.PriceAdapter) bool { return a.IsGroupLevel() })

	for _, l := range group.Lines {
		ComputeLine(group, l)
	}

	if group.IsLocked && group.HasPack {
		total := groupLevel.apply(group.UnitPrice, group.PackQty)
		group.Total = total.Round(2)
		group.Price = total.Mul(one.Add(group.VatRate)).Round(2)
		return
	}

	total := decimal.Zero
	price := decimal.Zero
	for _, l := range group.Lines {
		total = total.Add(l.Total)
		price = price.Add(l.Price)
	}
	groupLevel.freebie = decimal.Zero
	discounted := total.Mul(one.Sub(groupLevel.rate)).Sub(groupLevel.amount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	if total.IsPositive() {
		price = price.Mul(discounted).Div(total)
	}
	group.Total = discounted.Round(2)
	group.Price = price.Round(2)
}

// ComputeBooking refreshes all group prices and the booking total.
func ComputeBooking(booking *domain.Booking) {
	total := decimal.Zero
	for _, g := range booking.Groups {
		ComputeGroup(g)
		total = total.Add(g.Price)
	}
	booking.Price = total
}

// ValidateAdapter rejects adapters that would not leave a strictly positive price.
func ValidateAdapter(a *domain.PriceAdapter) error {
	if a.Value.IsNegative() {
		return domain.NewValidationError("value", domain.ReasonInvalidAmount)
	}
	if a.Type == domain.AdapterTypePercent && a.Value.GreaterThanOrEqual(one) {
		return domain.NewValidationError("value", domain.ReasonExceededAmount)
	}
	switch a.Type {
	case domain.AdapterTypeAmount, domain.AdapterTypePercent, domain.AdapterTypeFreebie:
		return nil
	}
	return domain.NewValidationError("type", domain.ReasonInvalidValue)
}
