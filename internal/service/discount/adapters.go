package discount

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/rules"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GroupAdapters computes the non-manual price adapters of a group from the discount list
// matching its center, rate class and arrival date. The returned adapters carry no ID;
// callers replace every previous non-manual adapter with them.
func (r *Resolver) GroupAdapters(ctx context.Context, booking *domain.Booking, group *domain.Group) ([]*domain.PriceAdapter, error) {
	if group.IsLocked || group.IsAutosale {
		return nil, nil
	}

	center, err := r.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return nil, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}
	categoryID := r.ListCategory(center.DiscountListCategoryID, group.SojournType)

	list, err := r.catalog.FindDiscountList(ctx, categoryID, group.RateClassID, group.DateFrom)
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Debug("no discount list",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("group_id", group.ID),
			zap.Int64("category_id", categoryID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find discount list: %w", err)
	}

	ops, err := r.Operands(ctx, GroupScope(booking, group, categoryID))
	if err != nil {
		return nil, err
	}

	var matched []domain.Discount
	for _, d := range list.Discounts {
		if rules.Evaluate(d.Conditions, ops) {
			matched = append(matched, d)
		}
	}

	b := builder{booking: booking, group: group, list: list, ops: ops, manualFreebies: center.Office.FreebiesManualAssignment}
	groupRate := b.groupLevel(matched)

	for _, line := range group.Lines {
		if !eligible(group.SojournType, line) {
			continue
		}
		product, err := r.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn("discount skipped for unknown product",
					zap.Int64("line_id", line.ID), zap.Int64("product_id", line.ProductID))
				continue
			}
			return nil, fmt.Errorf("get product %d: %w", line.ProductID, err)
		}
		b.lineLevel(matched, line, product, groupRate)
	}

	sort.SliceStable(b.out, func(i, j int) bool {
		return lineKey(b.out[i]) < lineKey(b.out[j])
	})
	return b.out, nil
}

// ReplaceAdapters swaps the non-manual adapters of a group with a computed set.
func ReplaceAdapters(group *domain.Group, computed []*domain.PriceAdapter) {
	adapters := group.ManualAdapters()
	for _, a := range computed {
		a.BookingID = group.BookingID
		a.GroupID = group.ID
		adapters = append(adapters, a)
	}
	group.Adapters = adapters
}

type builder struct {
	booking        *domain.Booking
	group          *domain.Group
	list           *domain.DiscountList
	ops            rules.Operands
	manualFreebies bool
	out            []*domain.PriceAdapter
}

func (b *builder) capped() bool {
	return b.list.RateMax.IsPositive()
}

// groupLevel emits the rate_min floor and the booking scoped discounts, returning the
// percent rate they add up to.
func (b *builder) groupLevel(matched []domain.Discount) decimal.Decimal {
	rate := decimal.Zero
	if b.list.RateMin.IsPositive() {
		floor := b.list.RateMin
		if b.capped() && floor.GreaterThan(b.list.RateMax) {
			floor = b.list.RateMax
		}
		b.emit(nil, nil, domain.AdapterTypePercent, floor)
		rate = floor
	}

	overflow := false
	for i := range matched {
		d := &matched[i]
		if d.Scope != domain.DiscountScopeBooking {
			continue
		}
		switch d.Type {
		case domain.AdapterTypePercent:
			if b.capped() && rate.Add(d.Value).GreaterThan(b.list.RateMax) {
				overflow = true
				continue
			}
			rate = rate.Add(d.Value)
			b.emit(nil, d, d.Type, d.Value)
		case domain.AdapterTypeFreebie:
			if b.manualFreebies || !b.group.HasPack {
				continue
			}
			if v := b.freebieValue(d, b.group.NbNights()); v.IsPositive() {
				b.emit(nil, d, d.Type, v)
			}
		default:
			b.emit(nil, d, d.Type, d.Value)
		}
	}
	if overflow {
		rate = b.topUp(nil, rate)
	}
	return rate
}

func (b *builder) lineLevel(matched []domain.Discount, line *domain.Line, product *domain.Product, groupRate decimal.Decimal) {
	rate := groupRate
	overflow := false
	lineID := line.ID
	for i := range matched {
		d := &matched[i]
		if d.Scope != domain.DiscountScopeLine {
			continue
		}
		if len(d.AgeRangeIDs) > 0 && (product.AgeRangeID == nil || !d.TargetsAgeRange(*product.AgeRangeID)) {
			continue
		}
		switch d.Type {
		case domain.AdapterTypePercent:
			if b.capped() && rate.Add(d.Value).GreaterThan(b.list.RateMax) {
				overflow = true
				continue
			}
			rate = rate.Add(d.Value)
			b.emit(&lineID, d, d.Type, d.Value)
		case domain.AdapterTypeFreebie:
			if b.manualFreebies || line.QtyAccountingMethod == domain.QtyAccountingAccomodation {
				continue
			}
			factor := b.group.NbNights()
			if n, ok := product.FixedDuration(); ok {
				factor = n
			}
			if v := b.freebieValue(d, factor); v.IsPositive() {
				b.emit(&lineID, d, d.Type, v)
			}
		default:
			b.emit(&lineID, d, d.Type, d.Value)
		}
	}
	if overflow {
		b.topUp(&lineID, rate)
	}
}

// topUp replaces dropped percent discounts with one adapter bringing the rate to rate_max.
func (b *builder) topUp(lineID *int64, rate decimal.Decimal) decimal.Decimal {
	rest := b.list.RateMax.Sub(rate)
	if !rest.IsPositive() {
		return rate
	}
	b.emit(lineID, nil, domain.AdapterTypePercent, rest)
	return b.list.RateMax
}

// freebieValue scales a freebie by its repetition factor and caps it with the operand
// named by value_max.
func (b *builder) freebieValue(d *domain.Discount, factor int) decimal.Decimal {
	if factor < 1 {
		factor = 1
	}
	v := d.Value.Mul(decimal.NewFromInt(int64(factor)))
	if d.ValueMax == "" {
		return v
	}
	limit, ok := b.ops[d.ValueMax]
	if !ok {
		n, err := decimal.NewFromString(d.ValueMax)
		if err != nil {
			return v
		}
		limit = rules.Decimal(n)
	}
	if limit.IsNumeric() && v.GreaterThan(limit.Decimal()) {
		return limit.Decimal()
	}
	return v
}

func (b *builder) emit(lineID *int64, d *domain.Discount, typ domain.AdapterType, value decimal.Decimal) {
	a := &domain.PriceAdapter{
		BookingID:      b.booking.ID,
		GroupID:        b.group.ID,
		Type:           typ,
		Value:          value,
		DiscountListID: domain.ID(b.list.ID),
	}
	if lineID != nil {
		a.LineID = domain.ID(*lineID)
	}
	if d != nil {
		a.DiscountID = domain.ID(d.ID)
	}
	b.out = append(b.out, a)
}

// eligible applies the sojourn type filter: GG discounts only touch accommodation, GA
// also touches meals.
func eligible(t domain.SojournType, line *domain.Line) bool {
	if t == domain.SojournTypeGG {
		return line.IsAccomodation
	}
	return line.IsAccomodation || line.IsMeal
}

func lineKey(a *domain.PriceAdapter) int64 {
	if a.LineID == nil {
		return -1
	}
	return *a.LineID
}
