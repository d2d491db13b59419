// Package pricing resolves price list entries and computes line and group prices.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolution is the outcome of a price lookup.
type Resolution struct {
	State     domain.PriceState
	PriceID   *int64
	UnitPrice decimal.Decimal
	VatRate   decimal.Decimal
	IsTBC     bool
}

var unresolved = Resolution{State: domain.PriceStateUnresolved}

type Resolver struct {
	catalog repository.CatalogRepository
	logger  *zap.Logger
}

func NewResolver(catalog repository.CatalogRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// ResolveLine finds the price of a line. Contract-locked bookings reuse the price of a
// sibling line selling the same product.
func (r *Resolver) ResolveLine(ctx context.Context, booking *domain.Booking, group *domain.Group, line *domain.Line) (Resolution, error) {
	if booking.IsLocked {
		if res, ok := siblingPrice(booking, line); ok {
			return res, nil
		}
	}

	center, err := r.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return unresolved, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}

	for _, status := range []domain.PriceListStatus{domain.PriceListStatusPublished, domain.PriceListStatusPending} {
		lists, err := r.catalog.FindPriceLists(ctx, center.PriceListCategoryID, group.DateFrom, []domain.PriceListStatus{status})
		if err != nil {
			return unresolved, fmt.Errorf("find price lists: %w", err)
		}
		for _, list := range lists {
			price, err := r.catalog.FindPrice(ctx, list.ID, line.ProductID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return unresolved, fmt.Errorf("find price: %w", err)
			}
			return fromPrice(price, status != domain.PriceListStatusPublished), nil
		}
	}

	r.logger.Warn("no price found for line",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("group_id", group.ID),
		zap.Int64("line_id", line.ID),
		zap.Int64("product_id", line.ProductID),
	)
	return unresolved, nil
}

// ResolvePack searches pending and published lists in one pass: the first published
// match wins, a pending one is only kept as a fallback.
func (r *Resolver) ResolvePack(ctx context.Context, booking *domain.Booking, group *domain.Group) (Resolution, error) {
	if group.PackID == nil {
		return unresolved, nil
	}
	center, err := r.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return unresolved, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}
	lists, err := r.catalog.FindPriceLists(ctx, center.PriceListCategoryID, group.DateFrom,
		[]domain.PriceListStatus{domain.PriceListStatusPending, domain.PriceListStatusPublished})
	if err != nil {
		return unresolved, fmt.Errorf("find price lists: %w", err)
	}

	var tentative *Resolution
	for _, list := range lists {
		price, err := r.catalog.FindPrice(ctx, list.ID, *group.PackID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return unresolved, fmt.Errorf("find price: %w", err)
		}
		if list.Status == domain.PriceListStatusPublished {
			return fromPrice(price, false), nil
		}
		if tentative == nil {
			res := fromPrice(price, true)
			tentative = &res
		}
	}
	if tentative != nil {
		return *tentative, nil
	}

	r.logger.Warn("no price found for pack",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("group_id", group.ID),
		zap.Int64("pack_id", *group.PackID),
	)
	return unresolved, nil
}

// ApplyToLine stores a resolution on the line. Manual unit prices survive a miss.
func ApplyToLine(line *domain.Line, res Resolution) {
	line.PriceState = res.State
	if res.State == domain.PriceStateUnresolved {
		line.DetachPrice()
		if !line.HasManualUnitPrice {
			line.UnitPrice = decimal.Zero
			line.VatRate = decimal.Zero
		}
		return
	}
	line.PriceID = res.PriceID
	line.IsTBC = res.IsTBC
	line.VatRate = res.VatRate
	if !line.HasManualUnitPrice {
		line.UnitPrice = res.UnitPrice
	}
}

func ApplyToGroup(group *domain.Group, res Resolution) {
	group.PriceState = res.State
	group.IsTBC = res.IsTBC
	group.UnitPrice = res.UnitPrice
	group.VatRate = res.VatRate
}

func siblingPrice(booking *domain.Booking, line *domain.Line) (Resolution, bool) {
	for _, g := range booking.Groups {
		for _, l := range g.Lines {
			if l.ID == line.ID || l.ProductID != line.ProductID {
				continue
			}
			if l.PriceState == domain.PriceStateUnresolved || l.PriceState == "" {
				continue
			}
			res := Resolution{
				State:     l.PriceState,
				UnitPrice: l.UnitPrice,
				VatRate:   l.VatRate,
				IsTBC:     l.IsTBC,
			}
			if l.PriceID != nil {
				res.PriceID = domain.ID(*l.PriceID)
			}
			return res, true
		}
	}
	return Resolution{}, false
}

func fromPrice(price *domain.Price, tbc bool) Resolution {
	state := domain.PriceStateResolved
	if price.Price.IsZero() {
		state = domain.PriceStateFree
	}
	return Resolution{
		State:     state,
		PriceID:   domain.ID(price.ID),
		UnitPrice: price.Price,
		VatRate:   price.VatRate,
		IsTBC:     tbc,
	}
}
