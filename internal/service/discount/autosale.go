package discount

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/rules"
	"go.uber.org/zap"
)

// GroupAutosales returns the lines group scoped autosale rules add to a group. Lines carry
// no ID and are already priced; rules whose product has no price are dropped.
func (r *Resolver) GroupAutosales(ctx context.Context, booking *domain.Booking, group *domain.Group) ([]*domain.Line, error) {
	if group.IsLocked || group.IsAutosale {
		return nil, nil
	}
	center, err := r.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return nil, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}
	categoryID := r.ListCategory(center.AutosaleListCategoryID, group.SojournType)
	return r.autosales(ctx, booking, group, categoryID, domain.DiscountScopeGroup, GroupScope(booking, group, categoryID))
}

// BookingAutosales returns the lines of the dedicated autosale group, matched against the
// booking as a whole.
func (r *Resolver) BookingAutosales(ctx context.Context, booking *domain.Booking, autosaleGroup *domain.Group) ([]*domain.Line, error) {
	center, err := r.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return nil, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}
	categoryID := center.AutosaleListCategoryID
	return r.autosales(ctx, booking, autosaleGroup, categoryID, domain.DiscountScopeBooking, BookingScope(booking, categoryID))
}

func (r *Resolver) autosales(ctx context.Context, booking *domain.Booking, group *domain.Group, categoryID int64, scope domain.DiscountScope, s Scope) ([]*domain.Line, error) {
	list, err := r.catalog.FindAutosaleList(ctx, categoryID, s.Date)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find autosale list: %w", err)
	}

	ops, err := r.Operands(ctx, s)
	if err != nil {
		return nil, err
	}

	var lines []*domain.Line
	for _, al := range list.Lines {
		if al.Scope != scope || !rules.Evaluate(al.Conditions, ops) {
			continue
		}
		product, err := r.catalog.GetProduct(ctx, al.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("autosale product not found", zap.Int64("autosale_line_id", al.ID), zap.Int64("product_id", al.ProductID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get product %d: %w", al.ProductID, err)
		}

		line := &domain.Line{
			GroupID:        group.ID,
			ProductID:      product.ID,
			ProductModelID: product.ProductModelID,
			IsAutosale:     true,
			HasOwnQty:      al.HasOwnQty,
		}
		if al.HasOwnQty {
			line.Qty = al.Qty
		}
		res, err := r.prices.ResolveLine(ctx, booking, group, line)
		if err != nil {
			return nil, err
		}
		if res.State != domain.PriceStateResolved {
			r.logger.Info("autosale line discarded without price",
				zap.Int64("booking_id", booking.ID),
				zap.Int64("autosale_line_id", al.ID),
				zap.String("state", string(res.State)),
			)
			continue
		}
		line.PriceState = res.State
		line.PriceID = res.PriceID
		line.UnitPrice = res.UnitPrice
		line.VatRate = res.VatRate
		line.IsTBC = res.IsTBC
		lines = append(lines, line)
	}
	return lines, nil
}
