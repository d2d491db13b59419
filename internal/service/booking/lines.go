package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/pricing"
)

func (s *BookingService) AddLine(ctx context.Context, bookingID, groupID int64, input AddLineInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "add_line", func(b *domain.Booking, p *plan) error {
		g := b.Group(groupID)
		if g == nil {
			return fmt.Errorf("group %d: %w", groupID, domain.ErrNotFound)
		}
		if err := checkGroupEditable(b, g); err != nil {
			return err
		}
		if err := s.checkProduct(ctx, input.ProductID); err != nil {
			return err
		}
		id, err := s.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}

		line := &domain.Line{
			ID:        id,
			GroupID:   g.ID,
			Order:     len(g.Lines) + 1,
			ProductID: input.ProductID,
			IsExtra:   g.IsExtra,
		}
		if input.Qty != nil {
			if *input.Qty < 0 {
				return domain.NewValidationError("qty", domain.ReasonInvalidValue)
			}
			line.HasOwnQty = true
			line.Qty = *input.Qty
		}
		g.Lines = append(g.Lines, line)
		p.lineProductChanged(g.ID, line.ID)
		return nil
	})
}

func (s *BookingService) UpdateLine(ctx context.Context, bookingID, lineID int64, input UpdateLineInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "update_line", func(b *domain.Booking, p *plan) error {
		g, l := b.Line(lineID)
		if l == nil {
			return fmt.Errorf("line %d: %w", lineID, domain.ErrNotFound)
		}
		if err := checkLineEditable(b, g, l); err != nil {
			return err
		}

		if input.ProductID != nil && *input.ProductID != l.ProductID {
			if err := s.checkProduct(ctx, *input.ProductID); err != nil {
				return err
			}
			l.ProductID = *input.ProductID
			l.DetachPrice()
			l.QtyVars = nil
			p.lineProductChanged(g.ID, l.ID)
		}
		if input.Qty != nil {
			if *input.Qty < 0 {
				return domain.NewValidationError("qty", domain.ReasonInvalidValue)
			}
			l.HasOwnQty = true
			l.Qty = *input.Qty
			p.lineQtyChanged(g.ID)
		}
		if input.ResetQty {
			l.HasOwnQty = false
			p.lineQtyChanged(g.ID)
		}
		if input.QtyVars != nil {
			l.QtyVars = append(domain.QtyVars(nil), (*input.QtyVars)...)
			p.lineQtyChanged(g.ID)
		}
		if input.UnitPrice != nil {
			if input.UnitPrice.IsNegative() {
				return domain.NewValidationError("unit_price", domain.ReasonInvalidAmount)
			}
			l.HasManualUnitPrice = true
			l.UnitPrice = *input.UnitPrice
			p.booking(stepTotals)
		}
		if input.ResetUnitPrice {
			l.HasManualUnitPrice = false
			p.line(g.ID, l.ID, stepPrice)
			p.booking(stepTotals)
		}
		return nil
	})
}

func (s *BookingService) DeleteLine(ctx context.Context, bookingID, lineID int64) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "delete_line", func(b *domain.Booking, p *plan) error {
		g, l := b.Line(lineID)
		if l == nil {
			return fmt.Errorf("line %d: %w", lineID, domain.ErrNotFound)
		}
		if err := checkLineEditable(b, g, l); err != nil {
			return err
		}
		g.RemoveLine(l.ID)
		pruneAdapters(g)
		pruneSPMs(g)
		p.group(g.ID, stepAdapters, stepAssignment)
		p.booking(stepTotals)
		return nil
	})
}

// CreateAdapter adds a manual price adapter to a group or one of its lines.
func (s *BookingService) CreateAdapter(ctx context.Context, bookingID, groupID int64, input AdapterInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "create_adapter", func(b *domain.Booking, p *plan) error {
		g := b.Group(groupID)
		if g == nil {
			return fmt.Errorf("group %d: %w", groupID, domain.ErrNotFound)
		}
		if err := checkGroupEditable(b, g); err != nil {
			return err
		}
		if input.LineID != nil && g.Line(*input.LineID) == nil {
			return domain.NewValidationError("line_id", domain.ReasonInvalidValue)
		}
		adapter := &domain.PriceAdapter{
			BookingID: b.ID,
			GroupID:   g.ID,
			Type:      input.Type,
			Value:     input.Value,
			IsManual:  true,
		}
		if input.LineID != nil {
			adapter.LineID = domain.ID(*input.LineID)
		}
		if err := pricing.ValidateAdapter(adapter); err != nil {
			return err
		}
		id, err := s.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		adapter.ID = id
		g.Adapters = append(g.Adapters, adapter)
		p.booking(stepTotals)
		return nil
	})
}

// UpdateAdapter edits a manual adapter. Computed adapters are owned by the discount lists.
func (s *BookingService) UpdateAdapter(ctx context.Context, bookingID, adapterID int64, input UpdateAdapterInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "update_adapter", func(b *domain.Booking, p *plan) error {
		g, a := b.Adapter(adapterID)
		if a == nil {
			return fmt.Errorf("adapter %d: %w", adapterID, domain.ErrNotFound)
		}
		if !a.IsManual {
			return notAllowed("adapter_id")
		}
		if err := checkGroupEditable(b, g); err != nil {
			return err
		}
		if input.Type != nil {
			a.Type = *input.Type
		}
		if input.Value != nil {
			a.Value = *input.Value
		}
		if err := pricing.ValidateAdapter(a); err != nil {
			return err
		}
		p.booking(stepTotals)
		return nil
	})
}

func (s *BookingService) checkProduct(ctx context.Context, productID int64) error {
	product, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("product_id", domain.ReasonUnknownProduct)
	}
	if err != nil {
		return fmt.Errorf("get product %d: %w", productID, err)
	}
	if product.IsPack {
		return domain.NewValidationError("product_id", domain.ReasonInvalidValue)
	}
	return nil
}
