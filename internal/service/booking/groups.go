package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/discope/internal/domain"
)

func (s *BookingService) CreateGroup(ctx context.Context, bookingID int64, input CreateGroupInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "create_group", func(b *domain.Booking, p *plan) error {
		if err := checkNewGroup(b); err != nil {
			return err
		}
		ageRanges, err := s.ageRanges(ctx, input.AgeRanges)
		if err != nil {
			return err
		}
		id, err := s.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}

		g := &domain.Group{
			ID:              id,
			BookingID:       b.ID,
			Name:            input.Name,
			Order:           len(b.Groups) + 1,
			DateFrom:        input.DateFrom,
			DateTo:          input.DateTo,
			TimeFrom:        input.TimeFrom,
			TimeTo:          input.TimeTo,
			NbPers:          input.NbPers,
			IsSojourn:       input.IsSojourn,
			IsEvent:         input.IsEvent,
			IsExtra:         b.Status != domain.BookingStatusQuote,
			RateClassID:     input.RateClassID,
			SojournType:     input.SojournType,
			AgeRanges:       ageRanges,
			MealPreferences: append([]domain.MealPreference(nil), input.MealPreferences...),
		}
		if g.SojournType == "" {
			g.SojournType = domain.SojournTypeGA
		}
		g.RefreshNbChildren()
		if err := checkGroupValues(g); err != nil {
			return err
		}
		if err := checkMealPreferences(g); err != nil {
			return err
		}

		b.Groups = append(b.Groups, g)
		if input.PackID != nil {
			g.PackID = domain.ID(*input.PackID)
			p.group(g.ID, stepPack, stepLineFlags)
		}
		p.groupChanged(g.ID)
		return nil
	})
}

func (s *BookingService) UpdateGroup(ctx context.Context, bookingID, groupID int64, input UpdateGroupInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "update_group", func(b *domain.Booking, p *plan) error {
		g := b.Group(groupID)
		if g == nil {
			return fmt.Errorf("group %d: %w", groupID, domain.ErrNotFound)
		}
		if err := checkGroupEditable(b, g); err != nil {
			return err
		}

		changed := false
		if input.Name != nil {
			g.Name = *input.Name
		}
		if input.DateFrom != nil && !input.DateFrom.Equal(g.DateFrom) {
			g.DateFrom = *input.DateFrom
			changed = true
		}
		if input.DateTo != nil && !input.DateTo.Equal(g.DateTo) {
			g.DateTo = *input.DateTo
			changed = true
		}
		if input.TimeFrom != nil && *input.TimeFrom != g.TimeFrom {
			g.TimeFrom = *input.TimeFrom
			changed = true
		}
		if input.TimeTo != nil && *input.TimeTo != g.TimeTo {
			g.TimeTo = *input.TimeTo
			changed = true
		}

		if input.NbPers != nil && *input.NbPers != g.NbPers {
			g.NbPers = *input.NbPers
			if len(g.AgeRanges) == 1 && input.AgeRanges == nil {
				g.AgeRanges[0].Qty = g.NbPers
			}
			changed = true
		}
		if input.AgeRanges != nil {
			ageRanges, err := s.ageRanges(ctx, *input.AgeRanges)
			if err != nil {
				return err
			}
			g.AgeRanges = ageRanges
			if err := s.dropAgeRangeLines(ctx, g); err != nil {
				return err
			}
			changed = true
		}
		g.RefreshNbChildren()

		if input.DetachPack && g.PackID != nil {
			g.DetachPack()
			g.IsLocked = false
			changed = true
		}
		if input.PackID != nil && (g.PackID == nil || *g.PackID != *input.PackID) {
			g.PackID = domain.ID(*input.PackID)
			p.group(g.ID, stepPack, stepLineFlags)
			changed = true
		}

		if input.RateClassID != nil && *input.RateClassID != g.RateClassID {
			g.RateClassID = *input.RateClassID
			p.pricingChanged(g.ID)
		}
		if input.SojournType != nil && *input.SojournType != g.SojournType {
			g.SojournType = *input.SojournType
			p.pricingChanged(g.ID)
		}
		if input.MealPreferences != nil {
			g.MealPreferences = append([]domain.MealPreference(nil), (*input.MealPreferences)...)
			p.group(g.ID, stepMealPreferences)
		}
		if input.HasLockedRentalUnits != nil && *input.HasLockedRentalUnits != g.HasLockedRentalUnits {
			g.HasLockedRentalUnits = *input.HasLockedRentalUnits
			if !g.HasLockedRentalUnits {
				p.group(g.ID, stepAssignment)
			}
		}

		if err := checkGroupValues(g); err != nil {
			return err
		}
		if err := checkMealPreferences(g); err != nil {
			return err
		}
		if changed {
			p.groupChanged(g.ID)
		}
		return nil
	})
}

func (s *BookingService) DeleteGroup(ctx context.Context, bookingID, groupID int64) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "delete_group", func(b *domain.Booking, p *plan) error {
		g := b.Group(groupID)
		if g == nil {
			return fmt.Errorf("group %d: %w", groupID, domain.ErrNotFound)
		}
		if err := checkGroupEditable(b, g); err != nil {
			return err
		}
		b.RemoveGroup(g.ID)
		if g.HasConsumptions {
			p.regenerate(g.ID)
		}
		p.booking(stepBookingAutosales, stepTotals)
		return nil
	})
}

// ageRanges resolves the child flag of each assigned age range.
func (s *BookingService) ageRanges(ctx context.Context, input []AgeRangeInput) ([]domain.AgeRangeAssignment, error) {
	out := make([]domain.AgeRangeAssignment, 0, len(input))
	seen := make(map[int64]bool, len(input))
	for _, a := range input {
		if seen[a.AgeRangeID] || a.Qty < 0 {
			return nil, domain.NewValidationError("age_range_assignments", domain.ReasonInvalidValue)
		}
		seen[a.AgeRangeID] = true
		ar, err := s.catalog.GetAgeRange(ctx, a.AgeRangeID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("age_range_assignments", domain.ReasonInvalidValue)
		}
		if err != nil {
			return nil, fmt.Errorf("get age range %d: %w", a.AgeRangeID, err)
		}
		out = append(out, domain.AgeRangeAssignment{AgeRangeID: ar.ID, Qty: a.Qty, IsChild: ar.IsChild})
	}
	return out, nil
}

// dropAgeRangeLines removes lines whose product targets an age range the group lost.
func (s *BookingService) dropAgeRangeLines(ctx context.Context, g *domain.Group) error {
	lines := make([]*domain.Line, 0, len(g.Lines))
	for _, l := range g.Lines {
		product, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get product %d: %w", l.ProductID, err)
		}
		if product != nil && product.AgeRangeID != nil {
			if _, ok := g.AgeRangeQty(*product.AgeRangeID); !ok {
				continue
			}
		}
		lines = append(lines, l)
	}
	g.Lines = lines
	pruneAdapters(g)
	pruneSPMs(g)
	return nil
}
