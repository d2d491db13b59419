package booking

import (
	"github.com/Domenick1991/discope/internal/domain"
)

// Fields an invoiced booking still accepts.
var invoicedAllowList = map[string]bool{
	"description":       true,
	"payment_reference": true,
}

func notAllowed(field string) error {
	return domain.NewValidationError(field, domain.ReasonNotAllowed)
}

// checkGroupEditable enforces the lifecycle locks of a group. Non-extra groups are frozen
// once the booking left the quote status, extra ones once their consumptions exist.
func checkGroupEditable(b *domain.Booking, g *domain.Group) error {
	if b.Status.IsInvoicedFamily() || b.Status == domain.BookingStatusCancelled {
		return notAllowed("status")
	}
	if g.IsAutosale {
		return notAllowed("group_id")
	}
	if g.IsExtra {
		if g.HasConsumptions {
			return notAllowed("group_id")
		}
		return nil
	}
	if b.Status != domain.BookingStatusQuote {
		return notAllowed("group_id")
	}
	return nil
}

func checkLineEditable(b *domain.Booking, g *domain.Group, l *domain.Line) error {
	if b.Status.IsInvoicedFamily() || b.Status == domain.BookingStatusCancelled {
		return notAllowed("status")
	}
	if g.IsAutosale || l.IsAutosale {
		return notAllowed("line_id")
	}
	if g.IsExtra || l.IsExtra {
		if g.HasConsumptions {
			return notAllowed("line_id")
		}
		return nil
	}
	if b.Status != domain.BookingStatusQuote {
		return notAllowed("line_id")
	}
	return nil
}

// checkNewGroup allows adding groups to a quote, and extra groups until invoicing.
func checkNewGroup(b *domain.Booking) error {
	if b.Status.IsInvoicedFamily() || b.Status == domain.BookingStatusCancelled {
		return notAllowed("status")
	}
	return nil
}

// checkBookingUpdate validates a header update against the booking state.
func checkBookingUpdate(b *domain.Booking, in UpdateBookingInput) error {
	changed := make(map[string]bool)
	if in.CustomerID != nil && *in.CustomerID != b.CustomerID {
		changed["customer_id"] = true
	}
	if in.CenterID != nil && *in.CenterID != b.CenterID {
		changed["center_id"] = true
	}
	if in.Description != nil {
		changed["description"] = true
	}
	if in.PaymentReference != nil {
		changed["payment_reference"] = true
	}

	verr := domain.ValidationError{}
	if b.Status.IsInvoicedFamily() {
		for field := range changed {
			if !invoicedAllowList[field] {
				verr[field] = domain.ReasonNotAllowed
			}
		}
	}
	if changed["customer_id"] && b.HasEmittedContract() {
		verr["customer_id"] = domain.ReasonNotAllowed
	}
	if changed["center_id"] && b.HasLines() {
		verr["center_id"] = domain.ReasonNotAllowed
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

func checkGroupValues(g *domain.Group) error {
	if g.DateTo.Before(g.DateFrom) {
		return domain.NewValidationError("date_to", domain.ReasonInvalidDates)
	}
	if g.NbPers < 0 {
		return domain.NewValidationError("nb_pers", domain.ReasonInvalidValue)
	}
	if g.TimeFrom < 0 || g.TimeFrom > daySeconds || g.TimeTo < 0 || g.TimeTo > daySeconds {
		return domain.NewValidationError("time_from", domain.ReasonInvalidValue)
	}
	switch g.SojournType {
	case "", domain.SojournTypeGA, domain.SojournTypeGG:
	default:
		return domain.NewValidationError("sojourn_type", domain.ReasonInvalidValue)
	}
	return checkAgeRanges(g)
}

// checkAgeRanges requires the breakdown to add up to nb_pers once it has more than one
// age range.
func checkAgeRanges(g *domain.Group) error {
	if len(g.AgeRanges) <= 1 {
		return nil
	}
	sum := 0
	for _, a := range g.AgeRanges {
		if a.Qty < 0 {
			return domain.NewValidationError("age_range_assignments", domain.ReasonInvalidValue)
		}
		sum += a.Qty
	}
	if sum != g.NbPers {
		return domain.NewValidationError("age_range_assignments", domain.ReasonAgeRangeMismatch)
	}
	return nil
}

// checkMealPreferences rejects diets asking for more meals than the group has guests.
func checkMealPreferences(g *domain.Group) error {
	others := 0
	for _, p := range g.MealPreferences {
		if p.Qty < 0 {
			return domain.NewValidationError("meal_preferences", domain.ReasonInvalidValue)
		}
		if p.Type != domain.MealPreferenceRegular {
			others += p.Qty
		}
	}
	if others > g.NbPers {
		return domain.NewValidationError("meal_preferences", domain.ReasonExceededAmount)
	}
	return nil
}
