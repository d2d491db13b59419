package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/shopspring/decimal"
)

// UpdateStatusFromFundings stores the given payment side snapshots and moves the booking
// along the status chain they allow.
func (s *BookingService) UpdateStatusFromFundings(ctx context.Context, bookingID int64, input FundingsInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "update_status_from_fundings", func(b *domain.Booking, _ *plan) error {
		if input.Fundings != nil {
			b.Fundings = append([]domain.Funding(nil), (*input.Fundings)...)
		}
		if input.Contracts != nil {
			b.Contracts = append([]domain.Contract(nil), (*input.Contracts)...)
		}
		if input.Invoices != nil {
			b.Invoices = append([]domain.Invoice(nil), (*input.Invoices)...)
		}
		b.PaidAmount = PaidAmount(b)
		if next, ok := NextStatus(b, s.now()); ok {
			b.Status = next
		}
		return nil
	})
}

// NextStatus returns the status the fundings, contracts and invoices of a booking lead
// to, if any.
func NextStatus(b *domain.Booking, now time.Time) (domain.BookingStatus, bool) {
	switch {
	case b.Status == domain.BookingStatusConfirmed:
		if b.HasSignedContract() && fundingsSettled(b.Fundings, now) {
			return domain.BookingStatusValidated, true
		}
	case b.Status.IsInvoicedFamily():
		if !b.HasFinalInvoice() {
			return "", false
		}
		next := domain.BookingStatusBalanced
		switch PaidAmount(b).Round(2).Cmp(b.Price.Round(2)) {
		case -1:
			next = domain.BookingStatusDebitBalance
		case 1:
			next = domain.BookingStatusCreditBalance
		}
		return next, next != b.Status
	}
	return "", false
}

// fundingsSettled is true without fundings, when every past due funding is paid, or when
// nothing is due yet and at least one funding is paid.
func fundingsSettled(fundings []domain.Funding, now time.Time) bool {
	if len(fundings) == 0 {
		return true
	}
	pastDue, anyPaid := 0, false
	for _, f := range fundings {
		if f.IsPaid {
			anyPaid = true
		}
		if f.DueDate.Before(now) {
			pastDue++
			if !f.IsPaid {
				return false
			}
		}
	}
	if pastDue > 0 {
		return true
	}
	return anyPaid
}

func PaidAmount(b *domain.Booking) decimal.Decimal {
	total := decimal.Zero
	for _, f := range b.Fundings {
		total = total.Add(f.PaidAmount)
	}
	return total
}
