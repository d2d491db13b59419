package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusQuote         BookingStatus = "quote"
	BookingStatusOption        BookingStatus = "option"
	BookingStatusConfirmed     BookingStatus = "confirmed"
	BookingStatusValidated     BookingStatus = "validated"
	BookingStatusCheckedIn     BookingStatus = "checkedin"
	BookingStatusCheckedOut    BookingStatus = "checkedout"
	BookingStatusInvoiced      BookingStatus = "invoiced"
	BookingStatusDebitBalance  BookingStatus = "debit_balance"
	BookingStatusCreditBalance BookingStatus = "credit_balance"
	BookingStatusBalanced      BookingStatus = "balanced"
	BookingStatusCancelled     BookingStatus = "cancelled"
)

// IsInvoicedFamily reports statuses reached once the booking has been invoiced.
func (s BookingStatus) IsInvoicedFamily() bool {
	switch s {
	case BookingStatusInvoiced, BookingStatusDebitBalance, BookingStatusCreditBalance, BookingStatusBalanced:
		return true
	}
	return false
}

type Booking struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	CenterID         int64           `json:"center_id"`
	Status           BookingStatus   `json:"status"`
	DateFrom         time.Time       `json:"date_from"`
	DateTo           time.Time       `json:"date_to"`
	NbPers           int             `json:"nb_pers"`
	Price            decimal.Decimal `json:"price"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	IsLocked         bool            `json:"is_locked"`
	Description      string          `json:"description"`
	PaymentReference string          `json:"payment_reference"`
	Groups           []*Group        `json:"groups"`
	Fundings         []Funding       `json:"fundings"`
	Contracts        []Contract      `json:"contracts"`
	Invoices         []Invoice       `json:"invoices"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Funding struct {
	ID         int64           `json:"id"`
	DueDate    time.Time       `json:"due_date"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	IsPaid     bool            `json:"is_paid"`
}

type ContractStatus string

const (
	ContractStatusPending   ContractStatus = "pending"
	ContractStatusSent      ContractStatus = "sent"
	ContractStatusSigned    ContractStatus = "signed"
	ContractStatusCancelled ContractStatus = "cancelled"
)

type Contract struct {
	ID     int64          `json:"id"`
	Status ContractStatus `json:"status"`
}

type InvoiceStatus string

const (
	InvoiceStatusProforma  InvoiceStatus = "proforma"
	InvoiceStatusInvoice   InvoiceStatus = "invoice"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID        int64         `json:"id"`
	Status    InvoiceStatus `json:"status"`
	IsDeposit bool          `json:"is_deposit"`
}

func (b *Booking) HasSignedContract() bool {
	for _, c := range b.Contracts {
		if c.Status == ContractStatusSigned {
			return true
		}
	}
	return false
}

// HasEmittedContract is true as soon as a contract left the pending state.
func (b *Booking) HasEmittedContract() bool {
	for _, c := range b.Contracts {
		if c.Status != ContractStatusPending && c.Status != ContractStatusCancelled {
			return true
		}
	}
	return false
}

func (b *Booking) HasFinalInvoice() bool {
	for _, inv := range b.Invoices {
		if inv.Status != InvoiceStatusCancelled && !inv.IsDeposit {
			return true
		}
	}
	return false
}

func (b *Booking) HasLines() bool {
	for _, g := range b.Groups {
		if len(g.Lines) > 0 {
			return true
		}
	}
	return false
}

func (b *Booking) Group(id int64) *Group {
	for _, g := range b.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Line looks up a line across all groups and returns it with its owner.
func (b *Booking) Line(id int64) (*Group, *Line) {
	for _, g := range b.Groups {
		for _, l := range g.Lines {
			if l.ID == id {
				return g, l
			}
		}
	}
	return nil, nil
}

func (b *Booking) Adapter(id int64) (*Group, *PriceAdapter) {
	for _, g := range b.Groups {
		for _, a := range g.Adapters {
			if a.ID == id {
				return g, a
			}
		}
	}
	return nil, nil
}

func (b *Booking) AutosaleGroup() *Group {
	for _, g := range b.Groups {
		if g.IsAutosale {
			return g
		}
	}
	return nil
}

func (b *Booking) RemoveGroup(id int64) {
	groups := b.Groups[:0]
	for _, g := range b.Groups {
		if g.ID != id {
			groups = append(groups, g)
		}
	}
	b.Groups = groups
}

// NbNights is the span of the whole booking.
func (b *Booking) NbNights() int {
	return nightsBetween(b.DateFrom, b.DateTo)
}

// SyncDates widens the booking window to cover its groups.
func (b *Booking) SyncDates() {
	first := true
	for _, g := range b.Groups {
		if g.IsAutosale {
			continue
		}
		if first || g.DateFrom.Before(b.DateFrom) {
			b.DateFrom = g.DateFrom
		}
		if first || g.DateTo.After(b.DateTo) {
			b.DateTo = g.DateTo
		}
		first = false
	}
}

// Clone returns a deep copy so that a rejected cascade leaves the original untouched.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Groups = make([]*Group, len(b.Groups))
	for i, g := range b.Groups {
		c.Groups[i] = g.Clone()
	}
	c.Fundings = append([]Funding(nil), b.Fundings...)
	c.Contracts = append([]Contract(nil), b.Contracts...)
	c.Invoices = append([]Invoice(nil), b.Invoices...)
	return &c
}

// nightsBetween counts calendar days, so a stay over a DST change keeps its nights.
func nightsBetween(from, to time.Time) int {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}
