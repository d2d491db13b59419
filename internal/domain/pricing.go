package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceListStatus string

const (
	PriceListStatusPending   PriceListStatus = "pending"
	PriceListStatusPublished PriceListStatus = "published"
	PriceListStatusClosed    PriceListStatus = "closed"
)

type PriceList struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	DateFrom   time.Time       `json:"date_from"`
	DateTo     time.Time       `json:"date_to"`
	Status     PriceListStatus `json:"status"`
}

// Duration is the width of the applicability window; narrower lists are more specific.
func (p PriceList) Duration() time.Duration {
	return p.DateTo.Sub(p.DateFrom)
}

func (p PriceList) Covers(date time.Time) bool {
	return !date.Before(p.DateFrom) && !date.After(p.DateTo)
}

type Price struct {
	ID          int64           `json:"id"`
	PriceListID int64           `json:"price_list_id"`
	ProductID   int64           `json:"product_id"`
	Price       decimal.Decimal `json:"price"`
	VatRate     decimal.Decimal `json:"vat_rate"`
}

type AdapterType string

const (
	AdapterTypeAmount  AdapterType = "amount"
	AdapterTypePercent AdapterType = "percent"
	AdapterTypeFreebie AdapterType = "freebie"
)

// PriceAdapter is a manual or computed price modification on a group or a line.
type PriceAdapter struct {
	ID             int64           `json:"id"`
	BookingID      int64           `json:"booking_id"`
	GroupID        int64           `json:"group_id"`
	LineID         *int64          `json:"line_id,omitempty"`
	Type           AdapterType     `json:"type"`
	Value          decimal.Decimal `json:"value"`
	IsManual       bool            `json:"is_manual_discount"`
	DiscountID     *int64          `json:"discount_id,omitempty"`
	DiscountListID *int64          `json:"discount_list_id,omitempty"`
}

// AppliesTo tells whether the adapter targets the given line (nil line means group level).
func (a *PriceAdapter) AppliesTo(lineID int64) bool {
	return a.LineID != nil && *a.LineID == lineID
}

func (a *PriceAdapter) IsGroupLevel() bool {
	return a.LineID == nil
}

func (a *PriceAdapter) Clone() *PriceAdapter {
	c := *a
	c.LineID = cloneID(a.LineID)
	c.DiscountID = cloneID(a.DiscountID)
	c.DiscountListID = cloneID(a.DiscountListID)
	return &c
}

// ID returns a pointer to a copy of id; handy for optional references.
func ID(id int64) *int64 {
	return &id
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
