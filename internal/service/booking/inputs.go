package booking

import (
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/shopspring/decimal"
)

// Update inputs use pointer fields: nil leaves the field untouched.

type CreateBookingInput struct {
	CustomerID       int64  `json:"customer_id"`
	CenterID         int64  `json:"center_id"`
	Description      string `json:"description"`
	PaymentReference string `json:"payment_reference"`
}

type UpdateBookingInput struct {
	CustomerID       *int64  `json:"customer_id,omitempty"`
	CenterID         *int64  `json:"center_id,omitempty"`
	Description      *string `json:"description,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`
}

type AgeRangeInput struct {
	AgeRangeID int64 `json:"age_range_id"`
	Qty        int   `json:"qty"`
}

type CreateGroupInput struct {
	Name            string                  `json:"name"`
	DateFrom        time.Time               `json:"date_from"`
	DateTo          time.Time               `json:"date_to"`
	TimeFrom        int                     `json:"time_from"`
	TimeTo          int                     `json:"time_to"`
	NbPers          int                     `json:"nb_pers"`
	IsSojourn       bool                    `json:"is_sojourn"`
	IsEvent         bool                    `json:"is_event"`
	PackID          *int64                  `json:"pack_id,omitempty"`
	RateClassID     int64                   `json:"rate_class_id"`
	SojournType     domain.SojournType      `json:"sojourn_type"`
	AgeRanges       []AgeRangeInput         `json:"age_range_assignments"`
	MealPreferences []domain.MealPreference `json:"meal_preferences"`
}

type UpdateGroupInput struct {
	Name                 *string                  `json:"name,omitempty"`
	DateFrom             *time.Time               `json:"date_from,omitempty"`
	DateTo               *time.Time               `json:"date_to,omitempty"`
	TimeFrom             *int                     `json:"time_from,omitempty"`
	TimeTo               *int                     `json:"time_to,omitempty"`
	NbPers               *int                     `json:"nb_pers,omitempty"`
	PackID               *int64                   `json:"pack_id,omitempty"`
	DetachPack           bool                     `json:"detach_pack,omitempty"`
	RateClassID          *int64                   `json:"rate_class_id,omitempty"`
	SojournType          *domain.SojournType      `json:"sojourn_type,omitempty"`
	AgeRanges            *[]AgeRangeInput         `json:"age_range_assignments,omitempty"`
	MealPreferences      *[]domain.MealPreference `json:"meal_preferences,omitempty"`
	HasLockedRentalUnits *bool                    `json:"has_locked_rental_units,omitempty"`
}

type AddLineInput struct {
	ProductID int64 `json:"product_id"`
	// Qty is taken as a manual quantity when set.
	Qty *int `json:"qty,omitempty"`
}

type UpdateLineInput struct {
	ProductID *int64           `json:"product_id,omitempty"`
	Qty       *int             `json:"qty,omitempty"`
	ResetQty  bool             `json:"reset_qty,omitempty"`
	QtyVars   *domain.QtyVars  `json:"qty_vars,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`

	// ResetUnitPrice drops a manual unit price and goes back to the price list.
	ResetUnitPrice bool `json:"reset_unit_price,omitempty"`
}

type AdapterInput struct {
	LineID *int64             `json:"line_id,omitempty"`
	Type   domain.AdapterType `json:"type"`
	Value  decimal.Decimal    `json:"value"`
}

type UpdateAdapterInput struct {
	Type  *domain.AdapterType `json:"type,omitempty"`
	Value *decimal.Decimal    `json:"value,omitempty"`
}

// FundingsInput carries snapshots of the payment side records. A nil slice keeps the
// stored records.
type FundingsInput struct {
	Fundings  *[]domain.Funding  `json:"fundings,omitempty"`
	Contracts *[]domain.Contract `json:"contracts,omitempty"`
	Invoices  *[]domain.Invoice  `json:"invoices,omitempty"`
}
