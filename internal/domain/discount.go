package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condition is one operand/operator/value triple of a discount or autosale rule.
type Condition struct {
	Operand  string `json:"operand"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type DiscountScope string

const (
	DiscountScopeBooking DiscountScope = "booking"
	DiscountScopeLine    DiscountScope = "line"
	DiscountScopeGroup   DiscountScope = "group"
)

type Discount struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        AdapterType     `json:"type"`
	Value       decimal.Decimal `json:"value"`
	ValueMax    string          `json:"value_max,omitempty"`
	Scope       DiscountScope   `json:"scope"`
	AgeRangeIDs []int64         `json:"age_ranges,omitempty"`
	Conditions  []Condition     `json:"conditions"`
}

func (d *Discount) TargetsAgeRange(id int64) bool {
	for _, a := range d.AgeRangeIDs {
		if a == id {
			return true
		}
	}
	return false
}

type DiscountList struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CategoryID  int64           `json:"category_id"`
	RateClassID int64           `json:"rate_class_id"`
	ValidFrom   time.Time       `json:"valid_from"`
	ValidUntil  time.Time       `json:"valid_until"`
	RateMin     decimal.Decimal `json:"rate_min"`
	RateMax     decimal.Decimal `json:"rate_max"`
	Discounts   []Discount      `json:"discounts"`
}

type AutosaleLine struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	ProductID  int64         `json:"product_id"`
	Scope      DiscountScope `json:"scope"`
	HasOwnQty  bool          `json:"has_own_qty"`
	Qty        int           `json:"qty"`
	Conditions []Condition   `json:"conditions"`
}

type AutosaleList struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	CategoryID int64          `json:"category_id"`
	ValidFrom  time.Time      `json:"valid_from"`
	ValidUntil time.Time      `json:"valid_until"`
	Lines      []AutosaleLine `json:"autosale_lines"`
}

type SeasonPeriod struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	SeasonTypeID int64     `json:"season_type_id"`
	DateFrom     time.Time `json:"date_from"`
	DateTo       time.Time `json:"date_to"`
}
