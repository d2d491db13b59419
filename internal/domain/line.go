package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type QtyAccountingMethod string

const (
	QtyAccountingUnit         QtyAccountingMethod = "unit"
	QtyAccountingPerson       QtyAccountingMethod = "person"
	QtyAccountingAccomodation QtyAccountingMethod = "accomodation"
)

// PriceState distinguishes a genuinely free line from a price list gap.
type PriceState string

const (
	PriceStateResolved   PriceState = "resolved"
	PriceStateFree       PriceState = "free"
	PriceStateUnresolved PriceState = "unresolved"
)

type Line struct {
	ID                  int64               `json:"id"`
	GroupID             int64               `json:"group_id"`
	Order               int                 `json:"order"`
	ProductID           int64               `json:"product_id"`
	ProductModelID      int64               `json:"product_model_id"`
	Qty                 int                 `json:"qty"`
	QtyVars             QtyVars             `json:"qty_vars"`
	HasOwnQty           bool                `json:"has_own_qty"`
	UnitPrice           decimal.Decimal     `json:"unit_price"`
	HasManualUnitPrice  bool                `json:"has_manual_unit_price"`
	VatRate             decimal.Decimal     `json:"vat_rate"`
	PriceID             *int64              `json:"price_id,omitempty"`
	IsTBC               bool                `json:"is_tbc"`
	PriceState          PriceState          `json:"price_state"`
	IsRentalUnit        bool                `json:"is_rental_unit"`
	IsAccomodation      bool                `json:"is_accomodation"`
	IsMeal              bool                `json:"is_meal"`
	QtyAccountingMethod QtyAccountingMethod `json:"qty_accounting_method"`
	IsAutosale          bool                `json:"is_autosale"`
	IsExtra             bool                `json:"is_extra"`
	Total               decimal.Decimal     `json:"total"`
	Price               decimal.Decimal     `json:"price"`
}

// DetachPrice drops the resolved price list entry.
func (l *Line) DetachPrice() {
	l.PriceID = nil
	l.IsTBC = false
}

func (l *Line) Clone() *Line {
	c := *l
	c.QtyVars = append(QtyVars(nil), l.QtyVars...)
	if l.PriceID != nil {
		id := *l.PriceID
		c.PriceID = &id
	}
	return &c
}

// QtyVars holds per-day quantity deltas. Stored as a JSON integer array.
type QtyVars []int

func (v QtyVars) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(v))
}

// ParseQtyVars accepts both a raw JSON array and a JSON string wrapping one.
func ParseQtyVars(raw []byte) (QtyVars, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
		if s == "" {
			return nil, nil
		}
	}
	var vars []int
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, err
	}
	return QtyVars(vars), nil
}

func (v *QtyVars) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		*v = nil
		return nil
	}
	parsed, err := ParseQtyVars(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v QtyVars) Sum() int {
	n := 0
	for _, d := range v {
		n += d
	}
	return n
}

func (v QtyVars) HasVariation() bool {
	for _, d := range v {
		if d != 0 {
			return true
		}
	}
	return false
}
